package game

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Rules — локальный движок правил (проверка легальности, захваты).
// Сам GTP-движок им не является: это наша доска, которой мы проверяем
// восстановленные и живые ходы до того, как им поверить.
type Rules interface {
	Size() int
	CurrentColor() Color
	IsLegal(v Vertex, c Color) bool
	Play(v Vertex) error
	Pass()
	Resign()
	Finished() bool
	PlaceHandicap(vs []Vertex)
	Stones() []string
}

type Game struct {
	mu sync.Mutex

	CreatedAt      time.Time       `json:"created_at" bson:"created_at"`
	Status         string          `json:"status" bson:"status"`
	BoardSize      int             `json:"board_size" bson:"board_size"`
	GameKey        string          `json:"game_key" bson:"game_key"` // уникальный ключ
	Moves          []Move          `json:"moves" bson:"moves"`
	HandicapStones []string        `json:"handicap_stones,omitempty" bson:"handicap_stones,omitempty"`
	PlayerBlack    string          `json:"player_black" bson:"player_black"`
	PlayerWhite    string          `json:"player_white" bson:"player_white"`
	BlackIsBot     bool            `json:"black_is_bot" bson:"black_is_bot"`
	WhiteIsBot     bool            `json:"white_is_bot" bson:"white_is_bot"`
	Komi           float64         `json:"komi" bson:"komi"`
	RulesName      string          `json:"rules" bson:"rules"`
	PlayerBlackWS  *websocket.Conn `json:"-" bson:"-"`
	PlayerWhiteWS  *websocket.Conn `json:"-" bson:"-"`
	Board          Rules           `json:"-" bson:"-"`
}

// Lock сериализует доступ к записи. Handle защищает только указатель на
// текущую партию; саму запись одновременно трогают горутина websocket
// (ход человека) и горутина-читатель канала движка (ответ бота).
func (g *Game) Lock() { g.mu.Lock() }

func (g *Game) Unlock() { g.mu.Unlock() }

// IsBot сообщает, ходит ли за данный цвет компьютер.
func (g *Game) IsBot(c Color) bool {
	if c == ColorBlack {
		return g.BlackIsBot
	}
	return g.WhiteIsBot
}

// Handle — явно передаваемая ссылка на текущую партию. Партия всегда
// заменяется целиком, читатель видит либо старую, либо новую.
type Handle struct {
	mu sync.RWMutex
	g  *Game
}

func NewHandle() *Handle {
	return &Handle{}
}

func (h *Handle) Get() *Game {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.g
}

func (h *Handle) Replace(g *Game) (old *Game) {
	h.mu.Lock()
	defer h.mu.Unlock()
	old = h.g
	h.g = g
	return old
}

type GameCreateResponse struct {
	UniqueKey string `json:"unique_key" bson:"unique_key"`
}

type CreateGameRequest struct {
	BoardSize int     `json:"board_size"`
	Komi      float64 `json:"komi"`
	Handicap  int     `json:"handicap"`
	BotColor  string  `json:"bot_color"`
}

type LoadGameRequest struct {
	GameID string `json:"game_id"`
}

type GameStateResponse struct {
	Move Move   `json:"move"`
	SGF  string `json:"sgf"`
}

// ArchiveEntry — запись в архиве партий.
type ArchiveEntry struct {
	GameID    string    `json:"game_id" bson:"game_id"`
	Name      string    `json:"name" bson:"name"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	SGF       string    `json:"sgf,omitempty" bson:"sgf"`
}
