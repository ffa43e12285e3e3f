package setup

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"goban/internal/bootstrap"
	"goban/internal/domain/game"
	"goban/internal/errors"
	"goban/internal/events"
	"goban/internal/gtp"
	"goban/internal/rules"
	"goban/internal/statuses"
)

type Engine interface {
	Exec(command string) (gtp.Response, error)
	Submit(command string, mode gtp.Mode, cont gtp.Continuation) error
	ApplyBotProfile(commands []string) error
}

// Orchestrator собирает новую партию: заменяет текущую запись через Handle
// и прогоняет детерминированную последовательность команд настройки движка.
type Orchestrator struct {
	cfg    *bootstrap.Config
	log    *zap.SugaredLogger
	engine Engine
	bus    *events.Bus
	handle *game.Handle

	// OnBotMove дёргается после применённого хода бота (push в websocket).
	OnBotMove func(g *game.Game, m game.Move)
}

func NewOrchestrator(cfg *bootstrap.Config, log *zap.SugaredLogger, engine Engine, bus *events.Bus, handle *game.Handle) *Orchestrator {
	return &Orchestrator{cfg: cfg, log: log, engine: engine, bus: bus, handle: handle}
}

type GameConfig struct {
	BoardSize  int
	Komi       float64
	Handicap   int
	Rules      string
	BlackIsBot bool
	WhiteIsBot bool
}

type Options struct {
	SetupEngine  bool // clear_board + boardsize + правила
	SetupStones  bool // fixed_handicap + komi
	ApplyProfile bool
	KickOffBot   bool
	Prebuilt     *game.Game // установить готовую запись вместо сборки новой
}

// DefaultConfig — партия по умолчанию из конфигурации приложения.
func (o *Orchestrator) DefaultConfig() GameConfig {
	return GameConfig{
		BoardSize:  o.cfg.BoardSize,
		Komi:       o.cfg.Komi,
		Rules:      o.cfg.Rules,
		BlackIsBot: strings.EqualFold(o.cfg.BotColor, string(game.ColorBlack)),
		WhiteIsBot: strings.EqualFold(o.cfg.BotColor, string(game.ColorWhite)),
	}
}

// NewGame заменяет текущую партию и, по флагам, настраивает движок.
// Команды настройки обязаны отвечать успехом: отказ — внутренняя
// несогласованность (ErrInternal), продолжать в таком состоянии нельзя.
func (o *Orchestrator) NewGame(c GameConfig, opts Options) (*game.Game, error) {
	g := opts.Prebuilt
	if g == nil {
		board, err := rules.New(c.BoardSize)
		if err != nil {
			return nil, fmt.Errorf("сборка партии: %v: %w", err, errors.ErrInternal)
		}
		g = &game.Game{
			CreatedAt:   time.Now(),
			Status:      statuses.StatusActive,
			BoardSize:   c.BoardSize,
			GameKey:     uuid.New().String(),
			Komi:        c.Komi,
			RulesName:   c.Rules,
			BlackIsBot:  c.BlackIsBot,
			WhiteIsBot:  c.WhiteIsBot,
			PlayerBlack: playerName(c.BlackIsBot),
			PlayerWhite: playerName(c.WhiteIsBot),
			Board:       board,
		}
	}

	o.bus.Publish(events.Event{Type: events.GameWillChange, Game: o.handle.Get()})
	o.handle.Replace(g)
	o.bus.Publish(events.Event{Type: events.GameDidChange, Game: g})

	if opts.SetupEngine {
		if err := o.execSetup("clear_board"); err != nil {
			return g, err
		}
		if err := o.execSetup(fmt.Sprintf("boardsize %d", g.BoardSize)); err != nil {
			return g, err
		}
		if c.Rules != "" {
			if err := o.execSetup("kgs-rules " + c.Rules); err != nil {
				return g, err
			}
		}
	}

	if opts.SetupStones {
		if c.Handicap >= 2 {
			resp, err := o.engine.Exec(fmt.Sprintf("fixed_handicap %d", c.Handicap))
			if err != nil {
				return g, err
			}
			if !resp.Success {
				return g, fmt.Errorf("fixed_handicap %d: %s: %w", c.Handicap, resp.Text, errors.ErrInternal)
			}
			vs, err := game.ParseVertexList(resp.Text, g.BoardSize)
			if err != nil {
				return g, fmt.Errorf("fixed_handicap вернул %q: %v: %w", resp.Text, err, errors.ErrInternal)
			}
			o.applyHandicap(g, vs)
		}
		if err := o.execSetup(fmt.Sprintf("komi %.1f", g.Komi)); err != nil {
			return g, err
		}
	}

	if opts.ApplyProfile && o.cfg.BotProfile != "" {
		if err := o.engine.ApplyBotProfile(SplitProfile(o.cfg.BotProfile)); err != nil {
			return g, err
		}
	}

	if opts.KickOffBot {
		g.Lock()
		kick := g.IsBot(g.Board.CurrentColor())
		g.Unlock()
		if kick {
			o.KickOffBotMove(g)
		}
	}

	return g, nil
}

// ApplyHandicap выставляет уже известные форовые точки (восстановленные
// из архива) на локальную доску без обращения к движку.
func (o *Orchestrator) ApplyHandicap(g *game.Game, vs []game.Vertex) {
	o.applyHandicap(g, vs)
}

func (o *Orchestrator) applyHandicap(g *game.Game, vs []game.Vertex) {
	g.Lock()
	defer g.Unlock()
	g.Board.PlaceHandicap(vs)
	g.HandicapStones = g.HandicapStones[:0]
	for _, v := range vs {
		g.HandicapStones = append(g.HandicapStones, v.String())
	}
}

func (o *Orchestrator) execSetup(command string) error {
	resp, err := o.engine.Exec(command)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("команда настройки %q: %s: %w", command, resp.Text, errors.ErrInternal)
	}
	return nil
}

// KickOffBotMove асинхронно запрашивает ход бота. Продолжение до ответа
// принадлежит таблице команд в полёте, поэтому никакого отдельного
// удержания со стороны вызывающего не требуется: ответ будет собран,
// даже если вызывающая горутина давно завершилась.
func (o *Orchestrator) KickOffBotMove(g *game.Game) {
	g.Lock()
	color := g.Board.CurrentColor()
	g.Unlock()
	command := "genmove " + strings.ToLower(string(color))
	err := o.engine.Submit(command, gtp.ModeAsync, func(resp gtp.Response) {
		if !resp.Success {
			o.log.Errorw("движок не смог сгенерировать ход", "command", command, "text", resp.Text)
			return
		}
		o.applyBotMove(g, color, strings.TrimSpace(resp.Text))
	})
	if err != nil {
		o.log.Errorw("genmove не отправлен", "error", err)
	}
}

func (o *Orchestrator) applyBotMove(g *game.Game, color game.Color, vertexText string) {
	m := game.Move{Color: string(color), Coordinates: vertexText}

	g.Lock()
	err := o.applyToBoard(g, m)
	if err == nil {
		g.Moves = append(g.Moves, m)
	}
	g.Unlock()

	if err != nil {
		o.log.Errorw("ход бота не применён", "move", vertexText, "error", err)
		return
	}
	o.log.Infow("ход бота применён", "move", vertexText, "color", color)
	if o.OnBotMove != nil {
		o.OnBotMove(g, m)
	}
}

// вызывается под замком записи
func (o *Orchestrator) applyToBoard(g *game.Game, m game.Move) error {
	switch {
	case m.IsPass():
		g.Board.Pass()
	case m.IsResign():
		g.Board.Resign()
		g.Status = statuses.StatusCompleted
	default:
		v, err := game.ParseVertex(m.Coordinates, g.BoardSize)
		if err != nil {
			return err
		}
		return g.Board.Play(v)
	}
	return nil
}

// SplitProfile режет профиль бота из конфига на команды.
func SplitProfile(profile string) []string {
	var commands []string
	for _, part := range strings.Split(profile, ";") {
		if part = strings.TrimSpace(part); part != "" {
			commands = append(commands, part)
		}
	}
	return commands
}

func playerName(isBot bool) string {
	if isBot {
		return "computer"
	}
	return "human"
}
