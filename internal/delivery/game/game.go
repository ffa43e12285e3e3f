package game

import (
	"bytes"
	"encoding/json"
	goerrors "errors"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"goban/internal/bootstrap"
	"goban/internal/domain/game"
	"goban/internal/errors"
	"goban/internal/events"
	"goban/internal/httpresponse"
	gameuc "goban/internal/usecase/game"
	"goban/internal/usecase/load"
	"goban/internal/usecase/setup"
)

type GameHandler struct {
	cfg     bootstrap.Config
	log     *zap.SugaredLogger
	handle  *game.Handle
	gameUC  *gameuc.GameUseCase
	setupUC *setup.Orchestrator
	loadUC  *load.Orchestrator
	bus     *events.Bus

	connsMu sync.Mutex
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func NewGameHandler(
	cfg bootstrap.Config,
	log *zap.SugaredLogger,
	handle *game.Handle,
	gameUC *gameuc.GameUseCase,
	setupUC *setup.Orchestrator,
	loadUC *load.Orchestrator,
	bus *events.Bus,
) *GameHandler {
	h := &GameHandler{
		cfg:     cfg,
		log:     log,
		handle:  handle,
		gameUC:  gameUC,
		setupUC: setupUC,
		loadUC:  loadUC,
		bus:     bus,
	}
	setupUC.OnBotMove = h.pushBotMove
	loadUC.Progress = progressLogger{log: log}
	go h.watchEvents()
	return h
}

// progressLogger — приёмник прогресса загрузки; на исход не влияет.
type progressLogger struct {
	log *zap.SugaredLogger
}

func (p progressLogger) Report(fraction float64, label string) {
	p.log.Infow("прогресс загрузки", "fraction", fraction, "label", label)
}

func (h *GameHandler) HandleNewGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpresponse.WriteResponseWithStatus(w, http.StatusMethodNotAllowed, "Only POST method is allowed")
		return
	}

	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		h.log.Error("Failed to read body:", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	defer r.Body.Close()

	var req game.CreateGameRequest
	decoder := json.NewDecoder(bytes.NewReader(bodyBytes))
	decoder.DisallowUnknownFields()
	if err = decoder.Decode(&req); err != nil {
		h.log.Error("JSON decode error:", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}

	conf := h.setupUC.DefaultConfig()
	if req.BoardSize != 0 {
		conf.BoardSize = req.BoardSize
	}
	if req.Komi != 0 {
		conf.Komi = req.Komi
	}
	conf.Handicap = req.Handicap
	if req.BotColor != "" {
		c, err := game.ParseColor(req.BotColor)
		if err != nil {
			httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest, "bad bot_color")
			return
		}
		conf.BlackIsBot = c == game.ColorBlack
		conf.WhiteIsBot = c == game.ColorWhite
	}

	g, err := h.setupUC.NewGame(conf, setup.Options{
		SetupEngine:  true,
		SetupStones:  true,
		ApplyProfile: true,
		KickOffBot:   true,
	})
	if err != nil {
		h.log.Error(err)
		if goerrors.Is(err, errors.ErrEngineUnavailable) {
			httpresponse.WriteResponseWithStatus(w, http.StatusServiceUnavailable, "движок недоступен")
			return
		}
		httpresponse.WriteInternalErrorResponse(w)
		return
	}

	h.log.Info("New Game Created with key: " + g.GameKey)
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, game.GameCreateResponse{UniqueKey: g.GameKey})
}

func (h *GameHandler) HandleLoadGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpresponse.WriteResponseWithStatus(w, http.StatusMethodNotAllowed, "Only POST method is allowed")
		return
	}

	var req game.LoadGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GameID == "" {
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	defer r.Body.Close()

	ctx := r.Context()

	path, cleanup, err := h.gameUC.FetchArchiveFile(ctx, req.GameID)
	if err != nil {
		h.log.Error(err)
		if goerrors.Is(err, errors.ErrGameNotFound) {
			httpresponse.WriteResponseWithStatus(w, http.StatusNotFound, "партия не найдена в архиве")
			return
		}
		httpresponse.WriteInternalErrorResponse(w)
		return
	}
	defer cleanup()

	g, err := h.loadUC.LoadGame(path)
	if err != nil {
		var loadErr *load.Error
		if goerrors.As(err, &loadErr) {
			// система уже откатилась к играбельной партии по умолчанию
			httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest, map[string]string{
				"title":   loadErr.Title,
				"message": loadErr.Message,
			})
			return
		}
		httpresponse.WriteInternalErrorResponse(w)
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, h.summary(g))
}

func (h *GameHandler) HandleGameState(w http.ResponseWriter, r *http.Request) {
	g := h.handle.Get()
	if g == nil {
		httpresponse.WriteResponseWithStatus(w, http.StatusNotFound, "нет активной партии")
		return
	}
	sgfText, err := h.gameUC.CurrentSGF(r.Context())
	if err != nil {
		h.log.Error(err)
		sgfText = ""
	}
	resp := h.summary(g)
	resp["sgf"] = sgfText
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, resp)
}

func (h *GameHandler) HandleSaveGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpresponse.WriteResponseWithStatus(w, http.StatusMethodNotAllowed, "Only POST method is allowed")
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	defer r.Body.Close()

	if err := h.gameUC.SaveGame(r.Context(), req.Name); err != nil {
		h.log.Error(err)
		httpresponse.WriteInternalErrorResponse(w)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, "партия сохранена в архив")
}

func (h *GameHandler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	pageNum, _ := strconv.Atoi(r.URL.Query().Get("page"))
	entries, err := h.gameUC.ListArchive(r.Context(), pageNum)
	if err != nil {
		h.log.Error(err)
		httpresponse.WriteInternalErrorResponse(w)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, entries)
}

// HandlePlayGame — websocket живой партии: ход игрока внутрь, ход бота и
// обновлённый SGF наружу.
func (h *GameHandler) HandlePlayGame(w http.ResponseWriter, r *http.Request) {
	g := h.handle.Get()
	if g == nil {
		httpresponse.WriteResponseWithStatus(w, http.StatusNotFound, "нет активной партии")
		return
	}

	color, err := game.ParseColor(r.URL.Query().Get("color"))
	if err != nil {
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest, "отсутствует или неверен параметр color")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("upgrade error:", err)
		return
	}

	h.attach(g, color, conn)
	defer func() {
		conn.Close()
		h.detach(g, color, conn)
	}()

	for {
		var move game.Move
		if err = conn.ReadJSON(&move); err != nil {
			h.log.Error("read error:", err)
			return
		}

		h.log.Info("Получен ход: ", move)

		sgfText, err := h.gameUC.PlayMove(r.Context(), move)
		if err != nil {
			conn.WriteMessage(websocket.TextMessage, []byte(err.Error()))
			continue
		}

		h.broadcast(game.GameStateResponse{Move: move, SGF: sgfText})
	}
}

func (h *GameHandler) summary(g *game.Game) map[string]any {
	g.Lock()
	defer g.Unlock()
	return map[string]any{
		"game_key":     g.GameKey,
		"board_size":   g.BoardSize,
		"komi":         g.Komi,
		"moves":        len(g.Moves),
		"current_turn": string(g.Board.CurrentColor()),
		"status":       g.Status,
	}
}

func (h *GameHandler) attach(g *game.Game, c game.Color, conn *websocket.Conn) {
	h.connsMu.Lock()
	defer h.connsMu.Unlock()
	if c == game.ColorBlack {
		if g.PlayerBlackWS != nil {
			g.PlayerBlackWS.Close()
		}
		g.PlayerBlackWS = conn
	} else {
		if g.PlayerWhiteWS != nil {
			g.PlayerWhiteWS.Close()
		}
		g.PlayerWhiteWS = conn
	}
}

func (h *GameHandler) detach(g *game.Game, c game.Color, conn *websocket.Conn) {
	h.connsMu.Lock()
	defer h.connsMu.Unlock()
	if c == game.ColorBlack && g.PlayerBlackWS == conn {
		g.PlayerBlackWS = nil
	}
	if c == game.ColorWhite && g.PlayerWhiteWS == conn {
		g.PlayerWhiteWS = nil
	}
}

func (h *GameHandler) broadcast(payload any) {
	g := h.handle.Get()
	if g == nil {
		return
	}
	h.connsMu.Lock()
	defer h.connsMu.Unlock()
	for _, conn := range []*websocket.Conn{g.PlayerBlackWS, g.PlayerWhiteWS} {
		if conn == nil {
			continue
		}
		if err := conn.WriteJSON(payload); err != nil {
			h.log.Error("write error:", err)
		}
	}
}

func (h *GameHandler) pushBotMove(g *game.Game, m game.Move) {
	h.broadcast(game.GameStateResponse{Move: m})
}

// watchEvents транслирует события жизненного цикла партии подписчикам
// websocket (например, «партия загружена из архива»).
func (h *GameHandler) watchEvents() {
	ch := h.bus.Subscribe(8)
	for ev := range ch {
		h.broadcast(map[string]string{"event": string(ev.Type)})
	}
}
