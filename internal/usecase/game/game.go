package game

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"goban/internal/domain/game"
	sgf "goban/internal/domain/sgf"
	"goban/internal/errors"
	"goban/internal/gtp"
	"goban/internal/statuses"
)

type Engine interface {
	Exec(command string) (gtp.Response, error)
}

type Setup interface {
	KickOffBotMove(g *game.Game)
}

type GameStore interface {
	SaveSGF(ctx context.Context, key string, sgfText string) error
	LoadSGF(ctx context.Context, key string) (string, error)
	SaveToArchive(ctx context.Context, entry game.ArchiveEntry) error
	GetArchiveSGF(ctx context.Context, gameID string) (string, error)
	ListArchive(ctx context.Context, pageNum int) ([]game.ArchiveEntry, error)
}

// GameUseCase — живая партия: ходы человека проверяются локальной доской,
// проталкиваются в движок и, если очередь бота, запрашивается его ответ.
type GameUseCase struct {
	log    *zap.SugaredLogger
	engine Engine
	setup  Setup
	handle *game.Handle
	store  GameStore
}

func NewGameUseCase(log *zap.SugaredLogger, engine Engine, st Setup, handle *game.Handle, store GameStore) *GameUseCase {
	return &GameUseCase{log: log, engine: engine, setup: st, handle: handle, store: store}
}

// PlayMove применяет ход человека. Ход, легальный на локальной доске, но
// отвергнутый движком, — внутренняя несогласованность (ErrInternal):
// продолжать в расползшемся состоянии нельзя.
func (u *GameUseCase) PlayMove(ctx context.Context, m game.Move) (string, error) {
	g := u.handle.Get()
	if g == nil {
		return "", errors.ErrGameNotFound
	}

	c, err := game.ParseColor(m.Color)
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, errors.ErrValidationFailure)
	}

	g.Lock()
	if c != g.Board.CurrentColor() {
		turn := g.Board.CurrentColor()
		g.Unlock()
		return "", fmt.Errorf("сейчас ходит %s: %w", turn, errors.ErrValidationFailure)
	}
	var v game.Vertex
	place := !m.IsPass() && !m.IsResign()
	if place {
		v, err = game.ParseVertex(m.Coordinates, g.BoardSize)
		if err != nil {
			g.Unlock()
			return "", fmt.Errorf("%v: %w", err, errors.ErrValidationFailure)
		}
		if !g.Board.IsLegal(v, c) {
			g.Unlock()
			return "", fmt.Errorf("нелегальный ход %s: %w", m.Coordinates, errors.ErrValidationFailure)
		}
	}
	g.Unlock()

	// замок не держится через блокирующий вызов движка: продолжение
	// genmove диспетчеризуется горутиной-читателем и само берёт замок.
	// Между проверкой и применением genmove в полёте нет: он бывает
	// только в очередь бота, а её отсекла проверка выше.
	switch {
	case m.IsPass():
		if err := u.enginePlay(c, "pass"); err != nil {
			return "", err
		}
	case place:
		if err := u.enginePlay(c, v.String()); err != nil {
			return "", err
		}
	}

	g.Lock()
	switch {
	case m.IsPass():
		g.Board.Pass()
	case m.IsResign():
		g.Board.Resign()
		g.Status = statuses.StatusCompleted
	default:
		if err := g.Board.Play(v); err != nil {
			g.Unlock()
			return "", fmt.Errorf("%v: %w", err, errors.ErrInternal)
		}
	}
	g.Moves = append(g.Moves, m)
	tree := sgf.FromGame(g)
	botTurn := !g.Board.Finished() && g.IsBot(g.Board.CurrentColor())
	g.Unlock()

	sgfText := sgf.Serialize(&tree)
	if err := u.store.SaveSGF(ctx, g.GameKey, sgfText); err != nil {
		u.log.Errorw("SGF не сохранён в кэш", "error", err)
	}

	if botTurn {
		u.setup.KickOffBotMove(g)
	}

	return sgfText, nil
}

func (u *GameUseCase) enginePlay(c game.Color, vertex string) error {
	command := fmt.Sprintf("play %s %s", c, vertex)
	resp, err := u.engine.Exec(command)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("%s: %s: %w", command, resp.Text, errors.ErrInternal)
	}
	return nil
}

// SaveGame кладёт текущую партию в архив.
func (u *GameUseCase) SaveGame(ctx context.Context, name string) error {
	g := u.handle.Get()
	if g == nil {
		return errors.ErrGameNotFound
	}
	g.Lock()
	tree := sgf.FromGame(g)
	g.Unlock()
	entry := game.ArchiveEntry{
		GameID:    g.GameKey,
		Name:      name,
		CreatedAt: time.Now(),
		SGF:       sgf.Serialize(&tree),
	}
	return u.store.SaveToArchive(ctx, entry)
}

// FetchArchiveFile выгружает SGF из архива во временный файл для
// оркестратора загрузки. cleanup обязателен к вызову.
func (u *GameUseCase) FetchArchiveFile(ctx context.Context, gameID string) (path string, cleanup func(), err error) {
	text, err := u.store.GetArchiveSGF(ctx, gameID)
	if err != nil {
		return "", nil, err
	}
	f, err := os.CreateTemp("", "archive-*.sgf")
	if err != nil {
		return "", nil, fmt.Errorf("%v: %w", err, errors.ErrIOFailure)
	}
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("%v: %w", err, errors.ErrIOFailure)
	}
	f.Close()
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}

func (u *GameUseCase) ListArchive(ctx context.Context, pageNum int) ([]game.ArchiveEntry, error) {
	return u.store.ListArchive(ctx, pageNum)
}

func (u *GameUseCase) CurrentSGF(ctx context.Context) (string, error) {
	g := u.handle.Get()
	if g == nil {
		return "", errors.ErrGameNotFound
	}
	cached, err := u.store.LoadSGF(ctx, g.GameKey)
	if err == nil && cached != "" {
		return cached, nil
	}
	g.Lock()
	tree := sgf.FromGame(g)
	g.Unlock()
	return sgf.Serialize(&tree), nil
}
