package game

import (
	"context"
	goerrors "errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"goban/internal/bootstrap"
	"goban/internal/domain/game"
	"goban/internal/errors"
	"goban/internal/events"
	"goban/internal/gtp"
	"goban/internal/usecase/setup"
)

type fakeEngine struct {
	mu        sync.Mutex
	commands  []string
	responses map[string]gtp.Response // по первому слову команды
	genmoves  []string                // очередь ответов на genmove
	genIdx    int
	async     bool // продолжения на отдельной горутине, как у живого клиента
}

func (f *fakeEngine) Exec(command string) (gtp.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, command)
	head := strings.Fields(command)[0]
	if head == "genmove" && f.genIdx < len(f.genmoves) {
		resp := gtp.Response{Success: true, Text: f.genmoves[f.genIdx]}
		f.genIdx++
		return resp, nil
	}
	if r, ok := f.responses[head]; ok {
		return r, nil
	}
	return gtp.Response{Success: true}, nil
}

func (f *fakeEngine) Submit(command string, mode gtp.Mode, cont gtp.Continuation) error {
	r, err := f.Exec(command)
	if err != nil {
		return err
	}
	if cont == nil {
		return nil
	}
	if f.async {
		go cont(r)
	} else {
		cont(r)
	}
	return nil
}

func (f *fakeEngine) ApplyBotProfile(commands []string) error { return nil }

func (f *fakeEngine) has(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.commands {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

type fakeStore struct {
	mu    sync.Mutex
	saved map[string]string
}

func (s *fakeStore) SaveSGF(ctx context.Context, key string, sgfText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		s.saved = make(map[string]string)
	}
	s.saved[key] = sgfText
	return nil
}

func (s *fakeStore) LoadSGF(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved[key], nil
}

func (s *fakeStore) SaveToArchive(ctx context.Context, entry game.ArchiveEntry) error {
	return nil
}

func (s *fakeStore) GetArchiveSGF(ctx context.Context, gameID string) (string, error) {
	return "", errors.ErrGameNotFound
}

func (s *fakeStore) ListArchive(ctx context.Context, pageNum int) ([]game.ArchiveEntry, error) {
	return nil, nil
}

func newFixture(t *testing.T, eng *fakeEngine) (*GameUseCase, *setup.Orchestrator, *game.Game, *fakeStore) {
	t.Helper()
	cfg := &bootstrap.Config{BoardSize: 9, Komi: 6.5, Rules: "chinese", BotColor: "W"}
	log := zap.NewNop().Sugar()
	bus := events.NewBus()
	handle := game.NewHandle()
	st := setup.NewOrchestrator(cfg, log, eng, bus, handle)
	store := &fakeStore{}
	uc := NewGameUseCase(log, eng, st, handle, store)

	g, err := st.NewGame(st.DefaultConfig(), setup.Options{})
	if err != nil {
		t.Fatalf("NewGame returned error: %v", err)
	}
	return uc, st, g, store
}

func TestPlayMoveHumanThenBotReply(t *testing.T) {
	eng := &fakeEngine{genmoves: []string{"C7"}}
	uc, _, g, store := newFixture(t, eng)

	sgfText, err := uc.PlayMove(context.Background(), game.Move{Color: "B", Coordinates: "C3"})
	if err != nil {
		t.Fatalf("PlayMove returned error: %v", err)
	}
	if !eng.has("play B C3") {
		t.Fatal("engine did not receive the human move")
	}
	if !eng.has("genmove w") {
		t.Fatal("bot reply was not requested")
	}
	if !strings.Contains(sgfText, ";B[cg]") {
		t.Fatalf("sgf = %q, want the played move", sgfText)
	}

	g.Lock()
	moves := len(g.Moves)
	turn := g.Board.CurrentColor()
	g.Unlock()
	if moves != 2 {
		t.Fatalf("moves = %d, want human + bot", moves)
	}
	if turn != game.ColorBlack {
		t.Fatalf("CurrentColor = %s, want B after the bot reply", turn)
	}

	if saved, _ := store.LoadSGF(context.Background(), g.GameKey); saved != sgfText {
		t.Fatal("SGF was not cached under the game key")
	}
}

func TestPlayMoveOutOfTurn(t *testing.T) {
	eng := &fakeEngine{}
	uc, _, _, _ := newFixture(t, eng)

	_, err := uc.PlayMove(context.Background(), game.Move{Color: "W", Coordinates: "C3"})
	if !goerrors.Is(err, errors.ErrValidationFailure) {
		t.Fatalf("error = %v, want ErrValidationFailure", err)
	}
	if eng.has("play") {
		t.Fatal("rejected move still reached the engine")
	}
}

// Ход, принятый локальной доской, но отвергнутый движком, — внутренняя
// несогласованность; локальная запись не меняется.
func TestPlayMoveEngineReject(t *testing.T) {
	eng := &fakeEngine{responses: map[string]gtp.Response{
		"play": {Success: false, Text: "illegal move"},
	}}
	uc, _, g, _ := newFixture(t, eng)

	_, err := uc.PlayMove(context.Background(), game.Move{Color: "B", Coordinates: "C3"})
	if !goerrors.Is(err, errors.ErrInternal) {
		t.Fatalf("error = %v, want ErrInternal", err)
	}

	g.Lock()
	defer g.Unlock()
	if len(g.Moves) != 0 || g.Board.CurrentColor() != game.ColorBlack {
		t.Fatalf("local record mutated after engine reject: moves %v, turn %s",
			g.Moves, g.Board.CurrentColor())
	}
}

func TestPlayMoveResignSkipsEngine(t *testing.T) {
	eng := &fakeEngine{}
	uc, _, g, _ := newFixture(t, eng)

	if _, err := uc.PlayMove(context.Background(), game.Move{Color: "B", Coordinates: "resign"}); err != nil {
		t.Fatalf("PlayMove returned error: %v", err)
	}
	if eng.has("play") || eng.has("genmove") {
		t.Fatalf("resign reached the engine: %v", eng.commands)
	}

	g.Lock()
	defer g.Unlock()
	if g.Status != "completed" {
		t.Fatalf("Status = %q, want completed", g.Status)
	}
}

// Ответы бота приходят с чужой горутины (как с горутины-читателя живого
// клиента) и перемежаются с ходами человека; запись остаётся согласованной.
func TestBotRepliesInterleaveWithHumanMoves(t *testing.T) {
	const rounds = 8
	genmoves := make([]string, 0, rounds)
	for i := 1; i <= rounds; i++ {
		genmoves = append(genmoves, fmt.Sprintf("C%d", i))
	}
	eng := &fakeEngine{async: true, genmoves: genmoves}
	uc, st, g, _ := newFixture(t, eng)

	replies := make(chan game.Move, rounds)
	st.OnBotMove = func(_ *game.Game, m game.Move) { replies <- m }

	for i := 1; i <= rounds; i++ {
		if _, err := uc.PlayMove(context.Background(), game.Move{Color: "B", Coordinates: fmt.Sprintf("A%d", i)}); err != nil {
			t.Fatalf("move %d: %v", i, err)
		}
		select {
		case <-replies:
		case <-time.After(time.Second):
			t.Fatalf("bot reply %d timed out", i)
		}
	}

	g.Lock()
	defer g.Unlock()
	if len(g.Moves) != 2*rounds {
		t.Fatalf("moves = %d, want %d", len(g.Moves), 2*rounds)
	}
	if g.Board.CurrentColor() != game.ColorBlack {
		t.Fatalf("CurrentColor = %s, want B", g.Board.CurrentColor())
	}
	if got := len(g.Board.Stones()); got != 2*rounds {
		t.Fatalf("stones = %d, want %d", got, 2*rounds)
	}
}
