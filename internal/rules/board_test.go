package rules

import (
	"testing"

	"goban/internal/domain/game"
)

func mustPlay(t *testing.T, b *Board, coords ...string) {
	t.Helper()
	for _, s := range coords {
		v, err := game.ParseVertex(s, b.Size())
		if err != nil {
			t.Fatalf("bad vertex %q: %v", s, err)
		}
		if err := b.Play(v); err != nil {
			t.Fatalf("Play(%s) as %s: %v", s, b.CurrentColor(), err)
		}
	}
}

func hasStone(b *Board, s string) bool {
	for _, st := range b.Stones() {
		if st == s {
			return true
		}
	}
	return false
}

func TestAlternatingColors(t *testing.T) {
	b, err := New(9)
	if err != nil {
		t.Fatal(err)
	}
	if b.CurrentColor() != game.ColorBlack {
		t.Fatalf("CurrentColor = %s, want B", b.CurrentColor())
	}
	mustPlay(t, b, "C3")
	if b.CurrentColor() != game.ColorWhite {
		t.Fatalf("CurrentColor = %s, want W", b.CurrentColor())
	}
}

func TestOccupiedPointIsIllegal(t *testing.T) {
	b, _ := New(9)
	mustPlay(t, b, "C3")
	v, _ := game.ParseVertex("C3", 9)
	if b.IsLegal(v, game.ColorWhite) {
		t.Fatal("occupied point reported legal")
	}
}

func TestCornerCapture(t *testing.T) {
	b, _ := New(9)
	// B A2, W A1, B B1 — белый камень в углу остаётся без дыханий
	mustPlay(t, b, "A2", "A1", "B1")
	if hasStone(b, "W A1") {
		t.Fatal("captured stone still on the board")
	}
	if got := len(b.Stones()); got != 2 {
		t.Fatalf("stones = %d, want 2", got)
	}
}

func TestSuicideIsIllegal(t *testing.T) {
	b, _ := New(9)
	mustPlay(t, b, "A2", "E5", "B1")
	v, _ := game.ParseVertex("A1", 9)
	if b.IsLegal(v, game.ColorWhite) {
		t.Fatal("suicide reported legal")
	}
}

func TestSimpleKo(t *testing.T) {
	b, _ := New(9)
	// собираем ко вокруг C3/D3
	mustPlay(t, b,
		"B3", "C3",
		"C2", "D2",
		"C4", "D4",
		"A1", "E3",
		"D3", // снимает C3
	)
	if hasStone(b, "W C3") {
		t.Fatal("ko stone was not captured")
	}
	v, _ := game.ParseVertex("C3", 9)
	if b.IsLegal(v, game.ColorWhite) {
		t.Fatal("immediate ko recapture reported legal")
	}
	// ход в другом месте снимает запрет ко
	mustPlay(t, b, "G7")
	if !b.IsLegal(v, game.ColorBlack) {
		t.Fatal("point should be playable after ko is cleared")
	}
}

func TestHandicapGivesWhiteTheMove(t *testing.T) {
	b, _ := New(9)
	vs, err := game.ParseVertexList("C3 G7", 9)
	if err != nil {
		t.Fatal(err)
	}
	b.PlaceHandicap(vs)
	if b.CurrentColor() != game.ColorWhite {
		t.Fatalf("CurrentColor = %s, want W", b.CurrentColor())
	}
	if !hasStone(b, "B C3") || !hasStone(b, "B G7") {
		t.Fatalf("handicap stones missing: %v", b.Stones())
	}
}

func TestTwoPassesFinishTheGame(t *testing.T) {
	b, _ := New(9)
	b.Pass()
	b.Pass()
	if !b.Finished() {
		t.Fatal("game should be finished after two passes")
	}
	v, _ := game.ParseVertex("C3", 9)
	if b.IsLegal(v, game.ColorBlack) {
		t.Fatal("move on a finished game reported legal")
	}
}
