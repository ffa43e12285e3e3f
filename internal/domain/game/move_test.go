package game

import (
	"testing"
)

func TestParseMoveList(t *testing.T) {
	moves, err := ParseMoveList("B C3, W G7, B pass")
	if err != nil {
		t.Fatalf("ParseMoveList returned error: %v", err)
	}
	if len(moves) != 3 {
		t.Fatalf("len(moves) = %d, want 3", len(moves))
	}
	if moves[0].Color != "B" || moves[0].Coordinates != "C3" {
		t.Fatalf("move 1 = %+v", moves[0])
	}
	if !moves[2].IsPass() {
		t.Fatalf("move 3 should be a pass: %+v", moves[2])
	}
}

func TestParseMoveListEmpty(t *testing.T) {
	moves, err := ParseMoveList("")
	if err != nil {
		t.Fatalf("ParseMoveList returned error: %v", err)
	}
	if len(moves) != 0 {
		t.Fatalf("len(moves) = %d, want 0", len(moves))
	}
}

func TestParseMoveListOddTokens(t *testing.T) {
	if _, err := ParseMoveList("B C3 W"); err == nil {
		t.Fatal("expected error for odd token count")
	}
}

func TestParseMoveListBadColor(t *testing.T) {
	if _, err := ParseMoveList("X C3"); err == nil {
		t.Fatal("expected error for unknown color")
	}
}

func TestParseVertexSkipsI(t *testing.T) {
	v, err := ParseVertex("J1", 9)
	if err != nil {
		t.Fatalf("ParseVertex(J1) error: %v", err)
	}
	if v.X != 8 || v.Y != 0 {
		t.Fatalf("J1 = %+v, want X=8 Y=0", v)
	}
	if _, err := ParseVertex("I3", 9); err == nil {
		t.Fatal("column I must not exist")
	}
}

func TestParseVertexOutOfRange(t *testing.T) {
	if _, err := ParseVertex("T19", 9); err == nil {
		t.Fatal("expected error for vertex outside the board")
	}
}

func TestVertexRoundTrip(t *testing.T) {
	for _, s := range []string{"A1", "C3", "J9"} {
		v, err := ParseVertex(s, 9)
		if err != nil {
			t.Fatalf("ParseVertex(%s) error: %v", s, err)
		}
		if v.String() != s {
			t.Fatalf("round trip %s -> %s", s, v.String())
		}
	}
}

func TestHandleReplace(t *testing.T) {
	h := NewHandle()
	if h.Get() != nil {
		t.Fatal("fresh handle should be empty")
	}
	first := &Game{GameKey: "first"}
	if old := h.Replace(first); old != nil {
		t.Fatalf("Replace returned %v, want nil", old)
	}
	second := &Game{GameKey: "second"}
	if old := h.Replace(second); old != first {
		t.Fatal("Replace did not return the previous game")
	}
	if h.Get() != second {
		t.Fatal("Get did not observe the replacement")
	}
}
