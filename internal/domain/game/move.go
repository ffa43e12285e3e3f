package game

import (
	"fmt"
	"strings"
)

type Color string

const (
	ColorBlack Color = "B"
	ColorWhite Color = "W"
)

func (c Color) Opponent() Color {
	if c == ColorBlack {
		return ColorWhite
	}
	return ColorBlack
}

// ParseColor принимает "B", "b", "black", "W", "w", "white".
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "b", "black":
		return ColorBlack, nil
	case "w", "white":
		return ColorWhite, nil
	}
	return "", fmt.Errorf("unknown color %q", s)
}

// Vertex — точка доски. X и Y считаются от нуля, от левого нижнего угла.
type Vertex struct {
	X int
	Y int
}

// Колонки идут A..T без буквы I, как в GTP.
const columnLetters = "ABCDEFGHJKLMNOPQRSTUVWXYZ"

func (v Vertex) String() string {
	return fmt.Sprintf("%c%d", columnLetters[v.X], v.Y+1)
}

func ParseVertex(s string, boardSize int) (Vertex, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 2 {
		return Vertex{}, fmt.Errorf("bad vertex %q", s)
	}
	col := strings.IndexByte(columnLetters, s[0])
	if col < 0 {
		return Vertex{}, fmt.Errorf("bad vertex %q", s)
	}
	var row int
	if _, err := fmt.Sscanf(s[1:], "%d", &row); err != nil {
		return Vertex{}, fmt.Errorf("bad vertex %q", s)
	}
	v := Vertex{X: col, Y: row - 1}
	if v.X >= boardSize || v.Y < 0 || v.Y >= boardSize {
		return Vertex{}, fmt.Errorf("vertex %q is outside a %dx%d board", s, boardSize, boardSize)
	}
	return v, nil
}

// ParseVertexList разбирает ответ движка вида "D4 Q16" в список точек.
func ParseVertexList(text string, boardSize int) ([]Vertex, error) {
	var vs []Vertex
	for _, tok := range strings.Fields(text) {
		v, err := ParseVertex(tok, boardSize)
		if err != nil {
			return nil, err
		}
		vs = append(vs, v)
	}
	return vs, nil
}

// @name Move
type Move struct {
	Color       string `json:"color"`
	Coordinates string `json:"coordinates"`
}

func (m Move) IsPass() bool {
	return strings.EqualFold(strings.TrimSpace(m.Coordinates), "pass")
}

func (m Move) IsResign() bool {
	return strings.EqualFold(strings.TrimSpace(m.Coordinates), "resign")
}

// ParseMoveList разбирает текст из list_moves: пары "ЦВЕТ ТОЧКА",
// разделённые пробелами, запятые допускаются ("B C3, W G7, B pass").
func ParseMoveList(text string) ([]Move, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == ','
	})
	if len(fields) == 0 {
		return nil, nil
	}
	if len(fields)%2 != 0 {
		return nil, fmt.Errorf("move list has odd token count: %q", text)
	}
	moves := make([]Move, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		c, err := ParseColor(fields[i])
		if err != nil {
			return nil, fmt.Errorf("move %d: %w", i/2+1, err)
		}
		moves = append(moves, Move{Color: string(c), Coordinates: fields[i+1]})
	}
	return moves, nil
}
