package rules

import (
	"fmt"
	"sort"

	"goban/internal/domain/game"
)

// Board — локальная доска с настоящей проверкой легальности: занятость,
// самоубийство, простое ко, снятие групп без дыханий.
type Board struct {
	size     int
	points   []game.Color // "" — пусто, индекс y*size+x
	toMove   game.Color
	ko       int // индекс точки ко, -1 если нет
	passes   int
	finished bool
}

func New(size int) (*Board, error) {
	if size < 2 || size > 25 {
		return nil, fmt.Errorf("board size %d is out of range", size)
	}
	return &Board{
		size:   size,
		points: make([]game.Color, size*size),
		toMove: game.ColorBlack,
		ko:     -1,
	}, nil
}

func (b *Board) Size() int                { return b.size }
func (b *Board) CurrentColor() game.Color { return b.toMove }

// PlaceHandicap выставляет форовые камни чёрных; первый ход за белыми.
func (b *Board) PlaceHandicap(vs []game.Vertex) {
	for _, v := range vs {
		b.points[b.index(v)] = game.ColorBlack
	}
	if len(vs) > 0 {
		b.toMove = game.ColorWhite
	}
}

func (b *Board) index(v game.Vertex) int { return v.Y*b.size + v.X }

func (b *Board) neighbors(i int) []int {
	x, y := i%b.size, i/b.size
	ns := make([]int, 0, 4)
	if x > 0 {
		ns = append(ns, i-1)
	}
	if x < b.size-1 {
		ns = append(ns, i+1)
	}
	if y > 0 {
		ns = append(ns, i-b.size)
	}
	if y < b.size-1 {
		ns = append(ns, i+b.size)
	}
	return ns
}

// group собирает группу от точки i и сообщает, есть ли у неё дыхания.
func (b *Board) group(i int) (stones []int, hasLiberty bool) {
	color := b.points[i]
	seen := make(map[int]bool)
	frontier := []int{i}
	for len(frontier) > 0 {
		p := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		if seen[p] {
			continue
		}
		seen[p] = true
		stones = append(stones, p)
		for _, n := range b.neighbors(p) {
			switch b.points[n] {
			case "":
				hasLiberty = true
			case color:
				if !seen[n] {
					frontier = append(frontier, n)
				}
			}
		}
	}
	return stones, hasLiberty
}

// tryPlace ставит камень и снимает мёртвые группы противника.
// Возвращает ошибку и не меняет доску, если ход нелегален.
func (b *Board) tryPlace(v game.Vertex, c game.Color) error {
	i := b.index(v)
	if b.points[i] != "" {
		return fmt.Errorf("point %s is occupied", v)
	}
	if i == b.ko {
		return fmt.Errorf("point %s retakes the ko", v)
	}

	b.points[i] = c
	var captured []int
	for _, n := range b.neighbors(i) {
		if b.points[n] != c.Opponent() {
			continue
		}
		stones, alive := b.group(n)
		if alive {
			continue
		}
		for _, s := range stones {
			if b.points[s] != "" {
				b.points[s] = ""
				captured = append(captured, s)
			}
		}
	}

	own, alive := b.group(i)
	if !alive {
		// самоубийство: откат
		b.points[i] = ""
		for _, s := range captured {
			b.points[s] = c.Opponent()
		}
		return fmt.Errorf("move %s is suicide", v)
	}

	b.ko = -1
	if len(captured) == 1 && len(own) == 1 {
		if _, liberties := b.libertiesOf(i); liberties == 1 {
			b.ko = captured[0]
		}
	}
	return nil
}

func (b *Board) libertiesOf(i int) (stones []int, count int) {
	stones, _ = b.group(i)
	libs := make(map[int]bool)
	for _, s := range stones {
		for _, n := range b.neighbors(s) {
			if b.points[n] == "" {
				libs[n] = true
			}
		}
	}
	return stones, len(libs)
}

// IsLegal проверяет ход цветом c, не трогая доску.
func (b *Board) IsLegal(v game.Vertex, c game.Color) bool {
	if b.finished || v.X < 0 || v.X >= b.size || v.Y < 0 || v.Y >= b.size {
		return false
	}
	probe := b.clone()
	return probe.tryPlace(v, c) == nil
}

// Play ставит камень за того, чья очередь ходить.
func (b *Board) Play(v game.Vertex) error {
	if b.finished {
		return fmt.Errorf("game is finished")
	}
	if err := b.tryPlace(v, b.toMove); err != nil {
		return err
	}
	b.toMove = b.toMove.Opponent()
	b.passes = 0
	return nil
}

func (b *Board) Pass() {
	b.toMove = b.toMove.Opponent()
	b.ko = -1
	b.passes++
	if b.passes >= 2 {
		b.finished = true
	}
}

func (b *Board) Resign() {
	b.finished = true
}

func (b *Board) Finished() bool { return b.finished }

// Stones возвращает отсортированный список "ЦВЕТ ТОЧКА" для сравнения позиций.
func (b *Board) Stones() []string {
	var out []string
	for i, c := range b.points {
		if c == "" {
			continue
		}
		v := game.Vertex{X: i % b.size, Y: i / b.size}
		out = append(out, string(c)+" "+v.String())
	}
	sort.Strings(out)
	return out
}

func (b *Board) clone() *Board {
	points := make([]game.Color, len(b.points))
	copy(points, b.points)
	dup := *b
	dup.points = points
	return &dup
}
