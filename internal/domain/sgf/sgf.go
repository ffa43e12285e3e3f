package sgf

import (
	"strconv"
	"strings"
	"time"

	"goban/internal/domain/game"
)

// GameTree представляет одно дерево в SGF (узел + варианты)
type GameTree struct {
	Nodes    []Node      // Последовательность узлов (основная линия)
	Children []*GameTree // Варианты (вариативные линии)
}

// Node представляет один узел SGF (набор свойств, таких как B[pd], W[dd], C[...])
type Node struct {
	Properties map[string][]string
}

// SGF представляет корневой элемент SGF-файла
type SGF struct {
	Root *GameTree
}

// FromGame собирает минимальный SGF текущей партии для архива.
// Разбор SGF остаётся на стороне движка (loadsgf), здесь только запись.
// Координаты переводятся из GTP-вершин в SGF-пары букв, пасс кодируется
// пустым значением, сдача — результатом RE.
func FromGame(g *game.Game) SGF {
	root := &GameTree{
		Nodes: []Node{
			{
				Properties: map[string][]string{
					"FF": {"4"},
					"GM": {"1"},
					"SZ": {strconv.Itoa(g.BoardSize)},
					"PB": {g.PlayerBlack},
					"PW": {g.PlayerWhite},
					"DT": {g.CreatedAt.Format(time.DateOnly)},
					"KM": {strconv.FormatFloat(g.Komi, 'f', 1, 64)},
					"RU": {g.RulesName},
				},
			},
		},
	}
	if len(g.HandicapStones) > 0 {
		var ab []string
		for _, s := range g.HandicapStones {
			if p, ok := pointText(s, g.BoardSize); ok {
				ab = append(ab, p)
			}
		}
		if len(ab) > 0 {
			root.Nodes[0].Properties["HA"] = []string{strconv.Itoa(len(ab))}
			root.Nodes[0].Properties["AB"] = ab
		}
	}
	for _, move := range g.Moves {
		switch {
		case move.IsResign():
			winner := game.Color(move.Color).Opponent()
			root.Nodes[0].Properties["RE"] = []string{string(winner) + "+Resign"}
		case move.IsPass():
			root.Nodes = append(root.Nodes, Node{
				Properties: map[string][]string{move.Color: {""}},
			})
		default:
			p, ok := pointText(move.Coordinates, g.BoardSize)
			if !ok {
				continue
			}
			root.Nodes = append(root.Nodes, Node{
				Properties: map[string][]string{move.Color: {p}},
			})
		}
	}
	return SGF{Root: root}
}

// pointText переводит GTP-вершину в SGF-пару букв: колонки идут подряд
// без пропуска I (GTP-колонка J — SGF-колонка i), ряды считаются сверху.
func pointText(coords string, size int) (string, bool) {
	v, err := game.ParseVertex(coords, size)
	if err != nil {
		return "", false
	}
	return string([]byte{byte('a' + v.X), byte('a' + size - 1 - v.Y)}), true
}

func Serialize(s *SGF) string {
	var builder strings.Builder
	builder.WriteString("(")
	serializeGameTree(&builder, s.Root)
	builder.WriteString(")")
	return builder.String()
}

func serializeGameTree(builder *strings.Builder, tree *GameTree) {
	for _, node := range tree.Nodes {
		builder.WriteString(";")

		// фиксированный порядок свойств SGF
		orderedKeys := []string{"FF", "GM", "SZ", "PB", "PW", "DT", "RE", "KM", "RU", "HA", "AB", "C", "B", "W"}
		used := make(map[string]bool)
		for _, key := range orderedKeys {
			if values, ok := node.Properties[key]; ok {
				used[key] = true
				writeProperty(builder, key, values)
			}
		}

		for key, values := range node.Properties {
			if !used[key] {
				writeProperty(builder, key, values)
			}
		}
	}

	for _, child := range tree.Children {
		builder.WriteString("(")
		serializeGameTree(builder, child)
		builder.WriteString(")")
	}
}

// writeProperty пишет свойство со всеми значениями: KEY[v1][v2].
func writeProperty(builder *strings.Builder, key string, values []string) {
	builder.WriteString(key)
	for _, v := range values {
		builder.WriteString("[" + v + "]")
	}
}
