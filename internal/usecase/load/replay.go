package load

import (
	"fmt"
	"strconv"
	"strings"

	"goban/internal/domain/game"
	"goban/internal/errors"
)

// Отчёты о прогрессе ограничены сверху, чтобы длинная партия не тратила
// время проигрывания на репортинг.
const maxProgressUpdates = 8

// replay проигрывает восстановленные ходы через локальный движок правил.
// Первый же ход, не прошедший проверку, прерывает всё: частичного
// применения с пропуском не бывает. Возвращает номер провалившегося хода
// (с единицы) и причину.
func (o *Orchestrator) replay(s *session, g *game.Game) (int, error) {
	moves, err := game.ParseMoveList(s.movesText)
	if err != nil {
		return 0, fmt.Errorf("список ходов не разобран: %v: %w", err, errors.ErrValidationFailure)
	}

	total := len(moves)
	step := total/maxProgressUpdates + 1
	for i, m := range moves {
		if err := o.replayOne(g, m); err != nil {
			return i + 1, fmt.Errorf("ход %d (%s %s): %w", i+1, m.Color, m.Coordinates, err)
		}
		if (i+1)%step == 0 {
			o.report(0.4+0.6*float64(i+1)/float64(total), "восстановление ходов")
		}
	}
	return 0, nil
}

// replayOne применяет один восстановленный ход после двух проверок:
// очередь хода и легальность. Паника движка правил приравнивается к
// проваленной проверке — данные из файла не заслуживают доверия.
func (o *Orchestrator) replayOne(g *game.Game, m game.Move) (err error) {
	g.Lock()
	defer g.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("сбой движка правил: %v: %w", r, errors.ErrValidationFailure)
		}
	}()

	c, parseErr := game.ParseColor(m.Color)
	if parseErr != nil {
		return fmt.Errorf("%v: %w", parseErr, errors.ErrValidationFailure)
	}
	if c != g.Board.CurrentColor() {
		return fmt.Errorf("ходит %s, в записи %s: %w", g.Board.CurrentColor(), c, errors.ErrValidationFailure)
	}

	switch {
	case m.IsPass():
		g.Board.Pass()
	case m.IsResign():
		g.Board.Resign()
	default:
		v, parseErr := game.ParseVertex(m.Coordinates, g.BoardSize)
		if parseErr != nil {
			return fmt.Errorf("%v: %w", parseErr, errors.ErrValidationFailure)
		}
		if !g.Board.IsLegal(v, c) {
			return fmt.Errorf("нелегальный ход %s: %w", m.Coordinates, errors.ErrValidationFailure)
		}
		if playErr := g.Board.Play(v); playErr != nil {
			return fmt.Errorf("%v: %w", playErr, errors.ErrValidationFailure)
		}
	}

	g.Moves = append(g.Moves, m)
	return nil
}

// countBoardRows считает ряды доски в выводе showboard: рядом считается
// строка, первое поле которой — номер ряда. Подходит и для GNU Go, и для
// Fuego, у которых дамп обрамлён строками с буквами колонок.
func countBoardRows(text string) int {
	rows := 0
	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if _, err := strconv.Atoi(fields[0]); err == nil {
			rows++
		}
	}
	return rows
}
