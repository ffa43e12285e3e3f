package gtp

import (
	"fmt"

	"goban/internal/errors"
)

// Утилиты сессии: точки синхронизации перед командами, которым нужен
// спокойный движок, и установка профиля компьютерного игрока.

// SuspendPondering останавливает фоновое обдумывание. Команда блокирующая,
// т.е. по возврату движок гарантированно ничего не считает. Отказ движка
// не ошибка: не каждый движок понимает этот параметр.
func (c *Client) SuspendPondering() error {
	resp, err := c.Exec("uct_param_player ponder 0")
	if err != nil {
		return err
	}
	if !resp.Success {
		c.log.Debugw("движок не поддерживает ponder", "text", resp.Text)
	}
	return nil
}

func (c *Client) ResumePondering() error {
	resp, err := c.Exec("uct_param_player ponder 1")
	if err != nil {
		return err
	}
	if !resp.Success {
		c.log.Debugw("движок не поддерживает ponder", "text", resp.Text)
	}
	return nil
}

// ApplyBotProfile прогоняет батч команд настройки компьютерного игрока.
// Профиль считается заведомо исправным, поэтому отказ любой команды —
// внутренняя несогласованность, а не восстановимая ситуация.
func (c *Client) ApplyBotProfile(commands []string) error {
	for _, command := range commands {
		resp, err := c.Exec(command)
		if err != nil {
			return err
		}
		if !resp.Success {
			return fmt.Errorf("профиль бота, команда %q: %s: %w", command, resp.Text, errors.ErrInternal)
		}
	}
	return nil
}
