package gtp

import "strings"

// Mode определяет доставку ответа: асинхронный колбэк или блокировка
// вызывающего до прихода ответа.
type Mode int

const (
	ModeAsync Mode = iota
	ModeWait
)

// Continuation получает ровно один Response на свою команду.
// Для ModeAsync вызывается в горутине-читателе канала, не у вызывающего.
type Continuation func(Response)

// Response — один ответ движка. Success берётся из статусного символа
// ('=' успех, '?' отказ), Text — полезная нагрузка без статусной строки.
type Response struct {
	Success bool
	Text    string
}

func (r Response) Lines() []string {
	if r.Text == "" {
		return nil
	}
	return strings.Split(r.Text, "\n")
}

// pending связывает команду в полёте с её продолжением. Запись живёт в
// очереди клиента от submit до диспетчеризации ответа, поэтому
// продолжение не может быть потеряно раньше, чем отработает.
type pending struct {
	text string
	cont Continuation
	done chan struct{} // только для ModeWait
	err  error
}
