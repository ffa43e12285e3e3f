package gtp

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"

	"goban/internal/bootstrap"
	"goban/internal/errors"
)

// Client владеет stdin/stdout GTP-движка. Все команды сериализуются в
// один поток строго в порядке submit, ответы раздаются в том же порядке.
// Конвейеризации нет: следующая команда пишется только после того, как
// прочитан ответ на предыдущую.
type Client struct {
	cmd     *exec.Cmd
	stdin   *bufio.Writer
	closer  io.Closer
	scanner *bufio.Scanner
	log     *zap.SugaredLogger

	mu     sync.Mutex
	queue  []*pending // FIFO записей в полёте, голова — команда на проводе
	closed bool
}

func NewClient(cfg *bootstrap.Config, log *zap.SugaredLogger) (*Client, error) {
	args := strings.Fields(cfg.EngineArgs)
	cmd := exec.Command(cfg.EnginePath, args...)

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	client := newPipeClient(stdinPipe, stdoutPipe, log)
	client.cmd = cmd

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("запуск движка %s: %v: %w", cfg.EnginePath, err, errors.ErrEngineUnavailable)
	}

	client.start()
	return client, nil
}

func newPipeClient(in io.WriteCloser, out io.Reader, log *zap.SugaredLogger) *Client {
	return &Client{
		stdin:   bufio.NewWriter(in),
		closer:  in,
		scanner: bufio.NewScanner(out),
		log:     log,
	}
}

func (c *Client) start() {
	go c.listen()
}

// Submit ставит команду в очередь. Для ModeWait возвращает после того,
// как продолжение отработало; для ModeAsync — сразу. Если движок не
// запущен, возвращает ErrEngineUnavailable, ответа не будет никогда.
func (c *Client) Submit(command string, mode Mode, cont Continuation) error {
	if strings.TrimSpace(command) == "" {
		return fmt.Errorf("gtp: пустая команда")
	}

	p := &pending{text: command, cont: cont}
	if mode == ModeWait {
		p.done = make(chan struct{})
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.ErrEngineUnavailable
	}
	c.queue = append(c.queue, p)
	if len(c.queue) == 1 {
		if err := c.write(command); err != nil {
			c.failLocked(err)
			c.mu.Unlock()
			return errors.ErrEngineUnavailable
		}
	}
	c.mu.Unlock()

	if p.done != nil {
		<-p.done
		return p.err
	}
	return nil
}

// Exec — блокирующая отправка: ждёт ответ и возвращает его.
func (c *Client) Exec(command string) (Response, error) {
	var resp Response
	err := c.Submit(command, ModeWait, func(r Response) { resp = r })
	return resp, err
}

// write пишет команду на провод. Вызывается под c.mu.
func (c *Client) write(command string) error {
	c.log.Debugw("gtp ->", "command", command)
	if _, err := c.stdin.WriteString(command + "\n"); err != nil {
		return err
	}
	return c.stdin.Flush()
}

// listen читает stdout движка и режет его на ответы по пустой строке.
func (c *Client) listen() {
	var lines []string
	for c.scanner.Scan() {
		line := strings.TrimRight(c.scanner.Text(), "\r")
		if len(lines) == 0 {
			if line == "" {
				continue
			}
			if line[0] != '=' && line[0] != '?' {
				c.log.Warnw("gtp: строка вне ответа", "line", line)
				continue
			}
		}
		if line != "" {
			lines = append(lines, line)
			continue
		}
		resp := parseResponse(lines)
		lines = nil
		c.dispatch(resp)
	}
	c.shutdown()
}

// dispatch снимает головную запись, пишет следующую команду на провод и
// только потом вызывает продолжение: порядок доставки равен порядку submit.
func (c *Client) dispatch(resp Response) {
	c.mu.Lock()
	if len(c.queue) == 0 {
		c.mu.Unlock()
		c.log.Warnw("gtp: ответ без команды", "text", resp.Text)
		return
	}
	p := c.queue[0]
	c.queue = c.queue[1:]
	if len(c.queue) > 0 {
		if err := c.write(c.queue[0].text); err != nil {
			c.failLocked(err)
		}
	}
	c.mu.Unlock()

	c.log.Debugw("gtp <-", "command", p.text, "success", resp.Success)
	if p.cont != nil {
		p.cont(resp)
	}
	if p.done != nil {
		close(p.done)
	}
}

func parseResponse(lines []string) Response {
	head := lines[0]
	success := head[0] == '='
	body := strings.TrimLeft(head[1:], "0123456789")
	body = strings.TrimPrefix(body, " ")

	payload := lines[1:]
	if body != "" || len(payload) == 0 {
		payload = append([]string{body}, payload...)
	}
	return Response{Success: success, Text: strings.Join(payload, "\n")}
}

// shutdown помечает клиента мёртвым и освобождает все записи в полёте.
// Ответов на них уже не будет: ждущие отпускаются с ошибкой, асинхронные
// продолжения не вызываются вовсе.
func (c *Client) shutdown() {
	c.mu.Lock()
	c.failLocked(errors.ErrEngineUnavailable)
	c.mu.Unlock()
}

func (c *Client) failLocked(cause error) {
	if c.closed && len(c.queue) == 0 {
		return
	}
	c.closed = true
	dropped := c.queue
	c.queue = nil
	for _, p := range dropped {
		if p.done != nil {
			p.err = errors.ErrEngineUnavailable
			close(p.done)
		} else {
			c.log.Errorw("gtp: команда осталась без ответа", "command", p.text, "error", cause)
		}
	}
}

// Close просит движок завершиться и закрывает stdin.
func (c *Client) Close() error {
	_ = c.Submit("quit", ModeAsync, nil)
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	if err := c.closer.Close(); err != nil {
		return err
	}
	if c.cmd != nil {
		return c.cmd.Wait()
	}
	return nil
}
