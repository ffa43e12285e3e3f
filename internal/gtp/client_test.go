package gtp

import (
	"bufio"
	goerrors "errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"go.uber.org/zap"

	"goban/internal/errors"
)

// newTestClient поднимает клиента поверх io.Pipe с «движком»-горутиной:
// handler получает команду и возвращает полный текст ответа, включая
// пустую строку-терминатор.
func newTestClient(t *testing.T, handler func(cmd string) string) *Client {
	t.Helper()

	cmdR, cmdW := io.Pipe()
	respR, respW := io.Pipe()

	c := newPipeClient(cmdW, respR, zap.NewNop().Sugar())
	c.start()

	go func() {
		scanner := bufio.NewScanner(cmdR)
		for scanner.Scan() {
			if _, err := io.WriteString(respW, handler(scanner.Text())); err != nil {
				return
			}
		}
		respW.Close()
	}()

	return c
}

func TestExecReturnsMatchingResponse(t *testing.T) {
	c := newTestClient(t, func(cmd string) string {
		return "= echo " + cmd + "\n\n"
	})

	resp, err := c.Exec("get_komi")
	if err != nil {
		t.Fatalf("Exec returned error: %v", err)
	}
	if !resp.Success {
		t.Fatal("expected success status")
	}
	if resp.Text != "echo get_komi" {
		t.Fatalf("resp.Text = %q, want %q", resp.Text, "echo get_komi")
	}
}

func TestExecFailureStatus(t *testing.T) {
	c := newTestClient(t, func(cmd string) string {
		return "? unknown command\n\n"
	})

	resp, err := c.Exec("bogus")
	if err != nil {
		t.Fatalf("Exec returned error: %v", err)
	}
	if resp.Success {
		t.Fatal("expected failure status")
	}
	if resp.Text != "unknown command" {
		t.Fatalf("resp.Text = %q, want %q", resp.Text, "unknown command")
	}
}

func TestMultilineResponse(t *testing.T) {
	c := newTestClient(t, func(cmd string) string {
		return "=\n   A B\n 2 . .\n 1 . .\n   A B\n\n"
	})

	resp, err := c.Exec("showboard")
	if err != nil {
		t.Fatalf("Exec returned error: %v", err)
	}
	if got := len(resp.Lines()); got != 4 {
		t.Fatalf("len(Lines()) = %d, want 4", got)
	}
}

// Ответы приходят строго в порядке отправки, даже когда отправители —
// разные горутины: порядок продолжений равен порядку команд на проводе.
func TestOrderingAcrossConcurrentSubmitters(t *testing.T) {
	var engineMu sync.Mutex
	var received []string
	c := newTestClient(t, func(cmd string) string {
		engineMu.Lock()
		received = append(received, cmd)
		engineMu.Unlock()
		return "= " + cmd + "\n\n"
	})

	const n = 40
	var dispatchMu sync.Mutex
	var dispatched []string
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			err := c.Submit(fmt.Sprintf("cmd_%d", i), ModeAsync, func(r Response) {
				dispatchMu.Lock()
				dispatched = append(dispatched, r.Text)
				dispatchMu.Unlock()
				wg.Done()
			})
			if err != nil {
				t.Errorf("Submit returned error: %v", err)
				wg.Done()
			}
		}(i)
	}
	wg.Wait()

	if len(dispatched) != n {
		t.Fatalf("dispatched %d responses, want %d", len(dispatched), n)
	}
	for i := range dispatched {
		if dispatched[i] != received[i] {
			t.Fatalf("response %d delivered out of order: got %q, wire order %q", i, dispatched[i], received[i])
		}
	}
}

func TestConcurrentExecCorrelation(t *testing.T) {
	c := newTestClient(t, func(cmd string) string {
		return "= " + cmd + "\n\n"
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			command := fmt.Sprintf("probe_%d", i)
			resp, err := c.Exec(command)
			if err != nil {
				t.Errorf("Exec(%q) error: %v", command, err)
				return
			}
			if resp.Text != command {
				t.Errorf("Exec(%q) got response for %q", command, resp.Text)
			}
		}(i)
	}
	wg.Wait()
}

// Мёртвый движок: ждущая команда отпускается с ошибкой, последующие
// отправки отклоняются сразу — никто не виснет.
func TestDeadEngineFailsFast(t *testing.T) {
	cmdR, cmdW := io.Pipe()
	respR, respW := io.Pipe()

	c := newPipeClient(cmdW, respR, zap.NewNop().Sugar())
	c.start()

	go func() {
		scanner := bufio.NewScanner(cmdR)
		scanner.Scan() // первая команда остаётся без ответа
		respW.Close()
	}()

	if _, err := c.Exec("loadsgf /tmp/game.sgf"); !goerrors.Is(err, errors.ErrEngineUnavailable) {
		t.Fatalf("Exec error = %v, want ErrEngineUnavailable", err)
	}
	if err := c.Submit("get_komi", ModeAsync, nil); !goerrors.Is(err, errors.ErrEngineUnavailable) {
		t.Fatalf("Submit error = %v, want ErrEngineUnavailable", err)
	}
}

func TestSubmitRejectsEmptyCommand(t *testing.T) {
	c := newTestClient(t, func(cmd string) string { return "=\n\n" })
	if err := c.Submit("   ", ModeAsync, nil); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestParseResponseStripsID(t *testing.T) {
	resp := parseResponse([]string{"=17 C3"})
	if !resp.Success || resp.Text != "C3" {
		t.Fatalf("parseResponse = %+v, want success with %q", resp, "C3")
	}
}
