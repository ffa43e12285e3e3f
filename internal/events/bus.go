package events

import (
	"sync"

	"goban/internal/domain/game"
)

type Type string

const (
	GameWillChange Type = "game_will_change" // текущая партия вот-вот будет заменена
	GameDidChange  Type = "game_did_change"
	GameLoaded     Type = "game_loaded" // партия восстановлена из архива
)

type Event struct {
	Type Type
	Game *game.Game
}

// Bus — рассылка жизненного цикла партии. Подписчиков может не быть,
// доставка негарантированная: медленный подписчик теряет событие,
// публикация никогда не блокирует.
type Bus struct {
	mu   sync.RWMutex
	subs []chan Event
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(buffer int) <-chan Event {
	ch := make(chan Event, buffer)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
