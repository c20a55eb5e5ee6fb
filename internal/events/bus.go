package events

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Handler receives an event. Handlers run on their own goroutine.
type Handler func(Event)

// Bus delivers events to subscribers asynchronously.
// A panicking handler is recovered and logged; other handlers still run.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	wg       sync.WaitGroup
	log      zerolog.Logger
}

// NewBus creates an empty bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
		log:      log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers handler for eventType
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Subscribers returns the number of handlers registered for eventType
func (b *Bus) Subscribers(eventType EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}

// Publish hands event to every subscriber and returns immediately
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.Type]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					b.log.Error().
						Str("event_type", string(event.Type)).
						Str("panic", fmt.Sprint(r)).
						Msg("Event handler panicked")
				}
			}()
			h(event)
		}(h)
	}
}

// Wait blocks until every in-flight handler returns. Used on shutdown and in tests.
func (b *Bus) Wait() {
	b.wg.Wait()
}
