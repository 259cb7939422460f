package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Handler receives emitted events
type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus delivers events to subscribers synchronously, in subscription order.
// A panicking handler is logged and does not affect the others.
type Bus struct {
	mu     sync.RWMutex
	byType map[EventType][]subscription
	all    []subscription
	nextID uint64
	now    func() time.Time
	log    zerolog.Logger
}

// NewBus creates a new event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		byType: make(map[EventType][]subscription),
		now:    time.Now,
		log:    log.With().Str("service", "events").Logger(),
	}
}

// Subscribe registers a handler for one event type and returns a function
// that removes it again.
func (b *Bus) Subscribe(eventType EventType, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.byType[eventType] = append(b.byType[eventType], subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.byType[eventType] = without(b.byType[eventType], id)
	}
}

// SubscribeAll registers a handler for every event type.
func (b *Bus) SubscribeAll(handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.all = append(b.all, subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.all = without(b.all, id)
	}
}

func without(subs []subscription, id uint64) []subscription {
	kept := make([]subscription, 0, len(subs))
	for _, s := range subs {
		if s.id != id {
			kept = append(kept, s)
		}
	}
	return kept
}

// Emit publishes an event to the subscribers of its type and to the
// all-event subscribers.
func (b *Bus) Emit(eventType EventType, module string, data EventData) {
	event := Event{
		Type:      eventType,
		Timestamp: b.now(),
		Module:    module,
		Data:      data,
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.byType[eventType])+len(b.all))
	for _, s := range b.byType[eventType] {
		handlers = append(handlers, s.handler)
	}
	for _, s := range b.all {
		handlers = append(handlers, s.handler)
	}
	b.mu.RUnlock()

	if e := b.log.Debug(); e.Enabled() {
		eventJSON, _ := json.Marshal(&event)
		e.Str("event_type", string(eventType)).
			Str("module", module).
			Int("subscribers", len(handlers)).
			RawJSON("event", eventJSON).
			Msg("Event emitted")
	}

	for _, h := range handlers {
		b.deliver(h, event)
	}
}

// EmitTyped publishes data under the event type it reports.
func (b *Bus) EmitTyped(module string, data EventData) {
	b.Emit(data.EventType(), module, data)
}

// EmitError emits an ErrorOccurred event
func (b *Bus) EmitError(module string, err error, context map[string]interface{}) {
	b.Emit(ErrorOccurred, module, &ErrorEventData{
		Error:   err.Error(),
		Context: context,
	})
}

func (b *Bus) deliver(h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Interface("panic", r).
				Str("event_type", string(event.Type)).
				Msg("Event handler panicked")
		}
	}()
	h(event)
}
