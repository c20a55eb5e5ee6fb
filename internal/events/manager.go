package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Manager handles event emission and logging
type Manager struct {
	bus *Bus
	log zerolog.Logger
}

// NewManager creates a new event manager
func NewManager(bus *Bus, log zerolog.Logger) *Manager {
	return &Manager{
		bus: bus,
		log: log.With().Str("service", "events").Logger(),
	}
}

// Bus returns the underlying bus for subscriptions
func (m *Manager) Bus() *Bus {
	return m.bus
}

// Emit publishes an event with an untyped payload and logs it. Returns the event id.
func (m *Manager) Emit(eventType EventType, module string, data map[string]interface{}) string {
	event := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
	}

	m.bus.Publish(event)

	eventJSON, _ := json.Marshal(event)
	m.log.Info().
		Str("event_type", string(eventType)).
		Str("module", module).
		RawJSON("event", eventJSON).
		Msg("Event emitted")

	return event.ID
}

// EmitTyped emits an event with typed data
func (m *Manager) EmitTyped(module string, data EventData) string {
	return m.Emit(data.EventType(), module, convertEventDataToMap(data))
}

// EmitError emits an error event
func (m *Manager) EmitError(module string, err error, context map[string]interface{}) {
	m.EmitTyped(module, &ErrorEventData{
		Error:   err.Error(),
		Context: context,
	})
}
