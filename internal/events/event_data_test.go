package events

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_UserCreated(t *testing.T) {
	data := &UserCreatedData{
		Email:             "ada@example.com",
		Name:              "Ada",
		Country:           "GB",
		InvestmentGoals:   "Growth",
		RiskTolerance:     "Medium",
		PreferredIndustry: "Technology",
	}

	event := Event{Type: UserCreated, Data: convertEventDataToMap(data)}
	assert.Equal(t, "Ada", event.Data["name"])
	assert.Equal(t, "Growth", event.Data["investmentGoals"])

	decoded, ok := event.Decode().(*UserCreatedData)
	require.True(t, ok)
	assert.Equal(t, *data, *decoded)
}

func TestDecode_SendDailyNewsWithoutData(t *testing.T) {
	event := Event{Type: SendDailyNews}
	_, ok := event.Decode().(*SendDailyNewsData)
	assert.True(t, ok)
}

func TestDecode_UnknownType(t *testing.T) {
	event := Event{Type: "app/unknown", Data: map[string]interface{}{"x": 1}}
	assert.Nil(t, event.Decode())
	assert.False(t, Known(event.Type))
	assert.True(t, Known(UserCreated))
}

func TestBus_DeliversToEverySubscriber(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	var count int32

	for i := 0; i < 3; i++ {
		bus.Subscribe(SendDailyNews, func(Event) { atomic.AddInt32(&count, 1) })
	}
	bus.Subscribe(UserCreated, func(Event) { t.Error("wrong subscriber called") })

	bus.Publish(Event{Type: SendDailyNews})
	bus.Wait()

	assert.Equal(t, int32(3), atomic.LoadInt32(&count))
	assert.Equal(t, 3, bus.Subscribers(SendDailyNews))
}

func TestBus_PanicIsIsolated(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	var got sync.WaitGroup
	got.Add(1)

	bus.Subscribe(UserCreated, func(Event) { panic("boom") })
	bus.Subscribe(UserCreated, func(Event) { got.Done() })

	bus.Publish(Event{Type: UserCreated})
	got.Wait()
	bus.Wait()
}

func TestManager_EmitTyped(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	manager := NewManager(bus, zerolog.Nop())

	received := make(chan Event, 1)
	bus.Subscribe(UserCreated, func(e Event) { received <- e })

	id := manager.EmitTyped("auth", &UserCreatedData{Email: "bob@example.com", Name: "Bob"})
	bus.Wait()

	e := <-received
	assert.Equal(t, id, e.ID)
	assert.Equal(t, "auth", e.Module)
	assert.Equal(t, "bob@example.com", e.Data["email"])
}
