package messaging

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natibo/natibo/internal/domain/shared"
)

func TestInMemoryEventBus_SyncDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{})
	defer bus.Close()

	var typed, all []shared.EventType
	require.NoError(t, bus.Subscribe(shared.EventDayPrepared, func(e shared.Event) error {
		typed = append(typed, e.EventType())
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		all = append(all, e.EventType())
		return errors.New("ignored")
	}))

	require.NoError(t, bus.Publish(shared.NewDayPreparedEvent("c1", "d1", 1, 3, 0, 3)))
	require.NoError(t, bus.Publish(shared.NewRepsAddedEvent("c1", 5, 5)))

	assert.Equal(t, []shared.EventType{shared.EventDayPrepared}, typed)
	assert.Equal(t, []shared.EventType{shared.EventDayPrepared, shared.EventRepsAdded}, all)

	m := bus.Metrics()
	assert.Equal(t, int64(2), m.Published)
	assert.Equal(t, int64(1), m.Handled)
	assert.Equal(t, int64(2), m.Failed)
}

func TestInMemoryEventBus_AsyncDeliveryAndClose(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultInMemoryEventBusConfig())

	var mu sync.Mutex
	count := 0
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	}))

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(shared.NewCourseCreatedEvent("c1", "EN → ES", []string{"EN", "ES"})))
	}
	require.NoError(t, bus.Close())

	mu.Lock()
	assert.Equal(t, 5, count)
	mu.Unlock()
	assert.ErrorIs(t, bus.Publish(shared.NewCourseCreatedEvent("c2", "", nil)), ErrEventBusClosed)
}

func TestInMemoryEventBus_RecoversPanics(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{})
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { panic("boom") }))

	assert.NotPanics(t, func() {
		_ = bus.Publish(shared.NewCursorMovedEvent("c1", 0, 4))
	})
	assert.Equal(t, int64(1), bus.Metrics().Failed)
}

func TestEnvelope_RoundTrip(t *testing.T) {
	event := shared.NewCursorMovedEvent("c1", 3, 9)
	remote := newEnvelope("i1", event).event()

	assert.Equal(t, event.EventType(), remote.EventType())
	assert.Equal(t, "c1", remote.AggregateID())
	assert.Equal(t, 9, remote.Payload()["to"])
}
