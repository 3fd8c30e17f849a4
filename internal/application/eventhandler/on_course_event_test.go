package eventhandler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natibo/natibo/internal/domain/shared"
	"github.com/natibo/natibo/internal/infrastructure/persistence/projections"
)

type failingRecorder struct{}

func (failingRecorder) Apply(shared.Event) error { return errors.New("broken") }

type subscriberStub struct {
	handlers []shared.EventHandler
}

func (s *subscriberStub) Subscribe(shared.EventType, shared.EventHandler) error { return nil }

func (s *subscriberStub) SubscribeAll(h shared.EventHandler) error {
	s.handlers = append(s.handlers, h)
	return nil
}

func TestOnCourseEventHandler_FeedsView(t *testing.T) {
	view := projections.NewCourseActivityView()
	h := NewOnCourseEventHandler(view, nil)

	require.NoError(t, h.Handle(shared.NewDayCompletedEvent("c1", "d1", 12)))
	require.NoError(t, h.Handle(shared.NewCourseCompletedEvent("c1", 30, 90)))

	a, ok := view.Get("c1")
	require.True(t, ok)
	assert.Equal(t, 12, a.Reviews)
	assert.True(t, a.Finished)
}

func TestOnCourseEventHandler_PropagatesRecorderErrors(t *testing.T) {
	h := NewOnCourseEventHandler(failingRecorder{}, nil)
	assert.Error(t, h.Handle(shared.NewRepsAddedEvent("c1", 1, 1)))
}

func TestOnCourseEventHandler_RegistersForAllEvents(t *testing.T) {
	bus := &subscriberStub{}
	h := NewOnCourseEventHandler(projections.NewCourseActivityView(), nil)
	require.NoError(t, h.Register(bus))
	assert.Len(t, bus.handlers, 1)
}
