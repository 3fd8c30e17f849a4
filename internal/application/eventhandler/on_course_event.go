// Package eventhandler reacts to course events published on the event bus.
package eventhandler

import (
	"log/slog"

	"github.com/natibo/natibo/internal/domain/shared"
)

// ActivityRecorder folds events into a read model.
type ActivityRecorder interface {
	Apply(event shared.Event) error
}

// OnCourseEventHandler feeds every course event into the activity read model and
// logs course milestones.
type OnCourseEventHandler struct {
	recorder ActivityRecorder
	logger   *slog.Logger
}

// NewOnCourseEventHandler creates an OnCourseEventHandler.
func NewOnCourseEventHandler(recorder ActivityRecorder, logger *slog.Logger) *OnCourseEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnCourseEventHandler{
		recorder: recorder,
		logger:   logger.With("handler", "on_course_event"),
	}
}

// Handle implements shared.EventHandler.
func (h *OnCourseEventHandler) Handle(event shared.Event) error {
	if err := h.recorder.Apply(event); err != nil {
		return err
	}

	switch event.EventType() {
	case shared.EventCourseCompleted:
		h.logger.Info("course finished",
			"course_id", event.AggregateID(),
			"sentences_seen", event.Payload()["sentences_seen"],
		)
	case shared.EventDayCompleted:
		h.logger.Debug("day completed", "course_id", event.AggregateID())
	}
	return nil
}

// Register subscribes the handler to all events.
func (h *OnCourseEventHandler) Register(bus shared.EventSubscriber) error {
	return bus.SubscribeAll(h.Handle)
}
