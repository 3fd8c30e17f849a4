// Package shared contains common domain errors and events used across all domain
// packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types.
const (
	EventCourseCreated   EventType = "course.created"
	EventDayPrepared     EventType = "course.day_prepared"
	EventDayCompleted    EventType = "course.day_completed"
	EventCourseCompleted EventType = "course.completed"
	EventRepsAdded       EventType = "course.reps_added"
	EventCursorMoved     EventType = "course.cursor_moved"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Course Events
// ═══════════════════════════════════════════════════════════════════════════

// CourseCreatedEvent is emitted when a course is created.
type CourseCreatedEvent struct {
	BaseEvent
	Title     string   `json:"title"`
	Languages []string `json:"languages"`
}

// Payload implements Event interface.
func (e CourseCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"title":     e.Title,
		"languages": e.Languages,
	}
}

// NewCourseCreatedEvent creates a new CourseCreatedEvent.
func NewCourseCreatedEvent(courseID, title string, languages []string) CourseCreatedEvent {
	return CourseCreatedEvent{
		BaseEvent: NewBaseEvent(EventCourseCreated, courseID),
		Title:     title,
		Languages: languages,
	}
}

// DayPreparedEvent is emitted after a new study day was assembled.
type DayPreparedEvent struct {
	BaseEvent
	DayID        string `json:"day_id"`
	DayNumber    int    `json:"day_number"`
	NewSentences int    `json:"new_sentences"`
	ReviewSets   int    `json:"review_sets"`
	Cursor       int    `json:"cursor"`
}

// Payload implements Event interface.
func (e DayPreparedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"day_id":        e.DayID,
		"day_number":    e.DayNumber,
		"new_sentences": e.NewSentences,
		"review_sets":   e.ReviewSets,
		"cursor":        e.Cursor,
	}
}

// NewDayPreparedEvent creates a new DayPreparedEvent.
func NewDayPreparedEvent(courseID, dayID string, dayNumber, newSentences, reviewSets, cursor int) DayPreparedEvent {
	return DayPreparedEvent{
		BaseEvent:    NewBaseEvent(EventDayPrepared, courseID),
		DayID:        dayID,
		DayNumber:    dayNumber,
		NewSentences: newSentences,
		ReviewSets:   reviewSets,
		Cursor:       cursor,
	}
}

// DayCompletedEvent is emitted when the current day is marked completed.
type DayCompletedEvent struct {
	BaseEvent
	DayID   string `json:"day_id"`
	Reviews int    `json:"reviews"`
}

// Payload implements Event interface.
func (e DayCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"day_id":  e.DayID,
		"reviews": e.Reviews,
	}
}

// NewDayCompletedEvent creates a new DayCompletedEvent.
func NewDayCompletedEvent(courseID, dayID string, reviews int) DayCompletedEvent {
	return DayCompletedEvent{
		BaseEvent: NewBaseEvent(EventDayCompleted, courseID),
		DayID:     dayID,
		Reviews:   reviews,
	}
}

// CourseCompletedEvent is emitted when preparing a day produced no study material.
type CourseCompletedEvent struct {
	BaseEvent
	SentencesSeen int `json:"sentences_seen"`
	TotalReps     int `json:"total_reps"`
}

// Payload implements Event interface.
func (e CourseCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"sentences_seen": e.SentencesSeen,
		"total_reps":     e.TotalReps,
	}
}

// NewCourseCompletedEvent creates a new CourseCompletedEvent.
func NewCourseCompletedEvent(courseID string, seen, reps int) CourseCompletedEvent {
	return CourseCompletedEvent{
		BaseEvent:     NewBaseEvent(EventCourseCompleted, courseID),
		SentencesSeen: seen,
		TotalReps:     reps,
	}
}

// RepsAddedEvent is emitted when manual repetitions are recorded.
type RepsAddedEvent struct {
	BaseEvent
	Reps  int `json:"reps"`
	Total int `json:"total"`
}

// Payload implements Event interface.
func (e RepsAddedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"reps":  e.Reps,
		"total": e.Total,
	}
}

// NewRepsAddedEvent creates a new RepsAddedEvent.
func NewRepsAddedEvent(courseID string, reps, total int) RepsAddedEvent {
	return RepsAddedEvent{
		BaseEvent: NewBaseEvent(EventRepsAdded, courseID),
		Reps:      reps,
		Total:     total,
	}
}

// CursorMovedEvent is emitted when the new-material cursor is overridden.
type CursorMovedEvent struct {
	BaseEvent
	From int `json:"from"`
	To   int `json:"to"`
}

// Payload implements Event interface.
func (e CursorMovedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"from": e.From,
		"to":   e.To,
	}
}

// NewCursorMovedEvent creates a new CursorMovedEvent.
func NewCursorMovedEvent(courseID string, from, to int) CursorMovedEvent {
	return CursorMovedEvent{
		BaseEvent: NewBaseEvent(EventCursorMoved, courseID),
		From:      from,
		To:        to,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Handler Types
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for a specific event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
