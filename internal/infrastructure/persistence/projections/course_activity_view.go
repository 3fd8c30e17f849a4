// Package projections implements read models built from course events.
package projections

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/natibo/natibo/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE ACTIVITY VIEW
// Denormalized study history per course, fed by the event bus. Events relayed
// from other instances carry only their payload map, so the view reads payloads
// rather than concrete event types.
// ══════════════════════════════════════════════════════════════════════════════

// maxRecentEvents bounds the history kept per course.
const maxRecentEvents = 20

// ActivityEntry is one event in a course history.
type ActivityEntry struct {
	Type       shared.EventType `json:"type"`
	OccurredAt time.Time        `json:"occurred_at"`
	Summary    string           `json:"summary"`
}

// CourseActivity aggregates the events of one course.
type CourseActivity struct {
	CourseID      string          `json:"course_id"`
	DaysPrepared  int             `json:"days_prepared"`
	DaysCompleted int             `json:"days_completed"`
	Reviews       int             `json:"reviews"`
	ManualReps    int             `json:"manual_reps"`
	LastDayNumber int             `json:"last_day_number"`
	Cursor        int             `json:"cursor"`
	Finished      bool            `json:"finished"`
	LastEventAt   time.Time       `json:"last_event_at"`
	Recent        []ActivityEntry `json:"recent"`
}

// CourseActivityView holds CourseActivity for every course seen on the bus.
type CourseActivityView struct {
	mu          sync.RWMutex
	courses     map[string]*CourseActivity
	lastUpdated time.Time
	version     int64
}

// NewCourseActivityView creates an empty view.
func NewCourseActivityView() *CourseActivityView {
	return &CourseActivityView{courses: make(map[string]*CourseActivity)}
}

// Apply folds an event into the view. Unknown event types are ignored.
func (v *CourseActivityView) Apply(event shared.Event) error {
	if event == nil {
		return fmt.Errorf("projections: nil event")
	}
	id := event.AggregateID()
	if id == "" {
		return fmt.Errorf("projections: event %s has no aggregate id", event.EventType())
	}
	p := event.Payload()

	var summary string
	v.mu.Lock()
	defer v.mu.Unlock()

	a, ok := v.courses[id]
	if !ok {
		a = &CourseActivity{CourseID: id}
		v.courses[id] = a
	}

	switch event.EventType() {
	case shared.EventCourseCreated:
		summary = fmt.Sprintf("created %v", p["title"])
	case shared.EventDayPrepared:
		a.DaysPrepared++
		a.LastDayNumber = intValue(p["day_number"])
		a.Cursor = intValue(p["cursor"])
		summary = fmt.Sprintf("day %d: %d new, %d review sets",
			a.LastDayNumber, intValue(p["new_sentences"]), intValue(p["review_sets"]))
	case shared.EventDayCompleted:
		a.DaysCompleted++
		a.Reviews += intValue(p["reviews"])
		summary = fmt.Sprintf("completed with %d reviews", intValue(p["reviews"]))
	case shared.EventCourseCompleted:
		a.Finished = true
		summary = fmt.Sprintf("finished after %d sentences", intValue(p["sentences_seen"]))
	case shared.EventRepsAdded:
		a.ManualReps += intValue(p["reps"])
		summary = fmt.Sprintf("added %d reps", intValue(p["reps"]))
	case shared.EventCursorMoved:
		a.Cursor = intValue(p["to"])
		summary = fmt.Sprintf("cursor %d -> %d", intValue(p["from"]), a.Cursor)
	default:
		if !ok {
			delete(v.courses, id)
		}
		return nil
	}

	a.LastEventAt = event.OccurredAt()
	a.Recent = append(a.Recent, ActivityEntry{Type: event.EventType(), OccurredAt: event.OccurredAt(), Summary: summary})
	if len(a.Recent) > maxRecentEvents {
		a.Recent = a.Recent[len(a.Recent)-maxRecentEvents:]
	}

	v.lastUpdated = time.Now().UTC()
	v.version++
	return nil
}

// Get returns a copy of the activity of a course.
func (v *CourseActivityView) Get(courseID string) (CourseActivity, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	a, ok := v.courses[courseID]
	if !ok {
		return CourseActivity{}, false
	}
	return a.copy(), true
}

// MostRecent returns up to limit courses, most recently active first.
func (v *CourseActivityView) MostRecent(limit int) []CourseActivity {
	v.mu.RLock()
	out := make([]CourseActivity, 0, len(v.courses))
	for _, a := range v.courses {
		out = append(out, a.copy())
	}
	v.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].LastEventAt.After(out[j].LastEventAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Forget drops a course from the view.
func (v *CourseActivityView) Forget(courseID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.courses, courseID)
}

// Version returns the number of applied events.
func (v *CourseActivityView) Version() int64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.version
}

func (a *CourseActivity) copy() CourseActivity {
	out := *a
	out.Recent = append([]ActivityEntry(nil), a.Recent...)
	return out
}

// intValue reads a number from a payload. Relayed payloads decode JSON numbers
// as float64.
func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
