package projections

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natibo/natibo/internal/domain/shared"
)

// relayed mimics an event received from another instance.
type relayed struct {
	typ     shared.EventType
	id      string
	at      time.Time
	payload map[string]any
}

func (e relayed) EventType() shared.EventType     { return e.typ }
func (e relayed) AggregateID() string             { return e.id }
func (e relayed) OccurredAt() time.Time           { return e.at }
func (e relayed) Payload() map[string]interface{} { return e.payload }

func TestCourseActivityView_AppliesCourseLifecycle(t *testing.T) {
	v := NewCourseActivityView()

	require.NoError(t, v.Apply(shared.NewCourseCreatedEvent("c1", "EN → ES", []string{"EN", "ES"})))
	require.NoError(t, v.Apply(shared.NewDayPreparedEvent("c1", "d1", 1, 3, 0, 3)))
	require.NoError(t, v.Apply(shared.NewDayCompletedEvent("c1", "d1", 6)))
	require.NoError(t, v.Apply(shared.NewRepsAddedEvent("c1", 4, 10)))
	require.NoError(t, v.Apply(shared.NewCursorMovedEvent("c1", 3, 7)))
	require.NoError(t, v.Apply(shared.NewCourseCompletedEvent("c1", 10, 30)))

	a, ok := v.Get("c1")
	require.True(t, ok)
	assert.Equal(t, 1, a.DaysPrepared)
	assert.Equal(t, 1, a.DaysCompleted)
	assert.Equal(t, 6, a.Reviews)
	assert.Equal(t, 4, a.ManualReps)
	assert.Equal(t, 1, a.LastDayNumber)
	assert.Equal(t, 7, a.Cursor)
	assert.True(t, a.Finished)
	assert.Len(t, a.Recent, 6)
	assert.Equal(t, "cursor 3 -> 7", a.Recent[4].Summary)
	assert.Equal(t, int64(6), v.Version())
}

func TestCourseActivityView_ReadsRelayedPayloads(t *testing.T) {
	v := NewCourseActivityView()
	err := v.Apply(relayed{
		typ: shared.EventDayPrepared,
		id:  "c2",
		at:  time.Now(),
		payload: map[string]any{
			"day_number": float64(4), "cursor": float64(12),
			"new_sentences": float64(3), "review_sets": float64(3),
		},
	})
	require.NoError(t, err)

	a, ok := v.Get("c2")
	require.True(t, ok)
	assert.Equal(t, 4, a.LastDayNumber)
	assert.Equal(t, 12, a.Cursor)
	assert.Equal(t, "day 4: 3 new, 3 review sets", a.Recent[0].Summary)
}

func TestCourseActivityView_BoundsHistoryAndCopies(t *testing.T) {
	v := NewCourseActivityView()
	for i := 0; i < maxRecentEvents+5; i++ {
		require.NoError(t, v.Apply(shared.NewRepsAddedEvent("c3", 1, i+1)))
	}

	a, _ := v.Get("c3")
	assert.Len(t, a.Recent, maxRecentEvents)
	assert.Equal(t, maxRecentEvents+5, a.ManualReps)

	a.Recent[0].Summary = "changed"
	again, _ := v.Get("c3")
	assert.NotEqual(t, "changed", again.Recent[0].Summary)

	v.Forget("c3")
	_, ok := v.Get("c3")
	assert.False(t, ok)
}

func TestCourseActivityView_RejectsAnonymousEvents(t *testing.T) {
	v := NewCourseActivityView()
	assert.Error(t, v.Apply(nil))
	assert.Error(t, v.Apply(relayed{typ: shared.EventRepsAdded}))
	assert.NoError(t, v.Apply(relayed{typ: "other.event", id: "x"}))
	assert.Empty(t, v.MostRecent(0))
}

func TestCourseActivityView_MostRecent(t *testing.T) {
	v := NewCourseActivityView()
	base := time.Now()
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, v.Apply(relayed{
			typ: shared.EventRepsAdded, id: id, at: base.Add(time.Duration(i) * time.Second),
			payload: map[string]any{"reps": 1},
		}))
	}

	recent := v.MostRecent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].CourseID)
	assert.Equal(t, "b", recent[1].CourseID)
}
