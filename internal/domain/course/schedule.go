package course

import (
	"github.com/natibo/natibo/internal/domain/shared"
)

// Schedule holds the review cadence, the daily batch size and the cursor into the
// linear sentence index space shared by every pack and language of a course.
// The cursor only moves forward through NextBatch; SetCursor is the explicit override.
type Schedule struct {
	reviewPattern []int
	numSentences  int
	cursor        int
	order         string
	reviewOrder   string
}

// NewSchedule creates a schedule starting at cursor 0.
func NewSchedule(numSentences int, reviewPattern []int, order string) Schedule {
	return Schedule{
		reviewPattern: copyInts(reviewPattern),
		numSentences:  numSentences,
		order:         order,
	}
}

// NextBatch claims the next n sentences: it returns the current cursor as the start of
// the claimed range and advances the cursor by exactly n. It does not check the range
// against available content. Non-positive n claims nothing, and the cursor never
// moves past MaxSentenceIndex.
func (s *Schedule) NextBatch(n int) (start, count int) {
	start = s.cursor
	if n <= 0 {
		return start, 0
	}
	if n > MaxSentenceIndex-s.cursor {
		n = max(MaxSentenceIndex-s.cursor, 0)
	}
	s.cursor += n
	return start, n
}

// SetCursor moves the cursor directly, e.g. to resume or rewind a course.
func (s *Schedule) SetCursor(cursor int) error {
	if cursor < 0 {
		return shared.ErrInvalidCursor
	}
	if cursor > MaxSentenceIndex {
		return shared.ErrCursorTooLarge
	}
	s.cursor = cursor
	return nil
}

// Cursor returns the next unclaimed position (zero-based).
func (s Schedule) Cursor() int { return s.cursor }

// NumSentences returns the number of new sentences introduced per day.
func (s Schedule) NumSentences() int { return s.numSentences }

// ReviewPattern returns a copy of the per-day repetition counts for new sets.
func (s Schedule) ReviewPattern() []int { return copyInts(s.reviewPattern) }

// Order returns the playback order tag for new sets.
func (s Schedule) Order() string { return s.order }

// ReviewOrder returns the order for carried-forward sets, falling back to Order.
func (s Schedule) ReviewOrder() string {
	if s.reviewOrder == "" {
		return s.order
	}
	return s.reviewOrder
}

// WithReviewOrder returns a copy whose carried-forward sets use order.
func (s Schedule) WithReviewOrder(order string) Schedule {
	s.reviewOrder = order
	return s
}

func (s Schedule) validate(numLanguages int) error {
	if s.numSentences <= 0 {
		return shared.ErrInvalidBatchSize
	}
	if s.cursor < 0 {
		return shared.ErrInvalidCursor
	}
	for _, r := range s.reviewPattern {
		if r < 0 {
			return shared.WrapError("course", "Validate", shared.ErrMisconfigured, "review pattern", shared.ErrNegativeValue)
		}
	}
	if err := validateOrder(s.order, numLanguages); err != nil {
		return err
	}
	if s.reviewOrder != "" {
		return validateOrder(s.reviewOrder, numLanguages)
	}
	return nil
}

func copyInts(in []int) []int {
	if in == nil {
		return nil
	}
	out := make([]int, len(in))
	copy(out, in)
	return out
}
