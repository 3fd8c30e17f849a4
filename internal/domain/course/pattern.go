package course

import (
	"strconv"
	"strings"
	"time"

	"github.com/natibo/natibo/internal/domain/shared"
)

const (
	// MaxRepetitions caps a single entry of a review pattern.
	MaxRepetitions = 99

	// MaxSentencesPerDay caps the daily batch size accepted from user input.
	MaxSentencesPerDay = 100

	// MaxSentenceIndex caps the cursor. No pack series comes close to it.
	MaxSentenceIndex = 10_000_000

	// MaxPause caps the pause played between sentences.
	MaxPause = 10 * time.Minute

	// EmptyPatternText is shown for a pattern without entries.
	EmptyPatternText = "? / ? / ?"
)

// Chorus selects whether target-language sentences are played twice.
type Chorus string

const (
	ChorusNone Chorus = "none"
	ChorusNew  Chorus = "new"
	ChorusAll  Chorus = "all"
)

// IsValid reports whether the chorus mode is known.
func (c Chorus) IsValid() bool {
	switch c {
	case ChorusNone, ChorusNew, ChorusAll, "":
		return true
	default:
		return false
	}
}

// ParseReviewPattern reads a pattern such as "10 / 8 / 6" or "10,8,6".
// Entries are separated by any of "*.,/" or spaces; anything that is not a number
// is dropped and each entry is capped at MaxRepetitions.
func ParseReviewPattern(s string) []int {
	fields := strings.FieldsFunc(strings.TrimSpace(s), func(r rune) bool {
		return strings.ContainsRune("*.,/ ", r)
	})

	pattern := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			continue
		}
		pattern = append(pattern, min(n, MaxRepetitions))
	}
	return pattern
}

// FormatReviewPattern renders a pattern as "10 / 8 / 6".
func FormatReviewPattern(pattern []int) string {
	if len(pattern) == 0 {
		return EmptyPatternText
	}
	parts := make([]string, len(pattern))
	for i, n := range pattern {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, " / ")
}

// ParseSentencesPerDay reads a daily batch size, capped at MaxSentencesPerDay.
// Invalid input yields 0, which course validation rejects.
func ParseSentencesPerDay(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return min(n, MaxSentencesPerDay)
}

// BuildOrder returns the playback order for a course with numLanguages languages.
// Each digit indexes the course language list. With ChorusAll every target language
// (and the only language of a single-language course) is played twice.
func BuildOrder(numLanguages int, chorus Chorus) string {
	var b strings.Builder
	for i := 0; i < numLanguages; i++ {
		digit := strconv.Itoa(i)
		b.WriteString(digit)
		if chorus == ChorusAll && (i > 0 || numLanguages == 1) {
			b.WriteString(digit)
		}
	}
	return b.String()
}

// orderIndexes decodes an order string into language positions.
func orderIndexes(order string) []int {
	out := make([]int, 0, len(order))
	for _, r := range order {
		if r < '0' || r > '9' {
			out = append(out, -1)
			continue
		}
		out = append(out, int(r-'0'))
	}
	return out
}

func validateOrder(order string, numLanguages int) error {
	if order == "" {
		return shared.ErrInvalidOrder
	}
	for _, idx := range orderIndexes(order) {
		if idx < 0 || idx >= numLanguages {
			return shared.ErrInvalidOrder
		}
	}
	return nil
}
