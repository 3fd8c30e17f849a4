package scheduler

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// CronExpression is a parsed 5-field cron expression:
// minute hour day-of-month month day-of-week.
// Examples:
//   - "*/5 * * * *"  - every 5 minutes
//   - "0 4 * * *"    - every day at 04:00
//   - "30 6 * * 1-5" - weekdays at 06:30
type CronExpression struct {
	raw      string
	minutes  []int // 0-59
	hours    []int // 0-23
	days     []int // 1-31
	months   []int // 1-12
	weekdays []int // 0-6 (0 = Sunday)
}

// IntervalSchedule runs a job at a fixed interval.
type IntervalSchedule struct {
	Interval time.Duration
}

// NewIntervalSchedule creates a new IntervalSchedule.
func NewIntervalSchedule(interval time.Duration) *IntervalSchedule {
	return &IntervalSchedule{Interval: interval}
}

// Next returns the next scheduled time.
func (s *IntervalSchedule) Next(t time.Time) time.Time { return t.Add(s.Interval) }

// String returns the schedule in "@every" notation.
func (s *IntervalSchedule) String() string { return fmt.Sprintf("@every %s", s.Interval) }

// Common cron presets.
const (
	EveryMinute      = "* * * * *"
	Every5Minutes    = "*/5 * * * *"
	EveryHour        = "0 * * * *"
	EveryDayMidnight = "0 0 * * *"
	EveryDay4AM      = "0 4 * * *"
)

// ParseSchedule accepts either "@every <duration>" or a cron expression.
func ParseSchedule(spec string) (Schedule, error) {
	spec = strings.TrimSpace(spec)
	if rest, ok := strings.CutPrefix(spec, "@every"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(rest))
		if err != nil {
			return nil, fmt.Errorf("invalid interval %q: %w", spec, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("invalid interval %q: must be positive", spec)
		}
		return NewIntervalSchedule(d), nil
	}
	return ParseCronExpression(spec)
}

// ParseCronExpression parses a cron expression.
// Fields support *, */n, n, n-m, n-m/s and comma-separated lists of those.
func ParseCronExpression(expr string) (*CronExpression, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("invalid cron expression: expected 5 fields, got %d", len(fields))
	}

	ce := &CronExpression{raw: expr}
	specs := []struct {
		name     string
		dst      *[]int
		min, max int
	}{
		{"minute", &ce.minutes, 0, 59},
		{"hour", &ce.hours, 0, 23},
		{"day", &ce.days, 1, 31},
		{"month", &ce.months, 1, 12},
		{"weekday", &ce.weekdays, 0, 6},
	}
	for i, s := range specs {
		values, err := parseField(fields[i], s.min, s.max)
		if err != nil {
			return nil, fmt.Errorf("invalid %s field: %w", s.name, err)
		}
		*s.dst = values
	}
	return ce, nil
}

// MustParseCronExpression parses a cron expression or panics.
// Use only for constants.
func MustParseCronExpression(expr string) *CronExpression {
	ce, err := ParseCronExpression(expr)
	if err != nil {
		panic(fmt.Sprintf("invalid cron expression %q: %v", expr, err))
	}
	return ce
}

func parseField(field string, lo, hi int) ([]int, error) {
	var out []int
	for _, part := range strings.Split(field, ",") {
		values, err := parsePart(part, lo, hi)
		if err != nil {
			return nil, err
		}
		out = append(out, values...)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func parsePart(part string, lo, hi int) ([]int, error) {
	step := 1
	if base, s, ok := strings.Cut(part, "/"); ok {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid step value: %s", s)
		}
		step = n
		part = base
	}

	start, end := lo, hi
	switch {
	case part == "*":
	case strings.Contains(part, "-"):
		a, b, _ := strings.Cut(part, "-")
		var err error
		if start, err = atoiInRange(a, lo, hi); err != nil {
			return nil, err
		}
		if end, err = atoiInRange(b, lo, hi); err != nil {
			return nil, err
		}
		if start > end {
			return nil, fmt.Errorf("invalid range: %s", part)
		}
	default:
		v, err := atoiInRange(part, lo, hi)
		if err != nil {
			return nil, err
		}
		start = v
		if step == 1 {
			end = v
		}
	}

	var out []int
	for i := start; i <= end; i += step {
		out = append(out, i)
	}
	return out, nil
}

func atoiInRange(s string, lo, hi int) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid value: %s", s)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("value out of range [%d-%d]: %d", lo, hi, v)
	}
	return v, nil
}

// String returns the original expression.
func (ce *CronExpression) String() string {
	return ce.raw
}

// Next returns the first matching minute after the given time, or the zero time
// if nothing matches within a year.
func (ce *CronExpression) Next(after time.Time) time.Time {
	t := after.Truncate(time.Minute).Add(time.Minute)

	const maxIterations = 366 * 24 * 60
	for i := 0; i < maxIterations; i++ {
		if ce.matches(t) {
			return t
		}
		t = t.Add(time.Minute)
	}
	return time.Time{}
}

func (ce *CronExpression) matches(t time.Time) bool {
	return slices.Contains(ce.minutes, t.Minute()) &&
		slices.Contains(ce.hours, t.Hour()) &&
		slices.Contains(ce.days, t.Day()) &&
		slices.Contains(ce.months, int(t.Month())) &&
		slices.Contains(ce.weekdays, int(t.Weekday()))
}
