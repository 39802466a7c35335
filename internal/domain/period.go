package domain

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DateLayout is the accepted input format for period bounds.
	DateLayout = "2006-01-02"
	// MonthLayout is the grouping key format for monthly rollups.
	MonthLayout = "2006-01"
)

// ErrInvalidPeriod is returned when the period start is not before its end.
var ErrInvalidPeriod = errors.New("period start must be before end")

// Period is the half-open reporting interval [Start, End).
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewPeriod validates and returns a period.
func NewPeriod(start, end time.Time) (Period, error) {
	if !start.Before(end) {
		return Period{}, ErrInvalidPeriod
	}
	return Period{Start: start, End: end}, nil
}

// ParsePeriod parses YYYY-MM-DD bounds in loc. Empty bounds fall back to the
// previous calendar month relative to now.
func ParsePeriod(start, end string, now time.Time, loc *time.Location) (Period, error) {
	if loc == nil {
		loc = time.Local
	}
	def := DefaultPeriod(now.In(loc))
	from, to := def.Start, def.End
	var err error
	if start != "" {
		if from, err = time.ParseInLocation(DateLayout, start, loc); err != nil {
			return Period{}, fmt.Errorf("invalid start date %q: %w", start, err)
		}
	}
	if end != "" {
		if to, err = time.ParseInLocation(DateLayout, end, loc); err != nil {
			return Period{}, fmt.Errorf("invalid end date %q: %w", end, err)
		}
	}
	return NewPeriod(from, to)
}

// DefaultPeriod returns the previous calendar month of now.
func DefaultPeriod(now time.Time) Period {
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return Period{Start: firstOfMonth.AddDate(0, -1, 0), End: firstOfMonth}
}

// Contains reports whether t falls inside [Start, End). The ticket store keeps zone-less
// timestamps, so t is compared by its wall clock read in the period's location.
func (p Period) Contains(t time.Time) bool {
	t = WallClock(t, p.Start.Location())
	return !t.Before(p.Start) && t.Before(p.End)
}

// WallClock reinterprets the date and clock of t in loc without converting the instant.
func WallClock(t time.Time, loc *time.Location) time.Time {
	if loc == nil || t.Location() == loc {
		return t
	}
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	return time.Date(y, mo, d, h, mi, s, t.Nanosecond(), loc)
}

// LastDay returns the last day included in the period.
func (p Period) LastDay() time.Time {
	return p.End.AddDate(0, 0, -1)
}

// Label renders "2024-05" or "2024-05 to 2024-07".
func (p Period) Label() string {
	first := p.Start.Format(MonthLayout)
	last := p.LastDay().Format(MonthLayout)
	if last <= first {
		return first
	}
	return first + " to " + last
}
