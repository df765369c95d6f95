package schedule

import (
	"fmt"
	"sort"
	"time"
)

// cycleIDLayout is the canonical ISO form of an anchor date. The cycle id is
// the idempotency key for the whole run ledger.
const cycleIDLayout = "2006-01-02"

// Schedule maps calendar dates onto biweekly-style cycles defined by a fixed
// ascending set of day-of-month anchors (e.g. {1, 15}).
type Schedule struct {
	anchorDays []int
}

// New validates and normalizes the anchor day set.
func New(anchorDays []int) (Schedule, error) {
	if len(anchorDays) == 0 {
		return Schedule{}, fmt.Errorf("at least one anchor day is required")
	}

	days := make([]int, len(anchorDays))
	copy(days, anchorDays)
	sort.Ints(days)

	for i, day := range days {
		// Day 29+ would vanish in short months and break anchor cycling.
		if day < 1 || day > 28 {
			return Schedule{}, fmt.Errorf("anchor day %d out of range 1..28", day)
		}
		if i > 0 && days[i-1] == day {
			return Schedule{}, fmt.Errorf("duplicate anchor day %d", day)
		}
	}

	return Schedule{anchorDays: days}, nil
}

// CycleID renders an anchor date in its canonical form.
func CycleID(anchor time.Time) string {
	return anchor.Format(cycleIDLayout)
}

// CurrentAnchor returns the most recent anchor date on or before today.
// If today precedes the month's first anchor, it rolls back to the previous
// month's last anchor.
func (s Schedule) CurrentAnchor(today time.Time) time.Time {
	today = DateOf(today)

	for i := len(s.anchorDays) - 1; i >= 0; i-- {
		if today.Day() >= s.anchorDays[i] {
			return time.Date(today.Year(), today.Month(), s.anchorDays[i], 0, 0, 0, 0, time.UTC)
		}
	}

	prevMonthEnd := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	return time.Date(prevMonthEnd.Year(), prevMonthEnd.Month(), s.lastAnchorDay(), 0, 0, 0, 0, time.UTC)
}

// PreviousAnchor returns the anchor date immediately before the given anchor
// in the cyclic anchor sequence, rolling across month boundaries.
func (s Schedule) PreviousAnchor(anchor time.Time) time.Time {
	anchor = DateOf(anchor)

	for i := len(s.anchorDays) - 1; i >= 0; i-- {
		if s.anchorDays[i] < anchor.Day() {
			return time.Date(anchor.Year(), anchor.Month(), s.anchorDays[i], 0, 0, 0, 0, time.UTC)
		}
	}

	prevMonthEnd := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	return time.Date(prevMonthEnd.Year(), prevMonthEnd.Month(), s.lastAnchorDay(), 0, 0, 0, 0, time.UTC)
}

// Window computes the fetch window ending today. If a completed cycle exists
// the window starts the day after its anchor, so every cycle missed since
// then is covered in one pass. On a first-ever run it starts the day after
// the previous anchor.
func (s Schedule) Window(today, anchor time.Time, lastCompleted time.Time, hasCompleted bool) (since, until time.Time) {
	until = DateOf(today)

	if hasCompleted {
		since = DateOf(lastCompleted).AddDate(0, 0, 1)
		return since, until
	}

	since = s.PreviousAnchor(anchor).AddDate(0, 0, 1)
	return since, until
}

// DateOf truncates a timestamp to its calendar date as observed in the
// timestamp's own location, normalized to a UTC midnight value so dates
// from different clocks compare and format uniformly.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s Schedule) lastAnchorDay() int {
	return s.anchorDays[len(s.anchorDays)-1]
}
