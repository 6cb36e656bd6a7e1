// Package schedule computes campaign item schedules: whether N items fit a
// date window under a per-day cap, and which date each item lands on. All
// functions are pure; callers persist the result.
package schedule

import (
	"fmt"
	"time"

	"github.com/reelforge/reelforge/internal/domain"
)

// FeasibilityError reports that an item count exceeds the window's capacity.
// It carries every number needed to render an actionable message.
type FeasibilityError struct {
	Requested int
	Days      int
	MaxPerDay int
	Capacity  int
}

func (e *FeasibilityError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf(
		"cannot fit %d items in %d days with max %d/day; maximum capacity is %d",
		e.Requested, e.Days, e.MaxPerDay, e.Capacity,
	)
}

// Day truncates a timestamp to its UTC calendar date.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayCount returns the inclusive number of calendar days between start and
// end, so start == end means a single-day window.
func DayCount(start, end time.Time) int {
	return int(Day(end).Sub(Day(start)).Hours()/24) + 1
}

// CheckFeasibility validates that n items can be distributed across the
// inclusive [start, end] window without exceeding maxPerDay on any date.
func CheckFeasibility(n int, start, end time.Time, maxPerDay int) error {
	if n < 0 {
		return fmt.Errorf("%w: item count must be >= 0, got %d", domain.ErrValidation, n)
	}
	if maxPerDay < 0 {
		return fmt.Errorf("%w: max per day must be >= 0, got %d", domain.ErrValidation, maxPerDay)
	}
	if Day(end).Before(Day(start)) {
		return fmt.Errorf("%w: end date %s precedes start date %s",
			domain.ErrValidation, Day(end).Format(time.DateOnly), Day(start).Format(time.DateOnly))
	}
	if n == 0 {
		return nil
	}

	days := DayCount(start, end)
	capacity := days * maxPerDay
	if n > capacity {
		return &FeasibilityError{
			Requested: n,
			Days:      days,
			MaxPerDay: maxPerDay,
			Capacity:  capacity,
		}
	}

	return nil
}

// Distribute assigns each of n item indexes a date in the window. Dates are
// walked in order from start to end, filling maxPerDay slots on each date
// before advancing, and items are assigned in index order so item 0 always
// takes the earliest slot. The walk is fully deterministic so schedules are
// reproducible.
func Distribute(n int, start, end time.Time, maxPerDay int) (map[int]time.Time, error) {
	if err := CheckFeasibility(n, start, end, maxPerDay); err != nil {
		return nil, err
	}

	assigned := make(map[int]time.Time, n)
	date := Day(start)
	onDate := 0

	for index := 0; index < n; index++ {
		if onDate == maxPerDay {
			date = date.AddDate(0, 0, 1)
			onDate = 0
		}
		assigned[index] = date
		onDate++
	}

	return assigned, nil
}
