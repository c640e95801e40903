package scheduling

import (
	"fmt"
	"time"
)

// Placement is a concrete slot assigned to a task.
type Placement struct {
	TaskID   uint
	Category string
	Start    time.Time
	End      time.Time
}

// Failure records a task that could not be placed before its deadline.
type Failure struct {
	TaskID uint
	Err    *UnschedulableError
}

// Result is the outcome of one allocation pass.
type Result struct {
	Placements []Placement
	Failures   []Failure
}

// freeKey addresses the remaining free intervals of one category on one
// concrete date.
type freeKey struct {
	category string
	date     string
}

// pass carries the mutable free-capacity state for a single allocation run.
// It is built fresh per run and discarded with it; nothing leaks across runs.
type pass struct {
	now      time.Time
	catalog  Catalog
	reserved []Placement
	free     map[freeKey][]Interval
}

// Allocate runs one scheduling pass over the given pending tasks. Tasks are
// taken in queue order (deadline, then priority, then id); each is placed at
// the earliest sub-interval of its category's windows, scanning from the day
// of `now` forward, that has enough free capacity and still ends on or before
// the task's deadline. Reserving a slot shrinks that window's remaining free
// capacity for the rest of the pass, so placements in the same category never
// overlap.
//
// `reserved` holds slots already persisted by earlier runs; their capacity is
// subtracted before anything is placed, which keeps re-runs from
// double-booking and makes allocation over an unchanged set idempotent.
//
// A ValidationError on any task aborts the pass. A task with no feasible slot
// produces a Failure and the pass continues.
func Allocate(now time.Time, catalog Catalog, tasks []Task, reserved []Placement) (Result, error) {
	for _, t := range tasks {
		if t.Duration <= 0 {
			return Result{}, &ValidationError{TaskID: t.ID, Detail: fmt.Sprintf("duration must be positive, got %d", t.Duration)}
		}
		if t.Priority < 0 || t.Priority > 1 {
			return Result{}, &ValidationError{TaskID: t.ID, Detail: fmt.Sprintf("priority must be in [0,1], got %g", t.Priority)}
		}
		if !t.Deadline.After(now) {
			return Result{}, &ValidationError{TaskID: t.ID, Detail: fmt.Sprintf("deadline %s is not in the future", t.Deadline.Format(time.RFC3339))}
		}
	}

	p := &pass{now: now, catalog: catalog, reserved: reserved, free: make(map[freeKey][]Interval)}
	var result Result
	for _, t := range Order(tasks) {
		placement, err := p.place(t)
		if err != nil {
			result.Failures = append(result.Failures, Failure{TaskID: t.ID, Err: err})
			continue
		}
		result.Placements = append(result.Placements, placement)
	}
	return result, nil
}

func (p *pass) place(t Task) (Placement, *UnschedulableError) {
	avail, ok := p.catalog[t.Category]
	if !ok || len(avail) == 0 {
		return Placement{}, &UnschedulableError{TaskID: t.ID, Detail: fmt.Sprintf("no availability windows for category %q", t.Category)}
	}

	day := midnight(p.now)
	for day.Before(t.Deadline) {
		key := freeKey{category: t.Category, date: day.Format("2006-01-02")}
		free, ok := p.free[key]
		if !ok {
			free = p.initDay(t.Category, avail, day)
			p.free[key] = free
		}
		for i, iv := range free {
			if iv.Minutes() < t.Duration {
				continue
			}
			start := day.Add(time.Duration(iv.Start) * time.Minute)
			end := start.Add(time.Duration(t.Duration) * time.Minute)
			if end.After(t.Deadline) {
				// Every later candidate starts later still, so nothing
				// else on this or a following day can meet the deadline.
				return Placement{}, p.unschedulable(t)
			}
			p.free[key] = reserveAt(free, i, t.Duration)
			return Placement{TaskID: t.ID, Category: t.Category, Start: start, End: end}, nil
		}
		day = day.AddDate(0, 0, 1)
	}
	return Placement{}, p.unschedulable(t)
}

func (p *pass) unschedulable(t Task) *UnschedulableError {
	return &UnschedulableError{
		TaskID: t.ID,
		Detail: fmt.Sprintf("no window with %d free minutes before deadline %s", t.Duration, t.Deadline.Format(time.RFC3339)),
	}
}

// initDay copies the category's weekly intervals onto a concrete date, clips
// the current day so nothing is placed in the past, and subtracts slots
// persisted by earlier runs.
func (p *pass) initDay(category string, avail Availability, day time.Time) []Interval {
	weekly := avail[day.Weekday()]
	free := make([]Interval, 0, len(weekly))
	cutoff := 0
	if day.Equal(midnight(p.now)) {
		cutoff = minuteOfDay(p.now)
	}
	for _, iv := range weekly {
		if iv.End <= cutoff {
			continue
		}
		if iv.Start < cutoff {
			iv.Start = cutoff
		}
		free = append(free, iv)
	}
	for _, r := range p.reserved {
		if r.Category != category {
			continue
		}
		busy, ok := clampToDay(r, day)
		if !ok {
			continue
		}
		free = subtract(free, busy)
	}
	return free
}

// clampToDay projects a reserved placement onto one date's minute axis.
func clampToDay(r Placement, day time.Time) (Interval, bool) {
	next := day.AddDate(0, 0, 1)
	if !r.Start.Before(next) || !r.End.After(day) {
		return Interval{}, false
	}
	busy := Interval{Start: 0, End: 24 * 60}
	if r.Start.After(day) {
		busy.Start = int(r.Start.Sub(day) / time.Minute)
	}
	if r.End.Before(next) {
		busy.End = int(r.End.Sub(day) / time.Minute)
	}
	return busy, true
}

// subtract removes a busy interval from an ordered free set, splitting
// intervals the busy range lands inside.
func subtract(free []Interval, busy Interval) []Interval {
	out := make([]Interval, 0, len(free)+1)
	for _, iv := range free {
		if busy.End <= iv.Start || busy.Start >= iv.End {
			out = append(out, iv)
			continue
		}
		if busy.Start > iv.Start {
			out = append(out, Interval{Start: iv.Start, End: busy.Start})
		}
		if busy.End < iv.End {
			out = append(out, Interval{Start: busy.End, End: iv.End})
		}
	}
	return out
}

// reserveAt consumes the first `minutes` of free[i], dropping the interval
// when nothing remains.
func reserveAt(free []Interval, i, minutes int) []Interval {
	free[i].Start += minutes
	if free[i].Minutes() <= 0 {
		free = append(free[:i], free[i+1:]...)
	}
	return free
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// minuteOfDay rounds up: a reference time partway through a minute cannot
// start a slot in that minute.
func minuteOfDay(t time.Time) int {
	min := t.Hour()*60 + t.Minute()
	if t.Second() > 0 || t.Nanosecond() > 0 {
		min++
	}
	return min
}
