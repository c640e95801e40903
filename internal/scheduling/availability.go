package scheduling

import (
	"fmt"
	"sort"
	"time"
)

// Window is one schedules row: a weekly opening for a category. Hours are
// whole hours on a 24h clock, [StartHour, EndHour).
type Window struct {
	Category  string
	DayOfWeek string // weekday name, e.g. "Monday", as stored in the schedules table
	StartHour int
	EndHour   int
}

// Interval is a half-open [Start, End) range in minutes from midnight.
type Interval struct {
	Start int
	End   int
}

func (iv Interval) Minutes() int { return iv.End - iv.Start }

// Availability holds, for each weekday, an ordered non-overlapping set of
// open intervals for a single category.
type Availability map[time.Weekday][]Interval

// Catalog is the closed set of categories known to the schedule, each with
// its merged weekly availability. Tasks referencing a category not present
// here are rejected at validation time rather than silently never matching.
type Catalog map[string]Availability

var weekdayNames = map[string]time.Weekday{
	"Sunday":    time.Sunday,
	"Monday":    time.Monday,
	"Tuesday":   time.Tuesday,
	"Wednesday": time.Wednesday,
	"Thursday":  time.Thursday,
	"Friday":    time.Friday,
	"Saturday":  time.Saturday,
}

// BuildCatalog validates all schedule windows and merges them into per-category,
// per-weekday interval sets. Overlapping or back-to-back windows on the same
// day collapse into one interval.
func BuildCatalog(windows []Window) (Catalog, error) {
	catalog := make(Catalog)
	for _, w := range windows {
		day, ok := weekdayNames[w.DayOfWeek]
		if !ok {
			return nil, &ConfigError{Category: w.Category, Detail: fmt.Sprintf("unknown day_of_week %q", w.DayOfWeek)}
		}
		if w.StartHour < 0 || w.EndHour > 24 {
			return nil, &ConfigError{Category: w.Category, Detail: fmt.Sprintf("hours out of range: %d-%d", w.StartHour, w.EndHour)}
		}
		if w.StartHour >= w.EndHour {
			return nil, &ConfigError{Category: w.Category, Detail: fmt.Sprintf("start_hour %d >= end_hour %d on %s", w.StartHour, w.EndHour, w.DayOfWeek)}
		}
		avail, ok := catalog[w.Category]
		if !ok {
			avail = make(Availability)
			catalog[w.Category] = avail
		}
		avail[day] = append(avail[day], Interval{Start: w.StartHour * 60, End: w.EndHour * 60})
	}
	for _, avail := range catalog {
		for day, intervals := range avail {
			avail[day] = mergeIntervals(intervals)
		}
	}
	return catalog, nil
}

// mergeIntervals sorts intervals by start and coalesces any that overlap or
// touch, so the allocator always sees maximal free ranges.
func mergeIntervals(intervals []Interval) []Interval {
	sort.Slice(intervals, func(i, j int) bool { return intervals[i].Start < intervals[j].Start })
	merged := intervals[:1]
	for _, iv := range intervals[1:] {
		last := &merged[len(merged)-1]
		if iv.Start <= last.End {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}
