package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePattern_Valid(t *testing.T) {
	p, err := ParsePattern(`{"freq": "weekly", "weekday": "Monday"}`)
	require.NoError(t, err)
	assert.Equal(t, "weekly", p.Freq)
	assert.Equal(t, "Monday", p.Weekday)
}

func TestParsePattern_Invalid(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"unknown weekday", `{"freq": "weekly", "weekday": "Mondy"}`},
		{"unsupported freq", `{"freq": "daily", "weekday": "Monday"}`},
		{"missing weekday", `{"freq": "weekly"}`},
		{"extra property", `{"freq": "weekly", "weekday": "Monday", "count": 3}`},
		{"not json", `weekly, Monday`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParsePattern(tc.doc)
			assert.Error(t, err)
		})
	}
}

func TestExpand_EightWeekHorizonFromMatchingDay(t *testing.T) {
	start := time.Date(2025, 1, 27, 0, 0, 0, 0, time.UTC) // a Monday
	pattern := Pattern{Freq: "weekly", Weekday: "Monday"}
	tpl := Template{Name: "weekly review", Duration: 60, Priority: 0.6, Category: "work"}

	var drafts []Draft
	for d := range Expand(pattern, tpl, start, 8) {
		drafts = append(drafts, d)
	}

	require.Len(t, drafts, 8)
	seen := make(map[time.Time]bool)
	for i, d := range drafts {
		assert.Equal(t, time.Monday, d.Occurrence.Weekday())
		assert.Equal(t, start.AddDate(0, 0, 7*i), d.Occurrence)
		assert.False(t, seen[d.Occurrence], "duplicate occurrence %s", d.Occurrence)
		seen[d.Occurrence] = true
		assert.Equal(t, "weekly review", d.Name)
		assert.Equal(t, 60, d.Duration)
		assert.Equal(t, 0.6, d.Priority)
		assert.Equal(t, "work", d.Category)
		assert.Equal(t, d.Occurrence.AddDate(0, 0, 1), d.Due)
	}
}

func TestExpand_StartsAtNextMatchingWeekday(t *testing.T) {
	start := time.Date(2025, 1, 28, 10, 0, 0, 0, time.UTC) // a Tuesday
	pattern := Pattern{Freq: "weekly", Weekday: "Monday"}

	var drafts []Draft
	for d := range Expand(pattern, Template{}, start, 4) {
		drafts = append(drafts, d)
	}

	require.Len(t, drafts, 4)
	assert.Equal(t, time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC), drafts[0].Occurrence)
}

func TestExpand_Deterministic(t *testing.T) {
	start := time.Date(2025, 1, 27, 15, 30, 0, 0, time.UTC)
	pattern := Pattern{Freq: "weekly", Weekday: "Thursday"}

	collect := func() []Draft {
		var out []Draft
		for d := range Expand(pattern, Template{Name: "gym"}, start, 6) {
			out = append(out, d)
		}
		return out
	}
	assert.Equal(t, collect(), collect())
}

func TestExpand_StopsEarlyWhenConsumerBreaks(t *testing.T) {
	start := time.Date(2025, 1, 27, 0, 0, 0, 0, time.UTC)
	pattern := Pattern{Freq: "weekly", Weekday: "Monday"}

	count := 0
	for range Expand(pattern, Template{}, start, 8) {
		count++
		if count == 3 {
			break
		}
	}
	assert.Equal(t, 3, count)
}
