package scheduling

import (
	"encoding/json"
	"fmt"
	"iter"
	"time"

	"task-planner-service/pkg/validation"
)

// PatternSchema constrains recurrence pattern documents stored in the
// recurring_settings table. Only weekly patterns exist today; the enum keeps
// weekday names closed so a typo fails at write time, not at expansion time.
const PatternSchema = `{
	"type": "object",
	"properties": {
		"freq": {"const": "weekly"},
		"weekday": {"enum": ["Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"]}
	},
	"required": ["freq", "weekday"],
	"additionalProperties": false
}`

// Pattern is a parsed recurrence pattern.
type Pattern struct {
	Freq    string `json:"freq"`
	Weekday string `json:"weekday"`
}

// ParsePattern validates a pattern document against PatternSchema and decodes it.
func ParsePattern(doc string) (Pattern, error) {
	if err := validation.ValidateJSONWithSchema(PatternSchema, doc); err != nil {
		return Pattern{}, fmt.Errorf("invalid recurrence pattern: %w", err)
	}
	var p Pattern
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return Pattern{}, fmt.Errorf("decode recurrence pattern: %w", err)
	}
	return p, nil
}

// Template carries the fields a recurring task instance inherits.
type Template struct {
	Name     string
	Duration int
	Priority float64
	Category string
}

// Draft is one concrete instance produced by expansion, due at the end of its
// occurrence day.
type Draft struct {
	Template
	Occurrence time.Time // midnight of the matching day
	Due        time.Time
}

// Expand yields one Draft per matching weekday within the horizon, lazily.
// The horizon is [start, start + weeks*7 days): a horizon of 8 weeks starting
// on the pattern's weekday yields exactly 8 drafts. The sequence is
// deterministic for a given start and horizon.
func Expand(p Pattern, tpl Template, start time.Time, weeks int) iter.Seq[Draft] {
	return func(yield func(Draft) bool) {
		day, ok := weekdayNames[p.Weekday]
		if !ok {
			return
		}
		first := midnight(start)
		for first.Weekday() != day {
			first = first.AddDate(0, 0, 1)
		}
		end := midnight(start).AddDate(0, 0, weeks*7)
		for occ := first; occ.Before(end); occ = occ.AddDate(0, 0, 7) {
			draft := Draft{
				Template:   tpl,
				Occurrence: occ,
				Due:        occ.AddDate(0, 0, 1),
			}
			if !yield(draft) {
				return
			}
		}
	}
}
