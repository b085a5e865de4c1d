// Package catalog holds the workout plan: a read-only mapping from weekday
// name to an ordered list of exercises, loaded once at process start.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Set is one prescribed set of an exercise. Weight is kept as raw JSON:
// it may be a number ("60") or a bodyweight label ("Bodyweight"), and it is
// rendered verbatim either way.
type Set struct {
	Weight json.RawMessage `json:"weight"`
	Reps   int             `json:"reps"`
}

type Exercise struct {
	Name string `json:"exercise"`
	Sets []Set  `json:"sets"`
}

// Catalog is immutable after Load. Day keys are matched case-sensitively
// against Go's weekday names ("Monday".."Sunday").
type Catalog struct {
	days map[string][]Exercise
}

// Load reads the workout plan from path. A missing file or malformed
// structure is a fatal startup condition for the caller; malformed field
// values inside a well-formed structure are not (they render as-is).
func Load(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("workout catalog: %w", err)
	}
	var days map[string][]Exercise
	if err := json.Unmarshal(b, &days); err != nil {
		return nil, fmt.Errorf("workout catalog %s: %w", path, err)
	}
	return &Catalog{days: days}, nil
}

// FormatMessage renders the plan for day as a plain-text message: a header
// line, one bullet per exercise, and one line per set with a 1-based index,
// in declared order. A day with no exercises is a rest day, which is valid
// output rather than an error.
func (c *Catalog) FormatMessage(day string) string {
	exercises := c.days[day]
	if len(exercises) == 0 {
		return fmt.Sprintf("🏋️ %s Workout: Rest Day 🏊", day)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏋️ %s Workout:", day)
	for _, ex := range exercises {
		b.WriteString("\n• ")
		b.WriteString(ex.Name)
		for i, s := range ex.Sets {
			fmt.Fprintf(&b, "\n   - Set %d: %s × %d reps", i+1, renderWeight(s.Weight), s.Reps)
		}
	}
	return b.String()
}

// renderWeight prints a weight value the way it appears in the source data:
// quoted strings lose their quotes, numbers keep their original notation.
func renderWeight(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
