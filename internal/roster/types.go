package roster

import "strings"

// Well-known priority labels. The set is open; anything else is stored as-is.
const (
	PriorityHigh   = "High"
	PriorityMedium = "Medium"
	PriorityLow    = "Low"
)

// Task is one scheduled activity for the day.
//
// Completed is carried for display only. No registry operation sets it.
type Task struct {
	Description string `json:"description"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Priority    string `json:"priority"`
	Completed   bool   `json:"completed,omitempty"`
}

// String renders the task as "07:00 - 08:00: Morning Exercise [High]".
func (t Task) String() string {
	var b strings.Builder
	b.WriteString(t.Start)
	b.WriteString(" - ")
	b.WriteString(t.End)
	b.WriteString(": ")
	b.WriteString(t.Description)
	b.WriteString(" [")
	b.WriteString(t.Priority)
	b.WriteString("]")
	if t.Completed {
		b.WriteString(" (Completed)")
	}
	return b.String()
}

// TimeMode selects how Start/End are compared.
type TimeMode int

const (
	// TimeLegacy compares raw strings lexicographically and accepts anything,
	// including out-of-range values like "25:00".
	TimeLegacy TimeMode = iota
	// TimeStrict requires H:MM or HH:MM clock times with Start < End and
	// stores them zero-padded, so the string comparison follows clock order.
	TimeStrict
)

func (m TimeMode) String() string {
	switch m {
	case TimeStrict:
		return "strict"
	default:
		return "legacy"
	}
}

// ParseTimeMode maps a config value to a TimeMode. Empty means legacy.
func ParseTimeMode(s string) (TimeMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "legacy", "string":
		return TimeLegacy, true
	case "strict":
		return TimeStrict, true
	default:
		return TimeLegacy, false
	}
}
