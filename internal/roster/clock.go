package roster

import (
	"regexp"
	"strconv"
)

var reClock = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})\s*$`)

// parseClock parses "H:MM" or "HH:MM" into minutes since midnight.
// allowMidnightEnd accepts "24:00" (end of day) as 1440.
func parseClock(v string, allowMidnightEnd bool) (int, string, bool) {
	m := reClock.FindStringSubmatch(v)
	if len(m) != 3 {
		return 0, "must be HH:MM", false
	}
	hh, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	if mm > 59 {
		return 0, "minutes out of range", false
	}
	if hh == 24 && mm == 0 && allowMidnightEnd {
		return 24 * 60, "", true
	}
	if hh > 23 {
		return 0, "hour out of range", false
	}
	return hh*60 + mm, "", true
}

func formatClock(min int) string {
	hh := min / 60
	mm := min % 60
	return string([]byte{
		byte('0' + hh/10), byte('0' + hh%10),
		':',
		byte('0' + mm/10), byte('0' + mm%10),
	})
}

// normalize validates t for strict mode and returns it with zero-padded times,
// so that string order and clock order agree.
func normalize(t Task) (Task, error) {
	start, why, ok := parseClock(t.Start, false)
	if !ok {
		return Task{}, &TimeError{Field: "start", Value: t.Start, Reason: why}
	}
	end, why, ok := parseClock(t.End, true)
	if !ok {
		return Task{}, &TimeError{Field: "end", Value: t.End, Reason: why}
	}
	if start >= end {
		return Task{}, &TimeError{Field: "interval", Value: t.Start + "-" + t.End, Reason: "start must be before end"}
	}
	t.Start = formatClock(start)
	t.End = formatClock(end)
	return t, nil
}

// overlaps reports whether b intersects a under half-open [Start, End) semantics:
// !(b.End <= a.Start || b.Start >= a.End).
//
// Both modes compare strings; strict mode has already normalized them.
func overlaps(a, b Task) bool {
	return !(b.End <= a.Start || b.Start >= a.End)
}
