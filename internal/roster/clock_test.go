package roster

import (
	"errors"
	"testing"
)

func TestParseClock(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw   string
		endOK bool
		want  int
		valid bool
	}{
		{raw: "00:00", want: 0, valid: true},
		{raw: "7:05", want: 7*60 + 5, valid: true},
		{raw: "23:59", want: 23*60 + 59, valid: true},
		{raw: "24:00", endOK: true, want: 24 * 60, valid: true},
		{raw: "24:00"},
		{raw: "25:00", endOK: true},
		{raw: "12:60"},
		{raw: "noon"},
		{raw: "1200"},
		{raw: ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.raw, func(t *testing.T) {
			got, _, ok := parseClock(tt.raw, tt.endOK)
			if ok != tt.valid {
				t.Fatalf("parseClock(%q) ok = %v, want %v", tt.raw, ok, tt.valid)
			}
			if ok && got != tt.want {
				t.Fatalf("parseClock(%q) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestStrictNormalizesAndOrders(t *testing.T) {
	t.Parallel()
	r := New(WithTimeMode(TimeStrict))
	seed(t, r,
		Task{Description: "b", Start: "10:00", End: "11:00"},
		Task{Description: "a", Start: "9:00", End: "9:30"},
	)
	got, _ := r.Tasks()
	if got[0].Description != "a" || got[0].Start != "09:00" || got[0].End != "09:30" {
		t.Fatalf("first task = %+v, want normalized 09:00-09:30", got[0])
	}
}

func TestStrictDetectsOverlapAcrossPadding(t *testing.T) {
	t.Parallel()
	r := New(WithTimeMode(TimeStrict))
	seed(t, r, Task{Description: "a", Start: "9:00", End: "10:30"})
	err := r.Add(Task{Description: "b", Start: "10:00", End: "11:00"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestStrictRejectsBadTimes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		start, end string
		field      string
	}{
		{name: "hour out of range", start: "25:00", end: "26:00", field: "start"},
		{name: "bad end", start: "10:00", end: "ten", field: "end"},
		{name: "inverted", start: "11:00", end: "10:00", field: "interval"},
		{name: "empty", start: "10:00", end: "10:00", field: "interval"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := New(WithTimeMode(TimeStrict))
			err := r.Add(Task{Description: tt.name, Start: tt.start, End: tt.end})
			var te *TimeError
			if !errors.As(err, &te) {
				t.Fatalf("err = %v, want *TimeError", err)
			}
			if te.Field != tt.field {
				t.Fatalf("field = %q, want %q", te.Field, tt.field)
			}
			if !errors.Is(err, ErrInvalidTime) {
				t.Fatal("errors.Is(err, ErrInvalidTime) = false")
			}
			if r.Len() != 0 {
				t.Fatalf("Len = %d after rejected add", r.Len())
			}
		})
	}
}

func TestParseTimeMode(t *testing.T) {
	t.Parallel()
	if m, ok := ParseTimeMode(""); !ok || m != TimeLegacy {
		t.Fatalf("empty: %v %v", m, ok)
	}
	if m, ok := ParseTimeMode(" Strict "); !ok || m != TimeStrict {
		t.Fatalf("strict: %v %v", m, ok)
	}
	if _, ok := ParseTimeMode("fuzzy"); ok {
		t.Fatal("expected unknown mode to be rejected")
	}
}
