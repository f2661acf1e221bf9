package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"

	logx "crewsched/pkg/logx"
)

func TestSplitTextShort(t *testing.T) {
	t.Parallel()
	got := splitText("hello", 10)
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("splitText = %q", got)
	}
}

func TestSplitTextPrefersNewlines(t *testing.T) {
	t.Parallel()
	line := strings.Repeat("a", 6)
	text := strings.Join([]string{line, line, line, line}, "\n")

	got := splitText(text, 15)
	for i, c := range got {
		if utf8.RuneCountInString(c) > 15 {
			t.Fatalf("chunk %d has %d runes", i, utf8.RuneCountInString(c))
		}
		if strings.HasPrefix(c, "\n") || strings.HasSuffix(c, "\n") {
			t.Fatalf("chunk %d has edge newline: %q", i, c)
		}
	}
	if strings.Join(got, "\n") != text {
		t.Fatalf("chunks do not reassemble: %q", got)
	}
}

func TestSplitTextHardCut(t *testing.T) {
	t.Parallel()
	got := splitText(strings.Repeat("é", 25), 10)
	if len(got) != 3 {
		t.Fatalf("got %d chunks, want 3", len(got))
	}
	if utf8.RuneCountInString(got[2]) != 5 {
		t.Fatalf("last chunk = %q", got[2])
	}
}

func TestNewRejectsEmptyToken(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{Token: "  "}, logx.Nop()); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestTruncateRunesKeepsUTF8(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("é", 300)
	got := truncateRunes(long, maxCommandDescription)
	if !utf8.ValidString(got) || utf8.RuneCountInString(got) != maxCommandDescription {
		t.Fatalf("got %d runes, valid=%v", utf8.RuneCountInString(got), utf8.ValidString(got))
	}
	// a byte cut would land inside a rune
	mixed := strings.Repeat("a", 255) + "🚀🚀"
	if got := truncateRunes(mixed, maxCommandDescription); got != strings.Repeat("a", 255)+"🚀" {
		t.Fatalf("mixed = %q", got)
	}
	if got := truncateRunes("list tasks", maxCommandDescription); got != "list tasks" {
		t.Fatalf("short = %q", got)
	}
}
