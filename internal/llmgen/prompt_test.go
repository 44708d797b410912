package llmgen

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestClampTextRuneBoundary(t *testing.T) {
	s := strings.Repeat("é", 100) // two bytes per rune
	got := clampText(s, 7)        // cut falls mid-rune
	if !utf8.ValidString(got) {
		t.Fatalf("clamped text is not valid UTF-8: %q", got)
	}
	if want := strings.Repeat("é", 3) + "…"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestClampTextASCII(t *testing.T) {
	if got := clampText("abcdefgh", 5); got != "abcde…" {
		t.Errorf("got %q, want %q", got, "abcde…")
	}
	if got := clampText("short", 200); got != "short" {
		t.Errorf("got %q, want input unchanged", got)
	}
}

func TestReminderLinesMatchTopicKeywords(t *testing.T) {
	lines := reminderLines([]string{"rounding and place value", "estimation"})
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "multi_part") {
		t.Errorf("rounding topics should pull in the multi_part reminder, got %q", joined)
	}
	if !strings.Contains(joined, "free_text") {
		t.Errorf("estimation topics should pull in the free_text reminder, got %q", joined)
	}

	if extra := reminderLines([]string{"addition"}); len(extra) != 0 {
		t.Errorf("plain addition should add no reminders, got %v", extra)
	}
}
