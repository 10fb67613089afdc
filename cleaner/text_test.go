package cleaner

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"runs and blank lines", "  Hello\n\n\n  world \t!  ", "Hello world !"},
		{"empty", "", ""},
		{"whitespace only", " \t\r\n ", ""},
		{"full-width space", "知乎　回答", "知乎 回答"},
		{"already clean", "a b c", "a b c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanText(tt.in)
			if got != tt.want {
				t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if again := CleanText(got); again != got {
				t.Errorf("not idempotent: %q then %q", got, again)
			}
		})
	}
}

func TestCleanText_NoDoubleSpaces(t *testing.T) {
	inputs := []string{"a  b", "\n\na\n\n\nb\n", "x \t \t y", " lead", "trail "}
	for _, in := range inputs {
		out := CleanText(in)
		if strings.Contains(out, "  ") || strings.Contains(out, "\n") {
			t.Errorf("CleanText(%q) = %q still has runs", in, out)
		}
		if out != strings.TrimSpace(out) {
			t.Errorf("CleanText(%q) = %q not trimmed", in, out)
		}
	}
}

func TestCleanLines(t *testing.T) {
	in := "# Title\n\n\n  some   text  \n\n- item"
	want := "# Title\nsome text\n- item"
	if got := CleanLines(in); got != want {
		t.Errorf("CleanLines() = %q, want %q", got, want)
	}
}

func TestTruncate(t *testing.T) {
	s := strings.Repeat("知", 30)
	got := Truncate(s, 10)
	if utf8.RuneCountInString(got) != 10 || !utf8.ValidString(got) {
		t.Errorf("Truncate cut badly: %q", got)
	}
	if Truncate("short", 10) != "short" {
		t.Error("short strings must pass through")
	}
}
