package imageedit

import (
	"strings"
	"testing"
	"unicode/utf8"

	"pinflow/internal/domain"
)

func TestBuildInstructionOrder(t *testing.T) {
	concept := domain.Concept{
		Title:       "Red Sneakers",
		Description: "Comfy everyday kicks",
		Tags:        []string{"shoes", "streetwear"},
	}
	got := BuildInstruction(concept, "Summer Sale", 2000)

	if !strings.HasPrefix(got, "Red Sneakers") {
		t.Fatalf("instruction does not start with the title: %q", got)
	}
	if !strings.HasSuffix(got, "Summer Sale") {
		t.Fatalf("instruction does not end with the promo angle: %q", got)
	}
	title := strings.Index(got, "Red Sneakers")
	desc := strings.Index(got, "Comfy everyday kicks")
	angle := strings.Index(got, "Summer Sale")
	if !(title < desc && desc < angle) {
		t.Fatalf("parts out of order: %q", got)
	}
}

func TestBuildInstructionOmitsEmptyParts(t *testing.T) {
	concept := domain.Concept{Title: "Red Sneakers", Description: "Comfy everyday kicks"}
	got := BuildInstruction(concept, "", 2000)
	if !strings.HasSuffix(got, "Comfy everyday kicks") {
		t.Fatalf("instruction without angle should end with the description: %q", got)
	}
}

func TestBuildInstructionTruncatesAtWhitespace(t *testing.T) {
	concept := domain.Concept{
		Title:       "Red Sneakers",
		Description: "Comfy everyday kicks",
	}
	for _, max := range []int{10, 20, 30, 40} {
		got := BuildInstruction(concept, "Summer Sale", max)
		if utf8.RuneCountInString(got) > max {
			t.Fatalf("max=%d: instruction too long (%d): %q", max, utf8.RuneCountInString(got), got)
		}
		// Every produced word must be a full word of the source text.
		source := "Red Sneakers. Comfy everyday kicks. Summer Sale"
		for _, word := range strings.Fields(got) {
			if !strings.Contains(source, word) {
				t.Fatalf("max=%d: truncation split a word, got %q in %q", max, word, got)
			}
		}
	}
}

func TestTruncateAtWhitespace(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"Red Sneakers. Comfy everyday kicks", 20, "Red Sneakers. Comfy"},
		{"short", 20, "short"},
		{"  padded  ", 20, "padded"},
		{strings.Repeat("x", 50), 10, strings.Repeat("x", 10)},
		{"one two", 3, "one"},
	}
	for _, tc := range cases {
		if got := TruncateAtWhitespace(tc.in, tc.max); got != tc.want {
			t.Fatalf("TruncateAtWhitespace(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}
