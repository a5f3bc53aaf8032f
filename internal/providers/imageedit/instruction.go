package imageedit

import (
	"strings"
	"unicode"

	"pinflow/internal/domain"
)

// summaryMaxChars bounds how much of the concept description is carried into
// the edit instruction before the optional promotional angle.
const summaryMaxChars = 240

// BuildInstruction deterministically derives the edit instruction from the
// concept: title, then a summary of the description, then the optional
// promotional angle, in that fixed order. The result never exceeds maxChars
// and truncation always lands on a whitespace boundary, never mid-word.
func BuildInstruction(concept domain.Concept, promoAngle string, maxChars int) string {
	parts := []string{}
	if title := strings.TrimSpace(concept.Title); title != "" {
		parts = append(parts, title)
	}
	if summary := TruncateAtWhitespace(concept.Description, summaryMaxChars); summary != "" {
		parts = append(parts, summary)
	}
	if angle := strings.TrimSpace(promoAngle); angle != "" {
		parts = append(parts, angle)
	}
	return TruncateAtWhitespace(strings.Join(parts, ". "), maxChars)
}

// TruncateAtWhitespace trims s and, when it exceeds max runes, cuts it at the
// whitespace boundary nearest the limit. A single over-long word is cut hard
// at the limit since no boundary exists.
func TruncateAtWhitespace(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	cut := -1
	for i := max; i >= 0 && i < len(runes); i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}
	if cut <= 0 {
		cut = max
	}
	return strings.TrimRightFunc(string(runes[:cut]), func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == '.'
	})
}
