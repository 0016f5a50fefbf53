package publish

import "strings"

// TrimWithEllipsis truncates text to at most maxChars characters
// (rune-aware, never splitting a multi-byte character), appending a
// single ellipsis character when truncation occurs. maxChars == 0
// yields "". maxChars == 1 yields "…" regardless of text. Text already
// within the limit is returned unchanged.
func TrimWithEllipsis(text string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	if maxChars == 1 {
		return "…"
	}

	var b strings.Builder
	b.WriteString(string(runes[:maxChars-1]))
	b.WriteRune('…')
	return b.String()
}
