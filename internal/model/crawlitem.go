package model

import (
	"fmt"
	"strings"
)

// CrawlItem is a discovered project as observed on the listing.
// Immutable once produced by the Scanner's parsing step.
type CrawlItem struct {
	Title     string
	URL       string
	ProjectID string // decimal string; always set for items that reach the queue
	Body      string
	Metadata  []MetadataItem
}

// BuildBody composes the human-readable multi-line summary line from
// title and metadata, per §4.1.1: title followed by one line per
// present attribute, "Ключ: value (id: …)" format. IDs are only shown
// when both a value and an id were captured for that kind.
func BuildBody(title string, items []MetadataItem, ids map[MetadataKind]string) string {
	var b strings.Builder
	b.WriteString(title)

	wrote := false
	for _, it := range items {
		label, ok := russianLabels[it.Kind]
		if !ok {
			continue
		}
		value := it.TemplateValue()
		if value == "" {
			continue
		}
		if !wrote {
			b.WriteString("\n")
			wrote = true
		} else {
			b.WriteString("\n")
		}
		if id, hasID := ids[it.Kind]; hasID && id != "" {
			fmt.Fprintf(&b, "%s: %s (id: %s)", label, value, id)
		} else {
			fmt.Fprintf(&b, "%s: %s", label, value)
		}
	}

	if !wrote {
		return ""
	}
	return b.String()
}
