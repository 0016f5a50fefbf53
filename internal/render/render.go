// Package render implements the PostRenderer (§4.5): it renders the
// configured post template with the same variable set as the
// Summarizer, then truncates to post_max_chars.
package render

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/npawatch/npawatch/internal/model"
	"github.com/npawatch/npawatch/internal/publish"
)

// PostRenderer renders a finalized post from a template and variables.
type PostRenderer struct {
	tmpl     *template.Template
	maxChars int
}

// New parses postTemplate. maxChars truncates the rendered text when
// positive (0 = no limit).
func New(postTemplate string, maxChars int) (*PostRenderer, error) {
	tmpl, err := model.CompileTemplate("post", postTemplate)
	if err != nil {
		return nil, fmt.Errorf("invalid run.post_template: %w", err)
	}
	return &PostRenderer{tmpl: tmpl, maxChars: maxChars}, nil
}

// Render renders the post from (limit, title, summary, url,
// project_id, metadata), truncating the result to maxChars with a
// single trailing ellipsis when it overflows.
func (r *PostRenderer) Render(limit int, title, summary, url, projectID string, metadata []model.MetadataItem) (string, error) {
	vars := model.TemplateContext(limit, title, "", url, projectID, metadata, map[string]any{"summary": summary})

	var out strings.Builder
	if err := r.tmpl.Execute(&out, vars); err != nil {
		return "", fmt.Errorf("failed to render post template: %w", err)
	}

	text := out.String()
	if r.maxChars > 0 {
		text = publish.TrimWithEllipsis(text, r.maxChars)
	}
	return text, nil
}
