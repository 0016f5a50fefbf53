package model

import (
	"regexp"
	"text/template"
)

// bareVariablePattern matches a template's user-facing interpolation
// syntax, `{{name}}` with no leading dot, matching the prompt/post
// template examples in the configuration documentation (`{{url}}`,
// `{{summary}}`, `{{stage}}`, ...). CompileTemplate rewrites these to
// Go's `{{.name}}` field syntax before parsing, so operators never have
// to know this is a Go text/template under the hood.
var bareVariablePattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// CompileTemplate parses src as a text/template after rewriting bare
// `{{name}}` references into `{{.name}}`. Both the Summarizer's prompt
// template and the PostRenderer's post template use this so the same
// `{{variable}}` syntax works in both places.
func CompileTemplate(name, src string) (*template.Template, error) {
	rewritten := bareVariablePattern.ReplaceAllString(src, "{{.$1}}")
	return template.New(name).Parse(rewritten)
}

// TemplateContext builds the variable set shared by the Summarizer's
// prompt template and the PostRenderer's post template (§4.4, §4.5):
// limit, title, body, url, project_id, plus every metadata tag as its
// lowercase snake_case TemplateKey. extra overrides/augments these
// (the PostRenderer adds "summary", the Summarizer's own output, which
// is not itself one of the base variables).
func TemplateContext(limit int, title, body, url, projectID string, metadata []MetadataItem, extra map[string]any) map[string]any {
	ctx := map[string]any{
		"limit":      limit,
		"title":      title,
		"body":       body,
		"url":        url,
		"project_id": projectID,
	}
	for _, item := range metadata {
		ctx[item.TemplateKey()] = item.TemplateValue()
	}
	for k, v := range extra {
		ctx[k] = v
	}
	return ctx
}
