package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileTemplateRewritesBareVariables(t *testing.T) {
	tmpl, err := CompileTemplate("t", "{{url}}\n{{summary}}\n")
	require.NoError(t, err)

	var out strings.Builder
	require.NoError(t, tmpl.Execute(&out, map[string]any{"url": "https://example.com", "summary": "S"}))
	assert.Equal(t, "https://example.com\nS\n", out.String())
}

func TestCompileTemplateLeavesDottedReferencesAlone(t *testing.T) {
	tmpl, err := CompileTemplate("t", "{{.url}}")
	require.NoError(t, err)

	var out strings.Builder
	require.NoError(t, tmpl.Execute(&out, map[string]any{"url": "https://example.com"}))
	assert.Equal(t, "https://example.com", out.String())
}

func TestTemplateContextIncludesMetadataAndExtras(t *testing.T) {
	metadata := []MetadataItem{
		{Kind: KindStage, Value: "Discussion"},
		{Kind: KindParallelStageFiles, Values: []string{"a.docx", "b.docx"}},
	}
	ctx := TemplateContext(280, "Title", "Body", "https://example.com", "160532", metadata, map[string]any{"summary": "S"})

	assert.Equal(t, 280, ctx["limit"])
	assert.Equal(t, "Title", ctx["title"])
	assert.Equal(t, "Body", ctx["body"])
	assert.Equal(t, "https://example.com", ctx["url"])
	assert.Equal(t, "160532", ctx["project_id"])
	assert.Equal(t, "Discussion", ctx["stage"])
	assert.Equal(t, "a.docx, b.docx", ctx["parallel_stage_files"])
	assert.Equal(t, "S", ctx["summary"])
}
