package render

import (
	"testing"

	"github.com/npawatch/npawatch/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderProducesExactScenarioS1Contents(t *testing.T) {
	r, err := New("{{url}}\n{{summary}}\n", 0)
	require.NoError(t, err)

	text, err := r.Render(280, "title", "S", "https://regulation.gov.ru/projects/160532", "160532", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://regulation.gov.ru/projects/160532\nS\n", text)
}

func TestRenderTruncatesToPostMaxChars(t *testing.T) {
	r, err := New("{{summary}}", 3)
	require.NoError(t, err)

	text, err := r.Render(0, "", "абвгд", "", "1", nil)
	require.NoError(t, err)
	assert.Equal(t, "аб…", text)
}

func TestRenderIncludesMetadataVariables(t *testing.T) {
	r, err := New("{{stage}} / {{title}}", 0)
	require.NoError(t, err)

	metadata := []model.MetadataItem{{Kind: model.KindStage, Value: "Public discussion"}}
	text, err := r.Render(0, "My Project", "", "", "1", metadata)
	require.NoError(t, err)
	assert.Equal(t, "Public discussion / My Project", text)
}

func TestNewRejectsInvalidTemplate(t *testing.T) {
	_, err := New("{{.broken", 0)
	assert.Error(t, err)
}
