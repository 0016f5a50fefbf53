package cachestore

import (
	"os"
	"testing"

	"github.com/npawatch/npawatch/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestLoadManifestMissingReturnsZeroValue(t *testing.T) {
	s := newTestStore(t)
	m, err := s.LoadManifest()
	require.NoError(t, err)
	assert.Nil(t, m.MinPublishedProjectID)
}

func TestUpdateMinPublishedProjectIDSetsWhenUnset(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.UpdateMinPublishedProjectID(100))

	m, err := s.LoadManifest()
	require.NoError(t, err)
	require.NotNil(t, m.MinPublishedProjectID)
	assert.Equal(t, uint64(100), *m.MinPublishedProjectID)
}

func TestUpdateMinPublishedProjectIDOnlyDecreases(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.UpdateMinPublishedProjectID(100))
	require.NoError(t, s.UpdateMinPublishedProjectID(150))

	m, err := s.LoadManifest()
	require.NoError(t, err)
	assert.Equal(t, uint64(100), *m.MinPublishedProjectID)

	require.NoError(t, s.UpdateMinPublishedProjectID(50))
	m, err = s.LoadManifest()
	require.NoError(t, err)
	assert.Equal(t, uint64(50), *m.MinPublishedProjectID)
}

func TestSaveArtifactsThenHasData(t *testing.T) {
	s := newTestStore(t)
	assert.False(t, s.HasData("42"))

	err := s.SaveArtifacts("42", []byte("docxbytes"), "# Title\nbody", "", "", nil, nil)
	require.NoError(t, err)
	assert.True(t, s.HasData("42"))

	entry, err := s.LoadMetadata("42")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "42", entry.ProjectID)
	assert.NotEmpty(t, entry.DocxPath)
	assert.NotEmpty(t, entry.MarkdownPath)

	md, err := s.LoadCachedData("42")
	require.NoError(t, err)
	assert.Equal(t, "# Title\nbody", md)
}

func TestAddPublishedChannelsIsUnionAndIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddPublishedChannels("7", model.ChannelConsole))
	require.NoError(t, s.AddPublishedChannels("7", model.ChannelConsole, model.ChannelFile))

	channels, err := s.GetPublishedChannels("7")
	require.NoError(t, err)
	assert.ElementsMatch(t, []model.Channel{model.ChannelConsole, model.ChannelFile}, channels)

	published, err := s.IsPublishedInChannel("7", model.ChannelConsole)
	require.NoError(t, err)
	assert.True(t, published)
}

func TestIsFullyPublished(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddPublishedChannels("9", model.ChannelConsole))

	full, err := s.IsFullyPublished("9", []model.Channel{model.ChannelConsole})
	require.NoError(t, err)
	assert.True(t, full)

	full, err = s.IsFullyPublished("9", []model.Channel{model.ChannelConsole, model.ChannelFile})
	require.NoError(t, err)
	assert.False(t, full)
}

func TestChannelSummaryRoundTrip(t *testing.T) {
	s := newTestStore(t)
	has, err := s.HasChannelSummary("3", model.ChannelTelegram)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, s.SaveChannelSummary("3", model.ChannelTelegram, "summary text"))

	has, err = s.HasChannelSummary("3", model.ChannelTelegram)
	require.NoError(t, err)
	assert.True(t, has)

	text, err := s.LoadChannelSummary("3", model.ChannelTelegram)
	require.NoError(t, err)
	assert.Equal(t, "summary text", text)
}

func TestChannelPostRoundTrip(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveChannelPost("3", model.ChannelMastodon, "post text"))

	has, err := s.HasChannelPost("3", model.ChannelMastodon)
	require.NoError(t, err)
	assert.True(t, has)

	text, err := s.LoadChannelPost("3", model.ChannelMastodon)
	require.NoError(t, err)
	assert.Equal(t, "post text", text)
}

func TestLoadCachedDataFallsBackToLegacyFlatFile(t *testing.T) {
	s := newTestStore(t)
	legacyPath := s.dir + "/55_extracted.md"
	require.NoError(t, os.WriteFile(legacyPath, []byte("legacy markdown"), 0o644))

	md, err := s.LoadCachedData("55")
	require.NoError(t, err)
	assert.Equal(t, "legacy markdown", md)
}
