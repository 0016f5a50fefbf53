package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	npaerrors "github.com/npawatch/npawatch/internal/errors"
	"github.com/npawatch/npawatch/internal/model"
	"github.com/npawatch/npawatch/internal/publish"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeCache is a minimal in-memory CacheStore for Worker tests.
type fakeCache struct {
	mu       sync.Mutex
	entries  map[string]*model.ProjectCacheEntry
	markdown map[string]string

	saveArtifactsErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]*model.ProjectCacheEntry{}, markdown: map[string]string{}}
}

func (f *fakeCache) HasData(projectID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.entries[projectID]
	return ok
}

func (f *fakeCache) LoadMetadata(projectID string) (*model.ProjectCacheEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[projectID], nil
}

func (f *fakeCache) LoadCachedData(projectID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.markdown[projectID], nil
}

func (f *fakeCache) SaveArtifacts(projectID string, _ []byte, markdown, _, _ string, _ []model.Channel, metadata []model.MetadataItem) error {
	if f.saveArtifactsErr != nil {
		return f.saveArtifactsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	entry := model.NewProjectCacheEntry(projectID, time.Now())
	entry.MarkdownPath = "markdown.md"
	entry.CrawlMetadata = metadata
	f.entries[projectID] = entry
	f.markdown[projectID] = markdown
	return nil
}

func (f *fakeCache) IsPublishedInChannel(projectID string, c model.Channel) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.entries[projectID]
	if e == nil {
		return false, nil
	}
	return e.HasChannel(c), nil
}

func (f *fakeCache) AddPublishedChannels(projectID string, channels ...model.Channel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.entries[projectID]
	for _, c := range channels {
		e.AddChannel(c)
	}
	return nil
}

func (f *fakeCache) HasChannelSummary(projectID string, c model.Channel) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.entries[projectID]
	_, ok := e.ChannelSummaries[c]
	return ok, nil
}

func (f *fakeCache) LoadChannelSummary(projectID string, c model.Channel) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[projectID].ChannelSummaries[c], nil
}

func (f *fakeCache) SaveChannelSummary(projectID string, c model.Channel, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[projectID].ChannelSummaries[c] = text
	return nil
}

func (f *fakeCache) HasChannelPost(projectID string, c model.Channel) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.entries[projectID]
	_, ok := e.ChannelPosts[c]
	return ok, nil
}

func (f *fakeCache) LoadChannelPost(projectID string, c model.Channel) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[projectID].ChannelPosts[c], nil
}

func (f *fakeCache) SaveChannelPost(projectID string, c model.Channel, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[projectID].ChannelPosts[c] = text
	return nil
}

func (f *fakeCache) publishedChannelsForTest(projectID string) []model.Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[projectID].PublishedChannels
}

// fakeDocSource resolves markdown without any real HTTP calls.
type fakeDocSource struct {
	markdown string
	err      error
	calls    int
}

func (d *fakeDocSource) Fetch(_ context.Context, _ string) ([]byte, string, error) {
	d.calls++
	if d.err != nil {
		return nil, "", d.err
	}
	return []byte("docx"), d.markdown, nil
}

type fakeSummarizer struct {
	text  string
	err   error
	calls int
}

func (s *fakeSummarizer) Summarize(_ context.Context, _, _, _, _ string, _ []model.MetadataItem, _ int) (string, error) {
	s.calls++
	return s.text, s.err
}

type fakeRenderer struct {
	text string
	err  error
}

func (r *fakeRenderer) Render(_ int, _, _, _, _ string, _ []model.MetadataItem) (string, error) {
	return r.text, r.err
}

type fakePublisher struct {
	name  model.Channel
	err   error
	calls int
	texts []string
}

func (p *fakePublisher) Name() model.Channel { return p.name }

func (p *fakePublisher) Publish(_ context.Context, _, _, text string) error {
	p.calls++
	p.texts = append(p.texts, text)
	return p.err
}

func newTestWorker(cache CacheStore, doc DocSource, sum Summarizer, rend PostRenderer, pubs ...publish.Publisher) *Worker {
	cfg := Config{
		EnabledChannels: []model.Channel{model.ChannelConsole, model.ChannelFile},
		DefaultLimit:    280,
	}
	return New(cfg, cache, doc, sum, rend, pubs, zap.NewNop())
}

func TestProcessItemPublishesAllEnabledChannels(t *testing.T) {
	cache := newFakeCache()
	doc := &fakeDocSource{markdown: "body text"}
	sum := &fakeSummarizer{text: "summary"}
	rend := &fakeRenderer{text: "post"}
	console := &fakePublisher{name: model.ChannelConsole}
	file := &fakePublisher{name: model.ChannelFile}

	w := newTestWorker(cache, doc, sum, rend, console, file)
	item := &model.CrawlItem{Title: "T", URL: "https://example.com/1", ProjectID: "1"}

	ok := w.processItem(context.Background(), item)
	assert.True(t, ok)
	assert.Equal(t, 1, console.calls)
	assert.Equal(t, 1, file.calls)
	assert.Equal(t, 1, doc.calls)
	assert.Equal(t, 2, sum.calls) // summary not shared across channels in this store layout
}

func TestProcessItemSkipsWhenFetchReturnsSkipError(t *testing.T) {
	cache := newFakeCache()
	doc := &fakeDocSource{err: npaerrors.NewSkipError("no file id")}
	sum := &fakeSummarizer{text: "summary"}
	rend := &fakeRenderer{text: "post"}
	console := &fakePublisher{name: model.ChannelConsole}
	file := &fakePublisher{name: model.ChannelFile}

	w := newTestWorker(cache, doc, sum, rend, console, file)
	item := &model.CrawlItem{Title: "T", URL: "u", ProjectID: "1"}

	ok := w.processItem(context.Background(), item)
	assert.False(t, ok)
	assert.Equal(t, 0, console.calls)
	assert.Equal(t, 0, file.calls)
}

func TestProcessItemReusesCachedMarkdown(t *testing.T) {
	cache := newFakeCache()
	entry := model.NewProjectCacheEntry("1", time.Now())
	entry.MarkdownPath = "markdown.md"
	cache.entries["1"] = entry
	cache.markdown["1"] = "cached markdown"

	doc := &fakeDocSource{markdown: "should not be used"}
	sum := &fakeSummarizer{text: "summary"}
	rend := &fakeRenderer{text: "post"}
	console := &fakePublisher{name: model.ChannelConsole}
	file := &fakePublisher{name: model.ChannelFile}

	w := newTestWorker(cache, doc, sum, rend, console, file)
	item := &model.CrawlItem{Title: "T", URL: "u", ProjectID: "1"}

	ok := w.processItem(context.Background(), item)
	require.True(t, ok)
	assert.Equal(t, 0, doc.calls)
}

func TestProcessItemContinuesOtherChannelsOnPublishError(t *testing.T) {
	cache := newFakeCache()
	doc := &fakeDocSource{markdown: "body"}
	sum := &fakeSummarizer{text: "summary"}
	rend := &fakeRenderer{text: "post"}
	console := &fakePublisher{name: model.ChannelConsole, err: errors.New("boom")}
	file := &fakePublisher{name: model.ChannelFile}

	w := newTestWorker(cache, doc, sum, rend, console, file)
	item := &model.CrawlItem{Title: "T", URL: "u", ProjectID: "1"}

	ok := w.processItem(context.Background(), item)
	assert.True(t, ok) // file still succeeded
	assert.Equal(t, 1, console.calls)
	assert.Equal(t, 1, file.calls)

	assert.ElementsMatch(t, []model.Channel{model.ChannelFile}, cache.publishedChannelsForTest("1"))
}

func TestProcessItemSkipsAlreadyPublishedChannels(t *testing.T) {
	cache := newFakeCache()
	entry := model.NewProjectCacheEntry("1", time.Now())
	entry.MarkdownPath = "markdown.md"
	entry.AddChannel(model.ChannelConsole)
	cache.entries["1"] = entry
	cache.markdown["1"] = "cached markdown"

	doc := &fakeDocSource{}
	sum := &fakeSummarizer{text: "summary"}
	rend := &fakeRenderer{text: "post"}
	console := &fakePublisher{name: model.ChannelConsole}
	file := &fakePublisher{name: model.ChannelFile}

	w := newTestWorker(cache, doc, sum, rend, console, file)
	item := &model.CrawlItem{Title: "T", URL: "u", ProjectID: "1"}

	ok := w.processItem(context.Background(), item)
	assert.True(t, ok)
	assert.Equal(t, 0, console.calls)
	assert.Equal(t, 1, file.calls)
}

func TestRunStopsAtMaxPostsPerRun(t *testing.T) {
	cache := newFakeCache()
	doc := &fakeDocSource{markdown: "body"}
	sum := &fakeSummarizer{text: "summary"}
	rend := &fakeRenderer{text: "post"}
	console := &fakePublisher{name: model.ChannelConsole}
	file := &fakePublisher{name: model.ChannelFile}

	cfg := Config{
		EnabledChannels: []model.Channel{model.ChannelConsole, model.ChannelFile},
		DefaultLimit:    280,
		MaxPostsPerRun:  1,
	}
	w := New(cfg, cache, doc, sum, rend, []publish.Publisher{console, file}, zap.NewNop())

	in := make(chan *model.CrawlItem, 3)
	in <- &model.CrawlItem{Title: "A", URL: "u1", ProjectID: "1"}
	in <- &model.CrawlItem{Title: "B", URL: "u2", ProjectID: "2"}
	close(in)

	err := w.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.calls) // second item never reached
}
