// Package worker implements the Worker consumer (§4.2, §4.2.1): it
// drains discovered items from the bounded queue and drives each
// through the per-project state machine (resolve markdown, then run
// the per-channel summarize/render/publish sub-pipeline).
package worker

import (
	"context"
	"time"

	npaerrors "github.com/npawatch/npawatch/internal/errors"
	"github.com/npawatch/npawatch/internal/model"
	"github.com/npawatch/npawatch/internal/publish"

	"go.uber.org/zap"
)

// CacheStore is the subset of internal/cachestore.Store the Worker
// depends on.
type CacheStore interface {
	HasData(projectID string) bool
	LoadMetadata(projectID string) (*model.ProjectCacheEntry, error)
	LoadCachedData(projectID string) (string, error)
	SaveArtifacts(projectID string, docx []byte, markdown, summary, post string, channels []model.Channel, metadata []model.MetadataItem) error
	IsPublishedInChannel(projectID string, c model.Channel) (bool, error)
	AddPublishedChannels(projectID string, channels ...model.Channel) error

	HasChannelSummary(projectID string, c model.Channel) (bool, error)
	LoadChannelSummary(projectID string, c model.Channel) (string, error)
	SaveChannelSummary(projectID string, c model.Channel, text string) error

	HasChannelPost(projectID string, c model.Channel) (bool, error)
	LoadChannelPost(projectID string, c model.Channel) (string, error)
	SaveChannelPost(projectID string, c model.Channel, text string) error
}

// DocSource resolves a project's extracted markdown (internal/docsource.Fetcher).
type DocSource interface {
	Fetch(ctx context.Context, projectID string) (docxBytes []byte, markdown string, err error)
}

// Summarizer turns markdown + metadata into a channel-sized text
// (internal/summarizer.Summarizer).
type Summarizer interface {
	Summarize(ctx context.Context, title, markdown, url, projectID string, metadata []model.MetadataItem, limit int) (string, error)
}

// PostRenderer renders a final post from a summary + metadata
// (internal/render.PostRenderer).
type PostRenderer interface {
	Render(limit int, title, summary, url, projectID string, metadata []model.MetadataItem) (string, error)
}

// Config configures a Worker (§6.4 run.*, per-channel max_chars).
type Config struct {
	EnabledChannels []model.Channel
	ChannelMaxChars map[model.Channel]int
	DefaultLimit    int
	MaxPostsPerRun  int
	PollDelaySecs   int
}

// Worker is the Worker consumer.
type Worker struct {
	cfg        Config
	cache      CacheStore
	doc        DocSource
	summarizer Summarizer
	renderer   PostRenderer
	publishers map[model.Channel]publish.Publisher
	log        *zap.Logger
}

// New constructs a Worker. publishers is indexed by each Publisher's
// Name(); it must contain one entry per cfg.EnabledChannels element.
func New(cfg Config, cache CacheStore, doc DocSource, summarizer Summarizer, renderer PostRenderer, publishers []publish.Publisher, log *zap.Logger) *Worker {
	byName := make(map[model.Channel]publish.Publisher, len(publishers))
	for _, p := range publishers {
		byName[p.Name()] = p
	}
	return &Worker{
		cfg:        cfg,
		cache:      cache,
		doc:        doc,
		summarizer: summarizer,
		renderer:   renderer,
		publishers: byName,
		log:        log,
	}
}

// Run drains in until it is closed or ctx is cancelled, processing one
// item at a time. When max_posts_per_run is positive and that many
// items have produced at least one successful publication, Run stops
// and returns nil so the Supervisor shuts the Scanner down too.
func (w *Worker) Run(ctx context.Context, in <-chan *model.CrawlItem) error {
	published := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case item, ok := <-in:
			if !ok {
				return nil
			}
			if w.processItem(ctx, item) {
				published++
				if w.cfg.MaxPostsPerRun > 0 && published >= w.cfg.MaxPostsPerRun {
					w.log.Info("worker: max_posts_per_run reached, stopping", zap.Int("published", published))
					return nil
				}
			}
		}
	}
}

// processItem runs one item through the full state machine, returning
// true iff at least one channel was newly published during this call.
// Every failure mode here is a per-item or per-channel skip (§4.2
// "Failure semantics"): the Worker loop itself never aborts on an
// item's failure.
func (w *Worker) processItem(ctx context.Context, item *model.CrawlItem) bool {
	log := w.log.With(zap.String("project_id", item.ProjectID))

	markdown, metadata, ok := w.ensureMarkdown(ctx, item, log)
	if !ok {
		return false
	}

	if w.cfg.PollDelaySecs > 0 {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(time.Duration(w.cfg.PollDelaySecs) * time.Second):
		}
	}

	anyPublished := false
	for _, c := range w.cfg.EnabledChannels {
		full, err := w.cache.IsPublishedInChannel(item.ProjectID, c)
		if err != nil {
			log.Error("worker: failed to check publication state", zap.String("channel", string(c)), zap.Error(err))
			continue
		}
		if full {
			continue
		}
		if w.runChannel(ctx, item, c, markdown, metadata, log) {
			anyPublished = true
		}
	}
	return anyPublished
}

// ensureMarkdown implements the `¬has_markdown` state transition,
// resolving and persisting the DOCX/markdown pair when absent.
func (w *Worker) ensureMarkdown(ctx context.Context, item *model.CrawlItem, log *zap.Logger) (string, []model.MetadataItem, bool) {
	entry, err := w.cache.LoadMetadata(item.ProjectID)
	if err != nil {
		log.Error("worker: failed to load metadata", zap.Error(err))
		return "", nil, false
	}
	if entry != nil && entry.HasMarkdown() {
		markdown, err := w.cache.LoadCachedData(item.ProjectID)
		if err != nil {
			log.Error("worker: failed to load cached markdown", zap.Error(err))
			return "", nil, false
		}
		metadata := entry.CrawlMetadata
		if metadata == nil {
			metadata = item.Metadata
		}
		return markdown, metadata, true
	}

	docx, markdown, err := w.doc.Fetch(ctx, item.ProjectID)
	if err != nil {
		if npaerrors.IsSkip(err) {
			log.Info("worker: skipping item", zap.Error(err))
		} else {
			log.Error("worker: docx fetch failed", zap.Error(err))
		}
		return "", nil, false
	}

	if err := w.cache.SaveArtifacts(item.ProjectID, docx, markdown, "", "", nil, item.Metadata); err != nil {
		log.Error("worker: failed to persist markdown artifacts", zap.Error(err))
		return "", nil, false
	}
	return markdown, item.Metadata, true
}

// runChannel executes §4.2.1's summarize → render → publish
// sub-pipeline for one channel, returning true iff publish newly
// succeeded.
func (w *Worker) runChannel(ctx context.Context, item *model.CrawlItem, c model.Channel, markdown string, metadata []model.MetadataItem, log *zap.Logger) bool {
	log = log.With(zap.String("channel", string(c)))
	limit := w.limitFor(c)

	summary, err := w.ensureChannelSummary(ctx, item, c, markdown, metadata, limit, log)
	if err != nil {
		log.Error("worker: summarization failed", zap.Error(err))
		return false
	}

	post, err := w.ensureChannelPost(item, c, summary, metadata, limit, log)
	if err != nil {
		log.Error("worker: post rendering failed", zap.Error(err))
		return false
	}

	publisher, ok := w.publishers[c]
	if !ok {
		log.Error("worker: no publisher registered for enabled channel")
		return false
	}
	if err := publisher.Publish(ctx, item.Title, item.URL, post); err != nil {
		log.Error("worker: publish failed", zap.Error(err))
		return false
	}
	if err := w.cache.AddPublishedChannels(item.ProjectID, c); err != nil {
		log.Error("worker: failed to record published channel", zap.Error(err))
	}
	return true
}

func (w *Worker) ensureChannelSummary(ctx context.Context, item *model.CrawlItem, c model.Channel, markdown string, metadata []model.MetadataItem, limit int, log *zap.Logger) (string, error) {
	has, err := w.cache.HasChannelSummary(item.ProjectID, c)
	if err != nil {
		return "", err
	}
	if has {
		return w.cache.LoadChannelSummary(item.ProjectID, c)
	}

	summary, err := w.summarizer.Summarize(ctx, item.Title, markdown, item.URL, item.ProjectID, metadata, limit)
	if err != nil {
		return "", err
	}
	if err := w.cache.SaveChannelSummary(item.ProjectID, c, summary); err != nil {
		log.Error("worker: failed to persist channel summary", zap.Error(err))
	}
	return summary, nil
}

func (w *Worker) ensureChannelPost(item *model.CrawlItem, c model.Channel, summary string, metadata []model.MetadataItem, limit int, log *zap.Logger) (string, error) {
	has, err := w.cache.HasChannelPost(item.ProjectID, c)
	if err != nil {
		return "", err
	}
	if has {
		return w.cache.LoadChannelPost(item.ProjectID, c)
	}

	post, err := w.renderer.Render(limit, item.Title, summary, item.URL, item.ProjectID, metadata)
	if err != nil {
		return "", err
	}
	if err := w.cache.SaveChannelPost(item.ProjectID, c, post); err != nil {
		log.Error("worker: failed to persist channel post", zap.Error(err))
	}
	return post, nil
}

func (w *Worker) limitFor(c model.Channel) int {
	if l, ok := w.cfg.ChannelMaxChars[c]; ok && l > 0 {
		return l
	}
	return w.cfg.DefaultLimit
}
