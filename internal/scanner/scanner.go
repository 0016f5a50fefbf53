// Package scanner implements the Scanner producer (§4.1): it
// periodically polls the upstream listing endpoint, parses discovered
// projects, and streams not-fully-published ones to the Worker via a
// bounded queue, tracking pagination progress in the CacheStore's
// Manifest so history already consumed is never re-walked.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	npaerrors "github.com/npawatch/npawatch/internal/errors"
	"github.com/npawatch/npawatch/internal/model"
	"github.com/npawatch/npawatch/internal/retry"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// CacheStore is the subset of internal/cachestore.Store the Scanner
// depends on.
type CacheStore interface {
	LoadManifest() (*model.Manifest, error)
	UpdateMinPublishedProjectID(id uint64) error
	IsFullyPublished(projectID string, enabled []model.Channel) (bool, error)
}

// Config configures one Scanner instance (§6.4 crawler.*, crawler.npalist.*).
type Config struct {
	// Enabled gates whether Run polls at all. When false, Run blocks
	// until ctx is cancelled and returns nil — a disabled Scanner still
	// participates cleanly in Supervisor shutdown.
	Enabled bool

	URLTemplate        string // contains {limit} and {offset}
	Limit              int
	URLRegex           string
	IntervalSeconds    int
	PollDelaySecs      int
	RequestTimeoutSecs int
	MaxRetryAttempts   int
	RateLimitPerSec    float64

	EnabledChannels []model.Channel
}

// Scanner is the Scanner producer.
type Scanner struct {
	cfg     Config
	cache   CacheStore
	client  *http.Client
	limiter *rate.Limiter
	driver  *retry.Driver
	regex   *regexp.Regexp
	log     *zap.Logger
}

// New constructs a Scanner. cfg.URLRegex, if non-empty, must compile;
// otherwise New returns an invalid-input error.
func New(cfg Config, cache CacheStore, log *zap.Logger) (*Scanner, error) {
	var re *regexp.Regexp
	if cfg.URLRegex != "" {
		compiled, err := regexp.Compile(cfg.URLRegex)
		if err != nil {
			return nil, npaerrors.NewInvalidInputError("invalid crawler.npalist.regex: %v", err)
		}
		re = compiled
	}

	var limiter *rate.Limiter
	if cfg.RateLimitPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), 1)
	}

	return &Scanner{
		cfg:     cfg,
		cache:   cache,
		client:  &http.Client{Timeout: time.Duration(cfg.RequestTimeoutSecs) * time.Second},
		limiter: limiter,
		driver:  retry.New(cfg.MaxRetryAttempts, time.Second),
		regex:   re,
		log:     log,
	}, nil
}

// Run loops on a ticker with period cfg.IntervalSeconds, performing one
// scan cycle per tick. It exits when ctx is cancelled, when sending to
// out is no longer possible, or when a cycle exhausts its retry budget
// (in which case it returns the cycle's error so the Supervisor can
// shut down the Worker too).
func (s *Scanner) Run(ctx context.Context, out chan<- *model.CrawlItem) error {
	if !s.cfg.Enabled {
		<-ctx.Done()
		return nil
	}

	interval := time.Duration(s.cfg.IntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run one cycle immediately on startup rather than waiting a full
	// interval for the first poll.
	if err := s.runCycleOrShutdown(ctx, out); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.runCycleOrShutdown(ctx, out); err != nil {
				return err
			}
		}
	}
}

// runCycleOrShutdown runs one cycle, treating context cancellation as a
// clean shutdown rather than a cycle failure.
func (s *Scanner) runCycleOrShutdown(ctx context.Context, out chan<- *model.CrawlItem) error {
	err := s.runCycle(ctx, out)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// runCycle executes one scan cycle (§4.1 steps 1-9).
func (s *Scanner) runCycle(ctx context.Context, out chan<- *model.CrawlItem) error {
	cycleID := uuid.NewString()
	log := s.log.With(zap.String("cycle_id", cycleID))
	log.Debug("scan cycle starting")

	manifest, err := s.cache.LoadManifest()
	if err != nil {
		return npaerrors.WrapInternal(ctx, err, "failed to load manifest")
	}
	minPub := manifest.MinPublishedProjectID

	page, curMin, curMax, err := s.fetchAndParse(ctx, 0, log)
	if err != nil {
		return err
	}

	emitted, _, err := s.emitPage(ctx, page, out, log)
	if err != nil {
		return err
	}

	if curMin != nil {
		if err := s.cache.UpdateMinPublishedProjectID(*curMin); err != nil {
			log.Error("failed to update manifest", zap.Error(err))
		}
	}

	if emitted > 0 {
		log.Info("scan cycle complete", zap.Int("emitted", emitted), zap.Bool("history_dive", false))
		return nil
	}

	offset := s.historyOffset(minPub, curMax)
	diveMin, err := s.historyDive(ctx, offset, out, log)
	if err != nil {
		return err
	}
	if diveMin != nil {
		finalMin := *diveMin
		if curMin != nil && *curMin < finalMin {
			finalMin = *curMin
		}
		if err := s.cache.UpdateMinPublishedProjectID(finalMin); err != nil {
			log.Error("failed to update manifest after dive", zap.Error(err))
		}
	}

	log.Info("scan cycle complete", zap.Bool("history_dive", true))
	return nil
}

// historyOffset computes H per §4.1 step 7.
func (s *Scanner) historyOffset(minPub *uint64, curMax *uint64) int {
	L := s.cfg.Limit
	if minPub == nil || curMax == nil || *minPub > *curMax {
		return L
	}
	return int(*curMax - *minPub)
}

// historyDive performs §4.1 step 8-9, returning the minimum project_id
// emitted during the dive (nil if none).
func (s *Scanner) historyDive(ctx context.Context, offset int, out chan<- *model.CrawlItem, log *zap.Logger) (*uint64, error) {
	var diveMin *uint64

	for {
		page, _, _, err := s.fetchAndParse(ctx, offset, log)
		if err != nil {
			return diveMin, err
		}
		if len(page.Projects) == 0 {
			log.Debug("history dive terminated on empty page", zap.Int("offset", offset))
			return diveMin, nil
		}

		emitted, emittedMin, err := s.emitPage(ctx, page, out, log)
		if err != nil {
			return diveMin, err
		}
		if emittedMin != nil && (diveMin == nil || *emittedMin < *diveMin) {
			diveMin = emittedMin
		}

		if emitted > 0 {
			log.Debug("history dive terminated on emission", zap.Int("offset", offset))
			return diveMin, nil
		}

		offset += s.cfg.Limit
		if s.cfg.PollDelaySecs > 0 {
			select {
			case <-ctx.Done():
				return diveMin, ctx.Err()
			case <-time.After(time.Duration(s.cfg.PollDelaySecs) * time.Second):
			}
		}
	}
}

// emitPage pushes every not-fully-published item on page to out, in
// document order, returning the count emitted and the minimum numeric
// project_id among the emitted items (nil if none).
func (s *Scanner) emitPage(ctx context.Context, page *listingPage, out chan<- *model.CrawlItem, log *zap.Logger) (int, *uint64, error) {
	emitted := 0
	var emittedMin *uint64
	for _, entity := range page.Projects {
		item, ok := buildItem(entity, s.regex)
		if !ok {
			continue
		}

		full, err := s.cache.IsFullyPublished(item.ProjectID, s.cfg.EnabledChannels)
		if err != nil {
			log.Error("failed to check publication state", zap.String("project_id", item.ProjectID), zap.Error(err))
			continue
		}
		if full {
			continue
		}

		select {
		case <-ctx.Done():
			return emitted, emittedMin, ctx.Err()
		case out <- item:
			emitted++
			if n, ok := numericProjectID(item); ok && (emittedMin == nil || n < *emittedMin) {
				emittedMin = &n
			}
		}
	}
	return emitted, emittedMin, nil
}

// fetchAndParse fetches one page at the given offset, parses it, and
// returns the page along with the minimum and maximum numeric
// project_id observed.
func (s *Scanner) fetchAndParse(ctx context.Context, offset int, log *zap.Logger) (*listingPage, *uint64, *uint64, error) {
	var page *listingPage

	err := s.driver.Run(ctx, nil, func() error {
		body, err := s.fetch(ctx, offset)
		if err != nil {
			return err
		}
		parsed, err := parseListingPage(body)
		if err != nil {
			return retry.Retryable(err)
		}
		page = parsed
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, nil, err
		}
		log.Error("scan cycle fetch failed", zap.Int("offset", offset), zap.Error(err))
		return nil, nil, nil, npaerrors.NewExternalServiceError("listing fetch failed at offset %d: %v", offset, err)
	}

	var curMin, curMax *uint64
	for i := range page.Projects {
		item, ok := buildItem(page.Projects[i], s.regex)
		if !ok {
			continue
		}
		n, ok := numericProjectID(item)
		if !ok {
			continue
		}
		if curMin == nil || n < *curMin {
			v := n
			curMin = &v
		}
		if curMax == nil || n > *curMax {
			v := n
			curMax = &v
		}
	}

	log.Debug("page fetched", zap.Int("offset", offset), zap.Int("items", len(page.Projects)))
	return page, curMin, curMax, nil
}

// fetch performs the HTTP GET for one listing page, honoring the
// optional rate limiter, and classifies the failure modes the retry
// driver should treat as transient.
func (s *Scanner) fetch(ctx context.Context, offset int) ([]byte, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	url := strings.NewReplacer(
		"{limit}", fmt.Sprintf("%d", s.cfg.Limit),
		"{offset}", fmt.Sprintf("%d", offset),
	).Replace(s.cfg.URLTemplate)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, retry.Retryable(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, retry.Retryable(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := fmt.Errorf("listing endpoint returned status %d", resp.StatusCode)
		if resp.StatusCode >= 500 || resp.StatusCode == 429 {
			return nil, retry.Retryable(httpErr)
		}
		return nil, httpErr
	}

	return body, nil
}
