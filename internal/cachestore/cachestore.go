// Package cachestore implements the durable per-project and
// process-global state the Scanner and Worker read their predicates
// from (§4.3, §6.3): one manifest.json at the cache root, and one
// <project_id>/ directory with metadata.json plus the raw DOCX,
// extracted markdown, and legacy aggregate summary/post files.
package cachestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/npawatch/npawatch/internal/model"
)

const (
	manifestFilename = "manifest.json"
	metadataFilename = "metadata.json"
	docxFilename     = "source.docx"
	markdownFilename = "extracted.md"
	summaryFilename  = "summary.txt"
	postFilename     = "post.txt"
)

// Store is the CacheStore implementation rooted at Dir.
//
// The Manifest is shared across goroutines, so every manifest
// read-modify-write goes through manifestMu. Per-project
// entries are partitioned by project_id and, per §4.3's concurrency
// guarantee, are only ever touched by the Worker processing that id —
// no per-project locking is needed.
type Store struct {
	dir string

	manifestMu sync.Mutex
}

// New returns a Store rooted at dir, creating dir if it does not exist.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) manifestPath() string {
	return filepath.Join(s.dir, manifestFilename)
}

func (s *Store) projectDir(projectID string) string {
	return filepath.Join(s.dir, projectID)
}

func (s *Store) metadataPath(projectID string) string {
	return filepath.Join(s.projectDir(projectID), metadataFilename)
}

// writeJSONAtomic marshals v and writes it to path via a sibling temp
// file followed by os.Rename, so a crash mid-write never leaves a torn
// file (§4.3 "Atomicity mechanism").
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", path, err)
	}
	return nil
}

// LoadManifest reads manifest.json, returning a zero-value Manifest
// (MinPublishedProjectID == nil) if it does not yet exist.
func (s *Store) LoadManifest() (*model.Manifest, error) {
	data, err := os.ReadFile(s.manifestPath())
	if os.IsNotExist(err) {
		return &model.Manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m model.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// SaveManifest performs a whole-file JSON replace of manifest.json.
func (s *Store) SaveManifest(m *model.Manifest) error {
	return writeJSONAtomic(s.manifestPath(), m)
}

// UpdateMinPublishedProjectID sets min_published_project_id to id if it
// is currently unset or greater than id. Serialized by manifestMu so
// concurrent callers never interleave their read-modify-write; the
// Scanner is the caller in this repository.
func (s *Store) UpdateMinPublishedProjectID(id uint64) error {
	s.manifestMu.Lock()
	defer s.manifestMu.Unlock()

	m, err := s.LoadManifest()
	if err != nil {
		return err
	}
	if m.MinPublishedProjectID != nil && *m.MinPublishedProjectID <= id {
		return nil
	}
	m.MinPublishedProjectID = &id
	return s.SaveManifest(m)
}

// HasData reports whether a project directory has been initialized
// with a metadata.json record.
func (s *Store) HasData(projectID string) bool {
	_, err := os.Stat(s.metadataPath(projectID))
	return err == nil
}

// HasSummary reports whether any channel summary has been recorded,
// or the legacy aggregate summary.txt exists.
func (s *Store) HasSummary(projectID string) bool {
	entry, err := s.LoadMetadata(projectID)
	if err != nil || entry == nil {
		return false
	}
	if len(entry.ChannelSummaries) > 0 {
		return true
	}
	_, err = os.Stat(filepath.Join(s.projectDir(projectID), summaryFilename))
	return err == nil
}

// LoadMetadata reads <project_id>/metadata.json. Returns (nil, nil) if
// the record does not exist yet.
func (s *Store) LoadMetadata(projectID string) (*model.ProjectCacheEntry, error) {
	data, err := os.ReadFile(s.metadataPath(projectID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata for %s: %w", projectID, err)
	}
	var entry model.ProjectCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to parse metadata for %s: %w", projectID, err)
	}
	return &entry, nil
}

func (s *Store) saveMetadata(entry *model.ProjectCacheEntry) error {
	return writeJSONAtomic(s.metadataPath(entry.ProjectID), entry)
}

// LoadCachedData returns the extracted markdown text for projectID,
// falling back to the legacy flat file <cache_dir>/<project_id>_extracted.md
// when the per-project directory form is absent, so older caches are
// upgraded transparently on next read.
func (s *Store) LoadCachedData(projectID string) (string, error) {
	entry, err := s.LoadMetadata(projectID)
	if err != nil {
		return "", err
	}
	if entry != nil && entry.MarkdownPath != "" {
		data, err := os.ReadFile(filepath.Join(s.projectDir(projectID), entry.MarkdownPath))
		if err == nil {
			return string(data), nil
		}
	}

	legacy := filepath.Join(s.dir, projectID+"_extracted.md")
	data, err := os.ReadFile(legacy)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read legacy markdown for %s: %w", projectID, err)
	}
	return string(data), nil
}

// LoadSummary returns the legacy aggregate summary.txt for projectID,
// if present.
func (s *Store) LoadSummary(projectID string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.projectDir(projectID), summaryFilename))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read summary for %s: %w", projectID, err)
	}
	return string(data), nil
}

// SaveArtifacts writes the per-project directory: optional raw DOCX
// bytes, the extracted markdown, optional legacy aggregate summary/post
// text, and initializes (or updates) metadata.json. Empty summary/post
// arguments are not written, per §4.3.
func (s *Store) SaveArtifacts(projectID string, docx []byte, markdown, summary, post string, channels []model.Channel, metadata []model.MetadataItem) error {
	dir := s.projectDir(projectID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create project directory for %s: %w", projectID, err)
	}

	entry, err := s.LoadMetadata(projectID)
	if err != nil {
		return err
	}
	if entry == nil {
		entry = model.NewProjectCacheEntry(projectID, time.Now())
	}

	if len(docx) > 0 {
		if err := os.WriteFile(filepath.Join(dir, docxFilename), docx, 0o644); err != nil {
			return fmt.Errorf("failed to write docx for %s: %w", projectID, err)
		}
		entry.DocxPath = docxFilename
	}
	if markdown != "" {
		if err := os.WriteFile(filepath.Join(dir, markdownFilename), []byte(markdown), 0o644); err != nil {
			return fmt.Errorf("failed to write markdown for %s: %w", projectID, err)
		}
		entry.MarkdownPath = markdownFilename
	}
	if summary != "" {
		if err := os.WriteFile(filepath.Join(dir, summaryFilename), []byte(summary), 0o644); err != nil {
			return fmt.Errorf("failed to write summary for %s: %w", projectID, err)
		}
	}
	if post != "" {
		if err := os.WriteFile(filepath.Join(dir, postFilename), []byte(post), 0o644); err != nil {
			return fmt.Errorf("failed to write post for %s: %w", projectID, err)
		}
	}
	if metadata != nil {
		entry.CrawlMetadata = metadata
	}
	for _, c := range channels {
		entry.AddChannel(c)
	}

	return s.saveMetadata(entry)
}

// IsPublishedInChannel reports whether projectID has already been
// published to channel c.
func (s *Store) IsPublishedInChannel(projectID string, c model.Channel) (bool, error) {
	entry, err := s.LoadMetadata(projectID)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}
	return entry.HasChannel(c), nil
}

// GetPublishedChannels returns the channels already published for
// projectID.
func (s *Store) GetPublishedChannels(projectID string) ([]model.Channel, error) {
	entry, err := s.LoadMetadata(projectID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}
	return entry.PublishedChannels, nil
}

// AddPublishedChannels unions channels into published_channels via
// read-modify-write.
func (s *Store) AddPublishedChannels(projectID string, channels ...model.Channel) error {
	entry, err := s.LoadMetadata(projectID)
	if err != nil {
		return err
	}
	if entry == nil {
		entry = model.NewProjectCacheEntry(projectID, time.Now())
	}
	for _, c := range channels {
		entry.AddChannel(c)
	}
	return s.saveMetadata(entry)
}

// IsFullyPublished reports whether published_channels is a superset of
// enabled.
func (s *Store) IsFullyPublished(projectID string, enabled []model.Channel) (bool, error) {
	entry, err := s.LoadMetadata(projectID)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return len(enabled) == 0, nil
	}
	return entry.IsFullyPublished(enabled), nil
}

// HasChannelSummary reports whether a per-channel summary has been
// recorded for projectID.
func (s *Store) HasChannelSummary(projectID string, c model.Channel) (bool, error) {
	entry, err := s.LoadMetadata(projectID)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}
	_, ok := entry.ChannelSummaries[c]
	return ok, nil
}

// LoadChannelSummary returns the per-channel summary text, or "" if
// absent.
func (s *Store) LoadChannelSummary(projectID string, c model.Channel) (string, error) {
	entry, err := s.LoadMetadata(projectID)
	if err != nil || entry == nil {
		return "", err
	}
	return entry.ChannelSummaries[c], nil
}

// SaveChannelSummary records text as the per-channel summary for c via
// read-modify-write.
func (s *Store) SaveChannelSummary(projectID string, c model.Channel, text string) error {
	entry, err := s.LoadMetadata(projectID)
	if err != nil {
		return err
	}
	if entry == nil {
		entry = model.NewProjectCacheEntry(projectID, time.Now())
	}
	if entry.ChannelSummaries == nil {
		entry.ChannelSummaries = map[model.Channel]string{}
	}
	entry.ChannelSummaries[c] = text
	return s.saveMetadata(entry)
}

// HasChannelPost reports whether a per-channel rendered post has been
// recorded for projectID.
func (s *Store) HasChannelPost(projectID string, c model.Channel) (bool, error) {
	entry, err := s.LoadMetadata(projectID)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}
	_, ok := entry.ChannelPosts[c]
	return ok, nil
}

// LoadChannelPost returns the per-channel rendered post text, or "" if
// absent.
func (s *Store) LoadChannelPost(projectID string, c model.Channel) (string, error) {
	entry, err := s.LoadMetadata(projectID)
	if err != nil || entry == nil {
		return "", err
	}
	return entry.ChannelPosts[c], nil
}

// SaveChannelPost records text as the per-channel rendered post for c
// via read-modify-write.
func (s *Store) SaveChannelPost(projectID string, c model.Channel, text string) error {
	entry, err := s.LoadMetadata(projectID)
	if err != nil {
		return err
	}
	if entry == nil {
		entry = model.NewProjectCacheEntry(projectID, time.Now())
	}
	if entry.ChannelPosts == nil {
		entry.ChannelPosts = map[model.Channel]string{}
	}
	entry.ChannelPosts[c] = text
	return s.saveMetadata(entry)
}
