// Package docsource resolves a project's primary document: a two-step
// fetch (stages endpoint → fileId → DOCX bytes) followed by markdown
// extraction, grounded on original_source's DocxMarkdownFetcher and
// FileIdScanner.
package docsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	npaerrors "github.com/npawatch/npawatch/internal/errors"
	"github.com/npawatch/npawatch/internal/retry"

	"go.uber.org/zap"
)

// defaultFilesBaseURL is used when crawler.file_id.url cannot be
// parsed as a URL (mirrors original_source's fallback).
const defaultFilesBaseURL = "https://regulation.gov.ru"

// fileIDPattern extracts the fileId value from the raw stages-endpoint
// response text, which is not well-formed JSON in every observed case.
var fileIDPattern = regexp.MustCompile(`fileId"\s*:\s*"([^"]+)"`)

// Config configures one Fetcher (§6.4 crawler.file_id.*).
type Config struct {
	FileIDURLTemplate  string // contains {project_id}
	RequestTimeoutSecs int
	MaxRetryAttempts   int
}

// Fetcher resolves and downloads a project's DOCX and extracts its
// markdown.
type Fetcher struct {
	client       *http.Client
	driver       *retry.Driver
	urlTemplate  string
	filesBaseURL string
	extractor    MarkdownExtractor
	log          *zap.Logger
}

// New constructs a Fetcher. extractor performs the DOCX→markdown
// conversion; pass NewDocxZipExtractor() for the built-in backend.
func New(cfg Config, extractor MarkdownExtractor, log *zap.Logger) (*Fetcher, error) {
	if cfg.FileIDURLTemplate == "" {
		return nil, npaerrors.NewInvalidInputError("crawler.file_id.url is required")
	}
	return &Fetcher{
		client:       &http.Client{Timeout: time.Duration(cfg.RequestTimeoutSecs) * time.Second},
		driver:       retry.New(cfg.MaxRetryAttempts, time.Second),
		urlTemplate:  cfg.FileIDURLTemplate,
		filesBaseURL: deriveFilesBaseURL(cfg.FileIDURLTemplate),
		extractor:    extractor,
		log:          log,
	}, nil
}

// deriveFilesBaseURL reparses tmpl (with {project_id} substituted by a
// placeholder) and keeps only scheme+host[:port], falling back to
// defaultFilesBaseURL when the template doesn't parse as a URL.
func deriveFilesBaseURL(tmpl string) string {
	toParse := strings.ReplaceAll(tmpl, "{project_id}", "0")
	u, err := url.Parse(toParse)
	if err != nil || u.Host == "" {
		return defaultFilesBaseURL
	}
	return fmt.Sprintf("%s://%s", u.Scheme, u.Host)
}

// Fetch resolves projectID's fileId, downloads the DOCX, and extracts
// markdown from it. A missing fileId or an empty DOCX body is a
// per-item skip (internal/errors.NewSkipError), never a fatal error.
func (f *Fetcher) Fetch(ctx context.Context, projectID string) (docxBytes []byte, markdown string, err error) {
	log := f.log.With(zap.String("project_id", projectID))

	stagesURL := strings.ReplaceAll(f.urlTemplate, "{project_id}", projectID)
	fileID, err := f.fetchFileID(ctx, stagesURL)
	if err != nil {
		return nil, "", err
	}
	if fileID == "" {
		log.Info("docx: skip project without fileId")
		return nil, "", npaerrors.NewSkipError("no fileId found for project %s", projectID)
	}

	log.Info("docx: downloading file", zap.String("file_id", fileID))
	docxBytes, err = f.downloadFile(ctx, fileID)
	if err != nil {
		return nil, "", err
	}
	if len(docxBytes) == 0 {
		log.Info("docx: file is empty, skipping")
		return nil, "", npaerrors.NewSkipError("empty DOCX body for project %s", projectID)
	}

	markdown, err = f.extractor.ExtractMarkdown(ctx, docxBytes)
	if err != nil {
		return nil, "", npaerrors.WrapInternal(ctx, err, "markdown extraction failed for project %s", projectID)
	}
	log.Debug("docx: extracted markdown", zap.Int("len", len(markdown)))
	return docxBytes, markdown, nil
}

// fetchFileID performs the stages-endpoint GET and regex scan.
func (f *Fetcher) fetchFileID(ctx context.Context, stagesURL string) (string, error) {
	var fileID string

	err := f.driver.Run(ctx, nil, func() error {
		body, err := f.get(ctx, stagesURL)
		if err != nil {
			return err
		}
		if m := fileIDPattern.FindSubmatch(body); m != nil {
			fileID = string(m[1])
		}
		return nil
	})
	if err != nil {
		if isContextErr(err) {
			return "", err
		}
		return "", npaerrors.NewExternalServiceError("fileId fetch failed for %s: %v", stagesURL, err)
	}
	return fileID, nil
}

// downloadFile performs the DOCX GET.
func (f *Fetcher) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	fileURL := fmt.Sprintf("%s/api/public/Files/GetFile?fileId=%s", f.filesBaseURL, url.QueryEscape(fileID))

	var body []byte
	err := f.driver.Run(ctx, nil, func() error {
		b, err := f.get(ctx, fileURL)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		if isContextErr(err) {
			return nil, err
		}
		return nil, npaerrors.NewExternalServiceError("docx download failed for fileId %s: %v", fileID, err)
	}
	return body, nil
}

func (f *Fetcher) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, retry.Retryable(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, retry.Retryable(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := fmt.Errorf("%s returned status %d", target, resp.StatusCode)
		if resp.StatusCode >= 500 || resp.StatusCode == 429 {
			return nil, retry.Retryable(httpErr)
		}
		return nil, httpErr
	}
	return body, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
