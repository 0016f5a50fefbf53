// Package summarizer implements the Summarizer (§4.4): it samples the
// leading fraction of a project's extracted markdown, renders the
// configured prompt template, and drives the ChatCompletion capability
// under a RetryDriver bounded by a wall-clock timeout.
package summarizer

import (
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/npawatch/npawatch/internal/llmclient"
	"github.com/npawatch/npawatch/internal/model"
	"github.com/npawatch/npawatch/internal/retry"

	"go.uber.org/zap"
)

// Config configures a Summarizer (§6.4 run.* and llm.*).
type Config struct {
	PromptTemplate           string
	InputSamplePercent       float64
	SummarizationTimeoutSecs int

	MaxRetryAttempts      int
	RetryDelaySecs        float64
	LogPromptPreviewChars int
}

// Summarizer turns markdown + metadata into a short publishable text.
type Summarizer struct {
	chat   llmclient.ChatCompletion
	prompt *template.Template
	cfg    Config
	driver *retry.Driver
	log    *zap.Logger
}

// New parses cfg.PromptTemplate and constructs a Summarizer.
func New(cfg Config, chat llmclient.ChatCompletion, log *zap.Logger) (*Summarizer, error) {
	tmpl, err := model.CompileTemplate("prompt", cfg.PromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("invalid run.prompt_template: %w", err)
	}

	minDelay := time.Duration(cfg.RetryDelaySecs * float64(time.Second))
	return &Summarizer{
		chat:   chat,
		prompt: tmpl,
		cfg:    cfg,
		driver: retry.New(cfg.MaxRetryAttempts, minDelay),
		log:    log,
	}, nil
}

// Summarize renders the prompt from (title, markdown, url, metadata,
// limit) and invokes the ChatCompletion capability, retrying transient
// failures and bounding the whole call by summarization_timeout_secs.
func (s *Summarizer) Summarize(ctx context.Context, title, markdown, url, projectID string, metadata []model.MetadataItem, limit int) (string, error) {
	sample := sampleLeading(markdown, s.cfg.InputSamplePercent)
	vars := model.TemplateContext(limit, title, sample, url, projectID, metadata, nil)

	var prompt strings.Builder
	if err := s.prompt.Execute(&prompt, vars); err != nil {
		return "", fmt.Errorf("failed to render prompt template: %w", err)
	}
	promptText := prompt.String()

	log := s.log.With(zap.String("project_id", projectID))
	log.Debug("summarizer: prompt composed",
		zap.Int("prompt_len", len([]rune(promptText))),
		zap.String("prompt_preview", previewRunes(promptText, s.cfg.LogPromptPreviewChars)),
	)

	callCtx := ctx
	if s.cfg.SummarizationTimeoutSecs > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.SummarizationTimeoutSecs)*time.Second)
		defer cancel()
	}

	var text string
	err := s.driver.Run(callCtx, retry.TransientChatError, func() error {
		t, err := s.chat.Complete(callCtx, promptText)
		if err != nil {
			return err
		}
		text = t
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	log.Info("summarizer: response received", zap.Int("response_len", len([]rune(text))))
	return text, nil
}

// sampleLeading returns the leading percent fraction of text, counted
// in runes (characters, not bytes), clamped to [0.001, 1.0].
func sampleLeading(text string, percent float64) string {
	if percent < 0.001 {
		percent = 0.001
	}
	if percent > 1.0 {
		percent = 1.0
	}
	runes := []rune(text)
	n := int(float64(len(runes)) * percent)
	if n >= len(runes) {
		return text
	}
	return string(runes[:n])
}

// previewRunes returns the leading n runes of text (n <= 0 means
// empty).
func previewRunes(text string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(text)
	if n >= len(runes) {
		return text
	}
	return string(runes[:n])
}
