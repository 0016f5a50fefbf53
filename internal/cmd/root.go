// Package cmd wires the process startup sequence (§2 "Process startup
// sequence"): parse args, build the logger, load and validate config,
// run preflight, construct every component, and hand them to the
// Supervisor. The teacher's root.go/exitError wiring was not present
// in the retrieved reference pack; this file follows the idiom shown
// by its sibling commands (pkg/preflight, crawl.go) — cobra.Command
// with RunE, exitError returning a foundry exit code — adapted to a
// single no-subcommand root command (§6.5).
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/npawatch/npawatch/internal/cachestore"
	"github.com/npawatch/npawatch/internal/config"
	"github.com/npawatch/npawatch/internal/docsource"
	npaerrors "github.com/npawatch/npawatch/internal/errors"
	"github.com/npawatch/npawatch/internal/llmclient"
	"github.com/npawatch/npawatch/internal/model"
	"github.com/npawatch/npawatch/internal/observability"
	"github.com/npawatch/npawatch/internal/preflight"
	"github.com/npawatch/npawatch/internal/publish"
	"github.com/npawatch/npawatch/internal/render"
	"github.com/npawatch/npawatch/internal/scanner"
	"github.com/npawatch/npawatch/internal/summarizer"
	"github.com/npawatch/npawatch/internal/supervisor"
	"github.com/npawatch/npawatch/internal/worker"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "npawatch <config.yaml> [log-file]",
	Short: "Ingest, summarize, and publish regulatory-project updates",
	Long: `npawatch polls a regulatory-projects listing, downloads and converts
newly discovered documents, summarizes them with an LLM, renders a
post per enabled channel, and publishes — backed by a durable on-disk
cache so restarts never re-publish already-handled projects.

It takes no subcommands: a config file path, and optionally a log-file
path for a rotated file sink alongside the always-present console one.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRoot,
}

// Execute runs the root command; main's sole responsibility is to call
// this and translate its error into a process exit code via ExitCode.
func Execute() error {
	return rootCmd.Execute()
}

// exitCodeError pairs a process exit code with its cause. Unlike the
// teacher's exitError (which only formats the code into the message
// text), the code is carried as a typed field so main can recover it
// without parsing strings.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }
func (e *exitCodeError) Unwrap() error { return e.err }

func exitError(code int, message string, err error) error {
	return &exitCodeError{code: code, err: fmt.Errorf("%s: %w", message, err)}
}

// ExitCode extracts the process exit code carried by err. A nil err is
// success (0); a non-nil err not produced by exitError is a generic
// failure (1).
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ec *exitCodeError
	if errors.As(err, &ec) {
		return ec.code
	}
	return 1
}

func runRoot(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	var logPath string
	if len(args) > 1 {
		logPath = args[1]
	}

	log, err := observability.New(observability.Config{LogFilePath: logPath})
	if err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to initialize logger", err)
	}
	defer func() { _ = log.Sync() }()

	identity := GetAppIdentity()
	log.Info("npawatch starting",
		zap.String("version", identity.Version),
		zap.String("commit", identity.Commit),
		zap.String("build_date", identity.BuildDate))

	if _, statErr := os.Stat(configPath); statErr != nil {
		return exitError(foundry.ExitFileNotFound, "Config file not found", statErr)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Error("failed to load config", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	reachClient := &http.Client{Timeout: preflight.ReachabilityTimeout}
	rep := preflight.Run(ctx, cfg, reachClient, log)
	if rep.Fatal {
		return exitError(foundry.ExitInvalidArgument, "Preflight checks failed",
			fmt.Errorf("see preflight log warnings above for the failing capability"))
	}

	store, err := cachestore.New(cfg.Run.CacheDir)
	if err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to initialize cache store", err)
	}

	enabledChannels, channelMaxChars, publishers := buildPublishers(cfg)

	fetcher, err := docsource.New(docsource.Config{
		FileIDURLTemplate:  cfg.Crawler.FileID.URL,
		RequestTimeoutSecs: cfg.Crawler.RequestTimeoutSecs,
		MaxRetryAttempts:   cfg.Crawler.MaxRetryAttempts,
	}, docsource.NewDocxZipExtractor(), log)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid document-source configuration", err)
	}

	chat, err := llmclient.NewHTTPClient(llmclient.Config{
		Provider:           cfg.LLM.Provider,
		Model:              cfg.LLM.Model,
		BaseURL:            cfg.LLM.BaseURL,
		APIKey:             cfg.LLM.APIKey,
		Proxy:              cfg.LLM.Proxy,
		RequestTimeoutSecs: cfg.LLM.RequestTimeoutSecs,
	})
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid llm configuration", err)
	}

	summ, err := summarizer.New(summarizer.Config{
		PromptTemplate:           cfg.Run.PromptTemplate,
		InputSamplePercent:       cfg.Run.InputSamplePercent,
		SummarizationTimeoutSecs: cfg.Run.SummarizationTimeoutSecs,
		MaxRetryAttempts:         cfg.LLM.MaxRetryAttempts,
		RetryDelaySecs:           cfg.LLM.RetryDelaySecs,
		LogPromptPreviewChars:    cfg.LLM.LogPromptPreviewChars,
	}, chat, log)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid run.prompt_template", err)
	}

	renderer, err := render.New(cfg.Run.PostTemplate, cfg.Run.PostMaxChars)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid run.post_template", err)
	}

	sc, err := scanner.New(scanner.Config{
		Enabled:            cfg.Crawler.NPAList.Enabled,
		URLTemplate:        cfg.Crawler.NPAList.URL,
		Limit:              cfg.Crawler.NPAList.Limit,
		URLRegex:           cfg.Crawler.NPAList.Regex,
		IntervalSeconds:    cfg.Crawler.NPAList.IntervalSeconds,
		PollDelaySecs:      cfg.Crawler.PollDelaySecs,
		RequestTimeoutSecs: cfg.Crawler.RequestTimeoutSecs,
		MaxRetryAttempts:   cfg.Crawler.MaxRetryAttempts,
		RateLimitPerSec:    cfg.Crawler.NPAList.RateLimitPerSec,
		EnabledChannels:    enabledChannels,
	}, store, log)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid crawler configuration", err)
	}

	wk := worker.New(worker.Config{
		EnabledChannels: enabledChannels,
		ChannelMaxChars: channelMaxChars,
		DefaultLimit:    cfg.Run.PostMaxChars,
		MaxPostsPerRun:  cfg.Run.MaxPostsPerRun,
		PollDelaySecs:   cfg.Crawler.PollDelaySecs,
	}, store, fetcher, summ, renderer, publishers, log)

	queue := make(chan *model.CrawlItem, 10)

	runErr := supervisor.Run(ctx,
		func(ctx context.Context) error { return sc.Run(ctx, queue) },
		func(ctx context.Context) error { return wk.Run(ctx, queue) },
		log)
	if runErr != nil {
		return exitError(exitCodeForPipelineError(runErr), "Pipeline exited with an error", runErr)
	}
	return nil
}

// buildPublishers constructs the enabled-channel list, each channel's
// effective max_chars, and the matching Publisher set from cfg.Output/
// Telegram/Mastodon (§6.2).
func buildPublishers(cfg *config.Config) ([]model.Channel, map[model.Channel]int, []publish.Publisher) {
	const transportTimeout = time.Duration(config.DefaultRequestTimeoutSecs) * time.Second

	var channels []model.Channel
	maxChars := map[model.Channel]int{}
	var publishers []publish.Publisher

	if cfg.Output.ConsoleEnabled {
		channels = append(channels, model.ChannelConsole)
		maxChars[model.ChannelConsole] = cfg.Output.ConsoleMaxChars
		publishers = append(publishers, publish.NewConsolePublisher(os.Stdout, cfg.Output.ConsoleMaxChars))
	}
	if cfg.Output.FileEnabled {
		channels = append(channels, model.ChannelFile)
		maxChars[model.ChannelFile] = cfg.Output.FileMaxChars
		publishers = append(publishers, publish.NewFilePublisher(cfg.Output.FilePath, cfg.Output.FileAppend, cfg.Output.FileMaxChars))
	}
	if cfg.Telegram.Enabled {
		channels = append(channels, model.ChannelTelegram)
		maxChars[model.ChannelTelegram] = cfg.Telegram.MaxChars
		client := &http.Client{Timeout: transportTimeout}
		publishers = append(publishers, publish.NewTelegramPublisher(client, cfg.Telegram.APIBaseURL, cfg.Telegram.BotToken, cfg.Telegram.TargetChatID, cfg.Telegram.MaxChars))
	}
	if cfg.Mastodon.Enabled {
		channels = append(channels, model.ChannelMastodon)
		maxChars[model.ChannelMastodon] = cfg.Mastodon.MaxChars
		client := &http.Client{Timeout: transportTimeout}
		publishers = append(publishers, publish.NewMastodonPublisher(client, cfg.Mastodon.BaseURL, cfg.Mastodon.AccessToken,
			cfg.Mastodon.Visibility, cfg.Mastodon.Language, cfg.Mastodon.SpoilerText, cfg.Mastodon.Sensitive, cfg.Mastodon.MaxChars))
	}

	return channels, maxChars, publishers
}

// exitCodeForPipelineError classifies a Supervisor drain/subsystem
// error into a process exit code (§6.5/§7).
func exitCodeForPipelineError(err error) int {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return foundry.ExitSignalInt
	case npaerrors.IsInvalidInput(err):
		return foundry.ExitInvalidArgument
	case npaerrors.IsExternalService(err):
		return foundry.ExitExternalServiceUnavailable
	default:
		return foundry.ExitExternalServiceUnavailable
	}
}
