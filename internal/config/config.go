// Package config loads and validates the run configuration: a single
// YAML file (§6.4), optionally overlaid with NPAWATCH_*-prefixed
// environment variables, validated against an embedded JSON schema, and
// resolved into a typed Config with defaults applied.
package config

// Config is the root run configuration (§6.4).
type Config struct {
	Crawler  CrawlerConfig  `yaml:"crawler" mapstructure:"crawler"`
	Run      RunConfig      `yaml:"run" mapstructure:"run"`
	LLM      LLMConfig      `yaml:"llm" mapstructure:"llm"`
	Telegram TelegramConfig `yaml:"telegram" mapstructure:"telegram"`
	Mastodon MastodonConfig `yaml:"mastodon" mapstructure:"mastodon"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
}

// CrawlerConfig groups the Scanner's upstream HTTP and polling settings.
type CrawlerConfig struct {
	// RequestTimeoutSecs bounds every upstream HTTP call (listing,
	// stages, file download). Default 30.
	RequestTimeoutSecs int `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`

	// PollDelaySecs is a pause applied between successive history-dive
	// page fetches in the Scanner, and once per item in the Worker
	// before summarization. Default 0.
	PollDelaySecs int `yaml:"poll_delay_secs" mapstructure:"poll_delay_secs"`

	// MaxRetryAttempts bounds the RetryDriver used for Scanner HTTP
	// calls. Default 3.
	MaxRetryAttempts int `yaml:"max_retry_attempts" mapstructure:"max_retry_attempts"`

	NPAList NPAListConfig `yaml:"npalist" mapstructure:"npalist"`
	FileID  FileIDConfig  `yaml:"file_id" mapstructure:"file_id"`
}

// NPAListConfig configures the listing endpoint and polling cadence.
type NPAListConfig struct {
	// URL is the listing URL template; must contain {limit} and
	// {offset} placeholders.
	URL string `yaml:"url" mapstructure:"url"`

	// Limit is the page size L. Default 50.
	Limit int `yaml:"limit" mapstructure:"limit"`

	// Regex, when set, rejects discovered project URLs that do not
	// match (a per-item skip, not a cycle failure).
	Regex string `yaml:"regex" mapstructure:"regex"`

	// Enabled gates whether the Scanner runs at all.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// IntervalSeconds is the scan-cycle ticker period. Default 300.
	IntervalSeconds int `yaml:"interval_seconds" mapstructure:"interval_seconds"`

	// RateLimitPerSec caps outbound listing requests per second.
	// Zero (default) means unlimited.
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec" mapstructure:"rate_limit_per_sec"`
}

// FileIDConfig configures the stages/file-id resolution endpoint.
type FileIDConfig struct {
	// URL is the stages URL template; must contain {project_id}.
	URL string `yaml:"url" mapstructure:"url"`
}

// RunConfig groups the Worker/Summarizer/PostRenderer run-time
// settings.
type RunConfig struct {
	// CacheDir is the root of the on-disk CacheStore (§6.3).
	CacheDir string `yaml:"cache_dir" mapstructure:"cache_dir"`

	// PostTemplate is the text/template source rendered by the
	// PostRenderer. Required; a startup preflight error if empty.
	PostTemplate string `yaml:"post_template" mapstructure:"post_template"`

	// PostMaxChars truncates rendered posts when set (0 = no limit
	// field present; per-channel max_chars still applies).
	PostMaxChars int `yaml:"post_max_chars" mapstructure:"post_max_chars"`

	// MaxPostsPerRun stops the Worker after this many items produce at
	// least one successful publication. Zero means unbounded.
	MaxPostsPerRun int `yaml:"max_posts_per_run" mapstructure:"max_posts_per_run"`

	// InputSamplePercent is the leading fraction of extracted markdown
	// fed to the Summarizer. Default 0.05, clamped to [0.001, 1.0].
	InputSamplePercent float64 `yaml:"input_sample_percent" mapstructure:"input_sample_percent"`

	// PromptTemplate is the text/template source used to build the
	// Summarizer's chat-completion prompt.
	PromptTemplate string `yaml:"prompt_template" mapstructure:"prompt_template"`

	// SummarizationTimeoutSecs bounds the whole summarize call,
	// including retries. Default 120.
	SummarizationTimeoutSecs int `yaml:"summarization_timeout_secs" mapstructure:"summarization_timeout_secs"`
}

// LLMConfig configures the chat-completion backend.
type LLMConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
	Model    string `yaml:"model" mapstructure:"model"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	APIKey   string `yaml:"api_key" mapstructure:"api_key"`
	Proxy    string `yaml:"proxy" mapstructure:"proxy"`

	RequestTimeoutSecs int     `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	MaxRetryAttempts   int     `yaml:"max_retry_attempts" mapstructure:"max_retry_attempts"`
	RetryDelaySecs     float64 `yaml:"retry_delay_secs" mapstructure:"retry_delay_secs"`

	// LogPromptPreviewChars bounds the prompt preview logged at debug
	// level before each chat-completion call. Default 200.
	LogPromptPreviewChars int `yaml:"log_prompt_preview_chars" mapstructure:"log_prompt_preview_chars"`
}

// TelegramConfig configures the Telegram bot-API publisher.
type TelegramConfig struct {
	Enabled      bool   `yaml:"enabled" mapstructure:"enabled"`
	APIBaseURL   string `yaml:"api_base_url" mapstructure:"api_base_url"`
	BotToken     string `yaml:"bot_token" mapstructure:"bot_token"`
	TargetChatID string `yaml:"target_chat_id" mapstructure:"target_chat_id"`
	MaxChars     int    `yaml:"max_chars" mapstructure:"max_chars"`
}

// MastodonConfig configures the Mastodon publisher, including the
// post_status_advanced parameter set carried over from original_source.
type MastodonConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	AccessToken string `yaml:"access_token" mapstructure:"access_token"`
	LoginCLI    bool   `yaml:"login_cli" mapstructure:"login_cli"`
	Visibility  string `yaml:"visibility" mapstructure:"visibility"`
	Language    string `yaml:"language" mapstructure:"language"`
	SpoilerText string `yaml:"spoiler_text" mapstructure:"spoiler_text"`
	Sensitive   bool   `yaml:"sensitive" mapstructure:"sensitive"`
	MaxChars    int    `yaml:"max_chars" mapstructure:"max_chars"`
}

// OutputConfig configures the console and file publishers.
type OutputConfig struct {
	ConsoleEnabled  bool   `yaml:"console_enabled" mapstructure:"console_enabled"`
	ConsoleMaxChars int    `yaml:"console_max_chars" mapstructure:"console_max_chars"`
	FileEnabled     bool   `yaml:"file_enabled" mapstructure:"file_enabled"`
	FilePath        string `yaml:"file_path" mapstructure:"file_path"`
	FileAppend      bool   `yaml:"file_append" mapstructure:"file_append"`
	FileMaxChars    int    `yaml:"file_max_chars" mapstructure:"file_max_chars"`
}

// Default values applied by ApplyDefaults, named per §6.4/§9.
const (
	DefaultRequestTimeoutSecs       = 30
	DefaultMaxRetryAttempts         = 3
	DefaultNPAListLimit             = 50
	DefaultIntervalSeconds          = 300
	DefaultInputSamplePercent       = 0.05
	MinInputSamplePercent           = 0.001
	MaxInputSamplePercent           = 1.0
	DefaultSummarizationTimeoutSecs = 120
	DefaultLLMRetryDelaySecs        = 2.0
	DefaultLogPromptPreviewChars    = 200
)

// ApplyDefaults fills in zero-valued optional fields with their
// documented defaults and clamps InputSamplePercent into range.
func (c *Config) ApplyDefaults() {
	if c.Crawler.RequestTimeoutSecs == 0 {
		c.Crawler.RequestTimeoutSecs = DefaultRequestTimeoutSecs
	}
	if c.Crawler.MaxRetryAttempts == 0 {
		c.Crawler.MaxRetryAttempts = DefaultMaxRetryAttempts
	}
	if c.Crawler.NPAList.Limit == 0 {
		c.Crawler.NPAList.Limit = DefaultNPAListLimit
	}
	if c.Crawler.NPAList.IntervalSeconds == 0 {
		c.Crawler.NPAList.IntervalSeconds = DefaultIntervalSeconds
	}

	if c.Run.InputSamplePercent == 0 {
		c.Run.InputSamplePercent = DefaultInputSamplePercent
	}
	c.Run.InputSamplePercent = clamp(c.Run.InputSamplePercent, MinInputSamplePercent, MaxInputSamplePercent)
	if c.Run.SummarizationTimeoutSecs == 0 {
		c.Run.SummarizationTimeoutSecs = DefaultSummarizationTimeoutSecs
	}

	if c.LLM.RequestTimeoutSecs == 0 {
		c.LLM.RequestTimeoutSecs = DefaultRequestTimeoutSecs
	}
	if c.LLM.MaxRetryAttempts == 0 {
		c.LLM.MaxRetryAttempts = DefaultMaxRetryAttempts
	}
	if c.LLM.RetryDelaySecs == 0 {
		c.LLM.RetryDelaySecs = DefaultLLMRetryDelaySecs
	}
	if c.LLM.LogPromptPreviewChars == 0 {
		c.LLM.LogPromptPreviewChars = DefaultLogPromptPreviewChars
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
