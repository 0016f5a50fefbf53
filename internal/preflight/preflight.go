// Package preflight runs startup config-sanity and reachability checks
// (§2 step 4), adapted from the teacher's pkg/preflight Mode/Spec/Cap
// naming: a fixed set of capabilities checked once before the Scanner
// and Worker loops start.
package preflight

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/npawatch/npawatch/internal/config"

	"go.uber.org/zap"
)

// Capability names are stable strings used in log fields.
const (
	CapPostTemplate    = "config.post_template"
	CapChannelEnabled  = "config.channel_enabled"
	CapMastodonToken   = "config.mastodon_token"
	CapNPAListReach    = "reachability.npalist"
	CapLLMReach        = "reachability.llm"
)

// Result is one preflight capability's outcome.
type Result struct {
	Capability string
	Allowed    bool
	Detail     string
}

// Report is the full set of preflight results. Fatal is true when any
// configuration-sanity check (as opposed to a best-effort reachability
// probe) failed.
type Report struct {
	Results []Result
	Fatal   bool
}

// ReachabilityTimeout bounds each best-effort HTTP probe.
const ReachabilityTimeout = 5 * time.Second

// Run executes the configuration-sanity checks and a best-effort
// reachability probe of the listing and LLM endpoints. Sanity-check
// failures are fatal (§7 configuration errors); reachability probe
// failures are only logged.
func Run(ctx context.Context, cfg *config.Config, client *http.Client, log *zap.Logger) *Report {
	rep := &Report{}

	rep.add(checkPostTemplate(cfg))
	rep.add(checkChannelEnabled(cfg))
	rep.add(checkMastodonToken(cfg))

	if client == nil {
		client = &http.Client{Timeout: ReachabilityTimeout}
	}
	rep.Results = append(rep.Results, probeReachability(ctx, client, CapNPAListReach, cfg.Crawler.NPAList.URL))
	rep.Results = append(rep.Results, probeReachability(ctx, client, CapLLMReach, cfg.LLM.BaseURL))

	for _, r := range rep.Results {
		if r.Allowed {
			log.Debug("preflight check passed", zap.String("capability", r.Capability))
		} else {
			log.Warn("preflight check failed", zap.String("capability", r.Capability), zap.String("detail", r.Detail))
		}
	}
	return rep
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
	if !res.Allowed {
		r.Fatal = true
	}
}

func checkPostTemplate(cfg *config.Config) Result {
	if cfg.Run.PostTemplate == "" {
		return Result{Capability: CapPostTemplate, Allowed: false, Detail: "run.post_template is empty"}
	}
	return Result{Capability: CapPostTemplate, Allowed: true}
}

func checkChannelEnabled(cfg *config.Config) Result {
	if cfg.Telegram.Enabled || cfg.Mastodon.Enabled || cfg.Output.ConsoleEnabled || cfg.Output.FileEnabled {
		return Result{Capability: CapChannelEnabled, Allowed: true}
	}
	return Result{Capability: CapChannelEnabled, Allowed: false, Detail: "no publish channel is enabled"}
}

func checkMastodonToken(cfg *config.Config) Result {
	if !cfg.Mastodon.Enabled {
		return Result{Capability: CapMastodonToken, Allowed: true}
	}
	if cfg.Mastodon.AccessToken != "" || cfg.Mastodon.LoginCLI {
		return Result{Capability: CapMastodonToken, Allowed: true}
	}
	return Result{Capability: CapMastodonToken, Allowed: false, Detail: "mastodon.enabled is true but no access_token and login_cli is not set"}
}

// probeReachability issues a best-effort HEAD (falling back to GET when
// the HEAD request errors) against target's host; any HTTP response,
// whatever its status, counts as reachable. A malformed or empty target
// is reported but never fatal.
func probeReachability(ctx context.Context, client *http.Client, capability, target string) Result {
	if target == "" {
		return Result{Capability: capability, Allowed: false, Detail: "no URL configured"}
	}

	host, err := hostOnly(target)
	if err != nil {
		return Result{Capability: capability, Allowed: false, Detail: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, ReachabilityTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, host, nil)
	if err != nil {
		return Result{Capability: capability, Allowed: false, Detail: err.Error()}
	}
	resp, err := client.Do(req)
	if err == nil {
		_ = resp.Body.Close()
		return Result{Capability: capability, Allowed: true}
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, host, nil)
	if err != nil {
		return Result{Capability: capability, Allowed: false, Detail: err.Error()}
	}
	resp, err = client.Do(req)
	if err != nil {
		return Result{Capability: capability, Allowed: false, Detail: err.Error()}
	}
	_ = resp.Body.Close()
	return Result{Capability: capability, Allowed: true}
}

// hostOnly strips everything but scheme+host[:port] from a URL, since
// listing/file templates carry {placeholder} path segments that would
// otherwise make the request itself fail to parse or resolve.
func hostOnly(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("URL %q has no scheme/host", raw)
	}
	return fmt.Sprintf("%s://%s/", u.Scheme, u.Host), nil
}
