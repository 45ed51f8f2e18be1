package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Config adds application-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	APIToken              string
	GitHubToken           string
	GitHubBaseURL         string
	ClaudeAPIKey          string
	ClaudeModel           string
	Temperature           float64
	MaxTokens             int
	RetryAttempts         int
	AttemptTimeoutSeconds int
	RequestTimeoutSeconds int
	CacheEnabled          bool
	CacheTTLSeconds       int
	BodyCharLimit         int
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on API requests (empty = no auth)")
	fs.StringVar(&c.GitHubToken, "github-token", "", "GitHub personal access token (empty = unauthenticated, low rate limits)")
	fs.StringVar(&c.GitHubBaseURL, "github-base-url", "", "GitHub API base URL override for GitHub Enterprise (empty = github.com)")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for accessing the Claude LLM provider")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use")
	fs.Float64Var(&c.Temperature, "claude-temperature", 0.1, "sampling temperature for analysis calls (0..1)")
	fs.IntVar(&c.MaxTokens, "claude-max-tokens", 1024, "max tokens per model response (1..8192)")
	fs.IntVar(&c.RetryAttempts, "retry-attempts", 3, "max model call attempts per analysis (1..10)")
	fs.IntVar(&c.AttemptTimeoutSeconds, "attempt-timeout-seconds", 30, "per-attempt model call timeout (1..300)")
	fs.IntVar(&c.RequestTimeoutSeconds, "request-timeout-seconds", 120, "end-to-end analysis timeout (1..600)")
	fs.BoolVar(&c.CacheEnabled, "cache-enabled", true, "cache analysis results in memory")
	fs.IntVar(&c.CacheTTLSeconds, "cache-ttl-seconds", 3600, "analysis cache entry lifetime (1..86400)")
	fs.IntVar(&c.BodyCharLimit, "body-char-limit", 4000, "issue body characters included in the prompt (100..100000)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// Claude API key is required for LLM access
	if c.ClaudeAPIKey == "" {
		errs = append(errs, errors.New("CLAUDE_API_KEY is required"))
	}

	// Claude model is required for LLM access
	if c.ClaudeModel == "" {
		errs = append(errs, errors.New("CLAUDE_MODEL is required"))
	}

	if c.Temperature < 0 || c.Temperature > 1 {
		errs = append(errs, fmt.Errorf("invalid CLAUDE_TEMPERATURE %g (must be 0..1)", c.Temperature))
	}
	if c.MaxTokens <= 0 || c.MaxTokens > 8192 {
		errs = append(errs, fmt.Errorf("invalid CLAUDE_MAX_TOKENS %d (must be 1..8192)", c.MaxTokens))
	}

	if c.RetryAttempts <= 0 || c.RetryAttempts > 10 {
		errs = append(errs, fmt.Errorf("invalid RETRY_ATTEMPTS %d (must be 1..10)", c.RetryAttempts))
	}
	if c.AttemptTimeoutSeconds <= 0 || c.AttemptTimeoutSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid ATTEMPT_TIMEOUT_SECONDS %d (must be 1..300)", c.AttemptTimeoutSeconds))
	}
	if c.RequestTimeoutSeconds <= 0 || c.RequestTimeoutSeconds > 600 {
		errs = append(errs, fmt.Errorf("invalid REQUEST_TIMEOUT_SECONDS %d (must be 1..600)", c.RequestTimeoutSeconds))
	}

	// The end-to-end budget must cover at least one full attempt
	if c.RequestTimeoutSeconds < c.AttemptTimeoutSeconds {
		errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT_SECONDS %d must be >= ATTEMPT_TIMEOUT_SECONDS %d", c.RequestTimeoutSeconds, c.AttemptTimeoutSeconds))
	}

	if c.CacheTTLSeconds <= 0 || c.CacheTTLSeconds > 86400 {
		errs = append(errs, fmt.Errorf("invalid CACHE_TTL_SECONDS %d (must be 1..86400)", c.CacheTTLSeconds))
	}
	if c.BodyCharLimit < 100 || c.BodyCharLimit > 100000 {
		errs = append(errs, fmt.Errorf("invalid BODY_CHAR_LIMIT %d (must be 100..100000)", c.BodyCharLimit))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
