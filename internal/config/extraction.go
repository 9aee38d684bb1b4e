package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ledgerworks/conveyor/internal/chunking"
)

// Env vars overriding extraction settings.
const (
	GeminiAPIKeyEnv        = "CONVEYOR_GEMINI_API_KEY"
	ExtractionModelEnv     = "CONVEYOR_EXTRACTION_MODEL"
	ContextBudgetTokensEnv = "CONVEYOR_EXTRACTION_CONTEXT_BUDGET_TOKENS"
	TokensPerPageEnv       = "CONVEYOR_EXTRACTION_TOKENS_PER_PAGE"
	HeaderPageCountEnv     = "CONVEYOR_EXTRACTION_HEADER_PAGE_COUNT"
	ChunkParallelismEnv    = "CONVEYOR_EXTRACTION_CHUNK_PARALLELISM"
	ReviewThresholdEnv     = "CONVEYOR_EXTRACTION_REVIEW_THRESHOLD"
	RequestTimeoutEnv      = "CONVEYOR_EXTRACTION_REQUEST_TIMEOUT"
)

// ExtractionConfig holds model access and chunk planning settings.
type ExtractionConfig struct {
	GeminiAPIKey        string  `toml:"gemini_api_key"`
	Model               string  `toml:"model"`
	Temperature         float64 `toml:"temperature"`
	ContextBudgetTokens int     `toml:"context_budget_tokens"`
	TokensPerPage       int     `toml:"tokens_per_page"`
	HeaderPageCount     int     `toml:"header_page_count"`
	ChunkParallelism    int     `toml:"chunk_parallelism"`
	ReviewThreshold     float64 `toml:"review_threshold"`
	RequestTimeout      string  `toml:"request_timeout"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ExtractionConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from o.
func (c *ExtractionConfig) Merge(o *ExtractionConfig) {
	if o.GeminiAPIKey != "" {
		c.GeminiAPIKey = o.GeminiAPIKey
	}
	if o.Model != "" {
		c.Model = o.Model
	}
	if o.Temperature > 0 {
		c.Temperature = o.Temperature
	}
	if o.ContextBudgetTokens > 0 {
		c.ContextBudgetTokens = o.ContextBudgetTokens
	}
	if o.TokensPerPage > 0 {
		c.TokensPerPage = o.TokensPerPage
	}
	if o.HeaderPageCount > 0 {
		c.HeaderPageCount = o.HeaderPageCount
	}
	if o.ChunkParallelism > 0 {
		c.ChunkParallelism = o.ChunkParallelism
	}
	if o.ReviewThreshold > 0 {
		c.ReviewThreshold = o.ReviewThreshold
	}
	if o.RequestTimeout != "" {
		c.RequestTimeout = o.RequestTimeout
	}
}

// ChunkingParams returns the chunk planning inputs derived from this config.
func (c *ExtractionConfig) ChunkingParams() chunking.Params {
	return chunking.Params{
		BudgetTokens:  c.ContextBudgetTokens,
		TokensPerPage: c.TokensPerPage,
		HeaderPages:   c.HeaderPageCount,
	}
}

// RequestTimeoutDuration returns the parsed per-request model timeout.
func (c *ExtractionConfig) RequestTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.RequestTimeout)
	return d
}

func (c *ExtractionConfig) loadDefaults() {
	if c.Model == "" {
		c.Model = "gemini-2.0-flash"
	}
	if c.ContextBudgetTokens <= 0 {
		c.ContextBudgetTokens = 100000
	}
	if c.TokensPerPage <= 0 {
		c.TokensPerPage = 2000
	}
	if c.ChunkParallelism <= 0 {
		c.ChunkParallelism = 3
	}
	if c.ReviewThreshold <= 0 {
		c.ReviewThreshold = 0.75
	}
	if c.RequestTimeout == "" {
		c.RequestTimeout = "2m"
	}
}

func (c *ExtractionConfig) loadEnv() {
	if v := os.Getenv(GeminiAPIKeyEnv); v != "" {
		c.GeminiAPIKey = v
	}
	if v := os.Getenv(ExtractionModelEnv); v != "" {
		c.Model = v
	}
	if v := os.Getenv(ContextBudgetTokensEnv); v != "" {
		if tokens, err := strconv.Atoi(v); err == nil {
			c.ContextBudgetTokens = tokens
		}
	}
	if v := os.Getenv(TokensPerPageEnv); v != "" {
		if tokens, err := strconv.Atoi(v); err == nil {
			c.TokensPerPage = tokens
		}
	}
	if v := os.Getenv(HeaderPageCountEnv); v != "" {
		if pages, err := strconv.Atoi(v); err == nil {
			c.HeaderPageCount = pages
		}
	}
	if v := os.Getenv(ChunkParallelismEnv); v != "" {
		if parallelism, err := strconv.Atoi(v); err == nil {
			c.ChunkParallelism = parallelism
		}
	}
	if v := os.Getenv(ReviewThresholdEnv); v != "" {
		if threshold, err := strconv.ParseFloat(v, 64); err == nil {
			c.ReviewThreshold = threshold
		}
	}
	if v := os.Getenv(RequestTimeoutEnv); v != "" {
		c.RequestTimeout = v
	}
}

// validate checks value shapes. The API key is not required here: only
// worker processes consume it, and the extraction client enforces it at
// construction.
func (c *ExtractionConfig) validate() error {
	if c.HeaderPageCount < 0 {
		return fmt.Errorf("header_page_count cannot be negative")
	}
	if c.ReviewThreshold <= 0 || c.ReviewThreshold > 1 {
		return fmt.Errorf("review_threshold must be in (0, 1]: %v", c.ReviewThreshold)
	}
	if _, err := time.ParseDuration(c.RequestTimeout); err != nil {
		return fmt.Errorf("invalid request_timeout: %w", err)
	}
	if err := c.ChunkingParams().Validate(); err != nil {
		return err
	}
	return nil
}
