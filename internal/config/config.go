package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	FileIntel FileIntelConfig `toml:"fileintel"`
	LLM       LLMConfig       `toml:"llm"`
	Writing   WritingConfig   `toml:"writing"`
	Cache     CacheConfig     `toml:"cache"`
	Server    ServerConfig    `toml:"server"`
}

// FileIntelConfig is the RAG service connection.
type FileIntelConfig struct {
	URL          string        `toml:"url"`
	APIKey       string        `toml:"api_key"`
	Timeout      time.Duration `toml:"timeout"`
	PollInterval time.Duration `toml:"poll_interval"`
	MaxRetries   int           `toml:"max_retries"`
	Collection   string        `toml:"collection"`
}

// LLMConfig is the OpenAI-compatible completion endpoint.
type LLMConfig struct {
	BaseURL     string  `toml:"base_url"`
	Model       string  `toml:"model"`
	APIKey      string  `toml:"api_key"`
	Temperature float64 `toml:"temperature"`
}

type WritingConfig struct {
	CitationStyle     string `toml:"citation_style"`
	ChunkTargetTokens int    `toml:"chunk_target_tokens"`
	ChunkMaxTokens    int    `toml:"chunk_max_tokens"`
	ContextLines      int    `toml:"context_lines"`
	StrictMarkers     bool   `toml:"strict_markers"`
	MarkerConcurrency int    `toml:"marker_concurrency"`
}

// CacheConfig enables the RAG query cache when Path is set.
type CacheConfig struct {
	Path string        `toml:"path"`
	TTL  time.Duration `toml:"ttl"`
}

type ServerConfig struct {
	Port           string        `toml:"port"`
	APIKey         string        `toml:"api_key"`
	WorkerCount    int           `toml:"worker_count"`
	MaxQueueSize   int           `toml:"max_queue_size"`
	MaxUploadBytes int64         `toml:"max_upload_bytes"`
	JobTTL         time.Duration `toml:"job_ttl"`
}

// Default returns the built-in configuration before any file or
// environment overrides.
func Default() Config {
	return Config{
		FileIntel: FileIntelConfig{
			URL:          "http://localhost:8000",
			Timeout:      30 * time.Second,
			PollInterval: time.Second,
			MaxRetries:   3,
		},
		LLM: LLMConfig{
			BaseURL:     "http://localhost:9003/v1",
			Model:       "gemma3-12b-awq",
			APIKey:      "ollama",
			Temperature: 0.1,
		},
		Writing: WritingConfig{
			CitationStyle:     "footnote",
			ChunkTargetTokens: 300,
			ChunkMaxTokens:    500,
			ContextLines:      10,
			MarkerConcurrency: 1,
		},
		Cache: CacheConfig{TTL: 24 * time.Hour},
		Server: ServerConfig{
			Port:           "8091",
			WorkerCount:    2,
			MaxQueueSize:   50,
			MaxUploadBytes: 5 << 20,
			JobTTL:         time.Hour,
		},
	}
}

// Load reads the configuration from the environment.
func Load() Config {
	cfg := Default()
	cfg.applyEnv()
	cfg.clamp()
	return cfg
}

// LoadFile reads a TOML file over the defaults, then applies environment
// overrides. An empty path behaves like Load.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.clamp()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.FileIntel.URL = envOr("FILEINTEL_URL", c.FileIntel.URL)
	c.FileIntel.APIKey = envOr("FILEINTEL_API_KEY", c.FileIntel.APIKey)
	c.FileIntel.Timeout = envDuration("FILEINTEL_TIMEOUT", c.FileIntel.Timeout)
	c.FileIntel.PollInterval = envDuration("FILEINTEL_POLL_INTERVAL", c.FileIntel.PollInterval)
	c.FileIntel.MaxRetries = envInt("FILEINTEL_MAX_RETRIES", c.FileIntel.MaxRetries)
	c.FileIntel.Collection = envOr("ACADWRITE_COLLECTION", c.FileIntel.Collection)

	c.LLM.BaseURL = envOr("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.Model = envOr("LLM_MODEL", c.LLM.Model)
	c.LLM.APIKey = envOr("LLM_API_KEY", c.LLM.APIKey)
	c.LLM.Temperature = envFloat("LLM_TEMPERATURE", c.LLM.Temperature)

	c.Writing.CitationStyle = strings.ToLower(envOr("CITATION_STYLE", c.Writing.CitationStyle))
	c.Writing.ChunkTargetTokens = envInt("CHUNK_TARGET_TOKENS", c.Writing.ChunkTargetTokens)
	c.Writing.ChunkMaxTokens = envInt("CHUNK_MAX_TOKENS", c.Writing.ChunkMaxTokens)
	c.Writing.ContextLines = envInt("CONTEXT_LINES", c.Writing.ContextLines)
	c.Writing.StrictMarkers = envBool("MARKER_STRICT", c.Writing.StrictMarkers)
	c.Writing.MarkerConcurrency = envInt("MARKER_CONCURRENCY", c.Writing.MarkerConcurrency)

	c.Cache.Path = envOr("CACHE_PATH", c.Cache.Path)
	c.Cache.TTL = envDuration("CACHE_TTL", c.Cache.TTL)

	c.Server.Port = envOr("PORT", c.Server.Port)
	c.Server.APIKey = envOr("ACADWRITE_API_KEY", c.Server.APIKey)
	c.Server.WorkerCount = envInt("WORKER_COUNT", c.Server.WorkerCount)
	c.Server.MaxQueueSize = envInt("MAX_QUEUE_SIZE", c.Server.MaxQueueSize)
	c.Server.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", c.Server.MaxUploadBytes)
	c.Server.JobTTL = envDuration("JOB_TTL", c.Server.JobTTL)
}

// clamp restores defaults for values that make no sense.
func (c *Config) clamp() {
	d := Default()
	if c.FileIntel.Timeout <= 0 {
		c.FileIntel.Timeout = d.FileIntel.Timeout
	}
	if c.FileIntel.PollInterval <= 0 {
		c.FileIntel.PollInterval = d.FileIntel.PollInterval
	}
	if c.FileIntel.MaxRetries <= 0 {
		c.FileIntel.MaxRetries = d.FileIntel.MaxRetries
	}
	if c.LLM.Temperature < 0 {
		c.LLM.Temperature = d.LLM.Temperature
	}
	if c.Writing.ChunkTargetTokens <= 0 {
		c.Writing.ChunkTargetTokens = d.Writing.ChunkTargetTokens
	}
	if c.Writing.ChunkMaxTokens <= 0 {
		c.Writing.ChunkMaxTokens = d.Writing.ChunkMaxTokens
	}
	if c.Writing.ContextLines < 0 {
		c.Writing.ContextLines = d.Writing.ContextLines
	}
	if c.Writing.MarkerConcurrency <= 0 {
		c.Writing.MarkerConcurrency = 1
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = d.Cache.TTL
	}
	if c.Server.WorkerCount <= 0 {
		c.Server.WorkerCount = d.Server.WorkerCount
	}
	if c.Server.MaxQueueSize <= 0 {
		c.Server.MaxQueueSize = d.Server.MaxQueueSize
	}
	if c.Server.MaxUploadBytes <= 0 {
		c.Server.MaxUploadBytes = d.Server.MaxUploadBytes
	}
	if c.Server.JobTTL <= 0 {
		c.Server.JobTTL = d.Server.JobTTL
	}
}

func (c Config) Validate() error {
	if c.FileIntel.URL == "" {
		return fmt.Errorf("FILEINTEL_URL is required")
	}
	switch c.Writing.CitationStyle {
	case "inline", "footnote":
	default:
		return fmt.Errorf("CITATION_STYLE must be inline or footnote, got %q", c.Writing.CitationStyle)
	}
	if c.Writing.ChunkMaxTokens < c.Writing.ChunkTargetTokens {
		return fmt.Errorf("CHUNK_MAX_TOKENS (%d) must be at least CHUNK_TARGET_TOKENS (%d)",
			c.Writing.ChunkMaxTokens, c.Writing.ChunkTargetTokens)
	}
	if c.LLM.Temperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE must be between 0 and 2")
	}
	return nil
}

// ValidateServer adds the checks that only apply to the HTTP service.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Server.APIKey == "" {
		return fmt.Errorf("ACADWRITE_API_KEY is required")
	}
	return nil
}

// LLMEnabled reports whether an LLM endpoint is configured.
func (c Config) LLMEnabled() bool {
	return c.LLM.BaseURL != "" && c.LLM.Model != ""
}

// Masked returns a copy with API keys hidden.
func (c Config) Masked() Config {
	c.FileIntel.APIKey = mask(c.FileIntel.APIKey)
	c.LLM.APIKey = mask(c.LLM.APIKey)
	c.Server.APIKey = mask(c.Server.APIKey)
	return c
}

// WriteTOML encodes the configuration with keys masked.
func (c Config) WriteTOML(w io.Writer) error {
	return c.Masked().Encode(w)
}

// Encode writes the configuration as TOML, keys included.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

func mask(key string) string {
	switch {
	case key == "":
		return ""
	case len(key) <= 8:
		return "****"
	}
	return key[:4] + "****" + key[len(key)-2:]
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
