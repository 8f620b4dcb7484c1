// Package config loads agent settings from defaults, an optional YAML file and
// AGT_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/petasbytes/research-agent/internal/logging"
	"github.com/petasbytes/research-agent/internal/provider"
)

// Persistence backends.
const (
	StoreNone  = "none"
	StoreFile  = "file"
	StoreRedis = "redis"
)

const (
	defaultStoreDir    = ".agent/sessions"
	defaultRedisPrefix = "agent:session:"
	defaultServerAddr  = ":8080"
	defaultScrapeLimit = 8000
)

// Config holds everything needed to build a session and its surfaces.
type Config struct {
	Provider string `yaml:"provider"`
	// BaseURL and Model fall back to the provider SDK defaults when empty.
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	Model     string        `yaml:"model"`
	Timeout   time.Duration `yaml:"timeout"`
	MaxTokens int64         `yaml:"max_tokens"`

	// ReplaySystemPrompt re-appends the system message before every question.
	// nil means the default (on).
	ReplaySystemPrompt *bool  `yaml:"replay_system_prompt"`
	SystemPrompt       string `yaml:"system_prompt"`
	LogLevel           string `yaml:"log_level"`

	Store  StoreConfig  `yaml:"store"`
	Tools  ToolsConfig  `yaml:"tools"`
	Server ServerConfig `yaml:"server"`
}

// StoreConfig selects where transcripts are persisted between runs.
type StoreConfig struct {
	Kind        string        `yaml:"kind"`
	Dir         string        `yaml:"dir"`
	RedisAddr   string        `yaml:"redis_addr"`
	RedisPrefix string        `yaml:"redis_prefix"`
	TTL         time.Duration `yaml:"ttl"`
}

// ToolsConfig tunes the default search and scrape implementations.
type ToolsConfig struct {
	// SearchEndpoint overrides the DuckDuckGo HTML endpoint.
	SearchEndpoint string `yaml:"search_endpoint"`
	// ScrapeLimit caps scraped pages, in runes.
	ScrapeLimit int `yaml:"scrape_limit"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	replay := true
	return Config{
		Provider:           provider.OpenAI,
		Timeout:            provider.DefaultTimeout,
		MaxTokens:          1024,
		ReplaySystemPrompt: &replay,
		LogLevel:           "info",
		Store: StoreConfig{
			Kind:        StoreNone,
			Dir:         defaultStoreDir,
			RedisPrefix: defaultRedisPrefix,
		},
		Tools:  ToolsConfig{ScrapeLimit: defaultScrapeLimit},
		Server: ServerConfig{Addr: defaultServerAddr},
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Provider != "" {
		c.Provider = source.Provider
	}
	if source.BaseURL != "" {
		c.BaseURL = source.BaseURL
	}
	if source.APIKey != "" {
		c.APIKey = source.APIKey
	}
	if source.Model != "" {
		c.Model = source.Model
	}
	if source.Timeout > 0 {
		c.Timeout = source.Timeout
	}
	if source.MaxTokens > 0 {
		c.MaxTokens = source.MaxTokens
	}
	if source.ReplaySystemPrompt != nil {
		v := *source.ReplaySystemPrompt
		c.ReplaySystemPrompt = &v
	}
	if source.SystemPrompt != "" {
		c.SystemPrompt = source.SystemPrompt
	}
	if source.LogLevel != "" {
		c.LogLevel = source.LogLevel
	}
	c.Store.merge(&source.Store)
	if source.Tools.SearchEndpoint != "" {
		c.Tools.SearchEndpoint = source.Tools.SearchEndpoint
	}
	if source.Tools.ScrapeLimit > 0 {
		c.Tools.ScrapeLimit = source.Tools.ScrapeLimit
	}
	if source.Server.Addr != "" {
		c.Server.Addr = source.Server.Addr
	}
}

func (s *StoreConfig) merge(source *StoreConfig) {
	if source.Kind != "" {
		s.Kind = source.Kind
	}
	if source.Dir != "" {
		s.Dir = source.Dir
	}
	if source.RedisAddr != "" {
		s.RedisAddr = source.RedisAddr
	}
	if source.RedisPrefix != "" {
		s.RedisPrefix = source.RedisPrefix
	}
	if source.TTL > 0 {
		s.TTL = source.TTL
	}
}

// Load reads a YAML file and merges it over the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}

// ApplyEnv overrides c from AGT_* variables. When no API key is configured it
// falls back to the provider's conventional variable.
func (c *Config) ApplyEnv() error {
	env := Config{
		Provider: os.Getenv("AGT_PROVIDER"),
		BaseURL:  os.Getenv("AGT_BASE_URL"),
		APIKey:   os.Getenv("AGT_API_KEY"),
		Model:    os.Getenv("AGT_MODEL"),
		LogLevel: os.Getenv("AGT_LOG_LEVEL"),
		Store: StoreConfig{
			Kind:      os.Getenv("AGT_PERSIST"),
			RedisAddr: os.Getenv("AGT_REDIS_ADDR"),
		},
	}
	if v := os.Getenv("AGT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid AGT_TIMEOUT %q: %w", v, err)
		}
		env.Timeout = d
	}
	if v := os.Getenv("AGT_REPLAY_SYSTEM_PROMPT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid AGT_REPLAY_SYSTEM_PROMPT %q: %w", v, err)
		}
		env.ReplaySystemPrompt = &b
	}
	c.Merge(&env)

	if c.APIKey == "" {
		switch c.Provider {
		case provider.OpenAI:
			c.APIKey = os.Getenv("OPENAI_API_KEY")
		case provider.Anthropic:
			c.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	return nil
}

// Replay reports whether the system message is replayed on every question.
func (c *Config) Replay() bool {
	return c.ReplaySystemPrompt == nil || *c.ReplaySystemPrompt
}

// ProviderOptions returns the completion client settings.
func (c *Config) ProviderOptions() provider.Options {
	return provider.Options{
		Provider:  c.Provider,
		BaseURL:   c.BaseURL,
		APIKey:    c.APIKey,
		Model:     c.Model,
		Timeout:   c.Timeout,
		MaxTokens: c.MaxTokens,
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Provider {
	case provider.OpenAI, provider.Anthropic:
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("max_tokens must not be negative, got %d", c.MaxTokens))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.Store.Kind {
	case "", StoreNone:
	case StoreFile:
		if c.Store.Dir == "" {
			errs = append(errs, errors.New("store.dir is required for the file store"))
		}
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			errs = append(errs, errors.New("store.redis_addr is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store kind %q", c.Store.Kind))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
