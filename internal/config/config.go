// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.guildsage/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - Discord: bot token, command prefix, admin allowlist
//   - AI: generation model and embedder model (Gemini)
//   - Storage: persistent vector collection location and name
//   - Indexing: chunk size, pagination, rate limiting, batch size
//   - Retrieval: number of documents fetched per query
//
// Security: Sensitive data (tokens, API keys) are never logged; config directory
// uses 0750 permissions.
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingDiscordToken indicates the Discord bot token is not set.
	ErrMissingDiscordToken = errors.New("missing Discord bot token")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidChunkSize indicates the chunk size is out of range.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidMaxPerRequest indicates the per-request message cap is out of range.
	ErrInvalidMaxPerRequest = errors.New("invalid max messages per request")

	// ErrInvalidRateLimitDelay indicates the inter-page delay is negative.
	ErrInvalidRateLimitDelay = errors.New("invalid rate limit delay")

	// ErrInvalidBatchSize indicates the indexing batch size is out of range.
	ErrInvalidBatchSize = errors.New("invalid batch size")

	// ErrInvalidTopK indicates the retrieval result count is out of range.
	ErrInvalidTopK = errors.New("invalid top-k")

	// ErrInvalidCollectionName indicates the collection name is empty or malformed.
	ErrInvalidCollectionName = errors.New("invalid collection name")
)

const (
	// DefaultModelName is the default Gemini generation model.
	DefaultModelName = "gemini-2.5-flash"

	// DefaultEmbedderModel is the default Gemini embedder model.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultCollectionName is the vector collection holding all indexed messages.
	// One collection per deployment; Clear is the only way to change the
	// embedding model or dimensionality.
	DefaultCollectionName = "guild_knowledge"

	// MaxChunkSize caps the chunk size to keep chunks within embedder token limits.
	MaxChunkSize = 8192

	// MaxMessagesPerRequestCap is the hard upper bound Discord allows per
	// history request.
	MaxMessagesPerRequestCap = 100
)

// IndexingConfig controls the collection and batching pipeline.
type IndexingConfig struct {
	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int `mapstructure:"chunk_size"`

	// MaxMessagesPerRequest caps one history page fetch.
	MaxMessagesPerRequest int `mapstructure:"max_messages_per_request"`

	// RateLimitDelay is the pause between history page fetches.
	RateLimitDelay time.Duration `mapstructure:"rate_limit_delay"`

	// BatchSize is the number of messages processed and stored per batch.
	BatchSize int `mapstructure:"batch_size"`
}

// RetrievalConfig controls semantic search behavior.
type RetrievalConfig struct {
	// TopK is the number of documents retrieved per query.
	TopK int `mapstructure:"top_k"`
}

// Config stores application configuration.
// SECURITY: DiscordToken and GeminiAPIKey are sensitive; never log them.
type Config struct {
	// Discord configuration
	DiscordToken  string   `mapstructure:"discord_token"` // SENSITIVE
	CommandPrefix string   `mapstructure:"command_prefix"`
	AdminIDs      []string `mapstructure:"admin_ids"`

	// AI configuration
	GeminiAPIKey  string `mapstructure:"gemini_api_key"` // SENSITIVE
	ModelName     string `mapstructure:"model_name"`
	EmbedderModel string `mapstructure:"embedder_model"`

	// Storage configuration
	DataDir        string `mapstructure:"data_dir"`
	CollectionName string `mapstructure:"collection_name"`

	// Pipeline configuration
	Indexing  IndexingConfig  `mapstructure:"indexing"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".guildsage")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".") // Also support current directory

	setDefaults(v, configDir)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper, configDir string) {
	// Discord defaults
	v.SetDefault("command_prefix", "!")
	v.SetDefault("admin_ids", []string{})

	// AI defaults
	v.SetDefault("model_name", DefaultModelName)
	v.SetDefault("embedder_model", DefaultEmbedderModel)

	// Storage defaults
	v.SetDefault("data_dir", filepath.Join(configDir, "data"))
	v.SetDefault("collection_name", DefaultCollectionName)

	// Indexing defaults
	v.SetDefault("indexing.chunk_size", 1000)
	v.SetDefault("indexing.max_messages_per_request", 100)
	v.SetDefault("indexing.rate_limit_delay", time.Second)
	v.SetDefault("indexing.batch_size", 50)

	// Retrieval defaults
	v.SetDefault("retrieval.top_k", 5)
}

// bindEnvVariables binds environment variables.
// Secrets are bound explicitly so they never have to live in the config file:
//
//	GUILDSAGE_DISCORD_TOKEN   Discord bot token
//	GUILDSAGE_GEMINI_API_KEY  Gemini API key
func bindEnvVariables(v *viper.Viper) {
	v.SetEnvPrefix("GUILDSAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicit bindings for secrets (AutomaticEnv doesn't cover keys that
	// are absent from both defaults and the config file)
	_ = v.BindEnv("discord_token", "GUILDSAGE_DISCORD_TOKEN")
	_ = v.BindEnv("gemini_api_key", "GUILDSAGE_GEMINI_API_KEY", "GEMINI_API_KEY")
}

// Validate checks configuration ranges. Token/API key presence is checked at
// the call sites that need them, so read-only commands work without secrets.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.Indexing.ChunkSize < 1 || c.Indexing.ChunkSize > MaxChunkSize {
		return fmt.Errorf("%w: must be between 1 and %d, got %d",
			ErrInvalidChunkSize, MaxChunkSize, c.Indexing.ChunkSize)
	}

	if c.Indexing.MaxMessagesPerRequest < 1 || c.Indexing.MaxMessagesPerRequest > MaxMessagesPerRequestCap {
		return fmt.Errorf("%w: must be between 1 and %d, got %d",
			ErrInvalidMaxPerRequest, MaxMessagesPerRequestCap, c.Indexing.MaxMessagesPerRequest)
	}

	if c.Indexing.RateLimitDelay < 0 {
		return fmt.Errorf("%w: must not be negative, got %s",
			ErrInvalidRateLimitDelay, c.Indexing.RateLimitDelay)
	}

	if c.Indexing.BatchSize < 1 || c.Indexing.BatchSize > 1000 {
		return fmt.Errorf("%w: must be between 1 and 1000, got %d",
			ErrInvalidBatchSize, c.Indexing.BatchSize)
	}

	if c.Retrieval.TopK < 1 || c.Retrieval.TopK > 50 {
		return fmt.Errorf("%w: must be between 1 and 50, got %d",
			ErrInvalidTopK, c.Retrieval.TopK)
	}

	if c.CollectionName == "" || strings.ContainsAny(c.CollectionName, "/\\") {
		return fmt.Errorf("%w: %q", ErrInvalidCollectionName, c.CollectionName)
	}

	return nil
}

// RequireDiscordToken returns an error when no Discord token is configured.
func (c *Config) RequireDiscordToken() error {
	if c.DiscordToken == "" {
		return fmt.Errorf("%w: set GUILDSAGE_DISCORD_TOKEN", ErrMissingDiscordToken)
	}
	return nil
}

// RequireGeminiAPIKey returns an error when no Gemini API key is configured.
func (c *Config) RequireGeminiAPIKey() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("%w: set GUILDSAGE_GEMINI_API_KEY", ErrMissingAPIKey)
	}
	return nil
}

// IsAdmin reports whether the given user ID is on the admin allowlist.
// An empty allowlist means admin commands are open to everyone; deployments
// should set admin_ids in production.
func (c *Config) IsAdmin(userID string) bool {
	if len(c.AdminIDs) == 0 {
		return true
	}
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
