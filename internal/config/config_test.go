package config

import (
	"errors"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		CommandPrefix:  "!",
		ModelName:      DefaultModelName,
		EmbedderModel:  DefaultEmbedderModel,
		CollectionName: DefaultCollectionName,
		Indexing: IndexingConfig{
			ChunkSize:             1000,
			MaxMessagesPerRequest: 100,
			RateLimitDelay:        time.Second,
			BatchSize:             50,
		},
		Retrieval: RetrievalConfig{TopK: 5},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: nil,
		},
		{
			name:    "chunk size zero",
			mutate:  func(c *Config) { c.Indexing.ChunkSize = 0 },
			wantErr: ErrInvalidChunkSize,
		},
		{
			name:    "chunk size beyond cap",
			mutate:  func(c *Config) { c.Indexing.ChunkSize = MaxChunkSize + 1 },
			wantErr: ErrInvalidChunkSize,
		},
		{
			name:    "max per request zero",
			mutate:  func(c *Config) { c.Indexing.MaxMessagesPerRequest = 0 },
			wantErr: ErrInvalidMaxPerRequest,
		},
		{
			name:    "max per request beyond platform cap",
			mutate:  func(c *Config) { c.Indexing.MaxMessagesPerRequest = 101 },
			wantErr: ErrInvalidMaxPerRequest,
		},
		{
			name:    "negative rate limit delay",
			mutate:  func(c *Config) { c.Indexing.RateLimitDelay = -time.Second },
			wantErr: ErrInvalidRateLimitDelay,
		},
		{
			name:    "zero rate limit delay is allowed",
			mutate:  func(c *Config) { c.Indexing.RateLimitDelay = 0 },
			wantErr: nil,
		},
		{
			name:    "batch size zero",
			mutate:  func(c *Config) { c.Indexing.BatchSize = 0 },
			wantErr: ErrInvalidBatchSize,
		},
		{
			name:    "top-k zero",
			mutate:  func(c *Config) { c.Retrieval.TopK = 0 },
			wantErr: ErrInvalidTopK,
		},
		{
			name:    "top-k beyond cap",
			mutate:  func(c *Config) { c.Retrieval.TopK = 51 },
			wantErr: ErrInvalidTopK,
		},
		{
			name:    "empty collection name",
			mutate:  func(c *Config) { c.CollectionName = "" },
			wantErr: ErrInvalidCollectionName,
		},
		{
			name:    "collection name with path separator",
			mutate:  func(c *Config) { c.CollectionName = "foo/bar" },
			wantErr: ErrInvalidCollectionName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Validate_Nil(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Errorf("Validate() on nil = %v, want ErrConfigNil", err)
	}
}

func TestConfig_RequireDiscordToken(t *testing.T) {
	cfg := validConfig()
	if err := cfg.RequireDiscordToken(); !errors.Is(err, ErrMissingDiscordToken) {
		t.Errorf("expected ErrMissingDiscordToken, got %v", err)
	}

	cfg.DiscordToken = "token"
	if err := cfg.RequireDiscordToken(); err != nil {
		t.Errorf("unexpected error with token set: %v", err)
	}
}

func TestConfig_RequireGeminiAPIKey(t *testing.T) {
	cfg := validConfig()
	if err := cfg.RequireGeminiAPIKey(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}

	cfg.GeminiAPIKey = "key"
	if err := cfg.RequireGeminiAPIKey(); err != nil {
		t.Errorf("unexpected error with key set: %v", err)
	}
}

func TestConfig_IsAdmin(t *testing.T) {
	tests := []struct {
		name     string
		adminIDs []string
		userID   string
		want     bool
	}{
		{
			name:     "empty allowlist admits everyone",
			adminIDs: nil,
			userID:   "anyone",
			want:     true,
		},
		{
			name:     "listed user is admin",
			adminIDs: []string{"u1", "u2"},
			userID:   "u2",
			want:     true,
		},
		{
			name:     "unlisted user is not admin",
			adminIDs: []string{"u1", "u2"},
			userID:   "u3",
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.AdminIDs = tt.adminIDs

			if got := cfg.IsAdmin(tt.userID); got != tt.want {
				t.Errorf("IsAdmin(%q) = %v, want %v", tt.userID, got, tt.want)
			}
		})
	}
}
