// Package config loads application settings from an optional config file and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// ErrMissingCredential is returned when a selected integration has no credential.
var ErrMissingCredential = errors.New("missing credential")

// Config holds the application configuration.
type Config struct {
	DatabasePath     string
	DatabaseURL      string
	SupabaseURL      string
	SupabasePassword string
	LockPath         string
	LogLevel         string
	ChannelsFile     string

	SupadataAPIKey      string
	TranscriptProviders []string
	Language            string

	AIProvider      string
	AIModel         string
	OpenAIAPIKey    string
	AnthropicAPIKey string

	MinDuration     time.Duration
	Limit           int
	NewChannelLimit int
	MaxErrors       int

	TelegramBotToken string
	TelegramChatID   int64

	ConfigDir string
	DataDir   string
}

// plain environment names accepted next to the VIDCORPUS_ prefixed ones.
var plainEnv = map[string]string{
	"database_path":        "DATABASE_PATH",
	"database_url":         "DATABASE_URL",
	"supabase_url":         "SUPABASE_URL",
	"supabase_db_password": "SUPABASE_DB_PASSWORD",
	"log_level":            "LOG_LEVEL",
	"supadata_api_key":     "SUPADATA_API_KEY",
	"openai_api_key":       "OPENAI_API_KEY",
	"anthropic_api_key":    "ANTHROPIC_API_KEY",
	"telegram_bot_token":   "TELEGRAM_BOT_TOKEN",
	"telegram_chat_id":     "TELEGRAM_CHAT_ID",
}

// Load reads configuration. When configFile is empty, config.toml is looked up
// in the working directory and the XDG config directory; a missing file is
// not an error.
func Load(configFile string) (*Config, error) {
	configDir := filepath.Join(xdg.ConfigHome, "vidcorpus")
	dataDir := filepath.Join(xdg.DataHome, "vidcorpus")

	v := viper.New()

	v.SetDefault("database_path", filepath.Join(dataDir, "corpus.db"))
	v.SetDefault("log_level", "info")
	v.SetDefault("channels_file", "channels.toml")
	v.SetDefault("transcript_providers", "supadata,youtube")
	v.SetDefault("language", "en")
	v.SetDefault("ai_provider", "openai")
	v.SetDefault("ai_model", "")
	v.SetDefault("min_duration", 20*time.Minute)
	v.SetDefault("limit", 20)
	v.SetDefault("new_channel_limit", 10)
	v.SetDefault("max_errors", 5)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath(configDir)
	}

	v.SetEnvPrefix("VIDCORPUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range plainEnv {
		_ = v.BindEnv(key, "VIDCORPUS_"+strings.ToUpper(key), env)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		DatabasePath:     v.GetString("database_path"),
		DatabaseURL:      v.GetString("database_url"),
		SupabaseURL:      v.GetString("supabase_url"),
		SupabasePassword: v.GetString("supabase_db_password"),
		LogLevel:         strings.ToLower(v.GetString("log_level")),
		ChannelsFile:     v.GetString("channels_file"),

		SupadataAPIKey:      v.GetString("supadata_api_key"),
		TranscriptProviders: splitList(v.Get("transcript_providers")),
		Language:            v.GetString("language"),

		AIProvider:      strings.ToLower(v.GetString("ai_provider")),
		AIModel:         v.GetString("ai_model"),
		OpenAIAPIKey:    v.GetString("openai_api_key"),
		AnthropicAPIKey: v.GetString("anthropic_api_key"),

		MinDuration:     v.GetDuration("min_duration"),
		Limit:           v.GetInt("limit"),
		NewChannelLimit: v.GetInt("new_channel_limit"),
		MaxErrors:       v.GetInt("max_errors"),

		TelegramBotToken: v.GetString("telegram_bot_token"),
		TelegramChatID:   v.GetInt64("telegram_chat_id"),

		ConfigDir: configDir,
		DataDir:   dataDir,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.LockPath = v.GetString("lock_path")
	if cfg.LockPath == "" {
		cfg.LockPath = filepath.Join(dataDir, "vidcorpus.lock")
		if !cfg.UsePostgres() {
			cfg.LockPath = cfg.DatabasePath + ".lock"
		}
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	if c.MinDuration < 0 {
		return fmt.Errorf("min_duration must not be negative, got %s", c.MinDuration)
	}
	if err := ValidateLimits(c.Limit, c.NewChannelLimit); err != nil {
		return err
	}
	if len(c.TranscriptProviders) == 0 {
		return fmt.Errorf("transcript_providers is empty")
	}
	return nil
}

// ValidateLimits checks the per-run episode caps. Both must be at least 1.
func ValidateLimits(limit, newChannelLimit int) error {
	if limit < 1 {
		return fmt.Errorf("limit must be at least 1, got %d", limit)
	}
	if newChannelLimit < 1 {
		return fmt.Errorf("new_channel_limit must be at least 1, got %d", newChannelLimit)
	}
	return nil
}

// UsePostgres reports whether a Postgres or Supabase database is configured.
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != "" || c.SupabaseURL != ""
}

// TranscriptOrder returns the configured provider order without providers
// that lack a credential. It fails when nothing usable remains.
func (c *Config) TranscriptOrder() ([]string, error) {
	var order []string
	for _, name := range c.TranscriptProviders {
		if name == "supadata" && c.SupadataAPIKey == "" {
			continue
		}
		order = append(order, name)
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("transcript providers %v: SUPADATA_API_KEY: %w",
			c.TranscriptProviders, ErrMissingCredential)
	}
	return order, nil
}

// RequireAI checks that the selected AI provider has an API key.
func (c *Config) RequireAI() error {
	switch c.AIProvider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY: %w", ErrMissingCredential)
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY: %w", ErrMissingCredential)
		}
	default:
		return fmt.Errorf("unknown ai provider %q", c.AIProvider)
	}
	return nil
}

// TelegramEnabled reports whether Telegram notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != 0
}

// RequireTelegram checks that Telegram is fully configured.
func (c *Config) RequireTelegram() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN: %w", ErrMissingCredential)
	}
	if c.TelegramChatID == 0 {
		return fmt.Errorf("TELEGRAM_CHAT_ID: %w", ErrMissingCredential)
	}
	return nil
}

// splitList accepts a comma separated string or a TOML array.
func splitList(raw any) []string {
	var parts []string
	switch val := raw.(type) {
	case string:
		parts = strings.Split(val, ",")
	case []string:
		parts = val
	case []any:
		for _, p := range val {
			parts = append(parts, fmt.Sprint(p))
		}
	}

	var out []string
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
