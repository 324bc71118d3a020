package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration. Values come from an
// optional YAML file, overridden by environment variables. Missing required
// values are a fatal startup error.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Store    StoreConfig    `yaml:"store"`
	Server   ServerConfig   `yaml:"server"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Log      LogConfig      `yaml:"log"`
}

// TelegramConfig carries the bot credentials and the identities the bot
// trusts: the single admin allowed to issue commands and the channel that
// receives change notifications.
type TelegramConfig struct {
	BotToken  string `yaml:"bot_token" validate:"required"`
	AdminID   int64  `yaml:"admin_id" validate:"required"`
	ChannelID int64  `yaml:"channel_id" validate:"required"`
	// Instance optionally identifies the running deployment; when set, the
	// ping reply includes it.
	Instance string `yaml:"instance,omitempty"`
}

// StoreConfig locates the watch database.
type StoreConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// ServerConfig configures the HTTP trigger endpoints.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" validate:"required"`
}

// FetchConfig bounds page fetches during a sweep.
type FetchConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"gt=0"`
	MaxBodySizeMB  int `yaml:"max_body_size_mb" validate:"gt=0"`
}

// LogConfig defines configuration for logging.
type LogConfig struct {
	LogLevel      string `yaml:"log_level,omitempty"`
	LogFormat     string `yaml:"log_format,omitempty"`
	LogFile       string `yaml:"log_file,omitempty"`
	MaxLogSizeMB  int    `yaml:"max_log_size_mb,omitempty"`
	MaxLogBackups int    `yaml:"max_log_backups,omitempty"`
}

// NewDefaultConfig returns the configuration defaults applied before the
// YAML file and environment are consulted.
func NewDefaultConfig() *Config {
	return &Config{
		Store:  StoreConfig{Path: "data/notteru.db"},
		Server: ServerConfig{ListenAddr: ":8080"},
		Fetch: FetchConfig{
			TimeoutSeconds: 30,
			MaxBodySizeMB:  10,
		},
		Log: LogConfig{
			LogLevel:      "info",
			LogFormat:     "console",
			MaxLogSizeMB:  100,
			MaxLogBackups: 3,
		},
	}
}

// Load reads configuration from the YAML file at path (skipped when path is
// empty), applies environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("ADMIN_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parsing ADMIN_ID %q: %w", v, err)
		}
		cfg.Telegram.AdminID = id
	}
	if v := os.Getenv("CHANNEL_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parsing CHANNEL_ID %q: %w", v, err)
		}
		cfg.Telegram.ChannelID = id
	}
	if v := os.Getenv("INSTANCE_VERSION"); v != "" {
		cfg.Telegram.Instance = v
	}
	if v := os.Getenv("NOTTERU_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("NOTTERU_LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	return nil
}

// Validate checks the assembled configuration. Required credentials missing
// here abort startup.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
