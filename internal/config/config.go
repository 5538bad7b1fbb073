package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the server's runtime parameters.
type Config struct {
	Addr          string        `mapstructure:"addr"`
	DBPath        string        `mapstructure:"db_path"`
	AttachmentDir string        `mapstructure:"attachment_dir"`
	LogLevel      string        `mapstructure:"log_level"`
	PageSize      int           `mapstructure:"page_size"`
	SendBuffer    int           `mapstructure:"send_buffer"`
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
}

const (
	defaultAddr          = ":8080"
	defaultDBPath        = "messenger.db"
	defaultAttachmentDir = "static/chat_pic"
	defaultLogLevel      = "info"
	defaultPageSize      = 5
	defaultSendBuffer    = 256
	defaultShutdownGrace = 10 * time.Second
)

// Load reads configuration from the provided file path (if any) and the
// environment. Environment variables are prefixed with MESSENGER_ and override
// file values.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MESSENGER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("addr", defaultAddr)
	v.SetDefault("db_path", defaultDBPath)
	v.SetDefault("attachment_dir", defaultAttachmentDir)
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("page_size", defaultPageSize)
	v.SetDefault("send_buffer", defaultSendBuffer)
	v.SetDefault("shutdown_grace", defaultShutdownGrace.String())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	// Viper leaves durations as strings; normalize here.
	if raw := v.GetString("shutdown_grace"); raw != "" {
		dur, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid shutdown_grace: %w", err)
		}
		cfg.ShutdownGrace = dur
	}

	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultSendBuffer
	}
	return cfg, nil
}
