package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Secrets shorter than this are refused in release mode.
const minReleaseSecretLen = 32

type Config struct {
	Mode      string          `mapstructure:"mode"`
	Port      int             `mapstructure:"port"`
	LogLevel  string          `mapstructure:"log_level"`
	Secret    string          `mapstructure:"secret"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	WS        WSConfig        `mapstructure:"ws"`
	Chat      ChatConfig      `mapstructure:"chat"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// DatabaseConfig captures storage configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// JWTConfig defines token issuance parameters.
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Issuer     string        `mapstructure:"issuer"`
	Expiration time.Duration `mapstructure:"expiration"`
}

type WSConfig struct {
	ReadLimit      int64         `mapstructure:"read_limit"`
	PingPeriod     time.Duration `mapstructure:"ping_period"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

type ChatConfig struct {
	HistoryLimit int `mapstructure:"history_limit"`
}

type RateLimitConfig struct {
	Messages int           `mapstructure:"messages"`
	Interval time.Duration `mapstructure:"interval"`
}

// Load reads config/config.<CONFIG_ENV>.yaml when present and lets CHAT_*
// environment variables override any key (CHAT_JWT_SECRET -> jwt.secret).
func Load() (*Config, error) {
	// .env is optional outside development
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	setDefaults(v)

	v.SetEnvPrefix("CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("db", cfg.Database.Path).Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("secret", "")
	v.SetDefault("database.path", "chat.db")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "project-chat")
	v.SetDefault("jwt.expiration", "24h")
	v.SetDefault("ws.read_limit", 32768)
	v.SetDefault("ws.ping_period", "54s")
	v.SetDefault("ws.pong_wait", "60s")
	v.SetDefault("ws.write_wait", "5s")
	v.SetDefault("ws.send_buffer", 64)
	v.SetDefault("ws.allowed_origins", []string{})
	v.SetDefault("chat.history_limit", 50)
	v.SetDefault("rate_limit.messages", 20)
	v.SetDefault("rate_limit.interval", "10s")
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.Secret == "" {
		return errors.New("secret is required")
	}
	if c.Mode == "release" {
		if len(c.JWT.Secret) < minReleaseSecretLen {
			return fmt.Errorf("jwt.secret must be at least %d bytes in release mode", minReleaseSecretLen)
		}
		if len(c.Secret) < minReleaseSecretLen {
			return fmt.Errorf("secret must be at least %d bytes in release mode", minReleaseSecretLen)
		}
	}
	if c.WS.PingPeriod >= c.WS.PongWait {
		return fmt.Errorf("ws.ping_period (%s) must be shorter than ws.pong_wait (%s)", c.WS.PingPeriod, c.WS.PongWait)
	}
	if c.Chat.HistoryLimit <= 0 {
		return fmt.Errorf("invalid chat.history_limit %d", c.Chat.HistoryLimit)
	}
	return nil
}
