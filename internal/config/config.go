package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	Port  int  `mapstructure:"PORT"`
	Debug bool `mapstructure:"DEBUG"`

	DatabaseDriver string `mapstructure:"DATABASE_DRIVER"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`

	JWTSecret        string        `mapstructure:"JWT_SECRET"`
	SessionTTL       time.Duration `mapstructure:"SESSION_TTL"`
	RealtimeTokenTTL time.Duration `mapstructure:"REALTIME_TOKEN_TTL"`

	// RedisAddr enables the cross-instance realtime relay when set.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// AllowedOrigins is a comma-separated list of WebSocket origins. Empty allows all.
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	HubBuffer      int     `mapstructure:"HUB_BUFFER"`
	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`
}

var AppConfig *Config

// Load reads configuration from the .env file in dir (if present) and the
// environment. Environment variables take precedence over the file.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	v.SetDefault("PORT", 8080)
	v.SetDefault("DEBUG", false)
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("SESSION_TTL", "168h")
	v.SetDefault("REALTIME_TOKEN_TTL", "60s")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("HUB_BUFFER", 16)
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		log.Println("Warning: .env file not found, loading from environment variables")
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("config: JWT_SECRET is required")
	}
	return cfg, nil
}

// Origins splits AllowedOrigins.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// LoadConfig loads the configuration from a .env file and environment variables.
func LoadConfig() {
	cfg, err := Load(".")
	if err != nil {
		log.Fatalf("Unable to load config, %v", err)
	}
	AppConfig = cfg
}
