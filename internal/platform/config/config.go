package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTP     HTTPConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Engine   EngineConfig
}

type HTTPConfig struct {
	Addr string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type AuthConfig struct {
	JWTSecret string
}

type EngineConfig struct {
	SweepInterval time.Duration
	StoreTimeout  time.Duration
	HubBuffer     int
	SummaryCron   string
}

// Load reads configuration from environment variables, falling back to
// defaults suitable for local development. Secrets have no defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "livepoll")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("SWEEP_INTERVAL", "60s")
	v.SetDefault("STORE_TIMEOUT", "5s")
	v.SetDefault("HUB_BUFFER", 16)
	v.SetDefault("SUMMARY_CRON", "*/5 * * * *")

	cfg := &Config{
		HTTP: HTTPConfig{
			Addr: v.GetString("HTTP_ADDR"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
		},
		Engine: EngineConfig{
			SweepInterval: v.GetDuration("SWEEP_INTERVAL"),
			StoreTimeout:  v.GetDuration("STORE_TIMEOUT"),
			HubBuffer:     v.GetInt("HUB_BUFFER"),
			SummaryCron:   v.GetString("SUMMARY_CRON"),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	if cfg.Engine.SweepInterval <= 0 {
		return nil, fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", cfg.Engine.SweepInterval)
	}

	return cfg, nil
}

// DSN builds the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}
