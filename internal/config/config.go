package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config тримає всі налаштування сервера, зчитані зі змінних середовища.
type Config struct {
	HTTPAddr    string `mapstructure:"http_addr"`
	DatabaseDSN string `mapstructure:"database_dsn"`
	RedisAddr   string `mapstructure:"redis_addr"`
	RedisDB     int    `mapstructure:"redis_db"`
	LogLevel    string `mapstructure:"log_level"`

	JWTSecret        string        `mapstructure:"jwt_secret"`
	JWTRefreshSecret string        `mapstructure:"jwt_refresh_secret"`
	AccessTokenTTL   time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL  time.Duration `mapstructure:"refresh_token_ttl"`
}

// Load reads configuration from environment variables with sane defaults.
// Call godotenv.Load first so a local .env file is picked up.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("http_addr", ":8080")
	v.SetDefault("database_dsn", "host=localhost user=user password=password dbname=roomgodb port=5432 sslmode=disable")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("log_level", "info")
	v.SetDefault("jwt_secret", "dev-secret-change-me")
	v.SetDefault("jwt_refresh_secret", "dev-refresh-secret-change-me")
	v.SetDefault("access_token_ttl", "15m")
	v.SetDefault("refresh_token_ttl", "168h")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
