package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	API        APIConfig
	Sync       SyncConfig
	Auth       AuthConfig
	TokenStore TokenStoreConfig
	Redis      RedisConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

// APIConfig describes how the backend REST API is reached.
type APIConfig struct {
	BaseURL       string
	TokenHeader   string
	Timeout       time.Duration
	UploadTimeout time.Duration
}

type SyncConfig struct {
	PollInterval       time.Duration
	PollIdleAfter      time.Duration
	ProductsFreshness  time.Duration
	FeaturedSaveWindow time.Duration
}

type AuthConfig struct {
	MaxLoginAttempts int
	LockoutDuration  time.Duration
	LoginRateLimit   int // requests per LoginRateWindow
	LoginRateWindow  time.Duration
}

type TokenStoreConfig struct {
	Driver string // memory, file or redis
	Path   string
	Prefix string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Enabled reports whether a Redis host has been configured.
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	setDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return fromViper(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("API_BASE_URL", "http://localhost:4000/api")
	v.SetDefault("API_TOKEN_HEADER", "x-token")
	v.SetDefault("API_TIMEOUT", "10s")
	v.SetDefault("API_UPLOAD_TIMEOUT", "15s")
	v.SetDefault("POLL_INTERVAL", "30s")
	v.SetDefault("POLL_IDLE_AFTER", "5m")
	v.SetDefault("PRODUCTS_FRESHNESS", "10s")
	v.SetDefault("FEATURED_SAVE_WINDOW", "800ms")
	v.SetDefault("LOGIN_MAX_ATTEMPTS", 5)
	v.SetDefault("LOGIN_LOCKOUT", "1m")
	v.SetDefault("LOGIN_RATE_LIMIT", 10)
	v.SetDefault("LOGIN_RATE_WINDOW", "1m")
	v.SetDefault("TOKEN_STORE", "file")
	v.SetDefault("TOKEN_STORE_PATH", ".minimarket-session.yaml")
	v.SetDefault("TOKEN_STORE_PREFIX", "minimarket")
	v.SetDefault("REDIS_HOST", "")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Env:            v.GetString("SERVER_ENV"),
			LogLevel:       v.GetString("LOG_LEVEL"),
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		API: APIConfig{
			BaseURL:       v.GetString("API_BASE_URL"),
			TokenHeader:   v.GetString("API_TOKEN_HEADER"),
			Timeout:       v.GetDuration("API_TIMEOUT"),
			UploadTimeout: v.GetDuration("API_UPLOAD_TIMEOUT"),
		},
		Sync: SyncConfig{
			PollInterval:       v.GetDuration("POLL_INTERVAL"),
			PollIdleAfter:      v.GetDuration("POLL_IDLE_AFTER"),
			ProductsFreshness:  v.GetDuration("PRODUCTS_FRESHNESS"),
			FeaturedSaveWindow: v.GetDuration("FEATURED_SAVE_WINDOW"),
		},
		Auth: AuthConfig{
			MaxLoginAttempts: v.GetInt("LOGIN_MAX_ATTEMPTS"),
			LockoutDuration:  v.GetDuration("LOGIN_LOCKOUT"),
			LoginRateLimit:   v.GetInt("LOGIN_RATE_LIMIT"),
			LoginRateWindow:  v.GetDuration("LOGIN_RATE_WINDOW"),
		},
		TokenStore: TokenStoreConfig{
			Driver: v.GetString("TOKEN_STORE"),
			Path:   v.GetString("TOKEN_STORE_PATH"),
			Prefix: v.GetString("TOKEN_STORE_PREFIX"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
