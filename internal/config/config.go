package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Media     MediaConfig
	Alerts    AlertsConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

// StoreConfig selects the document store backend. The remaining fields mirror
// the options of the hosted realtime database the dashboard was first built on;
// DatabaseURL overrides Driver when set.
type StoreConfig struct {
	Driver            string
	DatabaseURL       string
	SQLitePath        string
	APIKey            string
	AuthDomain        string
	ProjectID         string
	StorageBucket     string
	MessagingSenderID string
	AppID             string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerWindow int
	Window            time.Duration
}

type MediaConfig struct {
	UploadURL    string
	CloudName    string
	UploadPreset string
	Timeout      time.Duration
}

type AlertsConfig struct {
	LowStockThreshold int
}

func Load() *Config {
	// Values already present in the environment win over .env
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not read .env file: %v", err)
	}

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "")
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("STORE_DRIVER", "memory")
	viper.SetDefault("STORE_SQLITE_PATH", "data/stockboard.db")
	viper.SetDefault("STORE_PROJECT_ID", "stockboard")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("RATE_LIMIT_ENABLED", false)
	viper.SetDefault("RATE_LIMIT_REQUESTS", 60)
	viper.SetDefault("RATE_LIMIT_WINDOW", "1m")
	viper.SetDefault("MEDIA_UPLOAD_PRESET", "gmc_products")
	viper.SetDefault("MEDIA_TIMEOUT", "60s")
	viper.SetDefault("ALERTS_LOW_STOCK_THRESHOLD", 2)

	cfg := &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			LogLevel:       strings.ToLower(viper.GetString("LOG_LEVEL")),
			AllowedOrigins: splitList(viper.GetString("SERVER_ALLOWED_ORIGINS")),
		},
		Store: StoreConfig{
			Driver:            strings.ToLower(viper.GetString("STORE_DRIVER")),
			DatabaseURL:       viper.GetString("DATABASE_URL"),
			SQLitePath:        viper.GetString("STORE_SQLITE_PATH"),
			APIKey:            viper.GetString("STORE_API_KEY"),
			AuthDomain:        viper.GetString("STORE_AUTH_DOMAIN"),
			ProjectID:         viper.GetString("STORE_PROJECT_ID"),
			StorageBucket:     viper.GetString("STORE_STORAGE_BUCKET"),
			MessagingSenderID: viper.GetString("STORE_MESSAGING_SENDER_ID"),
			AppID:             viper.GetString("STORE_APP_ID"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			Enabled:           viper.GetBool("RATE_LIMIT_ENABLED"),
			RequestsPerWindow: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Window:            viper.GetDuration("RATE_LIMIT_WINDOW"),
		},
		Media: MediaConfig{
			UploadURL:    viper.GetString("MEDIA_UPLOAD_URL"),
			CloudName:    viper.GetString("MEDIA_CLOUD_NAME"),
			UploadPreset: viper.GetString("MEDIA_UPLOAD_PRESET"),
			Timeout:      viper.GetDuration("MEDIA_TIMEOUT"),
		},
		Alerts: AlertsConfig{
			LowStockThreshold: viper.GetInt("ALERTS_LOW_STOCK_THRESHOLD"),
		},
	}

	if cfg.Media.UploadURL == "" && cfg.Media.CloudName != "" {
		cfg.Media.UploadURL = "https://api.cloudinary.com/v1_1/" + cfg.Media.CloudName + "/image/upload"
	}

	return cfg
}

// DSN builds a postgres connection string from the DB_* settings.
func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Database +
		"?sslmode=disable&search_path=" + d.Schema
}

// Addr returns host:port for the redis client.
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

// IsDevelopment reports whether the server runs with development defaults.
func (s ServerConfig) IsDevelopment() bool {
	return s.Env != "production"
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
