package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	AllowedOrigins []string
	JWTSecret      string
	AdminUser      string
	AdminPassHash  string

	Log    LogConfig
	Search SearchConfig
	Cache  CacheConfig

	Promoted PromotedConfig
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type SearchConfig struct {
	PageSize        int
	MaxPageSize     int
	Sources         []string
	Timeout         time.Duration
	Retries         int
	PerSource       int
	BreakerFailures int
	BreakerCooldown time.Duration

	SearxngInstances []string
	SearxngAPIKey    string
	GoogleAPIKey     string
	GoogleCX         string
	GoogleEndpoint   string
	DuckEndpoint     string
	WikiEndpoint     string
	WikiLang         string
	WorkerEndpoints  []string
}

type CacheConfig struct {
	Backend       string
	TTL           time.Duration
	Capacity      int
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type PromotedConfig struct {
	Source      string
	File        string
	S3Endpoint  string
	S3Bucket    string
	S3Object    string
	S3AccessKey string
	S3SecretKey string
	S3Secure    bool
	DatabaseURL string
	Refresh     time.Duration
}

// LoadDotEnv loads a .env file from ENV_PATH (default ".env") when present.
// Variables already set in the environment win.
func LoadDotEnv() error {
	path := getEnv("ENV_PATH", ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		JWTSecret:      getEnv("JWT_SECRET", "dev-secret-change-in-production"),
		AdminUser:      getEnv("ADMIN_USER", "admin"),
		AdminPassHash:  getEnv("ADMIN_PASSWORD_HASH", ""),
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 28),
		},
		Search: SearchConfig{
			PageSize:        getEnvInt("SEARCH_PAGE_SIZE", 10),
			MaxPageSize:     getEnvInt("SEARCH_MAX_PAGE_SIZE", 50),
			Sources:         getEnvList("SEARCH_SOURCES", []string{"wikipedia", "google", "searxng", "duckduckgo"}),
			Timeout:         time.Duration(getEnvInt("SEARCH_TIMEOUT_MS", 8000)) * time.Millisecond,
			Retries:         getEnvInt("SEARCH_RETRIES", 1),
			PerSource:       getEnvInt("SEARCH_RESULTS_PER_SOURCE", 20),
			BreakerFailures: getEnvInt("SEARCH_BREAKER_FAILURES", 5),
			BreakerCooldown: getEnvDuration("SEARCH_BREAKER_COOLDOWN", 30*time.Second),

			SearxngInstances: getEnvList("SEARXNG_INSTANCES", []string{
				"https://searx.be",
				"https://search.sapti.me",
				"https://searx.tiekoetter.com",
				"https://search.bus-hit.me",
			}),
			SearxngAPIKey:   getEnv("SEARXNG_API_KEY", ""),
			GoogleAPIKey:    getEnv("GOOGLE_API_KEY", ""),
			GoogleCX:        getEnv("GOOGLE_CX", ""),
			GoogleEndpoint:  getEnv("GOOGLE_ENDPOINT", ""),
			DuckEndpoint:    getEnv("DUCKDUCKGO_ENDPOINT", ""),
			WikiEndpoint:    getEnv("WIKIPEDIA_ENDPOINT", ""),
			WikiLang:        getEnv("WIKIPEDIA_LANG", "en"),
			WorkerEndpoints: getEnvList("WORKER_ENDPOINTS", nil),
		},
		Cache: CacheConfig{
			Backend:       strings.ToLower(getEnv("CACHE_BACKEND", "memory")),
			TTL:           getEnvDuration("CACHE_TTL", 5*time.Minute),
			Capacity:      getEnvInt("CACHE_CAPACITY", 512),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
		},
		Promoted: PromotedConfig{
			Source:      strings.ToLower(getEnv("PROMOTED_SOURCE", "file")),
			File:        getEnv("PROMOTED_FILE", "promoted.json"),
			S3Endpoint:  getEnv("PROMOTED_S3_ENDPOINT", ""),
			S3Bucket:    getEnv("PROMOTED_S3_BUCKET", ""),
			S3Object:    getEnv("PROMOTED_S3_OBJECT", "promoted.json"),
			S3AccessKey: getEnv("PROMOTED_S3_ACCESS_KEY", ""),
			S3SecretKey: getEnv("PROMOTED_S3_SECRET_KEY", ""),
			S3Secure:    getEnvBool("PROMOTED_S3_SECURE", true),
			DatabaseURL: getEnv("PROMOTED_DATABASE_URL", ""),
			Refresh:     getEnvDuration("PROMOTED_REFRESH", 0),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return d
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string, fallback []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
