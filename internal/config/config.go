package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port            string
	PostgresDSN     string
	SecretKey       string
	TokenTTL        time.Duration
	UploadsDir      string
	UploadURLPrefix string
	MaxUploadBytes  int64
	CORSOrigins     []string
	RedisAddr       string
	RedisPassword   string
	RateLimitRPS    float64
	RateLimitBurst  int
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioBucket     string
	MinioUseSSL     bool
	LogLevel        string
	LogFormat       string
}

func Load() *Config {
	return &Config{
		Port:            getenv("PORT", "8000"),
		PostgresDSN:     getenv("POSTGRES_DSN", ""),
		SecretKey:       getenv("SECRET_KEY", ""),
		TokenTTL:        time.Duration(getenvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,
		UploadsDir:      getenv("UPLOADS_DIR", "/tmp/uploads"),
		UploadURLPrefix: strings.TrimRight(getenv("UPLOAD_URL_PREFIX", "/uploads/images"), "/"),
		MaxUploadBytes:  int64(getenvInt("MAX_UPLOAD_BYTES", 5<<20)),
		CORSOrigins:     splitList(getenv("CORS_ORIGINS", "http://localhost:3000")),
		RedisAddr:       getenv("REDIS_ADDR", ""),
		RedisPassword:   getenv("REDIS_PASSWORD", ""),
		RateLimitRPS:    getenvFloat("RATELIMIT_RPS", 5),
		RateLimitBurst:  getenvInt("RATELIMIT_BURST", 10),
		MinioEndpoint:   getenv("MINIO_ENDPOINT", ""),
		MinioAccessKey:  getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:  getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:     getenv("MINIO_BUCKET", "blog-images"),
		MinioUseSSL:     getenv("MINIO_USE_SSL", "false") == "true",
		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogFormat:       getenv("LOG_FORMAT", "json"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
