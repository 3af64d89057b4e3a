package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "ACCESS_TOKEN_EXPIRE_MINUTES", "UPLOADS_DIR", "CORS_ORIGINS", "MAX_UPLOAD_BYTES"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Port != "8000" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if cfg.TokenTTL != 30*time.Minute {
		t.Fatalf("token ttl = %v", cfg.TokenTTL)
	}
	if cfg.MaxUploadBytes != 5<<20 {
		t.Fatalf("max upload = %d", cfg.MaxUploadBytes)
	}
	if !reflect.DeepEqual(cfg.CORSOrigins, []string{"http://localhost:3000"}) {
		t.Fatalf("cors origins = %v", cfg.CORSOrigins)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "90")
	t.Setenv("UPLOAD_URL_PREFIX", "/static/img/")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("RATELIMIT_RPS", "not-a-number")

	cfg := Load()
	if !reflect.DeepEqual(cfg.CORSOrigins, []string{"https://a.example", "https://b.example"}) {
		t.Fatalf("cors origins = %v", cfg.CORSOrigins)
	}
	if cfg.TokenTTL != 90*time.Minute {
		t.Fatalf("token ttl = %v", cfg.TokenTTL)
	}
	if cfg.UploadURLPrefix != "/static/img" {
		t.Fatalf("prefix = %q", cfg.UploadURLPrefix)
	}
	if !cfg.MinioUseSSL {
		t.Fatal("expected MinioUseSSL")
	}
	if cfg.RateLimitRPS != 5 {
		t.Fatalf("rps fallback = %v", cfg.RateLimitRPS)
	}
}
