package config

import (
	"strings"
	"testing"
	"time"
)

func validLocal() Config {
	return Config{
		App:     AppConfig{Env: "local", Port: 8080},
		Backend: BackendConfig{BaseURL: "http://localhost:4000"},
		DB:      DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "console"},
		Redis:   RedisConfig{Host: "localhost", Port: 6379},
		Auth:    AuthConfig{JWTSecret: "secret"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validLocal()
	c.App.Env = "production"
	c.Auth.JWTIssuer = "crm"
	c.App.CORSAllowedOrigins = []string{"https://app.example.com"}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validLocal()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Confirmation.PollInterval != 10*time.Second {
		t.Fatalf("expected 10s poll interval, got %s", c.Confirmation.PollInterval)
	}
	if c.Backend.Timeout != 30*time.Second || c.Backend.CallLogLimit != 10000 {
		t.Fatalf("unexpected backend defaults: %+v", c.Backend)
	}
	if len(c.App.CORSAllowedOrigins) != 1 {
		t.Fatalf("expected local CORS default, got %v", c.App.CORSAllowedOrigins)
	}
}

func TestValidate_StoresOptionalOutsideProduction(t *testing.T) {
	c := validLocal()
	c.DB = DBConfig{}
	c.Redis = RedisConfig{}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.Enabled() || c.Redis.Enabled() {
		t.Fatalf("expected stores disabled")
	}

	c.App.Env = "production"
	c.Auth.JWTIssuer = "crm"
	c.App.CORSAllowedOrigins = []string{"https://app.example.com"}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected production to require DB_HOST and REDIS_HOST")
	}
}

func TestValidate_DefaultPorts(t *testing.T) {
	c := validLocal()
	c.DB.Port = 0
	c.Redis.Port = 0
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.Port != 5432 || c.Redis.Port != 6379 {
		t.Fatalf("unexpected default ports %d %d", c.DB.Port, c.Redis.Port)
	}
}

func TestValidate_RejectsRelativeBackendURL(t *testing.T) {
	c := validLocal()
	c.Backend.BaseURL = "api.example.com"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for relative BACKEND_URL")
	}
}

func TestValidate_RejectsSubSecondPolling(t *testing.T) {
	c := validLocal()
	c.Confirmation.PollInterval = 200 * time.Millisecond
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for sub-second poll interval")
	}
}

func TestLoadBackend(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://crm.example.com/api/")
	t.Setenv("BACKEND_TOKEN", "tok")
	t.Setenv("BACKEND_TIMEOUT", "5s")
	t.Setenv("CALL_LOG_LIMIT", "")

	b, err := LoadBackend(t.TempDir() + "/missing.env")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if b.BaseURL != "https://crm.example.com/api" || b.Token != "tok" || b.Timeout != 5*time.Second || b.CallLogLimit != 10000 {
		t.Fatalf("unexpected backend config %+v", b)
	}

	t.Setenv("BACKEND_URL", "")
	if _, err := LoadBackend(t.TempDir() + "/missing.env"); err == nil {
		t.Fatalf("expected error without BACKEND_URL")
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" https://a.example.com, ,https://b.example.com ")
	if len(got) != 2 || got[0] != "https://a.example.com" || got[1] != "https://b.example.com" {
		t.Fatalf("unexpected list: %v", got)
	}
}

func TestLoad_ReportsMalformedValues(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("APP_PORT", "eighty")
	t.Setenv("BACKEND_URL", "http://localhost:4000")
	t.Setenv("BACKEND_TIMEOUT", "soon")
	t.Setenv("JWT_SECRET", "secret")

	_, err := Load(t.TempDir() + "/missing.env")
	if err == nil {
		t.Fatalf("expected parse errors")
	}
	for _, key := range []string{"APP_PORT", "BACKEND_TIMEOUT"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("expected %s in %v", key, err)
		}
	}
}
