package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the console API settings. Values come from env; a local
// .env file is loaded first when present.
type Config struct {
	App          AppConfig
	Backend      BackendConfig
	DB           DBConfig
	Redis        RedisConfig
	Auth         AuthConfig
	Confirmation ConfirmationConfig
	Log          LogConfig
}

type AppConfig struct {
	Env  string
	Port int

	// CORSAllowedOrigins lists browser origins allowed to call the API.
	CORSAllowedOrigins []string
}

// BackendConfig points at the CRM backend the console forwards to.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration

	// CallLogLimit is the ?limit= passed when fetching call logs for KPIs.
	CallLogLimit int

	// Token is a static bearer token for crmctl. The console API always
	// forwards the caller's own token instead.
	Token string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

func (d DBConfig) Enabled() bool { return d.Host != "" }

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

func (r RedisConfig) Enabled() bool { return r.Host != "" }

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type ConfirmationConfig struct {
	// PollInterval is how often sent SMS records are re-fetched to pick up
	// contract confirmations missed by the push channel.
	PollInterval time.Duration

	// WebhookSecret guards the internal confirmation webhook. The route is
	// not mounted when empty.
	WebhookSecret string
}

type LogConfig struct {
	File string
}

// Load reads configuration from the environment. envFiles are optional
// dotenv files; missing files are ignored. Parse and validation problems
// are reported together.
func Load(envFiles ...string) (Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return Config{}, err
	}

	var e envReader
	c := Config{
		App: AppConfig{
			Env:                e.str("APP_ENV"),
			Port:               e.requiredInt("APP_PORT"),
			CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		},
		Backend: backendFromEnv(&e),
		DB: DBConfig{
			Host:     e.str("DB_HOST"),
			Port:     e.int("DB_PORT"),
			User:     e.str("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     e.str("DB_NAME"),
			SSLMode:  e.str("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     e.str("REDIS_HOST"),
			Port:     e.int("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Auth: AuthConfig{
			JWTSecret:       os.Getenv("JWT_SECRET"),
			JWTIssuer:       e.str("JWT_ISSUER"),
			JWTAudience:     e.str("JWT_AUDIENCE"),
			AccessTokenTTL:  e.duration("JWT_ACCESS_TTL"),
			RefreshTokenTTL: e.duration("JWT_REFRESH_TTL"),
		},
		Confirmation: ConfirmationConfig{
			PollInterval:  e.duration("CONFIRMATION_POLL_INTERVAL"),
			WebhookSecret: os.Getenv("CONFIRMATION_WEBHOOK_SECRET"),
		},
		Log: LogConfig{File: e.str("LOG_FILE")},
	}

	if err := joinErrors(e.errs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadBackend reads only the backend settings, for tools that talk to the
// CRM backend without running the console API.
func LoadBackend(envFiles ...string) (BackendConfig, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return BackendConfig{}, err
	}
	var e envReader
	b := backendFromEnv(&e)
	if err := joinErrors(e.errs); err != nil {
		return BackendConfig{}, err
	}
	if err := b.validate(); err != nil {
		return BackendConfig{}, err
	}
	return b, nil
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func backendFromEnv(e *envReader) BackendConfig {
	return BackendConfig{
		BaseURL:      strings.TrimRight(e.str("BACKEND_URL"), "/"),
		Timeout:      e.duration("BACKEND_TIMEOUT"),
		CallLogLimit: e.int("CALL_LOG_LIMIT"),
		Token:        e.str("BACKEND_TOKEN"),
	}
}

// validate checks the URL and fills defaults.
func (b *BackendConfig) validate() error {
	if b.Timeout <= 0 {
		b.Timeout = 30 * time.Second
	}
	if b.CallLogLimit <= 0 {
		b.CallLogLimit = 10000
	}
	if b.BaseURL == "" {
		return errors.New("BACKEND_URL is required")
	}
	if u, err := url.Parse(b.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_URL must be an absolute URL, got %q", b.BaseURL)
	}
	return nil
}

// Validate checks required values and fills env-dependent defaults.
func (c *Config) Validate() error {
	var errs []error
	errs = append(errs, c.validateApp()...)
	if err := c.Backend.validate(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, c.validateStores()...)
	errs = append(errs, c.validateAuth()...)

	switch {
	case c.Confirmation.PollInterval <= 0:
		c.Confirmation.PollInterval = 10 * time.Second
	case c.Confirmation.PollInterval < time.Second:
		errs = append(errs, fmt.Errorf("CONFIRMATION_POLL_INTERVAL must be at least 1s, got %s", c.Confirmation.PollInterval))
	}
	return joinErrors(errs)
}

func (c *Config) validateApp() []error {
	var errs []error
	switch c.App.Env {
	case "":
		errs = append(errs, errors.New("APP_ENV is required"))
	case "local", "dev", "staging", "production":
	default:
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if !validPort(c.App.Port) {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	if len(c.App.CORSAllowedOrigins) == 0 {
		if c.IsProduction() {
			errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS is required in production"))
		} else {
			c.App.CORSAllowedOrigins = []string{"http://localhost:3000"}
		}
	}
	return errs
}

// validateStores checks Postgres and Redis. Both are optional outside
// production; without them the activity log, move guard and push channel
// run in memory.
func (c *Config) validateStores() []error {
	var errs []error
	if c.IsProduction() {
		if !c.DB.Enabled() {
			errs = append(errs, errors.New("DB_HOST is required in production"))
		}
		if !c.Redis.Enabled() {
			errs = append(errs, errors.New("REDIS_HOST is required in production"))
		}
	}

	if c.DB.Enabled() {
		if c.DB.Port == 0 {
			c.DB.Port = 5432
		}
		if !validPort(c.DB.Port) {
			errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
		}
		if c.DB.User == "" {
			errs = append(errs, errors.New("DB_USER is required"))
		}
		if c.DB.Name == "" {
			errs = append(errs, errors.New("DB_NAME is required"))
		}
		switch c.DB.SSLMode {
		case "disable", "require", "verify-ca", "verify-full":
		case "":
			if c.IsProduction() {
				errs = append(errs, errors.New("DB_SSLMODE is required in production"))
			} else {
				c.DB.SSLMode = "disable"
			}
		default:
			errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
		}
	}

	if c.Redis.Enabled() {
		if c.Redis.Port == 0 {
			c.Redis.Port = 6379
		}
		if !validPort(c.Redis.Port) {
			errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
		}
	}
	return errs
}

func (c *Config) validateAuth() []error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() && c.Auth.JWTIssuer == "" {
		errs = append(errs, errors.New("JWT_ISSUER is required in production"))
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}
	return errs
}

func (c Config) IsProduction() bool { return c.App.Env == "production" }

func (c Config) HTTPAddr() string { return fmt.Sprintf(":%d", c.App.Port) }

// PostgresDSN contains the password; never log it.
func (c Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode)
}

func (c Config) RedisAddr() string { return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port) }

// envReader reads trimmed env values and collects parse errors so that
// every malformed key is reported at once. Empty values read as zero.
type envReader struct {
	errs []error
}

func (e *envReader) str(key string) string { return strings.TrimSpace(os.Getenv(key)) }

func (e *envReader) int(key string) int {
	v := e.str(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s must be an integer, got %q", key, v))
	}
	return n
}

func (e *envReader) requiredInt(key string) int {
	if e.str(key) == "" {
		e.errs = append(e.errs, fmt.Errorf("%s is required", key))
		return 0
	}
	return e.int(key)
}

func (e *envReader) duration(key string) time.Duration {
	v := e.str(key)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s must be a duration like 30s, got %q", key, v))
	}
	return d
}

func validPort(p int) bool { return p > 0 && p <= 65535 }

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func joinErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = "- " + e.Error()
	}
	return errors.New("config errors:\n" + strings.Join(msgs, "\n"))
}
