package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Upstream UpstreamConfig
	Auth     AuthConfig
	Site     SiteConfig
	Lists    ListsConfig
	Redis    RedisConfig
	Events   EventsConfig
	Log      LogConfig
	HTTP     HTTPConfig
	Metrics  MetricsConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Addr string
}

// UpstreamConfig locates the attorney search API
type UpstreamConfig struct {
	BaseURL    string
	APIPrefix  string // prefix for the attorney resource and attorney search paths
	SearchPath string
	FacetsPath string
	Timeout    time.Duration // 0 disables the client timeout
}

// AuthConfig holds identity provider and gate settings
type AuthConfig struct {
	ProviderURL string
	AnonKey     string
	LoginPath   string
	PublicPaths []string
}

// SiteConfig holds the externally visible base URL
type SiteConfig struct {
	BaseURL string
}

// ListsConfig selects the list storage backend
type ListsConfig struct {
	Backend   string // memory, file, redis
	KeyPrefix string
	DataDir   string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// EventsConfig selects where list events are published
type EventsConfig struct {
	Backend string // none, kafka, file
	Brokers []string
	Topic   string
	DataDir string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	Output     string // stdout, stderr, or file path
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// MetricsConfig controls the prometheus endpoint
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// legacyEnv maps config keys to the variable names used by earlier deployments.
var legacyEnv = map[string][]string{
	"upstream.base_url":   {"UPSTREAM_API_BASE_URL"},
	"upstream.api_prefix": {"UPSTREAM_API_PREFIX"},
	"auth.provider_url":   {"NEXT_PUBLIC_SUPABASE_URL"},
	"auth.anon_key":       {"NEXT_PUBLIC_SUPABASE_ANON_KEY"},
	"site.base_url":       {"NEXT_PUBLIC_SITE_URL", "SITE_URL"},
}

// Load loads configuration from .env, TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with DIRECTORY_ prefix (e.g., DIRECTORY_UPSTREAM_BASE_URL)
// 2. Legacy variable names (UPSTREAM_API_BASE_URL, NEXT_PUBLIC_SUPABASE_URL, ...)
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("DIRECTORY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range legacyEnv {
		envs := append([]string{"DIRECTORY_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Addr: v.GetString("app.addr"),
		},
		Upstream: UpstreamConfig{
			BaseURL:    v.GetString("upstream.base_url"),
			APIPrefix:  v.GetString("upstream.api_prefix"),
			SearchPath: v.GetString("upstream.search_path"),
			FacetsPath: v.GetString("upstream.facets_path"),
			Timeout:    v.GetDuration("upstream.timeout"),
		},
		Auth: AuthConfig{
			ProviderURL: v.GetString("auth.provider_url"),
			AnonKey:     v.GetString("auth.anon_key"),
			LoginPath:   v.GetString("auth.login_path"),
			PublicPaths: v.GetStringSlice("auth.public_paths"),
		},
		Site: SiteConfig{
			BaseURL: v.GetString("site.base_url"),
		},
		Lists: ListsConfig{
			Backend:   v.GetString("lists.backend"),
			KeyPrefix: v.GetString("lists.key_prefix"),
			DataDir:   v.GetString("lists.data_dir"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Events: EventsConfig{
			Backend: v.GetString("events.backend"),
			Brokers: v.GetStringSlice("events.brokers"),
			Topic:   v.GetString("events.topic"),
			DataDir: v.GetString("events.data_dir"),
		},
		Log: LogConfig{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Output:     v.GetString("log.output"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAgeDays: v.GetInt("log.max_age_days"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Path:    v.GetString("metrics.path"),
		},
	}

	// An unset timeout keeps the default; an explicit 0 disables it.
	if !v.IsSet("upstream.timeout") {
		cfg.Upstream.Timeout = 30 * time.Second
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "directory-api"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Addr == "" {
		cfg.App.Addr = ":8080"
	}
	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = "https://api.viewport.software"
	}
	if cfg.Upstream.APIPrefix == "" {
		cfg.Upstream.APIPrefix = "/v1"
	}
	if cfg.Upstream.SearchPath == "" {
		cfg.Upstream.SearchPath = "/search"
	}
	if cfg.Upstream.FacetsPath == "" {
		cfg.Upstream.FacetsPath = "/search/facets"
	}
	if cfg.Auth.LoginPath == "" {
		cfg.Auth.LoginPath = "/login"
	}
	if len(cfg.Auth.PublicPaths) == 0 {
		cfg.Auth.PublicPaths = []string{"/", "/login", "/health", "/metrics", "/_next", "/favicon.ico"}
	}
	if cfg.Site.BaseURL == "" {
		cfg.Site.BaseURL = "http://localhost:3000"
	}
	if cfg.Lists.Backend == "" {
		cfg.Lists.Backend = "memory"
	}
	if cfg.Lists.KeyPrefix == "" {
		cfg.Lists.KeyPrefix = "amlaw_lists_"
	}
	if cfg.Lists.DataDir == "" {
		cfg.Lists.DataDir = "./data/lists"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Events.Backend == "" {
		cfg.Events.Backend = "none"
	}
	if len(cfg.Events.Brokers) == 0 {
		cfg.Events.Brokers = []string{"localhost:9092"}
	}
	if cfg.Events.Topic == "" {
		cfg.Events.Topic = "lists.events"
	}
	if cfg.Events.DataDir == "" {
		cfg.Events.DataDir = "./data/events"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 10
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 7
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = 28
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 60 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	u, err := url.Parse(c.Upstream.BaseURL)
	if err != nil {
		return fmt.Errorf("upstream.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("upstream.base_url must be an http(s) URL, got %q", c.Upstream.BaseURL)
	}
	if c.Upstream.Timeout < 0 {
		return fmt.Errorf("upstream.timeout cannot be negative")
	}
	if !strings.HasPrefix(c.Auth.LoginPath, "/") {
		return fmt.Errorf("auth.login_path must start with '/', got %q", c.Auth.LoginPath)
	}

	switch c.Lists.Backend {
	case "memory", "file", "redis":
	default:
		return fmt.Errorf("lists.backend must be one of memory, file, redis; got %q", c.Lists.Backend)
	}
	switch c.Events.Backend {
	case "none", "kafka", "file":
	default:
		return fmt.Errorf("events.backend must be one of none, kafka, file; got %q", c.Events.Backend)
	}

	if c.HTTP.RateLimitEnabled && c.HTTP.RateLimitRequests <= 0 {
		return fmt.Errorf("http.rate_limit_requests must be positive")
	}

	if c.App.Env == "production" {
		if c.Auth.ProviderURL == "" || c.Auth.AnonKey == "" {
			return fmt.Errorf("auth.provider_url and auth.anon_key are required in production")
		}
		if !strings.HasPrefix(c.Site.BaseURL, "https://") {
			return fmt.Errorf("site.base_url must use https in production")
		}
	}

	return nil
}

// AuthConfigured reports whether the identity provider settings are present.
func (a AuthConfig) AuthConfigured() bool {
	return a.ProviderURL != "" && a.AnonKey != ""
}
