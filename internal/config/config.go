// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/crystalpeak/camcapture/internal/capture"
)

// Config captures all service configuration knobs loaded via Viper. Secrets
// (webhook secret, render API key, DSN) are read once at startup and carried
// in this struct rather than through ambient globals.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Capture CaptureConfig `mapstructure:"capture"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Render  RenderConfig  `mapstructure:"render"`
	Storage StorageConfig `mapstructure:"storage"`
	DB      DBConfig      `mapstructure:"db"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// AuthConfig holds the shared secret expected from the capture scheduler.
type AuthConfig struct {
	WebhookSecret string `mapstructure:"webhook_secret"`
}

// CaptureConfig governs run behavior and content policy.
type CaptureConfig struct {
	AllowedDomains        []string               `mapstructure:"allowed_domains"`
	MaxImageBytes         int64                  `mapstructure:"max_image_bytes"`
	LocalUTCOffsetMinutes int                    `mapstructure:"local_utc_offset_minutes"`
	TimeSlots             []capture.SlotBoundary `mapstructure:"time_slots"`
	Concurrency           int                    `mapstructure:"concurrency"`
}

// HTTPConfig configures the direct-fetch HTTP client.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// RenderConfig selects and configures the render provider for
// screenshot-based sources.
type RenderConfig struct {
	Provider string         `mapstructure:"provider"`
	Urlbox   UrlboxConfig   `mapstructure:"urlbox"`
	Chromedp ChromedpConfig `mapstructure:"chromedp"`
}

// UrlboxConfig configures the urlbox sync render API client.
type UrlboxConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	APIKey         string `mapstructure:"api_key"`
	Width          int    `mapstructure:"width"`
	Height         int    `mapstructure:"height"`
	Format         string `mapstructure:"format"`
	DelayMS        int    `mapstructure:"delay_ms"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ChromedpConfig configures the local headless renderer.
type ChromedpConfig struct {
	MaxParallel       int `mapstructure:"max_parallel"`
	NavTimeoutSeconds int `mapstructure:"nav_timeout_seconds"`
}

// StorageConfig sets blob persistence behavior.
type StorageConfig struct {
	Provider     string `mapstructure:"provider"`
	GCSBucket    string `mapstructure:"gcs_bucket"`
	Prefix       string `mapstructure:"prefix"`
	CacheControl string `mapstructure:"cache_control"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN            string `mapstructure:"dsn"`
	CamerasTable   string `mapstructure:"cameras_table"`
	SnapshotsTable string `mapstructure:"snapshots_table"`
	MaxConns       int32  `mapstructure:"max_conns"`
}

// PubSubConfig holds metadata for capture-run event notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CAMCAPTURE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Secrets and deployment-specific values carry no defaults, and Viper
	// only consults the environment for keys it already knows about. Each
	// one is bound explicitly so CAMCAPTURE_* works without a config file.
	for _, key := range []string{
		"auth.webhook_secret",
		"render.urlbox.api_key",
		"db.dsn",
		"db.max_conns",
		"storage.gcs_bucket",
		"storage.prefix",
		"pubsub.project_id",
		"pubsub.topic_name",
	} {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 300)
	v.SetDefault("capture.allowed_domains", []string{
		"backend.roundshot.com",
		"api.urlbox.io",
		"urlbox.io",
		"s3.urlbox.io",
	})
	v.SetDefault("capture.max_image_bytes", capture.DefaultMaxImageBytes)
	v.SetDefault("capture.local_utc_offset_minutes", capture.DefaultUTCOffsetMinutes)
	v.SetDefault("capture.concurrency", 1)
	v.SetDefault("http.timeout_seconds", 10)
	v.SetDefault("http.user_agent", "camcapture/1.0")
	v.SetDefault("render.provider", "urlbox")
	v.SetDefault("render.urlbox.endpoint", "https://api.urlbox.io/v1/render/sync")
	v.SetDefault("render.urlbox.width", 1920)
	v.SetDefault("render.urlbox.height", 1080)
	v.SetDefault("render.urlbox.format", "jpg")
	v.SetDefault("render.urlbox.delay_ms", 15000)
	v.SetDefault("render.urlbox.timeout_seconds", 60)
	v.SetDefault("render.chromedp.max_parallel", 1)
	v.SetDefault("render.chromedp.nav_timeout_seconds", 45)
	v.SetDefault("storage.provider", "gcs")
	v.SetDefault("storage.cache_control", "public, max-age=3600")
	v.SetDefault("db.cameras_table", "cameras")
	v.SetDefault("db.snapshots_table", "snapshots")
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if len(c.Capture.AllowedDomains) == 0 {
		return fmt.Errorf("capture.allowed_domains must not be empty")
	}
	if c.Capture.MaxImageBytes <= 0 {
		return fmt.Errorf("capture.max_image_bytes must be > 0")
	}
	if c.Capture.Concurrency < 1 {
		return fmt.Errorf("capture.concurrency must be >= 1")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	switch c.Render.Provider {
	case "urlbox", "chromedp":
	default:
		return fmt.Errorf("render.provider must be urlbox or chromedp, got %q", c.Render.Provider)
	}
	switch c.Storage.Provider {
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set when storage.provider is gcs")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.provider must be gcs or memory, got %q", c.Storage.Provider)
	}
	return nil
}

// SlotBoundaries returns the configured boundary table, falling back to the
// default three-slot table.
func (c Config) SlotBoundaries() []capture.SlotBoundary {
	if len(c.Capture.TimeSlots) == 0 {
		return capture.DefaultSlotBoundaries()
	}
	return c.Capture.TimeSlots
}

// FetchTimeout is the per-request budget for direct image fetches.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// RequestTimeout bounds one inbound capture invocation. Capture runs visit
// every camera, so the budget is generous.
func (c Config) RequestTimeout() time.Duration {
	if c.Server.RequestTimeoutSeconds <= 0 {
		return 300 * time.Second
	}
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}
