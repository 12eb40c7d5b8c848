package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Plan tiers in ascending order of entitlement.
const (
	PlanFree    = "free"
	PlanBasic   = "basic"
	PlanPremium = "premium"
)

// PlanOrder is the canonical tier ordering used for ceiling and template checks.
var PlanOrder = []string{PlanFree, PlanBasic, PlanPremium}

type Config struct {
	Server    ServerConfig          `mapstructure:"server"`
	Database  DatabaseConfig        `mapstructure:"database"`
	Redis     RedisConfig           `mapstructure:"redis"`
	JWT       JWTConfig             `mapstructure:"jwt"`
	Storage   StorageConfig         `mapstructure:"storage"`
	OAuth     OAuthConfig           `mapstructure:"oauth"`
	Email     EmailConfig           `mapstructure:"email"`
	Queue     QueueConfig           `mapstructure:"queue"`
	CORS      CORSConfig            `mapstructure:"cors"`
	Plans     map[string]PlanConfig `mapstructure:"plans"`
	Templates []TemplateConfig      `mapstructure:"templates"`
	Upload    UploadConfig          `mapstructure:"upload"`
	Wizard    WizardConfig          `mapstructure:"wizard"`
	Payment   PaymentConfig         `mapstructure:"payment"`
	Site      SiteConfig            `mapstructure:"site"`
	RateLimit RateLimitConfig       `mapstructure:"rate_limit"`
	Log       LogConfig             `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // mysql, postgres, sqlite
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	Path         string `mapstructure:"path"` // sqlite file
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type StorageConfig struct {
	Driver string    `mapstructure:"driver"` // oss, s3
	OSS    OSSConfig `mapstructure:"oss"`
	S3     S3Config  `mapstructure:"s3"`
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
	CDNDomain       string `mapstructure:"cdn_domain"`
}

type S3Config struct {
	Region        string `mapstructure:"region"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	Bucket        string `mapstructure:"bucket"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	UsePathStyle  bool   `mapstructure:"use_path_style"`
}

type OAuthConfig struct {
	Github GithubOAuthConfig `mapstructure:"github"`
}

type GithubOAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
}

type EmailConfig struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type QueueConfig struct {
	NotificationQueue string `mapstructure:"notification_queue"`
	MaxWorkers        int    `mapstructure:"max_workers"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// PlanConfig is one entitlement bundle. Prices are in the smallest currency unit.
type PlanConfig struct {
	DisplayName  string `mapstructure:"display_name"`
	MaxPhotos    int    `mapstructure:"max_photos"`
	MaxVideos    int    `mapstructure:"max_videos"`
	MaxMusic     int    `mapstructure:"max_music"`
	Price        int64  `mapstructure:"price"`
	DurationDays int    `mapstructure:"duration_days"`
}

type TemplateConfig struct {
	ID          string `mapstructure:"id"`
	DisplayName string `mapstructure:"display_name"`
	MinPlan     string `mapstructure:"min_plan"`
	Description string `mapstructure:"description"`
}

type UploadConfig struct {
	TempDir       string `mapstructure:"temp_dir"`
	ExpireHours   int    `mapstructure:"expire_hours"`
	MaxPhotoBytes int64  `mapstructure:"max_photo_bytes"`
	MaxVideoBytes int64  `mapstructure:"max_video_bytes"`
	MaxAudioBytes int64  `mapstructure:"max_audio_bytes"`
}

type WizardConfig struct {
	DefaultPlan   string `mapstructure:"default_plan"`
	DraftTTLHours int    `mapstructure:"draft_ttl_hours"`
}

type PaymentConfig struct {
	SecretKey       string `mapstructure:"secret_key"`
	WebhookSecret   string `mapstructure:"webhook_secret"`
	Currency        string `mapstructure:"currency"`
	SuccessURL      string `mapstructure:"success_url"`
	CancelURL       string `mapstructure:"cancel_url"`
	PendingTTLHours int    `mapstructure:"pending_ttl_hours"`
}

type SiteConfig struct {
	PublicBaseURL   string `mapstructure:"public_base_url"`
	CacheTTLMinutes int    `mapstructure:"cache_ttl_minutes"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, console
}

// Plan returns the configuration of a tier.
func (c *Config) Plan(tier string) (PlanConfig, bool) {
	p, ok := c.Plans[tier]
	return p, ok
}

// Validate checks invariants that the rest of the service relies on.
func (c *Config) Validate() error {
	var prev *PlanConfig
	for _, tier := range PlanOrder {
		p, ok := c.Plan(tier)
		if !ok {
			return fmt.Errorf("plan %q is not configured", tier)
		}
		if p.DurationDays <= 0 {
			return fmt.Errorf("plan %q: duration_days must be positive", tier)
		}
		if prev != nil && (p.MaxPhotos < prev.MaxPhotos || p.MaxVideos < prev.MaxVideos || p.MaxMusic < prev.MaxMusic) {
			return fmt.Errorf("plan %q: media ceilings must not decrease from the previous tier", tier)
		}
		cur := p
		prev = &cur
	}

	if _, ok := c.Plans[c.Wizard.DefaultPlan]; !ok {
		return fmt.Errorf("wizard.default_plan %q is not a configured plan", c.Wizard.DefaultPlan)
	}

	if len(c.Templates) == 0 {
		return errors.New("at least one template must be configured")
	}
	for _, t := range c.Templates {
		if _, ok := c.Plans[t.MinPlan]; !ok {
			return fmt.Errorf("template %q: unknown min_plan %q", t.ID, t.MinPlan)
		}
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)

	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("jwt.expire_hours", 168)

	v.SetDefault("storage.driver", "oss")

	v.SetDefault("queue.notification_queue", "notifications")
	v.SetDefault("queue.max_workers", 2)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Authorization", "X-Site-Password"})

	v.SetDefault("plans", map[string]interface{}{
		PlanFree: map[string]interface{}{
			"display_name": "Gratuito", "max_photos": 2, "max_videos": 0, "max_music": 0,
			"price": 0, "duration_days": 7,
		},
		PlanBasic: map[string]interface{}{
			"display_name": "Básico", "max_photos": 5, "max_videos": 1, "max_music": 1,
			"price": 1990, "duration_days": 365,
		},
		PlanPremium: map[string]interface{}{
			"display_name": "Premium", "max_photos": 10, "max_videos": 3, "max_music": 3,
			"price": 2990, "duration_days": 36500,
		},
	})
	v.SetDefault("templates", []map[string]interface{}{
		{"id": "classic", "display_name": "Clássico", "min_plan": PlanFree},
		{"id": "romantic", "display_name": "Romântico", "min_plan": PlanBasic},
		{"id": "galaxy", "display_name": "Galáxia", "min_plan": PlanPremium},
	})

	v.SetDefault("upload.temp_dir", filepath.Join(os.TempDir(), "amor-staging"))
	v.SetDefault("upload.expire_hours", 24)
	v.SetDefault("upload.max_photo_bytes", 5<<20)
	v.SetDefault("upload.max_video_bytes", 30<<20)
	v.SetDefault("upload.max_audio_bytes", 10<<20)

	v.SetDefault("wizard.default_plan", PlanBasic)
	v.SetDefault("wizard.draft_ttl_hours", 24)

	v.SetDefault("payment.currency", "brl")
	v.SetDefault("payment.success_url", "http://localhost:8080/api/v1/checkout/return?status=success&session_id={CHECKOUT_SESSION_ID}")
	v.SetDefault("payment.cancel_url", "http://localhost:8080/api/v1/checkout/return?status=cancel&session_id={CHECKOUT_SESSION_ID}")
	v.SetDefault("payment.pending_ttl_hours", 24)

	v.SetDefault("site.public_base_url", "http://localhost:3000")
	v.SetDefault("site.cache_ttl_minutes", 5)

	v.SetDefault("rate_limit.requests_per_second", 2)
	v.SetDefault("rate_limit.burst", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Defaults returns the built-in configuration without reading any file.
func Defaults() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func Load(configPath string) (*Config, error) {
	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()

	// config.local.yaml holds real secrets and is never committed.
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")
	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
