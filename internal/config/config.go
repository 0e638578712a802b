// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/seo-auditor/internal/audit"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Rules    RulesConfig    `mapstructure:"rules"`
	Scoring  ScoringConfig  `mapstructure:"scoring"`
	Audit    AuditConfig    `mapstructure:"audit"`
	DB       DBConfig       `mapstructure:"db"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// CrawlerConfig governs the BFS traversal.
type CrawlerConfig struct {
	MaxPages          int     `mapstructure:"max_pages"`
	MaxDepth          int     `mapstructure:"max_depth"`
	BatchSize         int     `mapstructure:"batch_size"`
	SameDomainOnly    bool    `mapstructure:"same_domain_only"`
	RespectRobots     bool    `mapstructure:"respect_robots"`
	RenderFallback    bool    `mapstructure:"render_fallback"`
	SitemapSeeding    bool    `mapstructure:"sitemap_seeding"`
	UserAgent         string  `mapstructure:"user_agent"`
	RequestTimeoutSec int     `mapstructure:"request_timeout_seconds"`
	RateLimitRPS      float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst    float64 `mapstructure:"rate_limit_burst"`
}

// HeadlessConfig configures the rendering subsystem.
type HeadlessConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	MaxParallel    int  `mapstructure:"max_parallel"`
	NavTimeoutSec  int  `mapstructure:"nav_timeout_seconds"`
	MinHTMLBytes   int  `mapstructure:"min_html_bytes"`
	DetectMarkup   bool `mapstructure:"detect_markup"`
	DetectBlankDOM bool `mapstructure:"detect_blank_dom"`
}

// RulesConfig points at the declarative rule definitions.
type RulesConfig struct {
	// Dir overrides the embedded default rule set when non-empty.
	Dir string `mapstructure:"dir"`
}

// ScoringConfig holds aggregation knobs.
type ScoringConfig struct {
	// MaxPenalty normalizes per-category penalties to the 0-100 scale.
	MaxPenalty float64            `mapstructure:"max_penalty"`
	Weights    map[string]float64 `mapstructure:"weights"`
}

// AuditConfig bounds a whole audit run.
type AuditConfig struct {
	BudgetSeconds int `mapstructure:"budget_seconds"`
	QueueDepth    int `mapstructure:"queue_depth"`
	Workers       int `mapstructure:"workers"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// PubSubConfig holds metadata for completion notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// SnapshotConfig controls raw HTML archiving.
type SnapshotConfig struct {
	Provider  string `mapstructure:"provider"` // gcs | memory | none
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SEOAUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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
	v.SetDefault("crawler.max_pages", 500)
	v.SetDefault("crawler.max_depth", 10)
	v.SetDefault("crawler.batch_size", 8)
	v.SetDefault("crawler.same_domain_only", true)
	v.SetDefault("crawler.respect_robots", true)
	v.SetDefault("crawler.render_fallback", false)
	v.SetDefault("crawler.sitemap_seeding", true)
	v.SetDefault("crawler.user_agent", "seo-audit-bot/1.0")
	v.SetDefault("crawler.request_timeout_seconds", 30)
	v.SetDefault("crawler.rate_limit_rps", 5.0)
	v.SetDefault("crawler.rate_limit_burst", 10)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 2)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.min_html_bytes", 1024)
	v.SetDefault("headless.detect_markup", true)
	v.SetDefault("headless.detect_blank_dom", true)
	v.SetDefault("scoring.max_penalty", 125.0)
	v.SetDefault("scoring.weights", DefaultWeights())
	v.SetDefault("audit.budget_seconds", 1800)
	v.SetDefault("audit.queue_depth", 64)
	v.SetDefault("audit.workers", 2)
	v.SetDefault("snapshot.provider", "none")
	v.SetDefault("snapshot.prefix", "audits")
	v.SetDefault("logging.development", true)
}

// DefaultWeights returns the category weights; they sum to 1.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		string(audit.CategoryTechnical):     0.20,
		string(audit.CategoryOnPage):        0.15,
		string(audit.CategoryContent):       0.15,
		string(audit.CategoryPerformance):   0.15,
		string(audit.CategoryCrawlability):  0.15,
		string(audit.CategoryInternalLinks): 0.10,
		string(audit.CategorySchema):        0.05,
		string(audit.CategoryAuthority):     0.05,
	}
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.MaxPages <= 0 {
		return fmt.Errorf("crawler.max_pages must be > 0")
	}
	if c.Crawler.MaxDepth < 0 {
		return fmt.Errorf("crawler.max_depth must be >= 0")
	}
	if c.Crawler.BatchSize <= 0 {
		return fmt.Errorf("crawler.batch_size must be > 0")
	}
	if c.Crawler.UserAgent == "" {
		return fmt.Errorf("crawler.user_agent must be set")
	}
	if c.Crawler.RateLimitRPS <= 0 {
		return fmt.Errorf("crawler.rate_limit_rps must be > 0")
	}
	if c.Crawler.RateLimitBurst < 1 {
		return fmt.Errorf("crawler.rate_limit_burst must be >= 1")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Scoring.MaxPenalty <= 0 {
		return fmt.Errorf("scoring.max_penalty must be > 0")
	}
	if err := validateWeights(c.Scoring.Weights); err != nil {
		return err
	}
	if c.Audit.BudgetSeconds <= 0 {
		return fmt.Errorf("audit.budget_seconds must be > 0")
	}
	if c.Snapshot.Provider == "gcs" && c.Snapshot.GCSBucket == "" {
		return fmt.Errorf("snapshot.gcs_bucket must be set when snapshot.provider is gcs")
	}
	return nil
}

func validateWeights(weights map[string]float64) error {
	if len(weights) == 0 {
		return fmt.Errorf("scoring.weights must not be empty")
	}
	var sum float64
	for cat, w := range weights {
		if w < 0 {
			return fmt.Errorf("scoring.weights[%s] must be >= 0", cat)
		}
		sum += w
	}
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("scoring.weights must sum to 1, got %.3f", sum)
	}
	return nil
}

// RequestTimeout converts the crawler timeout into a duration.
func (c CrawlerConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// NavTimeout converts the headless navigation timeout into a duration.
func (c HeadlessConfig) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSec) * time.Second
}

// Budget converts the audit budget into a duration.
func (c AuditConfig) Budget() time.Duration {
	return time.Duration(c.BudgetSeconds) * time.Second
}
