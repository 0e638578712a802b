package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/seo-auditor/internal/analysis"
	"github.com/JakeFAU/seo-auditor/internal/audit"
	"github.com/JakeFAU/seo-auditor/internal/auditor"
	"github.com/JakeFAU/seo-auditor/internal/config"
	"github.com/JakeFAU/seo-auditor/internal/crawler"
	collyfetcher "github.com/JakeFAU/seo-auditor/internal/fetcher/colly"
	"github.com/JakeFAU/seo-auditor/internal/fetcher/headless"
	"github.com/JakeFAU/seo-auditor/internal/prioritize"
	pubmem "github.com/JakeFAU/seo-auditor/internal/publisher/memory"
	"github.com/JakeFAU/seo-auditor/internal/publisher/pubsub"
	"github.com/JakeFAU/seo-auditor/internal/ratelimit"
	"github.com/JakeFAU/seo-auditor/internal/rules"
	"github.com/JakeFAU/seo-auditor/internal/scoring"
	"github.com/JakeFAU/seo-auditor/internal/snapshot"
	storemem "github.com/JakeFAU/seo-auditor/internal/store/memory"
	"github.com/JakeFAU/seo-auditor/internal/store/postgres"
)

// pipeline holds the assembled audit engine and everything that needs
// closing when the process exits.
type pipeline struct {
	store   audit.Store
	auditor *auditor.Auditor
	logger  *zap.Logger
	closers []func() error
}

// Close shuts components down in reverse construction order.
func (p *pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			p.logger.Warn("close failed", zap.Error(err))
		}
	}
}

// buildPipeline assembles the full engine from configuration: rule
// registry, fetchers, crawler factory, analysis, scoring,
// prioritization, storage, eventing, and snapshot archiving.
func buildPipeline(ctx context.Context, cfg config.Config, logger *zap.Logger) (*pipeline, error) {
	p := &pipeline{logger: logger}

	registry, err := loadRules(cfg.Rules)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	logger.Info("rules loaded", zap.Int("count", registry.Len()))
	for _, cat := range audit.Categories() {
		if lerr := registry.LoadError(cat); lerr != nil {
			logger.Warn("rule category disabled by validation failure",
				zap.String("category", string(cat)), zap.Error(lerr))
		}
	}

	fetch := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Crawler.UserAgent,
		Timeout:   cfg.Crawler.RequestTimeout(),
	})

	var renderer audit.Fetcher
	if cfg.Headless.Enabled {
		headlessFetcher, err := headless.NewChromedp(headless.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.Crawler.UserAgent,
			NavigationTimeout: cfg.Headless.NavTimeout(),
		})
		if err != nil {
			return nil, fmt.Errorf("init headless fetcher: %w", err)
		}
		p.closers = append(p.closers, func() error {
			headlessFetcher.Close()
			return nil
		})
		renderer = headlessFetcher
	}
	renderFallback := cfg.Crawler.RenderFallback && renderer != nil

	var detector audit.RenderDetector = crawler.NoRender{}
	if renderFallback {
		detector = crawler.NewHeuristicDetector(cfg.Headless.MinHTMLBytes)
	}

	limiter := ratelimit.New(cfg.Crawler.RateLimitRPS, cfg.Crawler.RateLimitBurst)

	store, err := buildStore(ctx, cfg.DB, p)
	if err != nil {
		return nil, err
	}
	p.store = store

	publisher, err := buildPublisher(ctx, cfg.PubSub, p, logger)
	if err != nil {
		return nil, err
	}

	archiver, err := buildArchiver(ctx, cfg.Snapshot, p, logger)
	if err != nil {
		return nil, err
	}

	// The factory runs per audit so every run gets a fresh robots
	// cache and a snapshot hook bound to its audit id.
	var adt *auditor.Auditor
	factory := func(auditID string) auditor.Crawler {
		var robots audit.RobotsPolicy = crawler.AllowAll{}
		if cfg.Crawler.RespectRobots {
			robots = crawler.NewRobotsEnforcer(cfg.Crawler.UserAgent, logger)
		}
		return crawler.New(fetch, renderer, robots, detector, limiter, crawler.Options{
			MaxPages:       cfg.Crawler.MaxPages,
			MaxDepth:       cfg.Crawler.MaxDepth,
			BatchSize:      cfg.Crawler.BatchSize,
			SameDomainOnly: cfg.Crawler.SameDomainOnly,
			RenderFallback: renderFallback,
			SitemapSeeding: cfg.Crawler.SitemapSeeding,
			Snapshot:       adt.SnapshotHook(auditID),
		}, logger)
	}

	adt = auditor.New(auditor.Options{
		NewCrawler:  factory,
		Coordinator: analysis.NewCoordinator(registry, logger),
		Scorer:      scoring.New(cfg.Scoring.Weights, cfg.Scoring.MaxPenalty, logger),
		Ranker:      prioritize.New(prioritize.SeverityTraffic{}, registry, logger),
		Store:       store,
		Publisher:   publisher,
		Archiver:    archiver,
		Topic:       cfg.PubSub.TopicName,
		Budget:      cfg.Audit.Budget(),
		Logger:      logger,
	})
	p.auditor = adt

	return p, nil
}

func loadRules(cfg config.RulesConfig) (*rules.Registry, error) {
	if cfg.Dir != "" {
		return rules.LoadDir(cfg.Dir)
	}
	return rules.LoadDefault()
}

func buildStore(ctx context.Context, cfg config.DBConfig, p *pipeline) (audit.Store, error) {
	if cfg.DSN == "" {
		return storemem.New(), nil
	}
	store, pool, err := postgres.Connect(ctx, cfg.DSN, cfg.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	p.closers = append(p.closers, func() error {
		pool.Close()
		return nil
	})
	return store, nil
}

func buildPublisher(ctx context.Context, cfg config.PubSubConfig, p *pipeline, logger *zap.Logger) (audit.Publisher, error) {
	if cfg.ProjectID == "" {
		return pubmem.New(), nil
	}
	publisher, err := pubsub.New(ctx, cfg.ProjectID, logger)
	if err != nil {
		return nil, fmt.Errorf("connect pubsub: %w", err)
	}
	p.closers = append(p.closers, publisher.Close)
	return publisher, nil
}

func buildArchiver(ctx context.Context, cfg config.SnapshotConfig, p *pipeline, logger *zap.Logger) (*snapshot.Archiver, error) {
	var store audit.BlobStore
	switch cfg.Provider {
	case "gcs":
		gcs, err := snapshot.NewGCSStore(ctx, cfg.GCSBucket)
		if err != nil {
			return nil, fmt.Errorf("connect gcs: %w", err)
		}
		p.closers = append(p.closers, gcs.Close)
		store = gcs
	case "memory":
		store = snapshot.NewMemoryStore()
	case "none", "":
		// Archiving stays disabled.
	default:
		return nil, fmt.Errorf("unknown snapshot provider %q", cfg.Provider)
	}
	return snapshot.NewArchiver(store, cfg.Prefix, logger), nil
}
