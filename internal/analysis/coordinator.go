package analysis

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/seo-auditor/internal/audit"
	"github.com/JakeFAU/seo-auditor/internal/metrics"
	"github.com/JakeFAU/seo-auditor/internal/rules"
)

// CategoryResult is one engine's outcome. A failed engine carries its
// error and an empty issue list; the category is later excluded from
// the overall score rather than dragging it to zero.
type CategoryResult struct {
	Category audit.Category
	Status   audit.EngineStatus
	Issues   []audit.Issue
	Err      error
}

// Coordinator fans the category engines out in parallel and gathers
// their results at a barrier. One engine failing never aborts the
// others; only context cancellation stops the whole analysis.
type Coordinator struct {
	engines []*CategoryEngine
	logger  *zap.Logger
}

// NewCoordinator builds a coordinator with one engine per category.
func NewCoordinator(reg *rules.Registry, logger *zap.Logger) *Coordinator {
	engines := make([]*CategoryEngine, 0, len(audit.Categories()))
	for _, cat := range audit.Categories() {
		engines = append(engines, NewCategoryEngine(cat, reg, logger))
	}
	return &Coordinator{engines: engines, logger: logger}
}

// Analyze evaluates all categories over the crawled pages. Fact trees
// are built once and shared read-only across engines. Results come
// back in stable category order.
func (c *Coordinator) Analyze(ctx context.Context, pages []audit.Page) ([]CategoryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pageFacts := make([]rules.Facts, len(pages))
	for i, p := range pages {
		pageFacts[i] = PageFacts(p)
	}
	siteFacts := SiteFacts(pages)

	results := make([]CategoryResult, len(c.engines))
	var wg sync.WaitGroup
	for i, engine := range c.engines {
		wg.Add(1)
		go func(i int, engine *CategoryEngine) {
			defer wg.Done()
			results[i] = c.runEngine(ctx, engine, pages, pageFacts, siteFacts)
		}(i, engine)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Coordinator) runEngine(ctx context.Context, engine *CategoryEngine, pages []audit.Page, pageFacts []rules.Facts, siteFacts rules.Facts) (res CategoryResult) {
	res.Category = engine.Category()

	// A panicking engine is recorded as failed, isolated from its
	// siblings.
	defer func() {
		if r := recover(); r != nil {
			res.Status = audit.EngineFailed
			res.Issues = nil
			res.Err = fmt.Errorf("engine %s panicked: %v", engine.Category(), r)
			metrics.EngineFailures.WithLabelValues(string(engine.Category())).Inc()
			c.logger.Error("category engine panicked",
				zap.String("category", string(engine.Category())),
				zap.Any("panic", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		res.Status = audit.EngineFailed
		res.Err = err
		return res
	}

	issues, err := engine.Analyze(pages, pageFacts, siteFacts)
	if err != nil {
		res.Status = audit.EngineFailed
		res.Err = err
		metrics.EngineFailures.WithLabelValues(string(engine.Category())).Inc()
		c.logger.Warn("category engine failed",
			zap.String("category", string(engine.Category())),
			zap.Error(err))
		return res
	}

	res.Status = audit.EngineSuccess
	res.Issues = issues
	return res
}
