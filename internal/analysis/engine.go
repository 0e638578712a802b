package analysis

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/JakeFAU/seo-auditor/internal/audit"
	"github.com/JakeFAU/seo-auditor/internal/rules"
)

// CategoryEngine evaluates one category's rules over the crawled
// pages. Engines share the read-only pages and fact trees but never
// any mutable state, so the coordinator can run all of them in
// parallel.
type CategoryEngine struct {
	category audit.Category
	rules    []rules.Rule
	loadErr  error
	logger   *zap.Logger
}

// NewCategoryEngine builds an engine over the given rule set. A
// category whose rules failed validation yields an engine that fails
// every analysis with the load error.
func NewCategoryEngine(category audit.Category, reg *rules.Registry, logger *zap.Logger) *CategoryEngine {
	return &CategoryEngine{
		category: category,
		rules:    reg.ForCategory(category),
		loadErr:  reg.LoadError(category),
		logger:   logger,
	}
}

// Category names the dimension this engine covers.
func (e *CategoryEngine) Category() audit.Category {
	return e.category
}

// Analyze runs every rule against every page (and site-scoped rules
// against the aggregate facts) and folds matches into one issue per
// rule with all affected URLs attached.
func (e *CategoryEngine) Analyze(pages []audit.Page, pageFacts []rules.Facts, siteFacts rules.Facts) ([]audit.Issue, error) {
	if e.loadErr != nil {
		return nil, fmt.Errorf("%s rules failed to load: %w", e.category, e.loadErr)
	}
	if len(pages) != len(pageFacts) {
		return nil, fmt.Errorf("%s: %d pages but %d fact trees", e.category, len(pages), len(pageFacts))
	}

	affected := map[string][]string{}
	for _, rule := range e.rules {
		switch rule.EffectiveScope() {
		case rules.ScopeSite:
			if rule.Matches(siteFacts) {
				affected[rule.ID] = []string{}
			}
		default:
			for i, facts := range pageFacts {
				if rule.Matches(facts) {
					affected[rule.ID] = append(affected[rule.ID], pages[i].URL)
				}
			}
		}
	}

	issues := make([]audit.Issue, 0, len(affected))
	for _, rule := range e.rules {
		urls, matched := affected[rule.ID]
		if !matched {
			continue
		}
		sort.Strings(urls)
		issues = append(issues, audit.Issue{
			RuleID:         rule.ID,
			Name:           rule.Name,
			Category:       rule.Category,
			Severity:       rule.Severity,
			ImpactScore:    rule.ImpactScore,
			EffortScore:    rule.EffortScore,
			AffectedURLs:   urls,
			Recommendation: rule.Recommendation,
		})
	}

	e.logger.Debug("category analyzed",
		zap.String("category", string(e.category)),
		zap.Int("rules", len(e.rules)),
		zap.Int("issues", len(issues)))

	return issues, nil
}
