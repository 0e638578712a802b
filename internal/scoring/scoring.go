// Package scoring turns per-category issues into 0-100 scores and a
// weighted overall grade.
package scoring

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/JakeFAU/seo-auditor/internal/analysis"
	"github.com/JakeFAU/seo-auditor/internal/audit"
)

// Engine aggregates category results into scores.
type Engine struct {
	weights    map[audit.Category]float64
	maxPenalty float64
	logger     *zap.Logger
}

// New builds an Engine. weights is keyed by category name; categories
// absent from the map score with zero weight.
func New(weights map[string]float64, maxPenalty float64, logger *zap.Logger) *Engine {
	w := make(map[audit.Category]float64, len(weights))
	for name, value := range weights {
		w[audit.Category(name)] = value
	}
	return &Engine{weights: w, maxPenalty: maxPenalty, logger: logger}
}

// Score computes per-category and overall scores. Failed categories
// keep their failed status and are excluded from the weighted average;
// only every category failing is an error.
func (e *Engine) Score(results []analysis.CategoryResult, totalPages int) ([]audit.CategoryScore, audit.OverallScore, error) {
	scores := make([]audit.CategoryScore, 0, len(results))
	var (
		weightedSum float64
		weightTotal float64
		anySuccess  bool
	)

	for _, res := range results {
		weight := e.weights[res.Category]
		cs := audit.CategoryScore{
			Category: res.Category,
			Weight:   weight,
			Status:   res.Status,
		}

		if res.Status != audit.EngineSuccess {
			scores = append(scores, cs)
			continue
		}

		anySuccess = true
		score := e.categoryScore(res.Issues, totalPages)
		cs.Score = score
		cs.Grade = audit.Grade(score)
		cs.Issues = len(res.Issues)
		scores = append(scores, cs)

		weightedSum += score * weight
		weightTotal += weight
	}

	sort.Slice(scores, func(i, j int) bool {
		return categoryIndex(scores[i].Category) < categoryIndex(scores[j].Category)
	})

	if !anySuccess {
		return scores, audit.OverallScore{}, audit.ErrAllCategoriesFailed
	}

	// Weights renormalize over the surviving categories so partial
	// failure yields a comparable 0-100 number.
	overall := 0.0
	if weightTotal > 0 {
		overall = weightedSum / weightTotal
	}
	overall = round1(overall)

	e.logger.Info("scored audit",
		zap.Float64("overall", overall),
		zap.String("grade", audit.Grade(overall)),
		zap.Int("categories", len(scores)))

	return scores, audit.OverallScore{Score: overall, Grade: audit.Grade(overall)}, nil
}

// categoryScore folds issues into a 0-100 score. Each issue costs its
// severity weight scaled by the share of pages it affects, so one bad
// page on a large site hurts less than a sitewide problem.
func (e *Engine) categoryScore(issues []audit.Issue, totalPages int) float64 {
	penalty := 0.0
	for _, issue := range issues {
		penalty += audit.SeverityWeight(issue.Severity) * coverageRatio(issue, totalPages)
	}
	score := 100 - penalty/e.maxPenalty*100
	if score < 0 {
		score = 0
	}
	return round1(score)
}

func coverageRatio(issue audit.Issue, totalPages int) float64 {
	// Site-scoped issues carry no URL list and count as full coverage.
	if len(issue.AffectedURLs) == 0 {
		return 1
	}
	if totalPages <= 0 {
		return 1
	}
	ratio := float64(len(issue.AffectedURLs)) / float64(totalPages)
	if ratio > 1 {
		return 1
	}
	return ratio
}

func categoryIndex(cat audit.Category) int {
	for i, c := range audit.Categories() {
		if c == cat {
			return i
		}
	}
	return len(audit.Categories())
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
