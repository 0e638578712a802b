// Package prioritize ranks issues into an ordered remediation plan.
package prioritize

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/JakeFAU/seo-auditor/internal/audit"
	"github.com/JakeFAU/seo-auditor/internal/rules"
)

// Factor weights of the priority formula. They sum to 1 so the score
// stays on the same 0-100 scale as its inputs.
const (
	impactWeight   = 0.40
	trafficWeight  = 0.25
	effortWeight   = 0.20
	severityWeight = 0.15
)

// Engine turns issues into ranked recommendations.
type Engine struct {
	traffic audit.TrafficSource
	reg     *rules.Registry
	logger  *zap.Logger
}

// New builds an Engine. The registry supplies titles and remediation
// steps for the matched rules; reg may be nil when only scores matter.
func New(traffic audit.TrafficSource, reg *rules.Registry, logger *zap.Logger) *Engine {
	return &Engine{traffic: traffic, reg: reg, logger: logger}
}

// Rank computes priority scores and returns recommendations ordered
// best-first with contiguous ranks from 1. Ties break on higher
// impact, then rule id ascending, so output order is deterministic.
func (e *Engine) Rank(issues []audit.Issue) []audit.Recommendation {
	recs := make([]audit.Recommendation, 0, len(issues))
	for _, issue := range issues {
		recs = append(recs, e.recommend(issue))
	}

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].PriorityScore != recs[j].PriorityScore {
			return recs[i].PriorityScore > recs[j].PriorityScore
		}
		ii, ij := impactOf(issues, recs[i].RuleID), impactOf(issues, recs[j].RuleID)
		if ii != ij {
			return ii > ij
		}
		return recs[i].RuleID < recs[j].RuleID
	})

	for i := range recs {
		recs[i].Rank = i + 1
	}

	e.logger.Debug("ranked recommendations", zap.Int("count", len(recs)))
	return recs
}

func (e *Engine) recommend(issue audit.Issue) audit.Recommendation {
	score := e.priorityScore(issue)

	rec := audit.Recommendation{
		RuleID:        issue.RuleID,
		PriorityScore: score,
		Title:         issue.Name,
		Description:   issue.Recommendation,
		Effort:        effortLabel(issue.EffortScore),
		Impact:        impactLabel(issue.ImpactScore),
	}
	if e.reg != nil {
		if rule, ok := e.reg.Get(issue.RuleID); ok {
			rec.Steps = rule.Steps
		}
	}
	return rec
}

// priorityScore blends impact, traffic potential, ease of the fix, and
// severity. Effort inverts to ease so cheap fixes rise.
func (e *Engine) priorityScore(issue audit.Issue) float64 {
	effortEase := (10 - issue.EffortScore) * 10
	score := issue.ImpactScore*impactWeight +
		e.traffic.TrafficPotential(issue)*trafficWeight +
		effortEase*effortWeight +
		audit.SeverityRank(issue.Severity)*severityWeight
	return math.Round(score*100) / 100
}

func impactOf(issues []audit.Issue, ruleID string) float64 {
	for _, issue := range issues {
		if issue.RuleID == ruleID {
			return issue.ImpactScore
		}
	}
	return 0
}

func effortLabel(effort float64) string {
	switch {
	case effort <= 3:
		return "low"
	case effort <= 6:
		return "medium"
	default:
		return "high"
	}
}

func impactLabel(impact float64) string {
	switch {
	case impact >= 70:
		return "high"
	case impact >= 40:
		return "medium"
	default:
		return "low"
	}
}

// SeverityTraffic derives traffic potential from severity alone, the
// fallback when no analytics integration is configured.
type SeverityTraffic struct{}

// TrafficPotential maps the issue's severity rank onto the 0-100
// traffic scale.
func (SeverityTraffic) TrafficPotential(issue audit.Issue) float64 {
	return audit.SeverityRank(issue.Severity)
}
