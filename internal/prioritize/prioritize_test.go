package prioritize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/seo-auditor/internal/audit"
)

// fixedTraffic returns the same potential for every issue so formula
// tests stay exact.
type fixedTraffic struct{ value float64 }

func (f fixedTraffic) TrafficPotential(audit.Issue) float64 { return f.value }

func newEngine(traffic float64) *Engine {
	return New(fixedTraffic{value: traffic}, nil, zap.NewNop())
}

func TestPriorityFormula(t *testing.T) {
	e := newEngine(50)

	issue := audit.Issue{
		RuleID:      "slow_page",
		Severity:    audit.SeverityHigh,
		ImpactScore: 80,
		EffortScore: 4,
	}
	recs := e.Rank([]audit.Issue{issue})
	require.Len(t, recs, 1)

	// 80*0.40 + 50*0.25 + (10-4)*10*0.20 + 75*0.15 = 67.75
	assert.Equal(t, 67.75, recs[0].PriorityScore)
}

func TestHighImpactLowEffortWinsOverLowImpactHighEffort(t *testing.T) {
	e := newEngine(50)

	issues := []audit.Issue{
		{RuleID: "hard_small_fix", Severity: audit.SeverityMedium, ImpactScore: 50, EffortScore: 8},
		{RuleID: "easy_big_fix", Severity: audit.SeverityMedium, ImpactScore: 95, EffortScore: 2},
	}
	recs := e.Rank(issues)
	require.Len(t, recs, 2)

	assert.Equal(t, "easy_big_fix", recs[0].RuleID)
	assert.Equal(t, "hard_small_fix", recs[1].RuleID)
	assert.Greater(t, recs[0].PriorityScore, recs[1].PriorityScore)
}

func TestRanksAreContiguous(t *testing.T) {
	e := newEngine(30)

	issues := []audit.Issue{
		{RuleID: "a", Severity: audit.SeverityLow, ImpactScore: 20, EffortScore: 1},
		{RuleID: "b", Severity: audit.SeverityHigh, ImpactScore: 70, EffortScore: 5},
		{RuleID: "c", Severity: audit.SeverityCritical, ImpactScore: 90, EffortScore: 3},
	}
	recs := e.Rank(issues)
	require.Len(t, recs, 3)

	for i, rec := range recs {
		assert.Equal(t, i+1, rec.Rank)
	}
	for i := 1; i < len(recs); i++ {
		assert.GreaterOrEqual(t, recs[i-1].PriorityScore, recs[i].PriorityScore)
	}
}

func TestTieBreaksOnImpactThenRuleID(t *testing.T) {
	e := newEngine(50)

	// Same priority score, different impact: impact decides.
	// zz: 60*0.40 + 50*0.25 + 50*0.20 + 50*0.15 = 54.0
	// aa: 50*0.40 + 50*0.25 + 70*0.20 + 50*0.15 = 54.0
	byImpact := []audit.Issue{
		{RuleID: "aa", Severity: audit.SeverityMedium, ImpactScore: 50, EffortScore: 3},
		{RuleID: "zz", Severity: audit.SeverityMedium, ImpactScore: 60, EffortScore: 5},
	}
	recs := e.Rank(byImpact)
	require.Len(t, recs, 2)
	assert.Equal(t, "zz", recs[0].RuleID)

	// Fully identical inputs: rule id ascending decides.
	identical := []audit.Issue{
		{RuleID: "zeta", Severity: audit.SeverityLow, ImpactScore: 40, EffortScore: 4},
		{RuleID: "alpha", Severity: audit.SeverityLow, ImpactScore: 40, EffortScore: 4},
	}
	recs = e.Rank(identical)
	require.Len(t, recs, 2)
	assert.Equal(t, "alpha", recs[0].RuleID)
	assert.Equal(t, "zeta", recs[1].RuleID)
}

func TestEffortAndImpactLabels(t *testing.T) {
	e := newEngine(0)

	recs := e.Rank([]audit.Issue{
		{RuleID: "a", Severity: audit.SeverityLow, ImpactScore: 90, EffortScore: 1},
		{RuleID: "b", Severity: audit.SeverityLow, ImpactScore: 50, EffortScore: 5},
		{RuleID: "c", Severity: audit.SeverityLow, ImpactScore: 10, EffortScore: 9},
	})
	byID := map[string]audit.Recommendation{}
	for _, r := range recs {
		byID[r.RuleID] = r
	}

	assert.Equal(t, "high", byID["a"].Impact)
	assert.Equal(t, "low", byID["a"].Effort)
	assert.Equal(t, "medium", byID["b"].Impact)
	assert.Equal(t, "medium", byID["b"].Effort)
	assert.Equal(t, "low", byID["c"].Impact)
	assert.Equal(t, "high", byID["c"].Effort)
}

func TestSeverityTrafficFallback(t *testing.T) {
	ts := SeverityTraffic{}
	assert.Equal(t, 100.0, ts.TrafficPotential(audit.Issue{Severity: audit.SeverityCritical}))
	assert.Equal(t, 50.0, ts.TrafficPotential(audit.Issue{Severity: audit.SeverityMedium}))
	assert.Equal(t, 0.0, ts.TrafficPotential(audit.Issue{Severity: audit.SeverityInfo}))
}

func TestEmptyIssuesYieldEmptyPlan(t *testing.T) {
	e := newEngine(50)
	assert.Empty(t, e.Rank(nil))
}
