package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/seo-auditor/internal/audit"
)

func TestLoadDefault(t *testing.T) {
	reg, err := LoadDefault()
	require.NoError(t, err)
	assert.Greater(t, reg.Len(), 20)

	// Every category ships at least one default rule.
	for _, cat := range audit.Categories() {
		assert.NotEmpty(t, reg.ForCategory(cat), string(cat))
	}

	rule, ok := reg.Get("missing_title")
	require.True(t, ok)
	assert.Equal(t, audit.CategoryOnPage, rule.Category)
	assert.Equal(t, audit.SeverityHigh, rule.Severity)
}

func TestForCategoryStableOrder(t *testing.T) {
	reg, err := LoadDefault()
	require.NoError(t, err)

	onPage := reg.ForCategory(audit.CategoryOnPage)
	for i := 1; i < len(onPage); i++ {
		assert.Less(t, onPage[i-1].ID, onPage[i].ID)
	}
}

func writeRuleFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return dir
}

func TestLoadDirValidRules(t *testing.T) {
	dir := writeRuleFile(t, "custom.json", `[
		{
			"id": "custom_check",
			"name": "Custom check",
			"category": "technical",
			"severity": "low",
			"conditions": [{"field": "page.title", "operator": "exists"}],
			"impact_score": 10,
			"effort_score": 1,
			"recommendation": "Do the thing."
		}
	]`)

	reg, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())

	_, ok := reg.Get("custom_check")
	assert.True(t, ok)
}

func TestLoadDirUnknownOperatorDisablesCategory(t *testing.T) {
	dir := writeRuleFile(t, "bad.json", `[
		{
			"id": "bad_rule",
			"name": "Bad rule",
			"category": "technical",
			"severity": "low",
			"conditions": [{"field": "page.title", "operator": "approximately"}],
			"recommendation": "n/a"
		}
	]`)

	reg, err := LoadDir(dir)
	require.NoError(t, err)

	var verr *ValidationError
	require.ErrorAs(t, reg.LoadError(audit.CategoryTechnical), &verr)
	assert.Equal(t, "bad_rule", verr.RuleID)
	assert.Contains(t, verr.Field, "operator")
	assert.Empty(t, reg.ForCategory(audit.CategoryTechnical))
}

func TestLoadDirInvalidRegexDisablesCategory(t *testing.T) {
	dir := writeRuleFile(t, "bad.json", `[
		{
			"id": "regex_rule",
			"name": "Regex rule",
			"category": "technical",
			"severity": "low",
			"conditions": [{"field": "page.title", "operator": "matches", "value": "("}],
			"recommendation": "n/a"
		}
	]`)

	reg, err := LoadDir(dir)
	require.NoError(t, err)

	var verr *ValidationError
	require.ErrorAs(t, reg.LoadError(audit.CategoryTechnical), &verr)
	assert.Equal(t, "regex_rule", verr.RuleID)
}

func TestLoadDirDuplicateIDsDisableCategory(t *testing.T) {
	dir := writeRuleFile(t, "dupes.json", `[
		{
			"id": "dupe",
			"name": "First",
			"category": "technical",
			"severity": "low",
			"conditions": [{"field": "page.title", "operator": "exists"}],
			"recommendation": "n/a"
		},
		{
			"id": "dupe",
			"name": "Second",
			"category": "technical",
			"severity": "low",
			"conditions": [{"field": "page.title", "operator": "exists"}],
			"recommendation": "n/a"
		}
	]`)

	reg, err := LoadDir(dir)
	require.NoError(t, err)

	var verr *ValidationError
	require.ErrorAs(t, reg.LoadError(audit.CategoryTechnical), &verr)
	assert.Equal(t, "dupe", verr.RuleID)
	// The first copy is discarded along with the category.
	_, ok := reg.Get("dupe")
	assert.False(t, ok)
}

func TestLoadDirMissingValueDisablesCategory(t *testing.T) {
	dir := writeRuleFile(t, "bad.json", `[
		{
			"id": "no_value",
			"name": "No value",
			"category": "technical",
			"severity": "low",
			"conditions": [{"field": "page.word_count", "operator": "lt"}],
			"recommendation": "n/a"
		}
	]`)

	reg, err := LoadDir(dir)
	require.NoError(t, err)

	var verr *ValidationError
	require.ErrorAs(t, reg.LoadError(audit.CategoryTechnical), &verr)
	assert.Equal(t, "no_value", verr.RuleID)
	assert.Contains(t, verr.Field, "value")
}

func TestLoadDirFailureIsolatedToCategory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`[
		{
			"id": "broken_technical",
			"name": "Broken",
			"category": "technical",
			"severity": "low",
			"conditions": [{"field": "page.title", "operator": "approximately"}],
			"recommendation": "n/a"
		}
	]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.json"), []byte(`[
		{
			"id": "good_on_page",
			"name": "Good",
			"category": "on_page",
			"severity": "low",
			"conditions": [{"field": "page.title", "operator": "exists"}],
			"impact_score": 5,
			"effort_score": 1,
			"recommendation": "Keep it."
		}
	]`), 0o644))

	reg, err := LoadDir(dir)
	require.NoError(t, err)

	require.Error(t, reg.LoadError(audit.CategoryTechnical))
	assert.Empty(t, reg.ForCategory(audit.CategoryTechnical))

	require.NoError(t, reg.LoadError(audit.CategoryOnPage))
	require.Len(t, reg.ForCategory(audit.CategoryOnPage), 1)
	_, ok := reg.Get("good_on_page")
	assert.True(t, ok)
}

func TestLoadDirRejectsMalformedJSON(t *testing.T) {
	dir := writeRuleFile(t, "garbage.json", `{not json`)

	// Undecodable files cannot be attributed to a category, so the
	// whole load fails.
	_, err := LoadDir(dir)
	require.Error(t, err)
}

func TestLoadDirEmpty(t *testing.T) {
	_, err := LoadDir(t.TempDir())
	assert.Error(t, err)
}

func TestDefaultRulesSmokeEvaluation(t *testing.T) {
	reg, err := LoadDefault()
	require.NoError(t, err)

	missingEverything := Facts{"page": map[string]any{
		"status_code":           float64(200),
		"is_https":              true,
		"h1_count":              float64(0),
		"word_count":            float64(50),
		"meta":                  map[string]any{},
		"images_missing_alt":    float64(0),
		"structured_data_count": float64(0),
		"internal_link_count":   float64(0),
		"external_link_count":   float64(0),
		"depth":                 float64(0),
		"load_time_ms":          float64(100),
		"page_size_bytes":       float64(1000),
		"links":                 []any{},
	}}

	matched := map[string]bool{}
	for _, cat := range audit.Categories() {
		for _, rule := range reg.ForCategory(cat) {
			if rule.EffectiveScope() == ScopePage && rule.Matches(missingEverything) {
				matched[rule.ID] = true
			}
		}
	}

	assert.True(t, matched["missing_title"])
	assert.True(t, matched["missing_meta_description"])
	assert.True(t, matched["missing_h1"])
	assert.True(t, matched["thin_content"])
	assert.True(t, matched["missing_structured_data"])
	assert.True(t, matched["no_internal_links"])
	assert.False(t, matched["http_error_status"])
	assert.False(t, matched["not_https"])
}
