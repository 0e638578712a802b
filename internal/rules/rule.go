// Package rules implements the declarative audit rule engine. Rules
// are data, loaded from JSON and evaluated against per-page fact
// trees; adding a check never requires new code.
package rules

import (
	"fmt"

	"github.com/JakeFAU/seo-auditor/internal/audit"
)

// Logic combines a rule's conditions.
type Logic string

// Condition combinators.
const (
	LogicAnd Logic = "and"
	LogicOr  Logic = "or"
)

// Scope selects the fact tree a rule evaluates against.
type Scope string

// Evaluation scopes. Page rules run once per crawled page; site rules
// run once per audit against aggregate facts.
const (
	ScopePage Scope = "page"
	ScopeSite Scope = "site"
)

// Condition is one predicate over a dot-path into the fact tree.
type Condition struct {
	Field      string   `json:"field"`
	Operator   string   `json:"operator"`
	Value      any      `json:"value,omitempty"`
	Transforms []string `json:"transforms,omitempty"`
}

// Rule is one declarative check.
type Rule struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Category       audit.Category `json:"category"`
	Severity       audit.Severity `json:"severity"`
	Scope          Scope          `json:"scope,omitempty"`
	Logic          Logic          `json:"logic,omitempty"`
	Conditions     []Condition    `json:"conditions"`
	ImpactScore    float64        `json:"impact_score"`
	EffortScore    float64        `json:"effort_score"`
	Recommendation string         `json:"recommendation"`
	Steps          []string       `json:"implementation_steps,omitempty"`
}

// EffectiveLogic defaults to AND when the rule omits logic.
func (r Rule) EffectiveLogic() Logic {
	if r.Logic == "" {
		return LogicAnd
	}
	return r.Logic
}

// EffectiveScope defaults to page scope.
func (r Rule) EffectiveScope() Scope {
	if r.Scope == "" {
		return ScopePage
	}
	return r.Scope
}

// ValidationError reports a malformed rule at load time, naming the
// offending rule and field so a bad rule set fails fast instead of
// silently skipping checks.
type ValidationError struct {
	RuleID string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("rule %q: field %q: %s", e.RuleID, e.Field, e.Reason)
}

func newValidationError(ruleID, field, reason string) *ValidationError {
	return &ValidationError{RuleID: ruleID, Field: field, Reason: reason}
}

var validOperators = map[string]bool{
	"eq": true, "ne": true,
	"lt": true, "gt": true, "lte": true, "gte": true,
	"contains": true, "not_contains": true,
	"matches": true, "not_matches": true,
	"exists": true, "not_exists": true,
	"length_lt": true, "length_gt": true,
	"starts_with": true, "ends_with": true,
	"in": true, "not_in": true,
}

var validTransforms = map[string]bool{
	"length": true, "lowercase": true, "uppercase": true, "trim": true,
	"count": true, "to_int": true, "to_float": true, "to_bool": true,
}

var validSeverities = map[audit.Severity]bool{
	audit.SeverityCritical: true,
	audit.SeverityHigh:     true,
	audit.SeverityMedium:   true,
	audit.SeverityLow:      true,
	audit.SeverityInfo:     true,
}

// Validate checks structural soundness beyond what the JSON schema
// can express.
func (r Rule) Validate() error {
	if r.ID == "" {
		return newValidationError(r.ID, "id", "must not be empty")
	}
	if r.Name == "" {
		return newValidationError(r.ID, "name", "must not be empty")
	}
	found := false
	for _, c := range audit.Categories() {
		if c == r.Category {
			found = true
			break
		}
	}
	if !found {
		return newValidationError(r.ID, "category", fmt.Sprintf("unknown category %q", r.Category))
	}
	if !validSeverities[r.Severity] {
		return newValidationError(r.ID, "severity", fmt.Sprintf("unknown severity %q", r.Severity))
	}
	if r.Logic != "" && r.Logic != LogicAnd && r.Logic != LogicOr {
		return newValidationError(r.ID, "logic", fmt.Sprintf("must be %q or %q", LogicAnd, LogicOr))
	}
	if r.Scope != "" && r.Scope != ScopePage && r.Scope != ScopeSite {
		return newValidationError(r.ID, "scope", fmt.Sprintf("must be %q or %q", ScopePage, ScopeSite))
	}
	if r.ImpactScore < 0 || r.ImpactScore > 100 {
		return newValidationError(r.ID, "impact_score", "must be in [0, 100]")
	}
	if r.EffortScore < 0 || r.EffortScore > 10 {
		return newValidationError(r.ID, "effort_score", "must be in [0, 10]")
	}
	for i, cond := range r.Conditions {
		field := fmt.Sprintf("conditions[%d]", i)
		if cond.Field == "" {
			return newValidationError(r.ID, field+".field", "must not be empty")
		}
		if !validOperators[cond.Operator] {
			return newValidationError(r.ID, field+".operator", fmt.Sprintf("unknown operator %q", cond.Operator))
		}
		if requiresValue(cond.Operator) && cond.Value == nil {
			return newValidationError(r.ID, field+".value", fmt.Sprintf("operator %q requires a value", cond.Operator))
		}
		for _, tr := range cond.Transforms {
			if !validTransforms[tr] {
				return newValidationError(r.ID, field+".transforms", fmt.Sprintf("unknown transform %q", tr))
			}
		}
		if err := validateOperatorValue(r.ID, field, cond); err != nil {
			return err
		}
	}
	return nil
}

func requiresValue(op string) bool {
	switch op {
	case "exists", "not_exists":
		return false
	}
	return true
}

func validateOperatorValue(ruleID, field string, cond Condition) error {
	switch cond.Operator {
	case "matches", "not_matches":
		s, ok := cond.Value.(string)
		if !ok {
			return newValidationError(ruleID, field+".value", "regex operators require a string pattern")
		}
		if _, err := compileRegex(s); err != nil {
			return newValidationError(ruleID, field+".value", fmt.Sprintf("invalid regex: %v", err))
		}
	case "in", "not_in":
		if _, ok := cond.Value.([]any); !ok {
			return newValidationError(ruleID, field+".value", "membership operators require an array value")
		}
	}
	return nil
}
