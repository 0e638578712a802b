package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// Facts is a nested fact tree addressed by dot paths, e.g.
// "page.meta.description". Leaves are strings, numbers, bools, nil,
// []any, or nested Facts maps.
type Facts = map[string]any

// Matches evaluates the rule against one fact tree. Evaluation is
// pure: it never mutates facts and the same inputs always produce the
// same answer. A rule with zero conditions matches nothing.
func (r Rule) Matches(facts Facts) bool {
	if len(r.Conditions) == 0 {
		return false
	}
	switch r.EffectiveLogic() {
	case LogicOr:
		for _, c := range r.Conditions {
			if c.matches(facts) {
				return true
			}
		}
		return false
	default:
		for _, c := range r.Conditions {
			if !c.matches(facts) {
				return false
			}
		}
		return true
	}
}

func (c Condition) matches(facts Facts) bool {
	value, present := resolve(facts, c.Field)

	// Existence checks look at path presence only; a present key
	// holding null still exists.
	switch c.Operator {
	case "exists":
		return present
	case "not_exists":
		return !present
	}

	// Any other operator against an absent path is a non-match, never
	// an error. Unknown paths are how rule sets stay forward
	// compatible with older fact trees.
	if !present {
		return false
	}

	for _, tr := range c.Transforms {
		var ok bool
		value, ok = applyTransform(tr, value)
		if !ok {
			return false
		}
	}

	return applyOperator(c.Operator, value, c.Value)
}

// resolve walks the fact tree along a dot path. The second return
// distinguishes "present but nil" from "absent".
func resolve(facts Facts, path string) (any, bool) {
	var current any = facts
	for _, segment := range strings.Split(path, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func applyTransform(name string, value any) (any, bool) {
	switch name {
	case "length":
		switch v := value.(type) {
		case string:
			return float64(len(v)), true
		case []any:
			return float64(len(v)), true
		case map[string]any:
			return float64(len(v)), true
		}
		return nil, false
	case "count":
		if v, ok := value.([]any); ok {
			return float64(len(v)), true
		}
		return nil, false
	case "lowercase":
		if s, ok := value.(string); ok {
			return strings.ToLower(s), true
		}
		return nil, false
	case "uppercase":
		if s, ok := value.(string); ok {
			return strings.ToUpper(s), true
		}
		return nil, false
	case "trim":
		if s, ok := value.(string); ok {
			return strings.TrimSpace(s), true
		}
		return nil, false
	case "to_int":
		switch v := value.(type) {
		case float64:
			return float64(int64(v)), true
		case int:
			return float64(v), true
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return nil, false
			}
			return float64(n), true
		case bool:
			if v {
				return float64(1), true
			}
			return float64(0), true
		}
		return nil, false
	case "to_float":
		switch v := value.(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, false
			}
			return f, true
		}
		return nil, false
	case "to_bool":
		switch v := value.(type) {
		case bool:
			return v, true
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(strings.ToLower(v)))
			if err != nil {
				return nil, false
			}
			return b, true
		case float64:
			return v != 0, true
		case int:
			return v != 0, true
		}
		return nil, false
	}
	return nil, false
}

func applyOperator(op string, actual, expected any) bool {
	switch op {
	case "eq":
		return looseEqual(actual, expected)
	case "ne":
		return !looseEqual(actual, expected)
	case "lt", "gt", "lte", "gte":
		a, aok := asNumber(actual)
		b, bok := asNumber(expected)
		// Numeric comparisons fail closed on non-numeric operands.
		if !aok || !bok {
			return false
		}
		switch op {
		case "lt":
			return a < b
		case "gt":
			return a > b
		case "lte":
			return a <= b
		default:
			return a >= b
		}
	case "contains":
		return stringPair(actual, expected, strings.Contains)
	case "not_contains":
		a, aok := asString(actual)
		b, bok := asString(expected)
		if !aok || !bok {
			return false
		}
		return !strings.Contains(a, b)
	case "matches", "not_matches":
		a, aok := asString(actual)
		pattern, bok := asString(expected)
		if !aok || !bok {
			return false
		}
		re, err := compileRegex(pattern)
		if err != nil {
			return false
		}
		matched := re.MatchString(a)
		if op == "not_matches" {
			return !matched
		}
		return matched
	case "length_lt", "length_gt":
		n, ok := lengthOf(actual)
		if !ok {
			return false
		}
		b, bok := asNumber(expected)
		if !bok {
			return false
		}
		if op == "length_lt" {
			return n < b
		}
		return n > b
	case "starts_with":
		return stringPair(actual, expected, strings.HasPrefix)
	case "ends_with":
		return stringPair(actual, expected, strings.HasSuffix)
	case "in", "not_in":
		list, ok := expected.([]any)
		if !ok {
			return false
		}
		member := false
		for _, item := range list {
			if looseEqual(actual, item) {
				member = true
				break
			}
		}
		if op == "not_in" {
			return !member
		}
		return member
	}
	return false
}

func stringPair(actual, expected any, fn func(string, string) bool) bool {
	a, aok := asString(actual)
	b, bok := asString(expected)
	if !aok || !bok {
		return false
	}
	return fn(a, b)
}

// looseEqual compares across the numeric types JSON decoding produces.
func looseEqual(a, b any) bool {
	if an, aok := asNumber(a); aok {
		if bn, bok := asNumber(b); bok {
			return an == bn
		}
		return false
	}
	return a == b
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func lengthOf(v any) (float64, bool) {
	switch x := v.(type) {
	case string:
		return float64(len(x)), true
	case []any:
		return float64(len(x)), true
	case map[string]any:
		return float64(len(x)), true
	}
	return 0, false
}

var (
	regexMu    sync.Mutex
	regexCache = map[string]*regexp.Regexp{}
)

// compileRegex caches compiled patterns; rule sets reuse a small
// number of expressions across many pages.
func compileRegex(pattern string) (*regexp.Regexp, error) {
	regexMu.Lock()
	defer regexMu.Unlock()
	if re, ok := regexCache[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	regexCache[pattern] = re
	return re, nil
}
