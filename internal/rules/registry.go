package rules

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/JakeFAU/seo-auditor/internal/audit"
)

//go:embed schema/rule.schema.json
var schemaJSON []byte

//go:embed defs/*.json
var defaultDefs embed.FS

// Registry holds a validated rule set grouped by category. A category
// whose definitions fail validation is recorded as a load failure and
// carries no rules; its engine reports failed while siblings run.
type Registry struct {
	byCategory map[audit.Category][]Rule
	byID       map[string]Rule
	failures   map[audit.Category]error
}

// LoadDefault loads the embedded rule set.
func LoadDefault() (*Registry, error) {
	var files [][]byte
	entries, err := fs.ReadDir(defaultDefs, "defs")
	if err != nil {
		return nil, fmt.Errorf("read embedded rules: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := fs.ReadFile(defaultDefs, "defs/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read embedded rule file %s: %w", entry.Name(), err)
		}
		files = append(files, data)
	}
	return load(files)
}

// LoadDir loads every *.json rule file in dir, replacing the embedded
// defaults entirely.
func LoadDir(dir string) (*Registry, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("glob rule dir %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("rule dir %s contains no rule files", dir)
	}
	sort.Strings(paths)
	var files [][]byte
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read rule file %s: %w", p, err)
		}
		files = append(files, data)
	}
	return load(files)
}

func load(files [][]byte) (*Registry, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile rule schema: %w", err)
	}

	reg := &Registry{
		byCategory: make(map[audit.Category][]Rule),
		byID:       make(map[string]Rule),
		failures:   make(map[audit.Category]error),
	}
	for _, data := range files {
		var raws []json.RawMessage
		if err := json.Unmarshal(data, &raws); err != nil {
			// Malformed JSON cannot be attributed to a category.
			return nil, fmt.Errorf("decode rule file: %w", err)
		}
		for _, raw := range raws {
			var rule Rule
			if err := json.Unmarshal(raw, &rule); err != nil {
				return nil, fmt.Errorf("decode rule: %w", err)
			}
			if !knownCategory(rule.Category) {
				return nil, newValidationError(rule.ID, "category",
					fmt.Sprintf("unknown category %q", rule.Category))
			}
			if reg.failures[rule.Category] != nil {
				continue
			}
			if err := validateAgainstSchema(schema, raw, rule.ID); err != nil {
				reg.failCategory(rule.Category, err)
				continue
			}
			if err := rule.Validate(); err != nil {
				reg.failCategory(rule.Category, err)
				continue
			}
			if _, dup := reg.byID[rule.ID]; dup {
				reg.failCategory(rule.Category, newValidationError(rule.ID, "id", "duplicate rule id"))
				continue
			}
			reg.byID[rule.ID] = rule
			reg.byCategory[rule.Category] = append(reg.byCategory[rule.Category], rule)
		}
	}
	for _, cat := range audit.Categories() {
		sort.Slice(reg.byCategory[cat], func(i, j int) bool {
			return reg.byCategory[cat][i].ID < reg.byCategory[cat][j].ID
		})
	}
	if len(reg.byID) == 0 && len(reg.failures) == 0 {
		return nil, fmt.Errorf("rule set is empty")
	}
	return reg, nil
}

// failCategory disables a category: the error is recorded and any of
// its rules loaded so far are discarded so an engine never runs a
// partial set.
func (r *Registry) failCategory(cat audit.Category, err error) {
	r.failures[cat] = err
	for _, rule := range r.byCategory[cat] {
		delete(r.byID, rule.ID)
	}
	delete(r.byCategory, cat)
}

func knownCategory(cat audit.Category) bool {
	for _, c := range audit.Categories() {
		if c == cat {
			return true
		}
	}
	return false
}

func validateAgainstSchema(schema *gojsonschema.Schema, raw json.RawMessage, ruleID string) error {
	// The schema describes a rule array; wrap the single rule so its
	// violations attribute to this rule alone.
	doc := append(append([]byte{'['}, raw...), ']')
	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("validate rule: %w", err)
	}
	if !result.Valid() {
		desc := result.Errors()[0]
		return newValidationError(ruleID, desc.Field(), desc.Description())
	}
	return nil
}

// ForCategory returns the rules of one category in stable id order.
func (r *Registry) ForCategory(cat audit.Category) []Rule {
	return r.byCategory[cat]
}

// LoadError reports the validation error that disabled a category, or
// nil when its rules loaded cleanly.
func (r *Registry) LoadError(cat audit.Category) error {
	return r.failures[cat]
}

// Get looks a rule up by id.
func (r *Registry) Get(id string) (Rule, bool) {
	rule, ok := r.byID[id]
	return rule, ok
}

// Len reports the total rule count.
func (r *Registry) Len() int {
	return len(r.byID)
}
