// Package validation implements the structural validator for definition
// graphs and the publish-readiness checks built on top of it.
//
// The validator accepts arbitrary values because candidate definitions come
// from a generative model whose output shape drifts: steps may arrive flat or
// accidentally nested inside edge fields, and the whole document may be
// wrapped as {"definition": ...}. All violations are accumulated into one
// ordered report; nothing short-circuits.
package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/flowsmith/flowsmith/pkg/shortid"
)

// Result is the outcome of a structural or publish-readiness check.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// edge fields the flattener descends into. Strings found under them are
// references; objects are treated as (misplaced) steps.
var edgeFields = []string{"next", "onConditionPass", "onConditionFail"}

// Validate checks a candidate definition for id uniqueness, id format and
// reference integrity. The input may be a typed *models.Definition, a decoded
// JSON document, or a {"definition": ...} wrapper. Cycles are not rejected.
func Validate(input any) Result {
	doc := normalize(input)

	if wrapper, ok := doc.(map[string]any); ok {
		if inner, ok := wrapper["definition"]; ok {
			doc = inner
		}
	}

	steps := CollectSteps(doc)

	errs := make([]string, 0)

	// First pass: ids, flagging duplicates on first sight.
	seen := make(map[string]bool, len(steps))

	for _, step := range steps {
		id := stringField(step, "id")
		if seen[id] {
			errs = append(errs, fmt.Sprintf("duplicate step id %q", id))

			continue
		}

		seen[id] = true
	}

	// Second pass: id format and edge resolution.
	for _, step := range steps {
		id := stringField(step, "id")

		if len(id) != shortid.Length {
			errs = append(errs, fmt.Sprintf("step id %q must be exactly %d characters", id, shortid.Length))
		} else if !shortid.Valid(id) {
			errs = append(errs, fmt.Sprintf("step id %q contains characters outside [A-Za-z0-9_-]", id))
		}

		for _, field := range edgeFields {
			for _, target := range referenceTargets(step[field]) {
				if !seen[target] {
					errs = append(errs, fmt.Sprintf("step %q: unknown step id %q in %s", id, target, field))
				}
			}
		}
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}

// CollectSteps recursively flattens a definition document, descending into
// steps and edge fields, and returns every node carrying an id, type or label
// field in document order. It tolerates both flat and accidentally-nested
// output.
func CollectSteps(doc any) []map[string]any {
	collected := make([]map[string]any, 0)
	flatten(doc, &collected)

	return collected
}

func flatten(node any, out *[]map[string]any) {
	switch value := node.(type) {
	case map[string]any:
		if isStepLike(value) {
			*out = append(*out, value)
		}

		if steps, ok := value["steps"]; ok {
			flatten(steps, out)
		}

		for _, field := range edgeFields {
			if edge, ok := value[field]; ok {
				flatten(edge, out)
			}
		}
	case []any:
		for _, item := range value {
			flatten(item, out)
		}
	}
}

// isStepLike reports whether a node should be collected as a step candidate.
func isStepLike(node map[string]any) bool {
	_, hasID := node["id"]
	_, hasType := node["type"]
	_, hasLabel := node["label"]

	return hasID || hasType || hasLabel
}

// referenceTargets extracts outgoing step-id references from an edge value.
// Nested objects are skipped here: they were collected as steps and resolve
// through their own ids.
func referenceTargets(edge any) []string {
	switch value := edge.(type) {
	case string:
		if value == "" {
			return nil
		}

		return []string{value}
	case []any:
		targets := make([]string, 0, len(value))

		for _, item := range value {
			if target, ok := item.(string); ok && target != "" {
				targets = append(targets, target)
			}
		}

		return targets
	default:
		return nil
	}
}

// normalize converts typed inputs into the generic map/slice form the
// flattener walks. Already-decoded JSON passes through untouched.
func normalize(input any) any {
	switch input.(type) {
	case nil:
		return nil
	case map[string]any, []any, string, float64, bool:
		return input
	}

	raw, err := json.Marshal(input)
	if err != nil {
		return nil
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}

	return doc
}

func stringField(node map[string]any, key string) string {
	value, _ := node[key].(string)

	return strings.TrimSpace(value)
}
