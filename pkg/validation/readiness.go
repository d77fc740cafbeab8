package validation

// CheckPublishReadiness decides draft→published eligibility: template-level
// rules first, then the full structural validation of the definition. The
// same report feeds the publish endpoint and the model's self-check tool.
func CheckPublishReadiness(label string, definition any) Result {
	errs := make([]string, 0)

	if label == "" {
		errs = append(errs, "template label is required")
	}

	steps := CollectSteps(unwrapDefinition(normalize(definition)))
	if len(steps) == 0 {
		errs = append(errs, "template must contain at least one step")
	}

	structural := Validate(definition)
	errs = append(errs, structural.Errors...)

	return Result{Valid: len(errs) == 0, Errors: errs}
}

func unwrapDefinition(doc any) any {
	if wrapper, ok := doc.(map[string]any); ok {
		if inner, ok := wrapper["definition"]; ok {
			return inner
		}
	}

	return doc
}
