package persistence

import (
	"strings"

	"github.com/flowsmith/flowsmith/pkg/models"
	"github.com/flowsmith/flowsmith/pkg/validation"
)

// Workflow-type tags derived from the trigger capability family.
const (
	WorkflowTypeFormIntake  = "form-intake"
	WorkflowTypeScheduled   = "scheduled"
	WorkflowTypeEventDriven = "event-driven"
)

// DeriveMetadata recomputes the denormalized LinkedFormID and WorkflowType
// fields from the template's definition. It walks the step graph with the
// validator's recursive flattening so that accidentally-nested trigger steps
// are still found. Called by every repository implementation before a write.
func DeriveMetadata(template *models.Template) {
	template.LinkedFormID = ""
	template.WorkflowType = ""

	if template.Definition == nil {
		return
	}

	for _, step := range validation.CollectSteps(normalizeDefinition(template.Definition)) {
		stepType, _ := step["type"].(string)
		if stepType != string(models.StepTypeTrigger) {
			continue
		}

		capability, _ := step["capability"].(string)
		family := capabilityFamily(capability)

		template.WorkflowType = workflowTypeFor(family)

		if family == "form" {
			if params, ok := step["params"].(map[string]any); ok {
				template.LinkedFormID, _ = params["formId"].(string)
			}
		}

		return
	}
}

// capabilityFamily returns the segment before the first dot of a capability
// identifier ("form.submitted" → "form").
func capabilityFamily(capability string) string {
	family, _, _ := strings.Cut(capability, ".")

	return family
}

func workflowTypeFor(family string) string {
	switch family {
	case "form":
		return WorkflowTypeFormIntake
	case "schedule":
		return WorkflowTypeScheduled
	case "":
		return ""
	default:
		return WorkflowTypeEventDriven
	}
}

// normalizeDefinition converts a typed definition into the generic document
// form the flattener expects without losing nested raw params.
func normalizeDefinition(definition *models.Definition) any {
	steps := make([]any, 0, len(definition.Steps))

	for _, step := range definition.Steps {
		if step == nil {
			continue
		}

		doc := map[string]any{
			"id":   step.ID,
			"type": string(step.Type),
		}

		if step.Capability != "" {
			doc["capability"] = step.Capability
		}

		if step.Label != "" {
			doc["label"] = step.Label
		}

		if step.Params != nil {
			doc["params"] = step.Params
		}

		if len(step.Next) > 0 {
			next := make([]any, 0, len(step.Next))
			for _, target := range step.Next {
				next = append(next, target)
			}

			doc["next"] = next
		}

		if step.OnConditionPass != "" {
			doc["onConditionPass"] = step.OnConditionPass
		}

		if step.OnConditionFail != "" {
			doc["onConditionFail"] = step.OnConditionFail
		}

		steps = append(steps, doc)
	}

	return map[string]any{"steps": steps}
}
