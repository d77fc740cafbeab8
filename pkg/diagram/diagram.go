// Package diagram renders definition graphs as Mermaid flowchart text.
// Callers are expected to hand it structurally valid definitions; rendering
// never fails, it simply skips edges it cannot express.
package diagram

import (
	"fmt"
	"strings"

	"github.com/flowsmith/flowsmith/pkg/models"
)

// Render produces a Mermaid "flowchart TD" document for a definition. The
// result is cached on the template by the service layer.
func Render(definition *models.Definition) string {
	var sb strings.Builder

	sb.WriteString("flowchart TD\n")

	if definition == nil {
		return sb.String()
	}

	for _, step := range definition.Steps {
		if step == nil {
			continue
		}

		sb.WriteString("    ")
		sb.WriteString(nodeDecl(step))
		sb.WriteString("\n")
	}

	for _, step := range definition.Steps {
		if step == nil {
			continue
		}

		for _, target := range step.Next {
			fmt.Fprintf(&sb, "    %s --> %s\n", step.ID, target)
		}

		if step.OnConditionPass != "" {
			fmt.Fprintf(&sb, "    %s -->|pass| %s\n", step.ID, step.OnConditionPass)
		}

		if step.OnConditionFail != "" {
			fmt.Fprintf(&sb, "    %s -->|fail| %s\n", step.ID, step.OnConditionFail)
		}
	}

	return sb.String()
}

func nodeDecl(step *models.Step) string {
	label := step.Label
	if label == "" {
		label = step.Capability
	}

	if label == "" {
		label = string(step.Type)
	}

	label = strings.ReplaceAll(label, `"`, "'")

	switch step.Type {
	case models.StepTypeTrigger:
		return fmt.Sprintf(`%s(["%s"])`, step.ID, label)
	case models.StepTypeCondition:
		return fmt.Sprintf(`%s{"%s"}`, step.ID, label)
	case models.StepTypeEnd:
		return fmt.Sprintf(`%s(("%s"))`, step.ID, label)
	default:
		return fmt.Sprintf(`%s["%s"]`, step.ID, label)
	}
}
