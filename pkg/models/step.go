// Package models defines the core domain models for AI-assisted workflow template authoring.
package models

// StepType represents the behavioral variant of a step in a definition graph.
type StepType string

const (
	StepTypeTrigger   StepType = "trigger"   // Entry point, fires the workflow
	StepTypeAction    StepType = "action"    // Executes a capability
	StepTypeCondition StepType = "condition" // Branches on pass/fail
	StepTypeEnd       StepType = "end"       // Terminal node
)

// Step is one node in a definition graph. Trigger and action steps chain
// through Next; condition steps branch through OnConditionPass/OnConditionFail.
// Step ids are 10 characters over [A-Za-z0-9_-] (see pkg/shortid).
type Step struct {
	ID              string         `json:"id"                        validate:"required,len=10"`
	Type            StepType       `json:"type"                      validate:"required,oneof=trigger action condition end"`
	Capability      string         `json:"capability,omitempty"`
	Label           string         `json:"label,omitempty"`
	Params          map[string]any `json:"params,omitempty"`
	Next            []string       `json:"next,omitempty"`
	OnConditionPass string         `json:"onConditionPass,omitempty"`
	OnConditionFail string         `json:"onConditionFail,omitempty"`
}

// IsTrigger reports whether the step is a workflow entry point.
func (s *Step) IsTrigger() bool {
	return s.Type == StepTypeTrigger
}

// Definition is the directed graph of steps describing an automation.
// Step order is an authoring convenience only; execution order is determined
// by edges. Definitions are mutated by whole-document replacement, never
// patched incrementally.
type Definition struct {
	Steps []*Step `json:"steps"`
}

// FirstTrigger returns the first trigger step in document order, or nil.
func (d *Definition) FirstTrigger() *Step {
	if d == nil {
		return nil
	}

	for _, step := range d.Steps {
		if step != nil && step.IsTrigger() {
			return step
		}
	}

	return nil
}
