package validation

import (
	"testing"

	"github.com/flowsmith/flowsmith/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDefinition() *models.Definition {
	return &models.Definition{
		Steps: []*models.Step{
			{
				ID:         "aaaaaaaaaa",
				Type:       models.StepTypeTrigger,
				Capability: "form.submitted",
				Next:       []string{"bbbbbbbbbb"},
			},
			{
				ID:   "bbbbbbbbbb",
				Type: models.StepTypeEnd,
			},
		},
	}
}

func TestValidate_ValidDefinition(t *testing.T) {
	result := Validate(validDefinition())

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidate_WrappedDefinition(t *testing.T) {
	direct := Validate(validDefinition())
	wrapped := Validate(map[string]any{"definition": validDefinition()})

	assert.Equal(t, direct, wrapped)
}

func TestValidate_DanglingReference(t *testing.T) {
	definition := validDefinition()
	definition.Steps[0].Next = []string{"cccccccccc"}

	result := Validate(definition)

	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unknown step id")
	assert.Contains(t, result.Errors[0], "cccccccccc")
}

func TestValidate_DuplicateID(t *testing.T) {
	definition := validDefinition()
	definition.Steps[1].ID = "aaaaaaaaaa"
	definition.Steps[0].Next = []string{"aaaaaaaaaa"}

	result := Validate(definition)

	require.False(t, result.Valid)
	assert.Contains(t, result.Errors[0], "duplicate step id")
	assert.Contains(t, result.Errors[0], "aaaaaaaaaa")
}

func TestValidate_AccumulatesAllViolations(t *testing.T) {
	// Duplicate id and a dangling reference at the same time: both must be
	// reported, never just the first.
	definition := &models.Definition{
		Steps: []*models.Step{
			{ID: "aaaaaaaaaa", Type: models.StepTypeTrigger, Next: []string{"gone-12345"}},
			{ID: "aaaaaaaaaa", Type: models.StepTypeEnd},
		},
	}

	result := Validate(definition)

	require.False(t, result.Valid)
	assert.GreaterOrEqual(t, len(result.Errors), 2)
}

func TestValidate_IDFormat(t *testing.T) {
	short := Validate(&models.Definition{
		Steps: []*models.Step{{ID: "short", Type: models.StepTypeEnd}},
	})
	require.False(t, short.Valid)
	assert.Contains(t, short.Errors[0], "exactly 10 characters")

	badAlphabet := Validate(&models.Definition{
		Steps: []*models.Step{{ID: "aaaa!aaaaa", Type: models.StepTypeEnd}},
	})
	require.False(t, badAlphabet.Valid)
	assert.Contains(t, badAlphabet.Errors[0], "outside [A-Za-z0-9_-]")
}

func TestValidate_ConditionEdges(t *testing.T) {
	definition := &models.Definition{
		Steps: []*models.Step{
			{ID: "aaaaaaaaaa", Type: models.StepTypeTrigger, Next: []string{"bbbbbbbbbb"}},
			{
				ID:              "bbbbbbbbbb",
				Type:            models.StepTypeCondition,
				OnConditionPass: "cccccccccc",
				OnConditionFail: "dddddddddd",
			},
			{ID: "cccccccccc", Type: models.StepTypeEnd},
		},
	}

	result := Validate(definition)

	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "dddddddddd")
	assert.Contains(t, result.Errors[0], "onConditionFail")
}

func TestValidate_NestedModelOutput(t *testing.T) {
	// Models sometimes emit a step object inline where an id belongs. The
	// flattener must still find it and validate the whole graph.
	doc := map[string]any{
		"steps": []any{
			map[string]any{
				"id":   "aaaaaaaaaa",
				"type": "trigger",
				"next": []any{
					map[string]any{
						"id":   "bbbbbbbbbb",
						"type": "end",
					},
				},
			},
		},
	}

	result := Validate(doc)

	assert.True(t, result.Valid, "errors: %v", result.Errors)
}

func TestValidate_CyclesAreAccepted(t *testing.T) {
	definition := &models.Definition{
		Steps: []*models.Step{
			{ID: "aaaaaaaaaa", Type: models.StepTypeTrigger, Next: []string{"bbbbbbbbbb"}},
			{ID: "bbbbbbbbbb", Type: models.StepTypeAction, Next: []string{"aaaaaaaaaa"}},
		},
	}

	result := Validate(definition)

	assert.True(t, result.Valid)
}

func TestValidate_EmptyDefinition(t *testing.T) {
	result := Validate(&models.Definition{Steps: []*models.Step{}})

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}
