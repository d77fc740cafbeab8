package persistence

import (
	"testing"

	"github.com/flowsmith/flowsmith/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestDeriveMetadata_FormIntake(t *testing.T) {
	template := &models.Template{
		Definition: &models.Definition{
			Steps: []*models.Step{
				{
					ID:         "aaaaaaaaaa",
					Type:       models.StepTypeTrigger,
					Capability: "form.submitted",
					Params:     map[string]any{"formId": "form-123"},
					Next:       []string{"bbbbbbbbbb"},
				},
				{ID: "bbbbbbbbbb", Type: models.StepTypeEnd},
			},
		},
	}

	DeriveMetadata(template)

	assert.Equal(t, "form-123", template.LinkedFormID)
	assert.Equal(t, WorkflowTypeFormIntake, template.WorkflowType)
}

func TestDeriveMetadata_Scheduled(t *testing.T) {
	template := &models.Template{
		Definition: &models.Definition{
			Steps: []*models.Step{
				{ID: "aaaaaaaaaa", Type: models.StepTypeTrigger, Capability: "schedule.cron"},
			},
		},
	}

	DeriveMetadata(template)

	assert.Empty(t, template.LinkedFormID)
	assert.Equal(t, WorkflowTypeScheduled, template.WorkflowType)
}

func TestDeriveMetadata_ClearsStaleValues(t *testing.T) {
	template := &models.Template{
		LinkedFormID: "stale-form",
		WorkflowType: WorkflowTypeFormIntake,
		Definition: &models.Definition{
			Steps: []*models.Step{
				{ID: "aaaaaaaaaa", Type: models.StepTypeAction, Capability: "notify.email"},
			},
		},
	}

	DeriveMetadata(template)

	assert.Empty(t, template.LinkedFormID)
	assert.Empty(t, template.WorkflowType)
}

func TestDeriveMetadata_NilDefinition(t *testing.T) {
	template := &models.Template{LinkedFormID: "stale", WorkflowType: "stale"}

	DeriveMetadata(template)

	assert.Empty(t, template.LinkedFormID)
	assert.Empty(t, template.WorkflowType)
}

func TestCompareVersions(t *testing.T) {
	assert.Equal(t, -1, CompareVersions("1.9.0", "1.10.0"))
	assert.Equal(t, 1, CompareVersions("2.0.0", "1.99.99"))
	assert.Equal(t, 0, CompareVersions("1.2.3", "1.2.3"))
	assert.Equal(t, -1, CompareVersions("1.2", "1.2.1"))
}

func TestBumpVersion(t *testing.T) {
	assert.Equal(t, "1.0.1", BumpVersion("1.0.0"))
	assert.Equal(t, "1.0.10", BumpVersion("1.0.9"))
	assert.Equal(t, "3", BumpVersion("2"))
	assert.Equal(t, "1.3.beta", BumpVersion("1.2.beta"))
	assert.Equal(t, "alpha.1", BumpVersion("alpha"))
}

func TestClampPageSize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, ClampPageSize(0))
	assert.Equal(t, DefaultPageSize, ClampPageSize(-5))
	assert.Equal(t, 50, ClampPageSize(50))
	assert.Equal(t, MaxPageSize, ClampPageSize(10_000))
}
