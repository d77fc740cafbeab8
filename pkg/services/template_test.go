package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowsmith/flowsmith/pkg/models"
	"github.com/flowsmith/flowsmith/pkg/persistence/file"
)

func newTestService(t *testing.T) *Template {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	return NewTemplate(file.NewPersistence(t.TempDir()), nil, logger)
}

func validDefinition() *models.Definition {
	return &models.Definition{
		Steps: []*models.Step{
			{
				ID:         "aaaaaaaaaa",
				Type:       models.StepTypeTrigger,
				Capability: "form.submitted",
				Params:     map[string]any{"formId": "form-7"},
				Next:       []string{"bbbbbbbbbb"},
			},
			{ID: "bbbbbbbbbb", Type: models.StepTypeEnd},
		},
	}
}

func TestTemplateService_Create(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, CreateTemplateRequest{
		AccountID:  "acc-1",
		Label:      "Onboarding",
		Definition: validDefinition(),
		CreatedBy:  "user-1",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "1.0.0", created.Version)
	assert.Equal(t, models.TemplateStatusDraft, created.Status)
	assert.Equal(t, "form-7", created.LinkedFormID)
	assert.Contains(t, created.Diagram, "flowchart TD")
}

func TestTemplateService_CreateRequiresLabel(t *testing.T) {
	service := newTestService(t)

	_, err := service.Create(context.Background(), CreateTemplateRequest{
		AccountID:  "acc-1",
		Definition: validDefinition(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestTemplateService_CreateRejectsInvalidDefinition(t *testing.T) {
	service := newTestService(t)

	definition := validDefinition()
	definition.Steps[0].Next = []string{"zzzzzzzzzz"}

	_, err := service.Create(context.Background(), CreateTemplateRequest{
		AccountID:  "acc-1",
		Label:      "Broken",
		Definition: definition,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDefinitionInvalid))

	var validationErr *DefinitionValidationError

	require.ErrorAs(t, err, &validationErr)
	require.Len(t, validationErr.Result.Errors, 1)
	assert.Contains(t, validationErr.Result.Errors[0], "unknown step id")
}

func TestTemplateService_CreateDuplicate(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	req := CreateTemplateRequest{
		AccountID:  "acc-1",
		ID:         "tpl-1",
		Label:      "Onboarding",
		Definition: validDefinition(),
	}

	_, err := service.Create(ctx, req)
	require.NoError(t, err)

	_, err = service.Create(ctx, req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTemplateAlreadyExists))
}

func TestTemplateService_GetNotFound(t *testing.T) {
	service := newTestService(t)

	_, err := service.Get(context.Background(), "acc-1", nil, "nope", "")
	assert.True(t, errors.Is(err, ErrTemplateNotFound))
}

func TestTemplateService_Update(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, CreateTemplateRequest{
		AccountID:  "acc-1",
		ID:         "tpl-1",
		Label:      "Onboarding",
		Definition: validDefinition(),
	})
	require.NoError(t, err)

	label := "Onboarding v2"

	updated, err := service.Update(ctx, "acc-1", "tpl-1", created.Version, UpdateTemplateRequest{
		Label:     &label,
		UpdatedBy: "user-2",
	})
	require.NoError(t, err)
	assert.Equal(t, "Onboarding v2", updated.Label)
	assert.NotEqual(t, created.Version, updated.Version)

	// The consumed version is a conflict for later writers.
	_, err = service.Update(ctx, "acc-1", "tpl-1", created.Version, UpdateTemplateRequest{Label: &label})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrVersionConflict))
}

func TestTemplateService_UpdateRejectsInvalidDefinition(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, CreateTemplateRequest{
		AccountID:  "acc-1",
		ID:         "tpl-1",
		Label:      "Onboarding",
		Definition: validDefinition(),
	})
	require.NoError(t, err)

	broken := validDefinition()
	broken.Steps = append(broken.Steps, &models.Step{ID: "aaaaaaaaaa", Type: models.StepTypeEnd})

	_, err = service.Update(ctx, "acc-1", "tpl-1", created.Version, UpdateTemplateRequest{Definition: broken})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDefinitionInvalid))

	// Nothing was written; the stored template is untouched.
	stored, err := service.Get(ctx, "acc-1", nil, "tpl-1", "")
	require.NoError(t, err)
	assert.Equal(t, created.Version, stored.Version)
}

func TestTemplateService_Publish(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, CreateTemplateRequest{
		AccountID:  "acc-1",
		ID:         "tpl-1",
		Label:      "Onboarding",
		Definition: validDefinition(),
	})
	require.NoError(t, err)

	published, err := service.Publish(ctx, "acc-1", nil, "tpl-1", created.Version, "user-3")
	require.NoError(t, err)
	assert.Equal(t, models.TemplateStatusPublished, published.Status)
	assert.Equal(t, created.Version, published.Version)
}

func TestTemplateService_PublishRejectsEmptyDefinition(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, CreateTemplateRequest{
		AccountID:  "acc-1",
		ID:         "tpl-1",
		Label:      "Empty",
		Definition: &models.Definition{},
	})
	require.NoError(t, err)

	_, err = service.Publish(ctx, "acc-1", nil, "tpl-1", created.Version, "user-3")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDefinitionInvalid))

	var validationErr *DefinitionValidationError

	require.ErrorAs(t, err, &validationErr)
	assert.NotEmpty(t, validationErr.Result.Errors)
}

func TestTemplateService_Delete(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, CreateTemplateRequest{
		AccountID:  "acc-1",
		ID:         "tpl-1",
		Label:      "Onboarding",
		Definition: validDefinition(),
	})
	require.NoError(t, err)

	err = service.Delete(ctx, "acc-1", nil, "tpl-1", created.Version)
	require.NoError(t, err)

	err = service.Delete(ctx, "acc-1", nil, "tpl-1", created.Version)
	assert.True(t, errors.Is(err, ErrTemplateNotFound))
}

func TestTemplateService_ValidateDefinition(t *testing.T) {
	service := newTestService(t)

	result := service.ValidateDefinition(validDefinition())
	assert.True(t, result.Valid)

	result = service.CheckPublishReadiness("", validDefinition())
	assert.False(t, result.Valid)
}
