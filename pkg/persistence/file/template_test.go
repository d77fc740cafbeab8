package file

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowsmith/flowsmith/pkg/models"
	"github.com/flowsmith/flowsmith/pkg/persistence"
)

func newTestRepository(t *testing.T) *TemplateRepository {
	t.Helper()

	return NewTemplateRepository(t.TempDir())
}

func sampleTemplate(id, version string) *models.Template {
	return &models.Template{
		AccountID: "acc-1",
		ID:        id,
		Version:   version,
		Label:     "Onboarding",
		Status:    models.TemplateStatusDraft,
		Definition: &models.Definition{
			Steps: []*models.Step{
				{
					ID:         "aaaaaaaaaa",
					Type:       models.StepTypeTrigger,
					Capability: "form.submitted",
					Params:     map[string]any{"formId": "form-9"},
					Next:       []string{"bbbbbbbbbb"},
				},
				{ID: "bbbbbbbbbb", Type: models.StepTypeEnd},
			},
		},
	}
}

func TestTemplateRepository_CreateAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, sampleTemplate("tpl-1", "1.0.0"))
	require.NoError(t, err)
	assert.Equal(t, "form-9", created.LinkedFormID)
	assert.Equal(t, persistence.WorkflowTypeFormIntake, created.WorkflowType)
	assert.False(t, created.CreatedAt.IsZero())

	found, err := repo.Get(ctx, "acc-1", nil, "tpl-1", "1.0.0")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Onboarding", found.Label)
	require.NotNil(t, found.Definition)
	assert.Len(t, found.Definition.Steps, 2)
}

func TestTemplateRepository_CreateDuplicate(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, sampleTemplate("tpl-1", "1.0.0"))
	require.NoError(t, err)

	_, err = repo.Create(ctx, sampleTemplate("tpl-1", "1.0.0"))
	require.Error(t, err)
	assert.True(t, persistence.IsTemplateAlreadyExists(err))
}

func TestTemplateRepository_GetMissReturnsNil(t *testing.T) {
	repo := newTestRepository(t)

	found, err := repo.Get(context.Background(), "acc-1", nil, "nope", "1.0.0")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestTemplateRepository_GetLatestVersion(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	for _, version := range []string{"1.9.0", "1.10.0", "1.2.0"} {
		_, err := repo.Create(ctx, sampleTemplate("tpl-1", version))
		require.NoError(t, err)
	}

	latest, err := repo.Get(ctx, "acc-1", nil, "tpl-1", "")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "1.10.0", latest.Version)
}

func TestTemplateRepository_OrganizationVisibility(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	orgA := "org-a"

	accountLevel := sampleTemplate("tpl-acc", "1.0.0")
	_, err := repo.Create(ctx, accountLevel)
	require.NoError(t, err)

	scoped := sampleTemplate("tpl-org", "1.0.0")
	scoped.OrganizationID = &orgA
	_, err = repo.Create(ctx, scoped)
	require.NoError(t, err)

	// Account scope does not see organization templates.
	found, err := repo.Get(ctx, "acc-1", nil, "tpl-org", "1.0.0")
	require.NoError(t, err)
	assert.Nil(t, found)

	// Organization scope sees both its own and account-level templates.
	found, err = repo.Get(ctx, "acc-1", &orgA, "tpl-org", "1.0.0")
	require.NoError(t, err)
	assert.NotNil(t, found)

	found, err = repo.Get(ctx, "acc-1", &orgA, "tpl-acc", "1.0.0")
	require.NoError(t, err)
	assert.NotNil(t, found)

	listed, err := repo.List(ctx, "acc-1", persistence.ListTemplatesOptions{OrganizationID: &orgA})
	require.NoError(t, err)
	assert.Equal(t, int64(2), listed.TotalCount)

	listed, err = repo.List(ctx, "acc-1", persistence.ListTemplatesOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), listed.TotalCount)
}

func TestTemplateRepository_ListFilters(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	published := sampleTemplate("tpl-pub", "1.0.0")
	published.Status = models.TemplateStatusPublished
	published.Tags = []string{"hr", "intake"}
	_, err := repo.Create(ctx, published)
	require.NoError(t, err)

	draft := sampleTemplate("tpl-draft", "1.0.0")
	draft.Label = "Expense review"
	_, err = repo.Create(ctx, draft)
	require.NoError(t, err)

	byStatus, err := repo.List(ctx, "acc-1", persistence.ListTemplatesOptions{
		Statuses: []models.TemplateStatus{models.TemplateStatusPublished},
	})
	require.NoError(t, err)
	require.Len(t, byStatus.Templates, 1)
	assert.Equal(t, "tpl-pub", byStatus.Templates[0].ID)

	byTag, err := repo.List(ctx, "acc-1", persistence.ListTemplatesOptions{Tags: []string{"hr"}})
	require.NoError(t, err)
	assert.Len(t, byTag.Templates, 1)

	byLabel, err := repo.List(ctx, "acc-1", persistence.ListTemplatesOptions{Label: "expense"})
	require.NoError(t, err)
	require.Len(t, byLabel.Templates, 1)
	assert.Equal(t, "tpl-draft", byLabel.Templates[0].ID)
}

func TestTemplateRepository_ListPagination(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	for _, id := range []string{"tpl-1", "tpl-2", "tpl-3"} {
		_, err := repo.Create(ctx, sampleTemplate(id, "1.0.0"))
		require.NoError(t, err)
	}

	page, err := repo.List(ctx, "acc-1", persistence.ListTemplatesOptions{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.TotalCount)
	assert.Len(t, page.Templates, 1)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.PageSize)
}

func TestTemplateRepository_UpdateMovesVersion(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, sampleTemplate("tpl-1", "1.0.0"))
	require.NoError(t, err)

	label := "Renamed"

	updated, err := repo.Update(ctx, "acc-1", "tpl-1", "1.0.0", persistence.TemplatePatch{Label: &label})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "1.0.1", updated.Version)
	assert.Equal(t, "Renamed", updated.Label)

	// The superseded version is gone; the expected version cannot be consumed twice.
	stale, err := repo.Update(ctx, "acc-1", "tpl-1", "1.0.0", persistence.TemplatePatch{Label: &label})
	require.NoError(t, err)
	assert.Nil(t, stale)

	found, err := repo.Get(ctx, "acc-1", nil, "tpl-1", "")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "1.0.1", found.Version)
}

func TestTemplateRepository_UpdateExplicitVersion(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, sampleTemplate("tpl-1", "1.0.0"))
	require.NoError(t, err)

	version := "2.0.0"

	updated, err := repo.Update(ctx, "acc-1", "tpl-1", "1.0.0", persistence.TemplatePatch{Version: &version})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "2.0.0", updated.Version)
}

func TestTemplateRepository_UpdateRederivesMetadata(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, sampleTemplate("tpl-1", "1.0.0"))
	require.NoError(t, err)

	definition := &models.Definition{
		Steps: []*models.Step{
			{ID: "cccccccccc", Type: models.StepTypeTrigger, Capability: "schedule.cron"},
		},
	}

	updated, err := repo.Update(ctx, "acc-1", "tpl-1", "1.0.0", persistence.TemplatePatch{Definition: definition})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Empty(t, updated.LinkedFormID)
	assert.Equal(t, persistence.WorkflowTypeScheduled, updated.WorkflowType)
}

func TestTemplateRepository_ConcurrentUpdatesSingleWinner(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, sampleTemplate("tpl-1", "1.0.0"))
	require.NoError(t, err)

	labelA := "Writer A"
	labelB := "Writer B"

	var (
		wg      sync.WaitGroup
		results [2]*models.Template
		errs    [2]error
	)

	wg.Add(2)

	go func() {
		defer wg.Done()

		results[0], errs[0] = repo.Update(ctx, "acc-1", "tpl-1", "1.0.0", persistence.TemplatePatch{Label: &labelA})
	}()

	go func() {
		defer wg.Done()

		results[1], errs[1] = repo.Update(ctx, "acc-1", "tpl-1", "1.0.0", persistence.TemplatePatch{Label: &labelB})
	}()

	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	winners := 0

	for _, result := range results {
		if result != nil {
			winners++
		}
	}

	assert.Equal(t, 1, winners)
}

func TestTemplateRepository_Upsert(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first, err := repo.Upsert(ctx, sampleTemplate("tpl-1", "1.0.0"))
	require.NoError(t, err)
	createdAt := first.CreatedAt

	replacement := sampleTemplate("tpl-1", "1.0.0")
	replacement.Label = "Replaced"

	second, err := repo.Upsert(ctx, replacement)
	require.NoError(t, err)
	assert.Equal(t, "Replaced", second.Label)
	assert.Equal(t, createdAt, second.CreatedAt)
}

func TestTemplateRepository_Delete(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, sampleTemplate("tpl-1", "1.0.0"))
	require.NoError(t, err)

	deleted, err := repo.Delete(ctx, "acc-1", "tpl-1", "1.0.0")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, "acc-1", "tpl-1", "1.0.0")
	require.NoError(t, err)
	assert.False(t, deleted)
}
