package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/flowsmith/flowsmith/pkg/models"
	"github.com/flowsmith/flowsmith/pkg/persistence"
)

// TemplateRepository stores each template version as one JSON document under
// <root>/templates/<account>/<id>@<version>.json. A single mutex serializes
// conditional writes so the concurrency contract (exactly one winner, losers
// observe nil/false) holds without file locking.
type TemplateRepository struct {
	root string
	mu   sync.Mutex
}

// NewTemplateRepository creates a new template repository.
func NewTemplateRepository(root string) *TemplateRepository {
	return &TemplateRepository{root: root}
}

// Create inserts a new template version.
func (r *TemplateRepository) Create(_ context.Context, template *models.Template) (*models.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	path := r.path(template.AccountID, template.ID, template.Version)
	if _, err := os.Stat(path); err == nil {
		return nil, persistence.NewTemplateError("Create", template.AccountID, template.ID, template.Version,
			persistence.ErrTemplateAlreadyExists)
	}

	now := time.Now().UTC()

	if template.CreatedAt.IsZero() {
		template.CreatedAt = now
	}

	template.UpdatedAt = now

	if template.Status == "" {
		template.Status = models.TemplateStatusDraft
	}

	persistence.DeriveMetadata(template)

	err := r.write(path, template)
	if err != nil {
		return nil, err
	}

	return template, nil
}

// Get returns a template by identity, or the latest version when version is
// empty. A miss returns (nil, nil).
func (r *TemplateRepository) Get(_ context.Context, accountID string, organizationID *string, id, version string) (*models.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if version != "" {
		template, err := r.read(r.path(accountID, id, version))
		if err != nil {
			return nil, err
		}

		if template == nil || !visible(template, organizationID) {
			return nil, nil
		}

		return template, nil
	}

	versions, err := r.loadAll(accountID)
	if err != nil {
		return nil, err
	}

	var latest *models.Template

	for _, template := range versions {
		if template.ID != id || !visible(template, organizationID) {
			continue
		}

		if latest == nil || persistence.CompareVersions(template.Version, latest.Version) > 0 {
			latest = template
		}
	}

	return latest, nil
}

// List returns one page of templates matching the options.
func (r *TemplateRepository) List(_ context.Context, accountID string, opts persistence.ListTemplatesOptions) (*persistence.TemplateListResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	opts.PageSize = persistence.ClampPageSize(opts.PageSize)
	if opts.Page < 1 {
		opts.Page = 1
	}

	all, err := r.loadAll(accountID)
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.Template, 0, len(all))

	for _, template := range all {
		if matches(template, opts) {
			filtered = append(filtered, template)
		}
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	totalCount := int64(len(filtered))
	start := (opts.Page - 1) * opts.PageSize
	end := start + opts.PageSize

	if start >= len(filtered) {
		filtered = []*models.Template{}
	} else {
		if end > len(filtered) {
			end = len(filtered)
		}

		filtered = filtered[start:end]
	}

	return &persistence.TemplateListResult{
		Templates:  filtered,
		TotalCount: totalCount,
		Page:       opts.Page,
		PageSize:   opts.PageSize,
	}, nil
}

// Update applies a patch conditioned on expectedVersion and moves the
// document to its successor version, so a given expected version can be
// consumed at most once; (nil, nil) signals the document no longer matches.
func (r *TemplateRepository) Update(_ context.Context, accountID, id, expectedVersion string, patch persistence.TemplatePatch) (*models.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	path := r.path(accountID, id, expectedVersion)

	template, err := r.read(path)
	if err != nil {
		return nil, err
	}

	if template == nil {
		return nil, nil
	}

	newVersion := persistence.BumpVersion(expectedVersion)
	if patch.Version != nil {
		newVersion = *patch.Version
	}

	newPath := r.path(accountID, id, newVersion)
	if newPath != path {
		if _, err := os.Stat(newPath); err == nil {
			return nil, persistence.NewTemplateError("Update", accountID, id, newVersion,
				persistence.ErrTemplateAlreadyExists)
		}
	}

	template.Version = newVersion

	if patch.Label != nil {
		template.Label = *patch.Label
	}

	if patch.Status != nil {
		template.Status = *patch.Status
	}

	if patch.Definition != nil {
		template.Definition = patch.Definition
		persistence.DeriveMetadata(template)
	}

	if patch.Tags != nil {
		template.Tags = patch.Tags
	}

	if patch.Diagram != nil {
		template.Diagram = *patch.Diagram
	}

	if patch.UpdatedBy != "" {
		template.UpdatedBy = patch.UpdatedBy
	}

	template.UpdatedAt = time.Now().UTC()

	err = r.write(newPath, template)
	if err != nil {
		return nil, err
	}

	if newPath != path {
		err = os.Remove(path)
		if err != nil {
			return nil, fmt.Errorf("failed to remove superseded template file: %w", err)
		}
	}

	return template, nil
}

// Upsert replaces-or-inserts on the full composite identity. Creation-time
// fields and organization scoping survive a replace.
func (r *TemplateRepository) Upsert(_ context.Context, template *models.Template) (*models.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	path := r.path(template.AccountID, template.ID, template.Version)

	existing, err := r.read(path)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	if existing != nil {
		template.CreatedAt = existing.CreatedAt
		template.CreatedBy = existing.CreatedBy
		template.OrganizationID = existing.OrganizationID
	} else if template.CreatedAt.IsZero() {
		template.CreatedAt = now
	}

	template.UpdatedAt = now

	if template.Status == "" {
		template.Status = models.TemplateStatusDraft
	}

	persistence.DeriveMetadata(template)

	err = r.write(path, template)
	if err != nil {
		return nil, err
	}

	return template, nil
}

// Delete removes a template version, reporting whether a document matched.
func (r *TemplateRepository) Delete(_ context.Context, accountID, id, version string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	path := r.path(accountID, id, version)

	err := os.Remove(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to delete template file: %w", err)
	}

	return true, nil
}

func (r *TemplateRepository) path(accountID, id, version string) string {
	return filepath.Join(r.root, "templates", accountID, id+"@"+version+".json")
}

func (r *TemplateRepository) read(path string) (*models.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read template file: %w", err)
	}

	var template models.Template

	err = json.Unmarshal(data, &template)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal template file %s: %w", path, err)
	}

	return &template, nil
}

func (r *TemplateRepository) write(path string, template *models.Template) error {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return fmt.Errorf("failed to create template directory: %w", err)
	}

	data, err := json.MarshalIndent(template, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal template: %w", err)
	}

	err = os.WriteFile(path, data, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write template file: %w", err)
	}

	return nil
}

func (r *TemplateRepository) loadAll(accountID string) ([]*models.Template, error) {
	dir := filepath.Join(r.root, "templates", accountID)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.Template{}, nil
		}

		return nil, fmt.Errorf("failed to list template files: %w", err)
	}

	templates := make([]*models.Template, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		template, err := r.read(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		if template != nil {
			templates = append(templates, template)
		}
	}

	return templates, nil
}

// visible applies organization scoping: account-level (nil-organization)
// templates are visible at every scope; organization templates only within
// their own organization.
func visible(template *models.Template, organizationID *string) bool {
	if template.OrganizationID == nil {
		return true
	}

	return organizationID != nil && *template.OrganizationID == *organizationID
}

func matches(template *models.Template, opts persistence.ListTemplatesOptions) bool {
	if !visible(template, opts.OrganizationID) {
		return false
	}

	if len(opts.Statuses) > 0 {
		found := false

		for _, status := range opts.Statuses {
			if template.Status == status {
				found = true

				break
			}
		}

		if !found {
			return false
		}
	}

	for _, wanted := range opts.Tags {
		found := false

		for _, tag := range template.Tags {
			if tag == wanted {
				found = true

				break
			}
		}

		if !found {
			return false
		}
	}

	if opts.Label != "" && !strings.Contains(strings.ToLower(template.Label), strings.ToLower(opts.Label)) {
		return false
	}

	if opts.WorkflowType != "" && template.WorkflowType != opts.WorkflowType {
		return false
	}

	if opts.CreatedAfter != nil && template.CreatedAt.Before(*opts.CreatedAfter) {
		return false
	}

	if opts.CreatedBefore != nil && template.CreatedAt.After(*opts.CreatedBefore) {
		return false
	}

	return true
}
