package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/flowsmith/flowsmith/pkg/models"
	"github.com/flowsmith/flowsmith/pkg/persistence"
	"github.com/lib/pq"
)

const uniqueViolationCode = "23505"

const templateColumns = `
	account_id
  , organization_id
  , template_id
  , version
  , label
  , status
  , definition
  , tags
  , linked_form_id
  , workflow_type
  , diagram
  , created_by
  , updated_by
  , created_at
  , updated_at
`

// TemplateRepository handles template-related database operations.
type TemplateRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTemplateRepository creates a new template repository.
func NewTemplateRepository(db *sql.DB, logger *slog.Logger) *TemplateRepository {
	return &TemplateRepository{db: db, logger: logger}
}

// Create inserts a new template. An identity collision yields
// ErrTemplateAlreadyExists.
func (r *TemplateRepository) Create(ctx context.Context, template *models.Template) (*models.Template, error) {
	now := time.Now().UTC()

	if template.CreatedAt.IsZero() {
		template.CreatedAt = now
	}

	template.UpdatedAt = now

	if template.Status == "" {
		template.Status = models.TemplateStatusDraft
	}

	persistence.DeriveMetadata(template)

	definitionJSON, err := marshalDefinition(template.Definition)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO templates (` + templateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = r.db.ExecContext(ctx, query,
		template.AccountID,
		template.OrganizationID,
		template.ID,
		template.Version,
		template.Label,
		template.Status,
		definitionJSON,
		pq.Array(tagsOrEmpty(template.Tags)),
		nullable(template.LinkedFormID),
		nullable(template.WorkflowType),
		nullable(template.Diagram),
		nullable(template.CreatedBy),
		nullable(template.UpdatedBy),
		template.CreatedAt,
		template.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode {
			return nil, persistence.NewTemplateError("Create", template.AccountID, template.ID, template.Version,
				persistence.ErrTemplateAlreadyExists)
		}

		return nil, fmt.Errorf("failed to insert template: %w", err)
	}

	return template, nil
}

// Get returns a template by identity, or the latest version when version is
// empty. Organization scope sees account-level (null-organization) rows too.
func (r *TemplateRepository) Get(ctx context.Context, accountID string, organizationID *string, id, version string) (*models.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates WHERE account_id = $1 AND template_id = $2`
	args := []any{accountID, id}

	if organizationID == nil {
		query += ` AND organization_id IS NULL`
	} else {
		query += ` AND (organization_id IS NULL OR organization_id = $3)`
		args = append(args, *organizationID)
	}

	if version != "" {
		query += fmt.Sprintf(` AND version = $%d`, len(args)+1)
		args = append(args, version)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query template: %w", err)
	}

	defer r.closeRows(ctx, rows)

	var latest *models.Template

	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}

		if latest == nil || persistence.CompareVersions(template.Version, latest.Version) > 0 {
			latest = template
		}
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating templates: %w", err)
	}

	return latest, nil
}

// List returns one page of templates matching the options.
func (r *TemplateRepository) List(ctx context.Context, accountID string, opts persistence.ListTemplatesOptions) (*persistence.TemplateListResult, error) {
	opts.PageSize = persistence.ClampPageSize(opts.PageSize)
	if opts.Page < 1 {
		opts.Page = 1
	}

	where, args := listFilters(accountID, opts)

	var totalCount int64

	countQuery := `SELECT COUNT(*) FROM templates WHERE ` + where

	err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&totalCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count templates: %w", err)
	}

	pageQuery := fmt.Sprintf(
		`SELECT `+templateColumns+` FROM templates WHERE `+where+` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		len(args)+1, len(args)+2,
	)
	args = append(args, opts.PageSize, (opts.Page-1)*opts.PageSize)

	rows, err := r.db.QueryContext(ctx, pageQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}

	defer r.closeRows(ctx, rows)

	templates := make([]*models.Template, 0, opts.PageSize)

	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}

		templates = append(templates, template)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating templates: %w", err)
	}

	return &persistence.TemplateListResult{
		Templates:  templates,
		TotalCount: totalCount,
		Page:       opts.Page,
		PageSize:   opts.PageSize,
	}, nil
}

// Update applies a patch conditioned on expectedVersion and moves the row to
// its successor version, so a given expected version can be consumed at most
// once. A vanished or version-mismatched row returns (nil, nil) — the
// conflict signal.
func (r *TemplateRepository) Update(ctx context.Context, accountID, id, expectedVersion string, patch persistence.TemplatePatch) (*models.Template, error) {
	newVersion := persistence.BumpVersion(expectedVersion)
	if patch.Version != nil {
		newVersion = *patch.Version
	}

	sets := []string{"updated_at = $1"}
	args := []any{time.Now().UTC()}

	addSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	addSet("version", newVersion)

	if patch.Label != nil {
		addSet("label", *patch.Label)
	}

	if patch.Status != nil {
		addSet("status", string(*patch.Status))
	}

	if patch.Definition != nil {
		definitionJSON, err := marshalDefinition(patch.Definition)
		if err != nil {
			return nil, err
		}

		derived := &models.Template{Definition: patch.Definition}
		persistence.DeriveMetadata(derived)

		addSet("definition", definitionJSON)
		addSet("linked_form_id", nullable(derived.LinkedFormID))
		addSet("workflow_type", nullable(derived.WorkflowType))
	}

	if patch.Tags != nil {
		addSet("tags", pq.Array(patch.Tags))
	}

	if patch.Diagram != nil {
		addSet("diagram", nullable(*patch.Diagram))
	}

	if patch.UpdatedBy != "" {
		addSet("updated_by", patch.UpdatedBy)
	}

	query := fmt.Sprintf(
		`UPDATE templates SET %s WHERE account_id = $%d AND template_id = $%d AND version = $%d RETURNING `+templateColumns,
		strings.Join(sets, ", "), len(args)+1, len(args)+2, len(args)+3,
	)
	args = append(args, accountID, id, expectedVersion)

	row := r.db.QueryRowContext(ctx, query, args...)

	template, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode {
			return nil, persistence.NewTemplateError("Update", accountID, id, newVersion,
				persistence.ErrTemplateAlreadyExists)
		}

		return nil, fmt.Errorf("failed to update template: %w", err)
	}

	return template, nil
}

// Upsert replaces-or-inserts on the full composite identity, re-deriving the
// denormalized metadata before writing. Organization scoping is fixed at
// creation and is not overwritten on conflict.
func (r *TemplateRepository) Upsert(ctx context.Context, template *models.Template) (*models.Template, error) {
	now := time.Now().UTC()

	if template.CreatedAt.IsZero() {
		template.CreatedAt = now
	}

	template.UpdatedAt = now

	if template.Status == "" {
		template.Status = models.TemplateStatusDraft
	}

	persistence.DeriveMetadata(template)

	definitionJSON, err := marshalDefinition(template.Definition)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO templates (` + templateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (account_id, template_id, version) DO UPDATE SET
			label = EXCLUDED.label,
			status = EXCLUDED.status,
			definition = EXCLUDED.definition,
			tags = EXCLUDED.tags,
			linked_form_id = EXCLUDED.linked_form_id,
			workflow_type = EXCLUDED.workflow_type,
			diagram = EXCLUDED.diagram,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + templateColumns

	row := r.db.QueryRowContext(ctx, query,
		template.AccountID,
		template.OrganizationID,
		template.ID,
		template.Version,
		template.Label,
		template.Status,
		definitionJSON,
		pq.Array(tagsOrEmpty(template.Tags)),
		nullable(template.LinkedFormID),
		nullable(template.WorkflowType),
		nullable(template.Diagram),
		nullable(template.CreatedBy),
		nullable(template.UpdatedBy),
		template.CreatedAt,
		template.UpdatedAt,
	)

	stored, err := scanTemplate(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert template: %w", err)
	}

	return stored, nil
}

// Delete removes a template version; a miss is reported as false, not an error.
func (r *TemplateRepository) Delete(ctx context.Context, accountID, id, version string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM templates WHERE account_id = $1 AND template_id = $2 AND version = $3`,
		accountID, id, version,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete template: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected > 0, nil
}

func listFilters(accountID string, opts persistence.ListTemplatesOptions) (string, []any) {
	clauses := []string{"account_id = $1"}
	args := []any{accountID}

	addArg := func(value any) int {
		args = append(args, value)

		return len(args)
	}

	if opts.OrganizationID == nil {
		clauses = append(clauses, "organization_id IS NULL")
	} else {
		n := addArg(*opts.OrganizationID)
		clauses = append(clauses, fmt.Sprintf("(organization_id IS NULL OR organization_id = $%d)", n))
	}

	if len(opts.Statuses) > 0 {
		statuses := make([]string, 0, len(opts.Statuses))
		for _, status := range opts.Statuses {
			statuses = append(statuses, string(status))
		}

		n := addArg(pq.Array(statuses))
		clauses = append(clauses, fmt.Sprintf("status = ANY($%d)", n))
	}

	if len(opts.Tags) > 0 {
		n := addArg(pq.Array(opts.Tags))
		clauses = append(clauses, fmt.Sprintf("tags @> $%d", n))
	}

	if opts.Label != "" {
		n := addArg("%" + opts.Label + "%")
		clauses = append(clauses, fmt.Sprintf("label ILIKE $%d", n))
	}

	if opts.WorkflowType != "" {
		n := addArg(opts.WorkflowType)
		clauses = append(clauses, fmt.Sprintf("workflow_type = $%d", n))
	}

	if opts.CreatedAfter != nil {
		n := addArg(*opts.CreatedAfter)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", n))
	}

	if opts.CreatedBefore != nil {
		n := addArg(*opts.CreatedBefore)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", n))
	}

	return strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*models.Template, error) {
	var (
		template       models.Template
		organizationID sql.NullString
		definitionJSON []byte
		tags           pq.StringArray
		linkedFormID   sql.NullString
		workflowType   sql.NullString
		diagram        sql.NullString
		createdBy      sql.NullString
		updatedBy      sql.NullString
	)

	err := row.Scan(
		&template.AccountID,
		&organizationID,
		&template.ID,
		&template.Version,
		&template.Label,
		&template.Status,
		&definitionJSON,
		&tags,
		&linkedFormID,
		&workflowType,
		&diagram,
		&createdBy,
		&updatedBy,
		&template.CreatedAt,
		&template.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if organizationID.Valid {
		template.OrganizationID = &organizationID.String
	}

	if len(definitionJSON) > 0 {
		template.Definition = &models.Definition{}

		err = json.Unmarshal(definitionJSON, template.Definition)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal definition: %w", err)
		}
	}

	template.Tags = []string(tags)
	template.LinkedFormID = linkedFormID.String
	template.WorkflowType = workflowType.String
	template.Diagram = diagram.String
	template.CreatedBy = createdBy.String
	template.UpdatedBy = updatedBy.String

	return &template, nil
}

func marshalDefinition(definition *models.Definition) ([]byte, error) {
	if definition == nil {
		definition = &models.Definition{Steps: []*models.Step{}}
	}

	definitionJSON, err := json.Marshal(definition)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal definition: %w", err)
	}

	return definitionJSON, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}

	return tags
}

func nullable(value string) any {
	if value == "" {
		return nil
	}

	return value
}

func (r *TemplateRepository) closeRows(ctx context.Context, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}
