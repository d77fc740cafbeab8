// Package persistence provides the storage abstraction for versioned workflow
// templates. Every mutation is conditioned on the full composite identity
// (account, id, version); there are no locks and no multi-document
// transactions — each template document is the unit of atomicity, and losers
// of a concurrent conditional write observe nil/false rather than an error.
package persistence

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/flowsmith/flowsmith/pkg/models"
)

// MaxPageSize caps list pagination; requested sizes are clamped to [1, MaxPageSize].
const MaxPageSize = 100

// DefaultPageSize is used when no page size is requested.
const DefaultPageSize = 20

// Persistence is the storage entry point.
type Persistence interface {
	TemplateRepository() TemplateRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// ListTemplatesOptions filters and paginates a template listing within one
// account. A nil OrganizationID restricts the listing to account-level
// templates; a concrete organization widens it to the union of account-level
// and that organization's templates.
type ListTemplatesOptions struct {
	OrganizationID *string
	Statuses       []models.TemplateStatus
	Tags           []string
	Label          string
	WorkflowType   string
	CreatedAfter   *time.Time
	CreatedBefore  *time.Time
	Page           int
	PageSize       int
}

// TemplateListResult is one page of a template listing.
type TemplateListResult struct {
	Templates  []*models.Template `json:"templates"`
	TotalCount int64              `json:"totalCount"`
	Page       int                `json:"page"`
	PageSize   int                `json:"pageSize"`
}

// TemplatePatch carries the mutable fields of a version-gated update. Nil
// fields are left untouched. Version names the version the document moves to;
// when nil, the last numeric segment of the expected version is incremented.
type TemplatePatch struct {
	Version    *string
	Label      *string
	Status     *models.TemplateStatus
	Definition *models.Definition
	Tags       []string
	Diagram    *string
	UpdatedBy  string
}

// TemplateRepository is the account/organization-scoped versioned store.
type TemplateRepository interface {
	// Create inserts a new template and returns the stored document.
	// An existing (account, id, version) identity yields ErrTemplateAlreadyExists.
	Create(ctx context.Context, template *models.Template) (*models.Template, error)

	// Get returns a template by identity, or the latest version when version
	// is empty. A miss returns (nil, nil), not an error.
	Get(ctx context.Context, accountID string, organizationID *string, id, version string) (*models.Template, error)

	// List returns one page of templates matching the options.
	List(ctx context.Context, accountID string, opts ListTemplatesOptions) (*TemplateListResult, error)

	// Update applies a patch conditioned on expectedVersion and moves the
	// document to a new version, so a given expected version can be consumed
	// at most once. When no document matches, it returns (nil, nil): the
	// concurrency-conflict signal.
	Update(ctx context.Context, accountID, id, expectedVersion string, patch TemplatePatch) (*models.Template, error)

	// Upsert replaces-or-inserts on the full composite identity, re-deriving
	// the denormalized metadata before writing.
	Upsert(ctx context.Context, template *models.Template) (*models.Template, error)

	// Delete removes a template version. It reports whether a document
	// matched; a miss is false, not an error.
	Delete(ctx context.Context, accountID, id, version string) (bool, error)
}

// ClampPageSize normalizes a requested page size into [1, MaxPageSize].
func ClampPageSize(pageSize int) int {
	if pageSize <= 0 {
		return DefaultPageSize
	}

	if pageSize > MaxPageSize {
		return MaxPageSize
	}

	return pageSize
}

// BumpVersion returns the successor of a semantic version string by
// incrementing its last numeric dot segment. A version with no numeric
// segment gains a ".1" suffix.
func BumpVersion(version string) string {
	segs := strings.Split(version, ".")

	for i := len(segs) - 1; i >= 0; i-- {
		n, err := strconv.Atoi(segs[i])
		if err != nil {
			continue
		}

		segs[i] = strconv.Itoa(n + 1)

		return strings.Join(segs, ".")
	}

	return version + ".1"
}

// CompareVersions orders semantic version strings: dot segments compare
// numerically when both sides are numeric, lexically otherwise. Returns
// -1, 0 or 1.
func CompareVersions(a, b string) int {
	segsA := strings.Split(a, ".")
	segsB := strings.Split(b, ".")

	for i := 0; i < len(segsA) || i < len(segsB); i++ {
		var sa, sb string

		if i < len(segsA) {
			sa = segsA[i]
		}

		if i < len(segsB) {
			sb = segsB[i]
		}

		na, errA := strconv.Atoi(sa)
		nb, errB := strconv.Atoi(sb)

		switch {
		case errA == nil && errB == nil:
			if na != nb {
				if na < nb {
					return -1
				}

				return 1
			}
		default:
			if sa != sb {
				if sa < sb {
					return -1
				}

				return 1
			}
		}
	}

	return 0
}
