// Package file provides a file-based persistence implementation, used for
// local development and tests.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/flowsmith/flowsmith/pkg/persistence"
)

// Persistence implements persistence.Persistence on the local file system.
type Persistence struct {
	root         string
	templateRepo *TemplateRepository
}

// NewPersistence creates a file persistence layer rooted at the given
// directory. A "file://" prefix is tolerated.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:         cleanRoot,
		templateRepo: NewTemplateRepository(cleanRoot),
	}
}

// TemplateRepository returns the template repository.
func (p *Persistence) TemplateRepository() persistence.TemplateRepository {
	return p.templateRepo
}

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. Nothing to clean up for files.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}
