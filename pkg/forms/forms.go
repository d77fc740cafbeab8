// Package forms provides access to the form directory, the catalog of
// request-intake forms a template can link to.
package forms

import (
	"context"
)

// Form is one entry of the form directory.
type Form struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Fact is one field of a form's fact catalog, usable as a parameter source in
// template steps.
type Fact struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type,omitempty"`
}

// Directory lists the forms visible to an account and, optionally, one of its
// organizations, and the fact catalog of each form.
type Directory interface {
	ListForms(ctx context.Context, accountID string, organizationID *string) ([]Form, error)
	ListFacts(ctx context.Context, accountID, formID string) ([]Fact, error)
}

// StaticDirectory serves a fixed set of forms and facts. Used for local
// development and tests.
type StaticDirectory struct {
	Forms []Form
	Facts map[string][]Fact
}

func (d *StaticDirectory) ListForms(_ context.Context, _ string, _ *string) ([]Form, error) {
	return d.Forms, nil
}

func (d *StaticDirectory) ListFacts(_ context.Context, _, formID string) ([]Fact, error) {
	return d.Facts[formID], nil
}
