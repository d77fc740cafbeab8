package forms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// HTTPDirectory is an HTTP implementation of the Directory interface.
type HTTPDirectory struct {
	baseURL string
	client  *http.Client
}

// NewHTTPDirectory creates a new HTTPDirectory.
func NewHTTPDirectory(baseURL string) *HTTPDirectory {
	return &HTTPDirectory{baseURL: baseURL, client: http.DefaultClient}
}

// ListForms returns the forms visible at the given scope.
func (d *HTTPDirectory) ListForms(ctx context.Context, accountID string, organizationID *string) ([]Form, error) {
	query := url.Values{"accountId": {accountID}}
	if organizationID != nil {
		query.Set("organizationId", *organizationID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/forms?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to list forms: status code %d", resp.StatusCode)
	}

	var result []Form
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	return result, nil
}

// ListFacts returns the fact catalog of one form.
func (d *HTTPDirectory) ListFacts(ctx context.Context, accountID, formID string) ([]Fact, error) {
	query := url.Values{"accountId": {accountID}}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		d.baseURL+"/forms/"+url.PathEscape(formID)+"/facts?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to list facts: status code %d", resp.StatusCode)
	}

	var result []Fact
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	return result, nil
}
