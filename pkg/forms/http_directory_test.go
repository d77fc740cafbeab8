package forms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPDirectory_ListForms(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "acc-1", r.URL.Query().Get("accountId"))
		assert.Equal(t, "org-a", r.URL.Query().Get("organizationId"))

		err := json.NewEncoder(w).Encode([]Form{
			{ID: "form-1", Name: "Vacation request"},
			{ID: "form-2", Name: "Expense claim"},
		})
		require.NoError(t, err)
	}))
	defer server.Close()

	orgA := "org-a"
	directory := NewHTTPDirectory(server.URL)

	forms, err := directory.ListForms(context.Background(), "acc-1", &orgA)
	require.NoError(t, err)
	require.Len(t, forms, 2)
	assert.Equal(t, "form-1", forms[0].ID)
}

func TestHTTPDirectory_ListFormsUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	directory := NewHTTPDirectory(server.URL)

	_, err := directory.ListForms(context.Background(), "acc-1", nil)
	assert.Error(t, err)
}
