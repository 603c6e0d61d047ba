package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPQualityScore_DerivesCategories(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"fraud_score":85,"recent_abuse":true,"proxy":true}`))
	}))
	defer srv.Close()

	adapter := &IPQualityScore{BaseURL: srv.URL, APIKey: "test-key"}
	res, err := adapter.Check(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	require.NotNil(t, res.Score)
	assert.Equal(t, 85, *res.Score)
	assert.Contains(t, res.Categories, "abuse")
	assert.Contains(t, res.Categories, "proxy")
	require.NotNil(t, res.IsProxy)
	assert.True(t, *res.IsProxy)
}

func TestIPQualityScore_CleanIPHasNoCategories(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"fraud_score":0}`))
	}))
	defer srv.Close()

	adapter := &IPQualityScore{BaseURL: srv.URL, APIKey: "test-key"}
	res, err := adapter.Check(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	assert.Empty(t, res.Categories)
}
