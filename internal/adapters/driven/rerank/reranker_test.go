package rerank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewService(Config{BaseURL: server.URL, APIKey: "test-key"})
	require.NoError(t, err)
	return svc
}

func TestNewService_RequiresBaseURL(t *testing.T) {
	_, err := NewService(Config{})
	assert.ErrorContains(t, err, "base URL is required")
}

func TestService_Rerank(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rerank", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultModel, req.Model)
		assert.Equal(t, "sourdough hydration", req.Query)
		require.Len(t, req.Documents, 3)

		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"index": 2, "relevance_score": 0.95},
				{"index": 0, "relevance_score": 0.40},
				{"index": 1, "relevance_score": 0.10},
			},
		})
	})

	hits, err := svc.Rerank(context.Background(), "sourdough hydration",
		[]string{"doc a", "doc b", "doc c"})
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, 2, hits[0].Index)
	assert.InDelta(t, 0.95, hits[0].Score, 1e-9)
	assert.Equal(t, 0, hits[1].Index)
	assert.Equal(t, 1, hits[2].Index)
}

func TestService_RerankEmptyInput(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty input")
	})

	hits, err := svc.Rerank(context.Background(), "query", nil)
	require.NoError(t, err)
	assert.Nil(t, hits)
}

func TestService_RerankIndexOutOfRange(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"index": 5, "relevance_score": 0.9},
			},
		})
	})

	_, err := svc.Rerank(context.Background(), "query", []string{"only one"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestService_RerankAPIError(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "model overloaded"},
		})
	})

	_, err := svc.Rerank(context.Background(), "query", []string{"doc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}
