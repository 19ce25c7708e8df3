package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/uuid"

	"github.com/loreweave/loreweave/internal/core/domain"
)

func TestQueryCmd_Use(t *testing.T) {
	assert.Equal(t, "query [text]", queryCmd.Use)
}

func TestQueryCmd_HasFlags(t *testing.T) {
	flag := queryCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "10", flag.DefValue)

	for _, name := range []string{"category", "graph", "rerank", "json"} {
		assert.NotNil(t, queryCmd.Flags().Lookup(name), "missing flag %s", name)
	}
}

func TestQuery_EmptyIndex(t *testing.T) {
	cleanup := setupTestCLI(t)
	defer cleanup()

	out, err := execute(t, "query", "anything at all")
	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestQuery_FindsStoredContent(t *testing.T) {
	cleanup := setupTestCLI(t)
	defer cleanup()

	// Open the store first.
	_, err := execute(t, "tasks")
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, store.ContentStore().SaveContent(context.Background(), &domain.Content{
		ID:        uuid.New().String(),
		OwnerID:   "test-owner",
		Title:     "Sourdough Notes",
		Text:      "The sourdough starter doubled overnight.",
		Category:  "notes",
		CreatedAt: now,
		UpdatedAt: now,
	}))

	out, err := execute(t, "query", "sourdough")
	require.NoError(t, err)
	assert.Contains(t, out, "Results:")
	assert.Contains(t, out, "Sourdough Notes")
}

func TestQuery_RerankDefaultsFromConfig(t *testing.T) {
	cleanup := setupTestCLI(t)
	defer cleanup()

	rerankCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rerankCalls++
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{{"index": 0, "relevance_score": 0.9}},
		})
	}))
	defer server.Close()

	// Open the runtime, then enable reranking in config only.
	_, err := execute(t, "tasks")
	require.NoError(t, err)
	require.NoError(t, configStore.Set("rerank.enabled", true))
	require.NoError(t, configStore.Set("rerank.base_url", server.URL))

	// Two matches, so the rerank window is non-trivial.
	now := time.Now().UTC()
	for _, c := range []struct{ title, text string }{
		{"Sourdough Notes", "The sourdough starter doubled overnight."},
		{"Sourdough Troubleshooting", "A sluggish sourdough starter needs warmth."},
	} {
		require.NoError(t, store.ContentStore().SaveContent(context.Background(), &domain.Content{
			ID:        uuid.New().String(),
			OwnerID:   "test-owner",
			Title:     c.title,
			Text:      c.text,
			Category:  "notes",
			CreatedAt: now,
			UpdatedAt: now,
		}))
	}

	// No --rerank flag: the configured setting drives the stage.
	out, err := execute(t, "query", "sourdough")
	require.NoError(t, err)
	assert.Contains(t, out, "Sourdough Notes")
	assert.Equal(t, 1, rerankCalls)

	// The flag still overrides the setting.
	defer func() {
		queryRerank = false
		queryCmd.Flags().Lookup("rerank").Changed = false
	}()
	_, err = execute(t, "query", "sourdough", "--rerank=false")
	require.NoError(t, err)
	assert.Equal(t, 1, rerankCalls)
}

func TestResultSnippet(t *testing.T) {
	highlighted := domain.QueryResult{
		Text:       "full text here",
		Highlights: []string{"snippet with [match]"},
	}
	assert.Equal(t, "snippet with [match]", resultSnippet(&highlighted))

	plain := domain.QueryResult{Text: "short text"}
	assert.Equal(t, "short text", resultSnippet(&plain))

	long := domain.QueryResult{Text: strings.Repeat("a", 200)}
	snippet := resultSnippet(&long)
	assert.Len(t, snippet, 160)
	assert.True(t, strings.HasSuffix(snippet, "..."))
}

func TestOutputResultsTable(t *testing.T) {
	buf := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(buf)

	results := []domain.QueryResult{
		{ID: "r1", Title: "First", Score: 0.92, Category: "notes", Text: "body"},
		{ID: "r2", Score: 0, Via: "Ada Lovelace", Text: "neighbour"},
	}
	require.NoError(t, outputResultsTable(cmd, results))

	out := buf.String()
	assert.Contains(t, out, "[1] First (0.920)")
	assert.Contains(t, out, "Category: notes")
	// Untitled results fall back to the record ID.
	assert.Contains(t, out, "[2] r2")
	assert.Contains(t, out, "Via: Ada Lovelace")
}
