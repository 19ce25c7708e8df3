package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loreweave/loreweave/internal/core/domain"
)

var (
	queryLimit    int
	queryCategory string
	queryGraph    bool
	queryRerank   bool
	queryJSON     bool
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Search the knowledge graph",
	Long: `Runs hybrid retrieval: semantic vector search and keyword search in
parallel, fused with reciprocal rank fusion. Graph expansion pulls in
entities related to the matches; reranking reorders the top candidates
with a cross-encoder when one is configured.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryLimit, "limit", "n", 10, "maximum number of results")
	queryCmd.Flags().StringVarP(&queryCategory, "category", "c", "", "restrict to one content category")
	queryCmd.Flags().BoolVarP(&queryGraph, "graph", "g", false, "expand results across the knowledge graph")
	queryCmd.Flags().BoolVarP(&queryRerank, "rerank", "r", false, "rerank the top candidates (defaults to the rerank setting)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	queryService := buildQueryService()

	// The configured rerank setting applies unless the flag overrides it.
	rerank := appSettings.Rerank.Enabled
	if cmd.Flags().Changed("rerank") {
		rerank = queryRerank
	}

	results, err := queryService.Query(context.Background(), owner(), args[0], domain.QueryOptions{
		Limit:       queryLimit,
		Category:    queryCategory,
		ExpandGraph: queryGraph,
		Rerank:      rerank,
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return outputResultsJSON(cmd, results)
	}
	return outputResultsTable(cmd, results)
}

func outputResultsJSON(cmd *cobra.Command, results []domain.QueryResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputResultsTable(cmd *cobra.Command, results []domain.QueryResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		title := results[i].Title
		if title == "" {
			title = results[i].ID
		}

		cmd.Printf("  [%d] %s (%.3f)\n", i+1, title, results[i].Score)
		if results[i].Category != "" {
			cmd.Printf("      Category: %s\n", results[i].Category)
		}
		if results[i].Via != "" {
			cmd.Printf("      Via: %s\n", results[i].Via)
		}
		if snippet := resultSnippet(&results[i]); snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}
	return nil
}

// resultSnippet prefers a keyword highlight over the raw text.
func resultSnippet(r *domain.QueryResult) string {
	if len(r.Highlights) > 0 {
		return r.Highlights[0]
	}
	text := r.Text
	if len(text) > 160 {
		text = text[:157] + "..."
	}
	return text
}
