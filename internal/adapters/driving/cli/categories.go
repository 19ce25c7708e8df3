package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List content categories",
	RunE:  runCategories,
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}

func runCategories(cmd *cobra.Command, _ []string) error {
	queryService := buildQueryService()

	categories, err := queryService.ListCategories(context.Background(), owner())
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}

	if len(categories) == 0 {
		cmd.Println("No categories yet.")
		return nil
	}
	for _, category := range categories {
		cmd.Println(category)
	}
	return nil
}
