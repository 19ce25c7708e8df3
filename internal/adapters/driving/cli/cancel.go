package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loreweave/loreweave/internal/core/domain"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel [task-id]",
	Short: "Cancel an ingestion task",
	Long: `Cancels a pending or in-progress task. A task already claimed by a
worker finishes its current attempt, but the result is discarded and no
retry is scheduled. Completed and failed tasks cannot be cancelled.`,
	Args: cobra.ExactArgs(1),
	RunE: runCancel,
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}

func runCancel(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	taskID := args[0]
	err := ingestionService.Cancel(context.Background(), owner(), taskID)
	switch {
	case err == nil:
		cmd.Printf("Cancelled task %s\n", taskID)
		return nil
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("task %s not found", taskID)
	case errors.Is(err, domain.ErrTaskNotClaimable):
		return fmt.Errorf("task %s is already finished", taskID)
	default:
		return fmt.Errorf("cancel failed: %w", err)
	}
}
