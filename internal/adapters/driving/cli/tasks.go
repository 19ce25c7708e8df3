package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loreweave/loreweave/internal/core/domain"
)

var (
	tasksStatus string
	tasksJSON   bool
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List ingestion tasks",
	Long: `Lists the owner's active (pending and in-progress) ingestion tasks.
Use --status to list tasks in a specific state instead, including
completed and failed ones.`,
	RunE: runTasks,
}

func init() {
	tasksCmd.Flags().StringVarP(&tasksStatus, "status", "s", "", "filter by status (pending|in_progress|completed|error|cancelled)")
	tasksCmd.Flags().BoolVar(&tasksJSON, "json", false, "output tasks as JSON")
	rootCmd.AddCommand(tasksCmd)
}

func runTasks(cmd *cobra.Command, _ []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	ctx := context.Background()

	var tasks []domain.IngestionTask
	var err error
	if tasksStatus != "" {
		status := domain.TaskStatus(tasksStatus)
		if !status.IsValid() {
			return fmt.Errorf("unknown status %q", tasksStatus)
		}
		tasks, err = ingestionService.ListByStatus(ctx, owner(), status)
	} else {
		tasks, err = ingestionService.ListActive(ctx, owner())
	}
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	if tasksJSON {
		if tasks == nil {
			tasks = []domain.IngestionTask{}
		}
		data, err := json.MarshalIndent(tasks, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal tasks: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(tasks) == 0 {
		cmd.Println("No tasks.")
		return nil
	}

	for i := range tasks {
		printTask(cmd, &tasks[i])
	}
	return nil
}

func printTask(cmd *cobra.Command, task *domain.IngestionTask) {
	cmd.Printf("%s  %-11s  %s %s\n", task.ID, task.Status, task.Payload.Kind, payloadSummary(&task.Payload))
	if task.Attempts > 1 {
		cmd.Printf("    attempts: %d\n", task.Attempts)
	}
	if task.Error != "" {
		cmd.Printf("    error: %s\n", task.Error)
	}
}

// payloadSummary renders a short description of what a task carries.
func payloadSummary(p *domain.Payload) string {
	switch p.Kind {
	case domain.PayloadText:
		text := p.Text
		if len(text) > 60 {
			text = text[:57] + "..."
		}
		return fmt.Sprintf("%q", text)
	case domain.PayloadURL:
		return p.URL
	case domain.PayloadFile:
		return "file " + p.FileID
	default:
		return ""
	}
}
