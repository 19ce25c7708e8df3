package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/loreweave/loreweave/internal/core/domain"
)

var (
	submitCategory     string
	submitInstructions string
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit content for ingestion",
	Long: `Enqueues content for asynchronous ingestion. Submission returns
immediately with a task ID; run 'loreweave worker' to process the queue
and 'loreweave tasks' to watch progress.`,
}

var submitTextCmd = &cobra.Command{
	Use:   "text [content]",
	Short: "Submit inline text",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubmitText,
}

var submitURLCmd = &cobra.Command{
	Use:   "url [address]",
	Short: "Submit a web page",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubmitURL,
}

var submitFileCmd = &cobra.Command{
	Use:   "file [path]",
	Short: "Submit a file (PDF, image, audio or plain text)",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubmitFile,
}

func init() {
	for _, cmd := range []*cobra.Command{submitTextCmd, submitURLCmd, submitFileCmd} {
		cmd.Flags().StringVarP(&submitCategory, "category", "c", "", "category for the resulting content")
		cmd.Flags().StringVarP(&submitInstructions, "instructions", "i", "", "free-text context passed to knowledge extraction")
		submitCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(submitCmd)
}

func runSubmitText(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	task, err := ingestionService.Submit(context.Background(), owner(), domain.Payload{
		Kind:         domain.PayloadText,
		Text:         args[0],
		Category:     submitCategory,
		Instructions: submitInstructions,
	})
	if err != nil {
		return fmt.Errorf("submit failed: %w", err)
	}

	printAccepted(cmd, task)
	return nil
}

func runSubmitURL(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	task, err := ingestionService.Submit(context.Background(), owner(), domain.Payload{
		Kind:         domain.PayloadURL,
		URL:          args[0],
		Category:     submitCategory,
		Instructions: submitInstructions,
	})
	if err != nil {
		return fmt.Errorf("submit failed: %w", err)
	}

	printAccepted(cmd, task)
	return nil
}

func runSubmitFile(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	task, err := ingestionService.SubmitFile(context.Background(), owner(),
		filepath.Base(path), data, submitCategory, submitInstructions)
	if err != nil {
		return fmt.Errorf("submit failed: %w", err)
	}

	printAccepted(cmd, task)
	return nil
}

func printAccepted(cmd *cobra.Command, task *domain.IngestionTask) {
	cmd.Printf("Accepted %s task %s\n", task.Payload.Kind, task.ID)
	cmd.Println("Run 'loreweave worker' to process the queue.")
}
