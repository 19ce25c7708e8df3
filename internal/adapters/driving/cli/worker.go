package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/loreweave/loreweave/internal/adapters/driven/ai"
	"github.com/loreweave/loreweave/internal/adapters/driven/fetch"
	"github.com/loreweave/loreweave/internal/adapters/driven/filestore/local"
	"github.com/loreweave/loreweave/internal/core/domain"
	"github.com/loreweave/loreweave/internal/core/ports/driven"
	"github.com/loreweave/loreweave/internal/core/services"
	"github.com/loreweave/loreweave/internal/logger"
	"github.com/loreweave/loreweave/internal/normalisers"
	"github.com/loreweave/loreweave/internal/normalisers/audio"
	"github.com/loreweave/loreweave/internal/normalisers/image"
	"github.com/loreweave/loreweave/internal/normalisers/pdf"
	"github.com/loreweave/loreweave/internal/normalisers/text"
	"github.com/loreweave/loreweave/internal/normalisers/web"
	"github.com/loreweave/loreweave/internal/postprocessors/chunker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the ingestion pipeline",
	Long: `Starts the background worker pool that claims pending tasks and runs
them through the pipeline: normalise, chunk, embed, extract knowledge.
Runs until interrupted. Tasks left in progress by a previous run are
reclaimed on startup.

Embedding and LLM providers are optional: without an embedding provider
chunks are stored unembedded (keyword search only); without an LLM,
knowledge extraction is skipped.`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	embeddingService, err := ai.CreateAndValidateEmbeddingService(appSettings.Embedding)
	if err != nil {
		if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
			return err
		}
		cmd.Printf("Warning: %v\n", err)
		embeddingService = nil
	}
	if embeddingService != nil {
		defer embeddingService.Close()
	}

	llmService, err := ai.CreateAndValidateLLMService(appSettings.LLM)
	if err != nil {
		if !errors.Is(err, domain.ErrLLMUnavailable) {
			return err
		}
		cmd.Printf("Warning: %v\n", err)
		llmService = nil
	}
	if llmService != nil {
		defer llmService.Close()
	}

	var extraction *services.ExtractionService
	if llmService != nil {
		extraction = services.NewExtractionService(llmService, embeddingService, store.GraphStore())
		extraction.SetModel(appSettings.LLM.ModelFor("extraction"))
	}

	fileStore, err := local.NewFileStore(fileDir(), store.ContentStore())
	if err != nil {
		return fmt.Errorf("open file store: %w", err)
	}

	worker := services.NewPipelineWorker(
		store.TaskStore(),
		store.ContentStore(),
		store.GraphStore(),
		fileStore,
		buildNormaliserRegistry(llmService),
		chunker.New(
			chunker.WithChunkSize(appSettings.Chunking.Size),
			chunker.WithOverlap(appSettings.Chunking.Overlap),
		),
		embeddingService,
		extraction,
		services.WithWorkerCount(appSettings.Worker.Count),
		services.WithMaxAttempts(appSettings.Worker.MaxAttempts),
		services.WithBackoff(
			time.Duration(appSettings.Worker.BaseBackoff)*time.Millisecond,
			time.Duration(appSettings.Worker.MaxBackoff)*time.Millisecond,
		),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Pick up settings edits without a restart.
	stopWatch, err := configStore.Watch(func() {
		logger.Info("Configuration changed; restart the worker to apply provider changes")
	})
	if err != nil {
		logger.Warn("Config watch unavailable: %v", err)
	} else {
		defer stopWatch()
	}

	if err := worker.Start(ctx); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}

	cmd.Printf("Worker running with %d workers. Press Ctrl+C to stop.\n", appSettings.Worker.Count)
	<-ctx.Done()

	cmd.Println("\nDraining in-flight tasks...")
	worker.Stop()
	cmd.Println("Worker stopped.")
	return nil
}

// buildNormaliserRegistry registers a normaliser per payload kind. The
// plain text normaliser doubles as the fallback for text-like files.
func buildNormaliserRegistry(llmService driven.LLMService) driven.NormaliserRegistry {
	registry := normalisers.NewRegistry()
	registry.Register(text.New())
	registry.Register(web.New(fetch.NewFetcher(fetch.Config{})))
	registry.Register(pdf.New())
	registry.Register(image.New(llmService))
	registry.Register(audio.New(llmService))
	return registry
}
