// Package cli implements the loreweave command-line interface. It wires
// the storage, configuration and AI adapters into the core services and
// exposes them as cobra commands.
package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/loreweave/loreweave/internal/adapters/driven/ai"
	"github.com/loreweave/loreweave/internal/adapters/driven/config/file"
	"github.com/loreweave/loreweave/internal/adapters/driven/filestore/local"
	"github.com/loreweave/loreweave/internal/adapters/driven/storage/sqlite"
	"github.com/loreweave/loreweave/internal/core/domain"
	"github.com/loreweave/loreweave/internal/core/ports/driving"
	"github.com/loreweave/loreweave/internal/core/services"
	"github.com/loreweave/loreweave/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// defaultOwner scopes records when no owner is configured. Loreweave is
// a personal tool, so a single local owner is the common case.
const defaultOwner = "local"

var (
	verboseFlag   bool
	dataDirFlag   string
	configDirFlag string
	ownerFlag     string
)

// Shared runtime, assembled by initRuntime before commands run.
var (
	configStore      *file.ConfigStore
	store            *sqlite.Store
	appSettings      domain.AppSettings
	ingestionService driving.IngestionService
)

var rootCmd = &cobra.Command{
	Use:   "loreweave",
	Short: "Personal knowledge graph engine",
	Long: `Loreweave ingests captured content (text, web pages, PDFs, images,
audio) into a personal knowledge graph and answers queries by fusing
vector similarity, full-text relevance and graph structure.

Content is processed asynchronously: 'submit' enqueues work, 'worker'
runs the ingestion pipeline, and 'query' searches whatever has been
ingested so far.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verboseFlag)

		// version and help need no storage
		switch cmd.Name() {
		case "version", "help", "completion":
			return nil
		}
		return initRuntime()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "data directory (default ~/.loreweave/data)")
	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config-dir", "", "config directory (default ~/.loreweave)")
	rootCmd.PersistentFlags().StringVar(&ownerFlag, "owner", "", "owner scope (default from config, then \"local\")")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose logging")
}

// Execute runs the root command.
func Execute() error {
	defer teardown()
	return rootCmd.Execute()
}

// SetVersion sets the version string printed by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// initRuntime opens the config and storage layers and builds the
// services every command needs. AI services are created on demand by
// the commands that use them.
func initRuntime() error {
	var err error

	configStore, err = file.NewConfigStore(configDirFlag)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	appSettings = file.Settings(configStore)

	store, err = sqlite.NewStore(dataDirFlag)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	fileStore, err := local.NewFileStore(fileDir(), store.ContentStore())
	if err != nil {
		return fmt.Errorf("open file store: %w", err)
	}

	ingestionService = services.NewIngestionService(store.TaskStore(), fileStore)
	return nil
}

// fileDir keeps stored files next to the database when a custom data
// directory is set.
func fileDir() string {
	if dataDirFlag == "" {
		return ""
	}
	return filepath.Join(dataDirFlag, "files")
}

// buildQueryService assembles the retrieval service with whatever AI
// adapters the settings allow. Missing embeddings degrade to
// keyword-only search; a missing reranker disables the rerank stage.
func buildQueryService() driving.QueryService {
	embeddingService, err := ai.CreateEmbeddingService(appSettings.Embedding)
	if err != nil {
		logger.Warn("Embedding service unavailable, using keyword search only: %v", err)
		embeddingService = nil
	}

	reranker, err := ai.CreateReranker(appSettings.Rerank)
	if err != nil {
		logger.Warn("Reranker unavailable, skipping rerank stage: %v", err)
		reranker = nil
	}

	svc := services.NewQueryService(store.ContentStore(), store.GraphStore(), embeddingService, reranker)
	svc.SetRerankTopN(appSettings.Rerank.TopN)
	return svc
}

// owner returns the owner scope for this invocation: the --owner flag,
// then the configured owner, then the local default.
func owner() string {
	if ownerFlag != "" {
		return ownerFlag
	}
	if configured := configStore.GetString("owner.id"); configured != "" {
		return configured
	}
	return defaultOwner
}

func teardown() {
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Warn("Closing store: %v", err)
		}
	}
}
