package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loreweave/loreweave/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure AI providers, chunking and worker options.

Use subcommands to configure specific settings.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the embedding provider for semantic search.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider for knowledge extraction, image description and audio transcription.`,
	RunE:  runSettingsLLM,
}

var settingsRerankCmd = &cobra.Command{
	Use:   "rerank",
	Short: "Configure the rerank stage",
	RunE:  runSettingsRerank,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsRerankCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Embedding]")
	printProvider(cmd, string(appSettings.Embedding.Provider), appSettings.Embedding.Model,
		appSettings.Embedding.BaseURL, appSettings.Embedding.APIKey, appSettings.Embedding.IsConfigured())
	if appSettings.Embedding.Dimensions > 0 {
		cmd.Printf("  Dimensions: %d\n", appSettings.Embedding.Dimensions)
	}
	cmd.Println()

	cmd.Println("[LLM]")
	printProvider(cmd, string(appSettings.LLM.Provider), appSettings.LLM.Model,
		appSettings.LLM.BaseURL, appSettings.LLM.APIKey, appSettings.LLM.IsConfigured())
	if appSettings.LLM.ExtractionModel != "" {
		cmd.Printf("  Extraction model: %s\n", appSettings.LLM.ExtractionModel)
	}
	if appSettings.LLM.VisionModel != "" {
		cmd.Printf("  Vision model: %s\n", appSettings.LLM.VisionModel)
	}
	if appSettings.LLM.TranscriptionModel != "" {
		cmd.Printf("  Transcription model: %s\n", appSettings.LLM.TranscriptionModel)
	}
	cmd.Println()

	cmd.Println("[Rerank]")
	if appSettings.Rerank.Enabled {
		cmd.Printf("  Enabled: yes\n")
		cmd.Printf("  Model: %s\n", appSettings.Rerank.Model)
		cmd.Printf("  Base URL: %s\n", appSettings.Rerank.BaseURL)
		cmd.Printf("  Window: top %d\n", appSettings.Rerank.TopN)
	} else {
		cmd.Printf("  Enabled: no\n")
	}
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Size: %d bytes\n", appSettings.Chunking.Size)
	cmd.Printf("  Overlap: %d bytes\n", appSettings.Chunking.Overlap)
	cmd.Println()

	cmd.Println("[Worker]")
	cmd.Printf("  Workers: %d\n", appSettings.Worker.Count)
	cmd.Printf("  Max attempts: %d\n", appSettings.Worker.MaxAttempts)
	cmd.Printf("  Backoff: %d-%dms\n", appSettings.Worker.BaseBackoff, appSettings.Worker.MaxBackoff)

	return nil
}

func printProvider(cmd *cobra.Command, provider, model, baseURL, apiKey string, configured bool) {
	if provider == "" {
		cmd.Printf("  Provider: (not set)\n")
		return
	}
	cmd.Printf("  Provider: %s\n", provider)
	cmd.Printf("  Model: %s\n", model)
	if baseURL != "" {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if apiKey != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	reader := bufio.NewReader(os.Stdin)

	cmd.Println("Select Embedding Provider")
	cmd.Println("-------------------------")
	providers := domain.AllEmbeddingProviders()
	for i, provider := range providers {
		cmd.Printf("  %d. %s\n", i+1, provider.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	provider := providers[idx-1]

	defaultModel := domain.DefaultEmbeddingModels()[provider]
	cmd.Printf("Model [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	if err := configStore.Set("embedding.provider", provider.String()); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	if err := configStore.Set("embedding.model", model); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	if provider.IsLocal() {
		cmd.Print("Base URL [http://localhost:11434]: ")
		if baseURL := readLine(reader); baseURL != "" {
			if err := configStore.Set("embedding.base_url", baseURL); err != nil {
				return fmt.Errorf("save settings: %w", err)
			}
		}
	}
	if provider.RequiresAPIKey() {
		cmd.Print("API Key: ")
		apiKey := readLine(reader)
		if apiKey == "" {
			return errors.New("api key is required for this provider")
		}
		if err := configStore.Set("embedding.api_key", apiKey); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
	}

	cmd.Printf("Embedding provider set to %s (%s).\n", provider, model)
	cmd.Println("Note: changing the embedding model invalidates stored vectors until content is re-ingested.")
	return nil
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	reader := bufio.NewReader(os.Stdin)

	cmd.Println("Select LLM Provider")
	cmd.Println("-------------------")
	providers := domain.AllLLMProviders()
	for i, provider := range providers {
		cmd.Printf("  %d. %s\n", i+1, provider.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	provider := providers[idx-1]

	defaultModel := domain.DefaultLLMModels()[provider]
	cmd.Printf("Model [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	if err := configStore.Set("llm.provider", provider.String()); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	if err := configStore.Set("llm.model", model); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	if provider.IsLocal() {
		cmd.Print("Base URL [http://localhost:11434]: ")
		if baseURL := readLine(reader); baseURL != "" {
			if err := configStore.Set("llm.base_url", baseURL); err != nil {
				return fmt.Errorf("save settings: %w", err)
			}
		}
	}
	if provider.RequiresAPIKey() {
		cmd.Print("API Key: ")
		apiKey := readLine(reader)
		if apiKey == "" {
			return errors.New("api key is required for this provider")
		}
		if err := configStore.Set("llm.api_key", apiKey); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
	}

	cmd.Printf("LLM provider set to %s (%s).\n", provider, model)
	return nil
}

func runSettingsRerank(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	reader := bufio.NewReader(os.Stdin)

	cmd.Print("Enable reranking? [y/N]: ")
	enabled := strings.EqualFold(readLine(reader), "y")
	if err := configStore.Set("rerank.enabled", enabled); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	if !enabled {
		cmd.Println("Reranking disabled.")
		return nil
	}

	cmd.Print("Reranker base URL: ")
	baseURL := readLine(reader)
	if baseURL == "" {
		return errors.New("base url is required when reranking is enabled")
	}
	if err := configStore.Set("rerank.base_url", baseURL); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	cmd.Print("Model [rerank-v3.5]: ")
	if model := readLine(reader); model != "" {
		if err := configStore.Set("rerank.model", model); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
	}

	cmd.Print("API Key (optional): ")
	if apiKey := readLine(reader); apiKey != "" {
		if err := configStore.Set("rerank.api_key", apiKey); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
	}

	cmd.Println("Reranking enabled.")
	return nil
}

// maskAPIKey hides the middle of an API key for display.
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// readLine reads a trimmed line from the reader.
func readLine(reader *bufio.Reader) string {
	line, _ := reader.ReadString('\n') //nolint:errcheck // EOF returns what was read
	return strings.TrimSpace(line)
}

// parseChoice parses a numeric menu choice, falling back to defaultVal
// for empty or out-of-range input.
func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(input)
	if err != nil || n < 1 || n > maxVal {
		return defaultVal
	}
	return n
}
