package domain

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// Dimensions is the vector size the model produces. Stored vectors
	// with a different length are rejected, never padded or truncated.
	Dimensions int

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration. Separate models can be
// assigned per pipeline stage; empty stage models fall back to Model.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the default chat model name.
	Model string

	// ExtractionModel handles knowledge extraction. Falls back to Model.
	ExtractionModel string

	// VisionModel describes images. Falls back to Model.
	VisionModel string

	// TranscriptionModel transcribes audio.
	TranscriptionModel string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ModelFor returns the model for a named stage, falling back to the
// default chat model when no stage model is set.
func (l LLMSettings) ModelFor(stage string) string {
	switch stage {
	case "extraction":
		if l.ExtractionModel != "" {
			return l.ExtractionModel
		}
	case "vision":
		if l.VisionModel != "" {
			return l.VisionModel
		}
	case "transcription":
		if l.TranscriptionModel != "" {
			return l.TranscriptionModel
		}
	}
	return l.Model
}

// RerankSettings holds reranking stage configuration.
type RerankSettings struct {
	// Enabled turns the rerank stage on.
	Enabled bool

	// Model is the reranker model name.
	Model string

	// BaseURL is the reranker API endpoint.
	BaseURL string

	// APIKey is the reranker API key, if the endpoint needs one.
	APIKey string

	// TopN is the size of the fused candidate window passed to the
	// reranker. Results past the window keep their fusion order.
	TopN int
}

// ChunkingSettings holds the chunker configuration.
type ChunkingSettings struct {
	// Size is the target chunk size in bytes.
	Size int

	// Overlap is the number of leading bytes carried over from the
	// previous chunk.
	Overlap int
}

// WorkerSettings holds ingestion worker configuration.
type WorkerSettings struct {
	// Count is the number of concurrent pipeline workers.
	Count int

	// MaxAttempts is the limit before a task is marked as failed.
	MaxAttempts int

	// BaseBackoff is the first retry delay in milliseconds; doubled per
	// attempt with jitter.
	BaseBackoff int

	// MaxBackoff caps the retry delay in milliseconds.
	MaxBackoff int
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds LLM provider settings.
	LLM LLMSettings

	// Rerank holds rerank stage settings.
	Rerank RerankSettings

	// Chunking holds chunker settings.
	Chunking ChunkingSettings

	// Worker holds ingestion worker settings.
	Worker WorkerSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// AI features (Embedding, LLM) are left unconfigured by default; users
// must configure them before ingestion can extract knowledge.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Dimensions: 768, // nomic-embed-text default
		},
		LLM: LLMSettings{},
		Rerank: RerankSettings{
			Enabled: false,
			TopN:    20,
		},
		Chunking: ChunkingSettings{
			Size:    1000,
			Overlap: 200,
		},
		Worker: WorkerSettings{
			Count:       4,
			MaxAttempts: 5,
			BaseBackoff: 50,
			MaxBackoff:  800,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "llama3.2",
		AIProviderOpenAI: "gpt-4o-mini",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
