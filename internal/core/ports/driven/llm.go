package driven

import "context"

// LLMService provides language model operations for the ingestion
// pipeline. This is an optional service - when nil, knowledge extraction
// is skipped and ingestion stores content only.
//
// Implementations may include:
//   - OpenAI (GPT-4o, GPT-4o-mini)
//   - Ollama (local models)
type LLMService interface {
	// Generate produces text completion from a prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// GenerateStructured produces a completion constrained to the given
	// JSON schema. The returned bytes are the raw JSON object.
	GenerateStructured(ctx context.Context, prompt string, schema JSONSchema, opts GenerateOptions) ([]byte, error)

	// DescribeImage produces a text description of an image for
	// ingestion of image files.
	DescribeImage(ctx context.Context, image []byte, mimeType, instructions string) (string, error)

	// Transcribe converts audio to text for ingestion of audio files.
	Transcribe(ctx context.Context, audio []byte, fileName string) (string, error)

	// ModelName returns the name of the default chat model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// Model overrides the default model for this call. Empty uses the
	// service default.
	Model string

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}

// JSONSchema names and carries a JSON schema for structured output.
type JSONSchema struct {
	// Name identifies the schema to the provider.
	Name string

	// Schema is the raw JSON schema document.
	Schema []byte
}
