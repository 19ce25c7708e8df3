// Package ollama provides an LLM service adapter using Ollama.
package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/loreweave/loreweave/internal/core/domain"
	"github.com/loreweave/loreweave/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL     = "http://localhost:11434"
	DefaultLLMModel    = "llama3.2"
	DefaultVisionModel = "llava"
	DefaultLLMTimeout  = 120 * time.Second
)

// LLMConfig holds configuration for the Ollama LLM service.
type LLMConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the default chat model (default: llama3.2).
	Model string

	// VisionModel handles image description (default: llava).
	VisionModel string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// LLMService provides LLM operations using Ollama.
type LLMService struct {
	client      *http.Client
	baseURL     string
	model       string
	visionModel string
}

// generateRequest is the Ollama /api/generate request format. Format
// carries a JSON schema for constrained structured output.
type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Format  json.RawMessage `json:"format,omitempty"`
	Images  []string        `json:"images,omitempty"`
	Options *options        `json:"options,omitempty"`
}

// options holds generation parameters.
type options struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// generateResponse is the Ollama /api/generate response format.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewLLMService creates a new Ollama LLM service.
func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = DefaultVisionModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	return &LLMService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		visionModel: cfg.VisionModel,
	}
}

// Generate produces text completion from a prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	return s.generate(ctx, generateRequest{
		Model:  s.pickModel(opts.Model),
		Prompt: prompt,
		Stream: false,
	}, opts)
}

// GenerateStructured produces a completion constrained to the given
// JSON schema via Ollama's format parameter.
func (s *LLMService) GenerateStructured(ctx context.Context, prompt string, schema driven.JSONSchema, opts driven.GenerateOptions) ([]byte, error) {
	response, err := s.generate(ctx, generateRequest{
		Model:  s.pickModel(opts.Model),
		Prompt: prompt,
		Stream: false,
		Format: json.RawMessage(schema.Schema),
	}, opts)
	if err != nil {
		return nil, err
	}
	return []byte(response), nil
}

// DescribeImage produces a text description of an image using the
// vision model. Ollama takes images as base64 alongside the prompt.
func (s *LLMService) DescribeImage(ctx context.Context, image []byte, mimeType, instructions string) (string, error) {
	if instructions == "" {
		instructions = "Describe this image in detail, including any visible text."
	}
	return s.generate(ctx, generateRequest{
		Model:  s.visionModel,
		Prompt: instructions,
		Stream: false,
		Images: []string{base64.StdEncoding.EncodeToString(image)},
	}, driven.GenerateOptions{})
}

// Transcribe is not supported by Ollama.
func (s *LLMService) Transcribe(ctx context.Context, audio []byte, fileName string) (string, error) {
	return "", fmt.Errorf("ollama has no transcription API: %w", domain.ErrUnsupportedType)
}

// generate posts a request to /api/generate and returns the response
// text.
func (s *LLMService) generate(ctx context.Context, reqBody generateRequest, opts driven.GenerateOptions) (string, error) {
	if opts.MaxTokens > 0 || opts.Temperature > 0 {
		reqBody.Options = &options{
			NumPredict:  opts.MaxTokens,
			Temperature: opts.Temperature,
		}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/api/generate",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("ollama error (status %d): failed to read response", resp.StatusCode)
		}
		return "", fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	return genResp.Response, nil
}

func (s *LLMService) pickModel(override string) string {
	if override != "" {
		return override
	}
	return s.model
}

// ModelName returns the name of the default chat model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /api/tags endpoint.
// This is a lightweight check that validates connectivity without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("ollama: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("ollama: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
