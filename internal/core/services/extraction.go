package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/loreweave/loreweave/internal/core/domain"
	"github.com/loreweave/loreweave/internal/core/ports/driven"
	"github.com/loreweave/loreweave/internal/logger"
)

// extractionPrompt instructs the model to mine entities and
// relationships from content. The response is constrained to
// extractionSchema via structured output.
const extractionPrompt = `You are a knowledge extraction system. Extract the distinct entities and the relationships between them from the text below.

Rules:
- Extract only entities genuinely present in the text.
- Give each entity a short name, a type and a one-to-three sentence description grounded in the text.
- Valid entity types: %s. Use "concept" when unsure.
- Relationships reference entities by their exact name and use a short verb phrase as the type, e.g. "created", "works at", "references".
- Return strictly the JSON object, nothing else.

%sText:
%s`

// extractionSchema constrains the model output. Unknown fields are
// rejected on decode, so schema drift fails loudly.
const extractionSchema = `{
  "type": "object",
  "properties": {
    "entities": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "entity_type": {"type": "string"},
          "description": {"type": "string"}
        },
        "required": ["name", "entity_type", "description"],
        "additionalProperties": false
      }
    },
    "relationships": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "source": {"type": "string"},
          "target": {"type": "string"},
          "type": {"type": "string"}
        },
        "required": ["source", "target", "type"],
        "additionalProperties": false
      }
    }
  },
  "required": ["entities", "relationships"],
  "additionalProperties": false
}`

// extractionResult mirrors the structured output schema.
type extractionResult struct {
	Entities []struct {
		Name        string `json:"name"`
		EntityType  string `json:"entity_type"`
		Description string `json:"description"`
	} `json:"entities"`
	Relationships []struct {
		Source string `json:"source"`
		Target string `json:"target"`
		Type   string `json:"type"`
	} `json:"relationships"`
}

// ExtractionService mines knowledge entities and relationships out of
// ingested content using structured LLM output, then merges them into
// the graph.
type ExtractionService struct {
	llmService       driven.LLMService
	embeddingService driven.EmbeddingService
	graphStore       driven.GraphStore
	model            string
}

// NewExtractionService creates a new extraction service.
// The embeddingService parameter is optional; without it, entities are
// stored without vectors.
func NewExtractionService(
	llmService driven.LLMService,
	embeddingService driven.EmbeddingService,
	graphStore driven.GraphStore,
) *ExtractionService {
	return &ExtractionService{
		llmService:       llmService,
		embeddingService: embeddingService,
		graphStore:       graphStore,
	}
}

// SetModel overrides the model used for extraction calls.
func (s *ExtractionService) SetModel(model string) {
	s.model = model
}

// Extract runs knowledge extraction over the content and merges the
// results into the owner's graph. Returns the entities that survived
// the merge.
//
// A response that fails schema validation is retried exactly once with
// the parse error fed back to the model; a second failure is terminal
// for this attempt. Transport failures are transient.
func (s *ExtractionService) Extract(
	ctx context.Context, content *domain.Content,
) ([]domain.Entity, error) {
	if s.llmService == nil {
		return nil, domain.ErrLLMUnavailable
	}

	logger.Section("Knowledge Extraction")
	logger.Debug("Extracting from content %s (%d bytes)", content.ID, len(content.Text))

	result, err := s.extractStructured(ctx, content)
	if err != nil {
		return nil, err
	}

	logger.Info("Extracted %d entities, %d relationships", len(result.Entities), len(result.Relationships))

	entities, byName, err := s.mergeEntities(ctx, content, result)
	if err != nil {
		return nil, err
	}

	if err := s.saveRelationships(ctx, content, result, byName); err != nil {
		return nil, err
	}

	return entities, nil
}

// extractStructured calls the model and decodes the constrained JSON,
// retrying once on a malformed response.
func (s *ExtractionService) extractStructured(
	ctx context.Context, content *domain.Content,
) (*extractionResult, error) {
	schema := driven.JSONSchema{
		Name:   "knowledge_extraction",
		Schema: []byte(extractionSchema),
	}
	opts := driven.GenerateOptions{Model: s.model, Temperature: 0.1}

	prompt := s.buildPrompt(content, "")
	var lastErr error

	for attempt := 0; attempt < 2; attempt++ {
		raw, err := s.llmService.GenerateStructured(ctx, prompt, schema, opts)
		if err != nil {
			// Transport and provider failures are worth retrying later.
			return nil, domain.Transient(fmt.Errorf("extraction call: %w", err))
		}

		result, err := decodeExtraction(raw)
		if err == nil {
			return result, nil
		}

		logger.Warn("Extraction response failed validation (attempt %d): %v", attempt+1, err)
		lastErr = err
		prompt = s.buildPrompt(content, err.Error())
	}

	return nil, domain.Validation(fmt.Errorf("extraction response: %w", lastErr))
}

// buildPrompt assembles the extraction prompt, optionally carrying the
// previous attempt's parse error back to the model.
func (s *ExtractionService) buildPrompt(content *domain.Content, parseErr string) string {
	types := make([]string, 0, len(domain.EntityTypes()))
	for _, t := range domain.EntityTypes() {
		types = append(types, string(t))
	}

	var context string
	if content.Context != "" {
		context = "User instructions:\n" + content.Context + "\n\n"
	}
	if parseErr != "" {
		context += "Your previous response was invalid (" + parseErr + "). Return a corrected JSON object.\n\n"
	}

	return fmt.Sprintf(extractionPrompt, strings.Join(types, ", "), context, content.Text)
}

// decodeExtraction parses the raw model output strictly.
func decodeExtraction(raw []byte) (*extractionResult, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var result extractionResult
	if err := dec.Decode(&result); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	for i, e := range result.Entities {
		if strings.TrimSpace(e.Name) == "" {
			return nil, fmt.Errorf("entity %d has an empty name", i)
		}
	}
	for i, r := range result.Relationships {
		if strings.TrimSpace(r.Source) == "" || strings.TrimSpace(r.Target) == "" {
			return nil, fmt.Errorf("relationship %d has an empty endpoint", i)
		}
	}
	return &result, nil
}

// mergeEntities embeds and upserts the extracted entities, returning
// the surviving records and a normalised-name index for relationship
// resolution.
func (s *ExtractionService) mergeEntities(
	ctx context.Context, content *domain.Content, result *extractionResult,
) ([]domain.Entity, map[string]string, error) {
	entities := make([]domain.Entity, 0, len(result.Entities))
	byName := make(map[string]string, len(result.Entities))

	// Batch the embeddings up front.
	var vectors [][]float32
	if s.embeddingService != nil && len(result.Entities) > 0 {
		texts := make([]string, len(result.Entities))
		for i, e := range result.Entities {
			entity := domain.Entity{Name: e.Name, Description: e.Description}
			texts[i] = entity.EmbeddingText()
		}
		var err error
		vectors, err = s.embeddingService.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, nil, domain.Transient(fmt.Errorf("embed entities: %w", err))
		}
	}

	for i, e := range result.Entities {
		entity := &domain.Entity{
			ID:          uuid.New().String(),
			OwnerID:     content.OwnerID,
			SourceID:    content.ID,
			Name:        strings.TrimSpace(e.Name),
			Type:        domain.ParseEntityType(e.EntityType),
			Description: strings.TrimSpace(e.Description),
		}
		if vectors != nil {
			entity.Embedding = vectors[i]
		}

		merged, err := s.graphStore.UpsertEntity(ctx, entity)
		if err != nil {
			return nil, nil, fmt.Errorf("upsert entity %q: %w", entity.Name, err)
		}

		entities = append(entities, *merged)
		byName[domain.NormalisedName(merged.Name)] = merged.ID
	}

	return entities, byName, nil
}

// saveRelationships resolves entity names to IDs and stores the edges.
// Edges naming an entity the model never extracted are dropped.
func (s *ExtractionService) saveRelationships(
	ctx context.Context, content *domain.Content, result *extractionResult, byName map[string]string,
) error {
	for _, r := range result.Relationships {
		fromID, okFrom := byName[domain.NormalisedName(r.Source)]
		toID, okTo := byName[domain.NormalisedName(r.Target)]
		if !okFrom || !okTo {
			logger.Debug("Dropping relationship %q -> %q: unresolved endpoint", r.Source, r.Target)
			continue
		}
		if fromID == toID {
			continue
		}

		rel := &domain.Relationship{
			ID:       uuid.New().String(),
			OwnerID:  content.OwnerID,
			FromID:   fromID,
			ToID:     toID,
			Type:     strings.TrimSpace(r.Type),
			SourceID: content.ID,
		}
		if err := s.graphStore.SaveRelationship(ctx, rel); err != nil {
			return fmt.Errorf("save relationship: %w", err)
		}
	}
	return nil
}
