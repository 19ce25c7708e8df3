package file

import (
	"github.com/loreweave/loreweave/internal/core/domain"
	"github.com/loreweave/loreweave/internal/core/ports/driven"
)

// Settings builds AppSettings from the config store, starting from the
// defaults so absent keys keep their default values.
func Settings(store driven.ConfigStore) domain.AppSettings {
	settings := domain.DefaultAppSettings()

	if v := store.GetString("embedding.provider"); v != "" {
		settings.Embedding.Provider = domain.AIProvider(v)
	}
	if v := store.GetString("embedding.model"); v != "" {
		settings.Embedding.Model = v
	}
	if v := store.GetInt("embedding.dimensions"); v > 0 {
		settings.Embedding.Dimensions = v
	}
	if v := store.GetString("embedding.base_url"); v != "" {
		settings.Embedding.BaseURL = v
	}
	if v := store.GetString("embedding.api_key"); v != "" {
		settings.Embedding.APIKey = v
	}

	if v := store.GetString("llm.provider"); v != "" {
		settings.LLM.Provider = domain.AIProvider(v)
	}
	if v := store.GetString("llm.model"); v != "" {
		settings.LLM.Model = v
	}
	if v := store.GetString("llm.extraction_model"); v != "" {
		settings.LLM.ExtractionModel = v
	}
	if v := store.GetString("llm.vision_model"); v != "" {
		settings.LLM.VisionModel = v
	}
	if v := store.GetString("llm.transcription_model"); v != "" {
		settings.LLM.TranscriptionModel = v
	}
	if v := store.GetString("llm.base_url"); v != "" {
		settings.LLM.BaseURL = v
	}
	if v := store.GetString("llm.api_key"); v != "" {
		settings.LLM.APIKey = v
	}

	settings.Rerank.Enabled = store.GetBool("rerank.enabled")
	if v := store.GetString("rerank.model"); v != "" {
		settings.Rerank.Model = v
	}
	if v := store.GetString("rerank.base_url"); v != "" {
		settings.Rerank.BaseURL = v
	}
	if v := store.GetString("rerank.api_key"); v != "" {
		settings.Rerank.APIKey = v
	}
	if v := store.GetInt("rerank.top_n"); v > 0 {
		settings.Rerank.TopN = v
	}

	if v := store.GetInt("chunking.size"); v > 0 {
		settings.Chunking.Size = v
	}
	if v := store.GetInt("chunking.overlap"); v > 0 {
		settings.Chunking.Overlap = v
	}

	if v := store.GetInt("worker.count"); v > 0 {
		settings.Worker.Count = v
	}
	if v := store.GetInt("worker.max_attempts"); v > 0 {
		settings.Worker.MaxAttempts = v
	}
	if v := store.GetInt("worker.base_backoff_ms"); v > 0 {
		settings.Worker.BaseBackoff = v
	}
	if v := store.GetInt("worker.max_backoff_ms"); v > 0 {
		settings.Worker.MaxBackoff = v
	}

	return settings
}
