// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - TaskStore: Durable ingestion task queue
//   - ContentStore: Content, chunk and file reference persistence
//   - GraphStore: Entity and relationship persistence
//   - Normaliser: Transforms a payload into plain text
//   - NormaliserRegistry: Selects the appropriate normaliser
//   - Chunker: Splits content text into overlapping chunks
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings. Without it, vector
//     search is disabled and retrieval is keyword-only.
//   - LLMService: Language model operations. Without it, knowledge
//     extraction is skipped and ingestion stores content only.
//   - Reranker: Re-orders fused results. Without it, fusion order stands.
//   - PageFetcher: Retrieves web pages. Without it, URL payloads fail.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
