// Package domain defines the core business entities for Loreweave.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - IngestionTask: A queued unit of ingestion work
//   - Content: A stored piece of ingested content
//   - Chunk: A searchable unit within a content record
//   - Entity: A knowledge graph node extracted from content
//   - Relationship: A typed edge between two entities
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
