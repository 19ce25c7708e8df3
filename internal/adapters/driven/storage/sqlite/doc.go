// Package sqlite provides the storage adapter backing every persistence
// port: the ingestion task queue, content and chunk storage with an FTS5
// keyword index, the knowledge graph and stored file references.
//
// A single Store owns the database handle; TaskStore, ContentStore and
// GraphStore return port-shaped views over it. The database is opened in
// WAL mode with foreign keys enforced, and the schema is managed by
// embedded migrations applied at startup.
//
// Embeddings are stored as little-endian float32 BLOBs and searched by
// brute-force cosine scan, which is well within interactive latency at
// personal corpus scale.
//
// # Import Rules
//
//   - CAN import: domain, ports/driven
//   - CANNOT import: services, driving adapters
//   - External: modernc.org/sqlite (pure Go driver, no CGO)
package sqlite
