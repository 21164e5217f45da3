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
//   - VectorIndex: Exact nearest neighbour search over fixed-dimension vectors
//   - IndexStore: Vector index plus the co-indexed chunk records
//   - TextExtractor: Turns a file of a declared type into plain text
//   - ExtractorRegistry: Selects the extractor for a declared type
//   - MetadataReader: Reads filesystem attributes of a source file
//   - PostProcessorPipeline: Splits document content into chunks
//   - ConfigStore: Application configuration
//   - JobStore: Ingestion job ledger
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: without it ingestion and search fail with
//     ErrEmbeddingUnavailable, while listing documents still works.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
