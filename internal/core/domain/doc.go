// Package domain defines the core business entities for docqa.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A block of text read from one source file
//   - Chunk: An overlapping passage of a document, the unit of embedding
//   - IndexEntry: A chunk together with its embedding, owned by the vector index
//   - RetrievalResult: The scored passages returned for a query
//   - ConversationTurn: One question/answer exchange kept in memory
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
