// Package domain defines the core entities of the Campaign Monitor extractor.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - StreamDefinition: A static description of one extractable entity type
//   - Record: One opaque, field-ordered JSON object returned by the API
//   - Page: One decoded page envelope
//   - Watermark: The incremental boundary for a (stream, parent) pair
//   - Bookmarks: The nested stream → parent → watermark mapping
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
