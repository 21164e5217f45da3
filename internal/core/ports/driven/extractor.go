package driven

import "context"

// TextExtractor turns a file into plain text.
type TextExtractor interface {
	// SupportedTypes returns the declared types (lower-case extensions
	// without a dot) this extractor handles.
	SupportedTypes() []string

	// Extract reads the file at path and returns its text.
	// Malformed content yields domain.ErrExtraction.
	Extract(ctx context.Context, path, declaredType string) (string, error)
}

// ExtractorRegistry dispatches on declared type.
type ExtractorRegistry interface {
	// Register adds an extractor for all of its supported types.
	Register(extractor TextExtractor)

	// Extract uses the registered extractor for declaredType.
	// Unknown types yield domain.ErrUnsupportedType.
	Extract(ctx context.Context, path, declaredType string) (string, error)

	// Supports reports whether declaredType has an extractor.
	Supports(declaredType string) bool

	// SupportedTypes returns all registered types, sorted.
	SupportedTypes() []string
}
