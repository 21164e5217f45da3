package driven

import "github.com/custodia-labs/docsearch/internal/core/domain"

// MetadataReader reads filesystem attributes of a file without modifying it.
type MetadataReader interface {
	Read(path string) (domain.FileInfo, error)
}
