// Package filestat reads filesystem attributes of source files.
package filestat

import (
	"fmt"
	"os"

	"github.com/djherbis/times"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
)

// Ensure Reader implements the interface.
var _ driven.MetadataReader = (*Reader)(nil)

// Reader implements driven.MetadataReader using the platform's stat call.
type Reader struct{}

// NewReader creates a new metadata reader.
func NewReader() *Reader {
	return &Reader{}
}

// Read returns size and timestamps of the file at path.
// CreatedAt is the birth time where the platform records one, otherwise
// the inode change time, otherwise the modification time.
func (r *Reader) Read(path string) (domain.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.FileInfo{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return domain.FileInfo{}, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, path)
	}

	ts := times.Get(info)

	created := ts.ModTime()
	switch {
	case ts.HasBirthTime():
		created = ts.BirthTime()
	case ts.HasChangeTime():
		created = ts.ChangeTime()
	}

	return domain.FileInfo{
		Path:           path,
		SizeBytes:      info.Size(),
		CreatedAt:      created,
		ModifiedAt:     ts.ModTime(),
		LastAccessedAt: ts.AccessTime(),
	}, nil
}
