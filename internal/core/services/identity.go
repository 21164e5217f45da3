package services

import (
	"crypto/md5" //nolint:gosec // identity hash, not a security boundary
	"encoding/hex"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// Identify derives the document ID for a file from its path and
// modification time. The same path with an unchanged mtime always yields
// the same ID; touching the file yields a new one.
func Identify(path string, modTime time.Time) string {
	sum := md5.Sum([]byte(path + ":" + formatUnixSeconds(modTime))) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// formatUnixSeconds renders t as fractional Unix seconds, e.g.
// "1700000000.25". Whole seconds keep a trailing ".0".
func formatUnixSeconds(t time.Time) string {
	secs := float64(t.Unix()) + float64(t.Nanosecond())/1e9
	s := strconv.FormatFloat(secs, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// DeclaredType returns the lower-cased extension of path without the dot.
func DeclaredType(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// BuildMetadata assembles the metadata shared by every chunk of a document.
func BuildMetadata(path string, info domain.FileInfo) domain.DocumentMetadata {
	return domain.DocumentMetadata{
		Title:          filepath.Base(path),
		FileType:       DeclaredType(path),
		SourcePath:     path,
		SizeBytes:      info.SizeBytes,
		CreatedAt:      info.CreatedAt,
		ModifiedAt:     info.ModifiedAt,
		LastAccessedAt: info.LastAccessedAt,
	}
}
