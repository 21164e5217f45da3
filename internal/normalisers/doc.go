// Package normalisers turns files into plain text for indexing.
//
// Each sub-package implements driven.TextExtractor for a family of declared
// types (lower-case file extensions). The Registry dispatches on declared
// type and is populated at startup with RegisterDefaults.
package normalisers
