package chunker

import (
	"strings"
	"unicode/utf8"
)

// Boundary classes in priority order. A later class is only consulted when
// no earlier class has a match past the midpoint of the window.
var boundaryClasses = [][]string{
	{"\n\n"},
	{"\n"},
	{". ", "! ", "? ", ".\n", "!\n", "?\n", ".\t", "!\t", "?\t"},
	{" "},
}

// span is a half-open byte range [start, end) of the source text.
type span struct {
	start int
	end   int
}

// Split cuts text into overlapping pieces of at most size bytes, preferring
// to end each piece on a paragraph, line, sentence or word boundary.
// Pieces are trimmed; whitespace-only pieces are dropped.
//
// The caller must ensure size > 0 and 0 <= overlap < size.
func Split(text string, size, overlap int) []string {
	spans := splitSpans(text, size, overlap)
	pieces := make([]string, 0, len(spans))
	for _, s := range spans {
		if piece := strings.TrimSpace(text[s.start:s.end]); piece != "" {
			pieces = append(pieces, piece)
		}
	}
	return pieces
}

// splitSpans returns the untrimmed windows Split emits from.
func splitSpans(text string, size, overlap int) []span {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	n := len(text)
	spans := make([]span, 0, n/(size-overlap)+1)
	start := 0

	for {
		end := min(start+size, n)
		if end < n {
			end = boundaryEnd(text, start, end, size)
		}
		spans = append(spans, span{start: start, end: end})

		if end == n {
			return spans
		}

		next := end - overlap
		if next <= start {
			// A boundary pulled end too far back for the overlap to leave
			// any progress; step as if the window had been cut at size.
			next = start + size - overlap
		}
		start = alignRune(text, next, start, end)
	}
}

// boundaryEnd picks the end of the window text[start:end].
func boundaryEnd(text string, start, end, size int) int {
	window := text[start:end]
	threshold := start + size/2

	for _, class := range boundaryClasses {
		best := -1
		width := 0
		for _, delim := range class {
			if i := strings.LastIndex(window, delim); i > best {
				best = i
				width = len(delim)
			}
		}
		if best >= 0 && start+best > threshold {
			return start + best + width
		}
	}

	// Hard cut. Never split a multi-byte rune.
	for end > start+1 && !utf8.RuneStart(text[end]) {
		end--
	}
	return end
}

// alignRune moves i onto a rune start in (lo, hi], searching backward first.
func alignRune(text string, i, lo, hi int) int {
	for j := i; j > lo; j-- {
		if utf8.RuneStart(text[j]) {
			return j
		}
	}
	for j := i; j < hi; j++ {
		if utf8.RuneStart(text[j]) {
			return j
		}
	}
	return hi
}
