// Package chunker splits raw text into overlapping, bounded passages for
// indexing.
//
// Chunk boundaries prefer natural breakpoints: a paragraph break first, then
// the end of a sentence, then any whitespace, and only then a hard cut at the
// size limit. Consecutive chunks of a block always share exactly the
// configured overlap, so the original block can be rebuilt with Merge.
package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const (
	// DefaultChunkSize is the default maximum chunk length in characters.
	DefaultChunkSize = 500

	// DefaultChunkOverlap is the default overlap between consecutive chunks.
	DefaultChunkOverlap = 50
)

// ErrInvalidParams is returned by New when size and overlap are unusable.
var ErrInvalidParams = errors.New("invalid chunk parameters")

// Splitter splits text blocks into overlapping chunks. Sizes are counted in
// runes.
type Splitter struct {
	size    int
	overlap int
}

// New creates a Splitter. overlap must be smaller than size.
func New(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidParams, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must not be negative, got %d", ErrInvalidParams, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", ErrInvalidParams, overlap, size)
	}

	return &Splitter{size: size, overlap: overlap}, nil
}

// Size returns the maximum chunk length.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the overlap between consecutive chunks.
func (s *Splitter) Overlap() int { return s.overlap }

// Split chunks every block in order. Blank blocks produce no chunks.
func (s *Splitter) Split(blocks []string) []string {
	var chunks []string
	for _, block := range blocks {
		chunks = append(chunks, s.SplitBlock(block)...)
	}
	return chunks
}

// SplitBlock chunks a single block of text.
func (s *Splitter) SplitBlock(block string) []string {
	if strings.TrimSpace(block) == "" {
		return nil
	}

	runes := []rune(block)
	if len(runes) <= s.size {
		return []string{block}
	}

	var chunks []string
	start := 0
	for {
		if len(runes)-start <= s.size {
			chunks = append(chunks, string(runes[start:]))
			return chunks
		}

		end := s.cut(runes, start)
		chunks = append(chunks, string(runes[start:end]))
		start = end - s.overlap
	}
}

// cut picks the end (exclusive) of the chunk starting at start. The end is
// always past start+overlap so the next chunk makes progress.
func (s *Splitter) cut(runes []rune, start int) int {
	lo := start + s.overlap + 1
	hi := start + s.size

	if p := lastBreak(runes, lo, hi, isParagraphBreak); p > 0 {
		return p
	}
	if p := lastBreak(runes, lo, hi, isSentenceBreak); p > 0 {
		return p
	}
	if p := lastBreak(runes, lo, hi, isSpaceBreak); p > 0 {
		return p
	}
	return hi
}

// lastBreak scans candidate ends from hi down to lo and returns the first one
// accepted by pred, or 0.
func lastBreak(runes []rune, lo, hi int, pred func(runes []rune, end int) bool) int {
	for end := hi; end >= lo; end-- {
		if pred(runes, end) {
			return end
		}
	}
	return 0
}

func isParagraphBreak(runes []rune, end int) bool {
	return end >= 2 && runes[end-1] == '\n' && runes[end-2] == '\n'
}

func isSentenceBreak(runes []rune, end int) bool {
	if end < 2 || !unicode.IsSpace(runes[end-1]) {
		return false
	}
	switch runes[end-2] {
	case '.', '!', '?':
		return true
	}
	return false
}

func isSpaceBreak(runes []rune, end int) bool {
	return end >= 1 && unicode.IsSpace(runes[end-1])
}

// Merge rebuilds the text of a single block from its chunks by dropping the
// overlap prefix of every chunk after the first.
func Merge(chunks []string, overlap int) string {
	var b strings.Builder
	for i, chunk := range chunks {
		if i == 0 {
			b.WriteString(chunk)
			continue
		}
		b.WriteString(string([]rune(chunk)[overlap:]))
	}
	return b.String()
}
