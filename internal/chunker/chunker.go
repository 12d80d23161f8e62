// Package chunker splits raw text into overlapping fixed-size windows,
// the atomic units of indexing and retrieval.
package chunker

import (
	"errors"
	"strings"
)

var ErrInvalidSize = errors.New("chunk size must be positive")

type Chunker struct {
	size    int
	overlap int
}

// New builds a chunker. Size must be positive; overlap is clamped into
// [0, size-1] so the window always advances.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

func (c *Chunker) Size() int    { return c.size }
func (c *Chunker) Overlap() int { return c.overlap }

// Split slides a window of c.size runes across text, advancing by
// size-overlap. Whitespace-only windows are dropped. If nothing
// survives, the whole input is returned as a single chunk so non-empty
// text never chunks to nothing.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	step := c.size - c.overlap

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		window := string(runes[start:end])
		if strings.TrimSpace(window) != "" {
			chunks = append(chunks, window)
		}
	}

	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}
