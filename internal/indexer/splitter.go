package indexer

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the maximum chunk length in runes.
	DefaultChunkSize = 1500
	// DefaultChunkOverlap is how many runes consecutive chunks may share.
	DefaultChunkOverlap = 200
)

// DefaultSeparators are tried in order: paragraphs, lines, sentences, words, runes.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// RecursiveSplitter splits text on the coarsest separator that keeps pieces
// under the chunk size, recursing into finer separators for oversized pieces,
// then merges neighbouring pieces back up to the size with overlap.
type RecursiveSplitter struct {
	size       int
	overlap    int
	separators []string
}

// NewRecursiveSplitter creates a splitter. Overlap must be smaller than size.
func NewRecursiveSplitter(size, overlap int) (*RecursiveSplitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &RecursiveSplitter{size: size, overlap: overlap, separators: DefaultSeparators}, nil
}

// Split returns the chunks of text. Blank text yields no chunks.
func (s *RecursiveSplitter) Split(text string) []Chunk {
	pieces := s.split(text, s.separators)
	chunks := make([]Chunk, 0, len(pieces))
	for _, p := range pieces {
		chunks = append(chunks, Chunk{Index: len(chunks), Text: p})
	}
	return chunks
}

func (s *RecursiveSplitter) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var finer []string
	for i, c := range separators {
		if c == "" {
			sep = ""
			break
		}
		if strings.Contains(text, c) {
			sep = c
			finer = separators[i+1:]
			break
		}
	}

	var parts []string
	if sep == "" {
		parts = strings.Split(text, "")
	} else {
		parts = strings.Split(text, sep)
	}

	var out, small []string
	for _, p := range parts {
		if p == "" {
			continue
		}
		if utf8.RuneCountInString(p) < s.size {
			small = append(small, p)
			continue
		}
		if len(small) > 0 {
			out = append(out, s.merge(small, sep)...)
			small = nil
		}
		if len(finer) == 0 {
			out = append(out, p)
		} else {
			out = append(out, s.split(p, finer)...)
		}
	}
	if len(small) > 0 {
		out = append(out, s.merge(small, sep)...)
	}
	return out
}

// merge joins pieces with sep into chunks no longer than size, carrying up
// to overlap runes of trailing pieces into the next chunk.
func (s *RecursiveSplitter) merge(pieces []string, sep string) []string {
	sepLen := utf8.RuneCountInString(sep)
	var docs, current []string
	total := 0

	joinLen := func() int {
		if len(current) > 0 {
			return sepLen
		}
		return 0
	}

	for _, p := range pieces {
		n := utf8.RuneCountInString(p)
		if total+n+joinLen() > s.size && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, sep)); doc != "" {
				docs = append(docs, doc)
			}
			for len(current) > 0 && (total > s.overlap || total+n+joinLen() > s.size) {
				dropped := utf8.RuneCountInString(current[0])
				if len(current) > 1 {
					dropped += sepLen
				}
				total -= dropped
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
		if len(current) > 1 {
			total += sepLen
		}
	}

	if doc := strings.TrimSpace(strings.Join(current, sep)); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}
