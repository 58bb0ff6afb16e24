package rag

import (
	"slices"
	"strings"
	"unicode"
)

// Words too common in compliance questions to say anything about a chunk.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true, "be": true,
	"by": true, "can": true, "do": true, "does": true, "for": true, "from": true, "how": true,
	"i": true, "in": true, "is": true, "it": true, "of": true, "on": true, "or": true,
	"our": true, "the": true, "to": true, "we": true, "what": true, "when": true,
	"which": true, "who": true, "with": true,
}

// overlap is how many of a question's keywords a chunk contains.
type overlap struct {
	Score float64
	Terms []string
}

// keywordOverlap reports the distinct question keywords found in the chunk
// text or the document name. Score is the matched fraction, in [0, 1].
func keywordOverlap(question, chunkText, documentName string) overlap {
	keywords := keywords(question)
	if len(keywords) == 0 {
		return overlap{}
	}

	present := make(map[string]bool)
	for _, w := range words(chunkText) {
		present[w] = true
	}
	for _, w := range words(documentName) {
		present[w] = true
	}

	var matched []string
	for _, k := range keywords {
		if present[k] {
			matched = append(matched, k)
		}
	}
	return overlap{
		Score: float64(len(matched)) / float64(len(keywords)),
		Terms: matched,
	}
}

// keywords returns the distinct non-stopword words of text in first-seen order.
func keywords(text string) []string {
	var out []string
	for _, w := range words(text) {
		if stopwords[w] || slices.Contains(out, w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// words lowercases text and splits it on anything that is not a letter or digit.
func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
