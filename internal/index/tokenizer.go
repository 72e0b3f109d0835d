// Package index implements text tokenization and the inverted index used by
// keyword retrieval. Both are pure functions over their inputs; the index is
// derived state, rebuilt in full from the document store and never persisted.
package index

import (
	"regexp"
	"strings"
)

// stopWords are high-frequency function words excluded from keyword extraction.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {},
	"is": {}, "are": {}, "on": {}, "it": {}, "this": {}, "that": {},
	"to": {}, "of": {}, "for": {}, "in": {}, "with": {}, "by": {}, "as": {},
	"have": {}, "has": {}, "had": {},
	"i": {}, "you": {}, "he": {}, "she": {}, "we": {}, "they": {},
}

var (
	// Letters and digits in any script count as word characters.
	nonWordRe = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

	// Phrase fragments are split on a narrower stop-word set: articles,
	// conjunctions, and prepositions, not pronouns or auxiliaries.
	phraseSplitRe = regexp.MustCompile(
		`\s+(?:a|an|the|and|or|but|is|are|on|it|this|that|to|of|for|in|with|by|as)\s+`,
	)
)

// Tokenize normalizes text into lowercase alphanumeric tokens: every run of
// non-word characters becomes a space, then the result is split on whitespace.
func Tokenize(text string) []string {
	normalized := nonWordRe.ReplaceAllString(strings.ToLower(text), " ")
	return strings.Fields(normalized)
}

// Keywords extracts query keywords: tokens minus stop words minus tokens of
// length <= 2.
func Keywords(query string) []string {
	var keywords []string
	for _, tok := range Tokenize(query) {
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if len(tok) <= 2 {
			continue
		}
		keywords = append(keywords, tok)
	}
	return keywords
}

// Phrases splits the normalized query on stop-word boundaries and returns the
// multi-word fragments. A fragment appearing verbatim in a document is treated
// as an exact phrase hit by the scorer.
func Phrases(query string) []string {
	normalized := nonWordRe.ReplaceAllString(strings.ToLower(query), " ")

	var phrases []string
	for _, fragment := range phraseSplitRe.Split(normalized, -1) {
		fragment = strings.TrimSpace(fragment)
		if len(strings.Fields(fragment)) > 1 {
			phrases = append(phrases, fragment)
		}
	}
	return phrases
}
