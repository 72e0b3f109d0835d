package index

// Inverted maps a term to the ordered set of document indices containing it.
type Inverted map[string][]int

// Build constructs an inverted index over the given document texts. Document
// identity is position in the slice. Each document contributes its unique
// token set (term presence, not frequency). The result is total: callers
// discard any previous index. Empty input yields an empty, usable index.
func Build(texts []string) Inverted {
	inv := make(Inverted)
	for i, text := range texts {
		seen := make(map[string]struct{})
		for _, tok := range Tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			inv[tok] = append(inv[tok], i)
		}
	}
	return inv
}

// Postings returns the document indices containing term, or nil.
func (inv Inverted) Postings(term string) []int {
	return inv[term]
}

// DocFreq returns the number of documents containing term.
func (inv Inverted) DocFreq(term string) int {
	return len(inv[term])
}

// Terms returns the number of distinct terms in the index.
func (inv Inverted) Terms() int {
	return len(inv)
}
