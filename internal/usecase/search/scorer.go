package search

import (
	"math"
	"strings"
	"time"

	"github.com/kailas-cloud/docdex/internal/domain"
	"github.com/kailas-cloud/docdex/internal/index"
)

const (
	tfScale       = 100.0 // scale factor on tf*idf for better discrimination
	phraseBoost   = 1.5   // multiplier per exact phrase hit, compounding
	recencyFloor  = 0.7   // oldest documents keep at least 70% of their score
	recencyWindow = 365.0 // days over which the recency factor decays
)

// Scorer ranks documents against a single query. Keywords and phrase patterns
// are extracted once per query; Score is then called per candidate document.
type Scorer struct {
	keywords []string
	phrases  []string
	inv      index.Inverted
	corpus   int
	now      time.Time
}

// NewScorer prepares a scorer for query over an index of corpusSize documents.
// Phrase patterns are only built for multi-keyword queries.
func NewScorer(query string, inv index.Inverted, corpusSize int, now time.Time) *Scorer {
	s := &Scorer{
		keywords: index.Keywords(query),
		inv:      inv,
		corpus:   corpusSize,
		now:      now,
	}
	if len(s.keywords) > 1 {
		s.phrases = index.Phrases(query)
	}
	return s
}

// HasKeywords reports whether the query yielded any keywords at all.
func (s *Scorer) HasKeywords() bool {
	return len(s.keywords) > 0
}

// Score computes the relevance of doc. Zero means the document is not a
// candidate and must be excluded from results.
//
// Term frequency deliberately counts raw substring occurrences over a
// whitespace-token denominator: substring counts can exceed token counts for
// short terms appearing inside longer words, favoring short and compound
// terms. Kept as-is from the reference scoring behavior.
func (s *Scorer) Score(doc domain.Document) float64 {
	docText := strings.ToLower(doc.Text)
	totalTokens := len(strings.Fields(docText))
	if totalTokens == 0 {
		return 0
	}

	var score float64
	for _, keyword := range s.keywords {
		count := strings.Count(docText, keyword)
		if count == 0 {
			continue
		}

		tf := float64(count) / float64(totalTokens)

		var idf float64
		if df := s.inv.DocFreq(keyword); df > 0 {
			idf = math.Log(float64(s.corpus) / float64(df))
		}

		score += tf * idf * tfScale
	}

	if score > 0 {
		for _, phrase := range s.phrases {
			if strings.Contains(docText, phrase) {
				score *= phraseBoost
			}
		}
	}

	if score > 0 {
		ageDays := s.now.Sub(doc.AddedAt).Hours() / 24
		recency := 1 - ageDays/recencyWindow
		if recency < recencyFloor {
			recency = recencyFloor
		}
		score *= recency
	}

	return score
}
