package vectorDB

import (
	"sort"
	"strings"
	"unicode"

	"github.com/akolanti/docrag/internal/domain/commonModels"
)

// QueryTerms lowercases the query and splits it into unique words of two or more runes.
func QueryTerms(query string) []string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	seen := make(map[string]struct{}, len(words))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if len([]rune(w)) < 2 {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		terms = append(terms, w)
	}
	return terms
}

// TermScore counts whole-word occurrences of the terms in content.
func TermScore(content string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	want := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		want[t] = struct{}{}
	}
	var score float64
	for _, w := range strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		if _, ok := want[w]; ok {
			score++
		}
	}
	return score
}

// RankByTerms scores candidates, drops those without a match and keeps the best limit.
// Ties keep document order so results are stable.
func RankByTerms(candidates []commonModels.DocChunk, terms []string, limit int) []commonModels.ScoredChunk {
	scored := make([]commonModels.ScoredChunk, 0, len(candidates))
	for _, c := range candidates {
		if s := TermScore(c.Chunk, terms); s > 0 {
			scored = append(scored, commonModels.ScoredChunk{Chunk: c, Score: s})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].Chunk.DocumentId != scored[j].Chunk.DocumentId {
			return scored[i].Chunk.DocumentId < scored[j].Chunk.DocumentId
		}
		return scored[i].Chunk.Index < scored[j].Chunk.Index
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}
