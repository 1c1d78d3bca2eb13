package analyzer

import (
	"regexp"
	"sort"
	"strings"
)

const maxKeywords = 10

// Title words count more than body words when ranking keywords.
const titleWeight = 3

var wordExpr = regexp.MustCompile(`[a-z][a-z0-9+#-]{2,}`)

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "your": {}, "all": {}, "can": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "has": {}, "have": {}, "had": {},
	"this": {}, "that": {}, "with": {}, "from": {}, "they": {}, "them": {},
	"will": {}, "would": {}, "should": {}, "could": {}, "there": {},
	"their": {}, "what": {}, "when": {}, "where": {}, "which": {},
	"about": {}, "into": {}, "more": {}, "some": {}, "such": {},
	"than": {}, "then": {}, "these": {}, "those": {}, "very": {},
	"just": {}, "also": {}, "been": {}, "being": {}, "because": {},
	"how": {}, "who": {}, "why": {}, "its": {}, "it's": {}, "were": {},
	"article": {}, "blog": {}, "post": {}, "read": {}, "like": {},
	"use": {}, "using": {}, "used": {}, "get": {}, "make": {}, "way": {},
	"dont": {}, "does": {}, "doing": {}, "each": {}, "other": {},
	"here": {}, "over": {}, "only": {}, "most": {}, "many": {}, "much": {},
}

// extractKeywords runs a frequency ranking over the stopword-filtered
// token set of title+body. Title tokens are weighted heavier. Ties are
// broken alphabetically so the ranking is deterministic.
func extractKeywords(title, body string) []string {
	counts := make(map[string]int)

	for _, token := range tokenize(title) {
		counts[token] += titleWeight
	}
	for _, token := range tokenize(body) {
		counts[token]++
	}

	type ranked struct {
		word  string
		count int
	}
	words := make([]ranked, 0, len(counts))
	for word, count := range counts {
		words = append(words, ranked{word, count})
	}

	sort.Slice(words, func(i, j int) bool {
		if words[i].count != words[j].count {
			return words[i].count > words[j].count
		}
		return words[i].word < words[j].word
	})

	keywords := make([]string, 0, maxKeywords)
	for _, w := range words {
		keywords = append(keywords, w.word)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

func tokenize(text string) []string {
	var tokens []string
	for _, match := range wordExpr.FindAllString(strings.ToLower(text), -1) {
		if _, skip := stopwords[match]; skip {
			continue
		}
		tokens = append(tokens, match)
	}
	return tokens
}
