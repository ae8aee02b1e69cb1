package search

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Scoring parameters for keyword search.
const (
	// ScoreThreshold filters out documents with near-zero similarity.
	ScoreThreshold = 0.05

	// MaxResults caps the result list.
	MaxResults = 20
)

// Document is one searchable page.
type Document struct {
	URL     string
	Content string
}

// Result is a scored search hit.
type Result struct {
	URL   string
	Score float64
}

// Tokenize lowercases text and splits it into purely alphanumeric word
// tokens, dropping English stopwords.
func Tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		token := current.String()
		current.Reset()
		if !stopwords[token] {
			tokens = append(tokens, token)
		}
	}

	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// Rank scores every document against the query by TF-IDF cosine
// similarity. The query is vectorized as an extra document so it shares
// the corpus vocabulary. Results above the threshold come back in
// descending score order (stable on ties), capped at MaxResults. An
// empty corpus yields an empty result.
func Rank(docs []Document, query string) []Result {
	if len(docs) == 0 {
		return nil
	}

	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}

	corpus := make([][]string, 0, len(docs)+1)
	for _, d := range docs {
		corpus = append(corpus, Tokenize(d.Content))
	}
	corpus = append(corpus, queryTokens)

	vectors := vectorize(corpus)
	queryVec := vectors[len(vectors)-1]

	results := make([]Result, 0, len(docs))
	for i, d := range docs {
		score := dot(queryVec, vectors[i])
		if score > ScoreThreshold {
			results = append(results, Result{URL: d.URL, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > MaxResults {
		results = results[:MaxResults]
	}
	return results
}

// vectorize builds L2-normalized TF-IDF vectors (smoothed IDF) for each
// token list in the corpus.
func vectorize(corpus [][]string) []map[string]float64 {
	n := float64(len(corpus))

	// Document frequency per term.
	df := make(map[string]float64)
	for _, tokens := range corpus {
		seen := make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				df[t]++
			}
		}
	}

	idf := make(map[string]float64, len(df))
	for term, f := range df {
		idf[term] = math.Log((1+n)/(1+f)) + 1
	}

	vectors := make([]map[string]float64, len(corpus))
	for i, tokens := range corpus {
		tf := make(map[string]float64, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}

		vec := make(map[string]float64, len(tf))
		var norm float64
		for term, count := range tf {
			w := count * idf[term]
			vec[term] = w
			norm += w * w
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for term := range vec {
				vec[term] /= norm
			}
		}
		vectors[i] = vec
	}
	return vectors
}

// dot computes the inner product of two sparse vectors. Both are
// L2-normalized, so this is their cosine similarity.
func dot(a, b map[string]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var sum float64
	for term, w := range a {
		sum += w * b[term]
	}
	return sum
}
