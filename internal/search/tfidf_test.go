package search

import (
	"fmt"
	"testing"
)

// --- Tokenize Tests ---

func TestTokenizeLowercasesAndDropsStopwords(t *testing.T) {
	got := Tokenize("The Raft consensus protocol IS a replication algorithm")
	want := []string{"raft", "consensus", "protocol", "replication", "algorithm"}

	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestTokenizeSplitsOnPunctuation(t *testing.T) {
	got := Tokenize("key-value; store: v2!")
	want := []string{"key", "value", "store", "v2"}

	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestTokenizeEmpty(t *testing.T) {
	if got := Tokenize("the and of"); len(got) != 0 {
		t.Errorf("stopword-only text should tokenize empty, got %v", got)
	}
	if got := Tokenize(""); len(got) != 0 {
		t.Errorf("empty text should tokenize empty, got %v", got)
	}
}

// --- Rank Tests ---

func TestRankOrdersByRelevance(t *testing.T) {
	docs := []Document{
		{URL: "https://a.com", Content: "raft consensus consensus leader election consensus"},
		{URL: "https://b.com", Content: "consensus appears once among cooking recipes pasta sauce tomato basil"},
		{URL: "https://c.com", Content: "gardening tips soil compost watering"},
	}

	results := Rank(docs, "consensus")
	if len(results) != 2 {
		t.Fatalf("expected 2 hits, got %d: %v", len(results), results)
	}
	if results[0].URL != "https://a.com" {
		t.Errorf("expected the consensus-heavy page first, got %s", results[0].URL)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("scores not descending: %v", results)
	}
	for _, r := range results {
		if r.Score <= ScoreThreshold {
			t.Errorf("hit below threshold leaked through: %+v", r)
		}
	}
}

func TestRankEmptyCorpus(t *testing.T) {
	if got := Rank(nil, "anything"); len(got) != 0 {
		t.Errorf("empty corpus should yield no results, got %v", got)
	}
}

func TestRankStopwordQuery(t *testing.T) {
	docs := []Document{{URL: "https://a.com", Content: "some content here"}}
	if got := Rank(docs, "the and of"); len(got) != 0 {
		t.Errorf("stopword-only query should yield no results, got %v", got)
	}
}

func TestRankNoMatches(t *testing.T) {
	docs := []Document{
		{URL: "https://a.com", Content: "gardening compost soil"},
		{URL: "https://b.com", Content: "pasta sauce tomato"},
	}
	if got := Rank(docs, "blockchain"); len(got) != 0 {
		t.Errorf("unrelated query should yield no results, got %v", got)
	}
}

func TestRankCapsResults(t *testing.T) {
	docs := make([]Document, MaxResults+10)
	for i := range docs {
		docs[i] = Document{
			URL:     fmt.Sprintf("https://site%d.com", i),
			Content: "consensus replication consensus",
		}
	}

	results := Rank(docs, "consensus replication")
	if len(results) != MaxResults {
		t.Fatalf("expected results capped at %d, got %d", MaxResults, len(results))
	}
}

func TestRankStableOnTies(t *testing.T) {
	docs := []Document{
		{URL: "https://first.com", Content: "consensus replication"},
		{URL: "https://second.com", Content: "consensus replication"},
	}

	results := Rank(docs, "consensus")
	if len(results) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(results))
	}
	if results[0].URL != "https://first.com" {
		t.Errorf("tie order not stable: %v", results)
	}
}
