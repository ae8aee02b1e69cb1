package parser

import (
	"strings"
	"testing"
)

const testHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Test Page</title>
    <style>body { color: red; }</style>
    <script>console.log("noise");</script>
</head>
<body>
    <h1>Distributed Systems</h1>
    <p>Consensus protocols   and replication.</p>
    <noscript>Enable JavaScript</noscript>
    <a href="/page2">Relative</a>
    <a href="https://example.com/page3">Absolute</a>
    <a href="//cdn.example.org/asset">Scheme relative</a>
    <a href="#section">Fragment</a>
</body>
</html>`

// --- ExtractPage Tests ---

func TestExtractPageText(t *testing.T) {
	page, err := ExtractPage("https://example.com/start", []byte(testHTML))
	if err != nil {
		t.Fatalf("extract error: %v", err)
	}

	if strings.Contains(page.Text, "console.log") {
		t.Error("script content leaked into text")
	}
	if strings.Contains(page.Text, "color: red") {
		t.Error("style content leaked into text")
	}
	if strings.Contains(page.Text, "Enable JavaScript") {
		t.Error("noscript content leaked into text")
	}
	if !strings.Contains(page.Text, "Distributed Systems") {
		t.Errorf("expected heading in text, got %q", page.Text)
	}
	if strings.Contains(page.Text, "  ") {
		t.Errorf("whitespace not collapsed: %q", page.Text)
	}
}

func TestExtractPageLinks(t *testing.T) {
	page, err := ExtractPage("https://example.com/start", []byte(testHTML))
	if err != nil {
		t.Fatalf("extract error: %v", err)
	}

	want := map[string]bool{
		"https://example.com/page2":       true,
		"https://example.com/page3":       true,
		"https://cdn.example.org/asset":   true,
		"https://example.com/start#section": true,
	}
	if len(page.Links) != len(want) {
		t.Fatalf("expected %d links, got %d: %v", len(want), len(page.Links), page.Links)
	}
	for _, link := range page.Links {
		if !want[link] {
			t.Errorf("unexpected link %q", link)
		}
	}
}

func TestExtractPageBadBaseURL(t *testing.T) {
	if _, err := ExtractPage("://not a url", []byte(testHTML)); err == nil {
		t.Fatal("expected error for unparseable base URL")
	}
}

// --- FilterByPrefix Tests ---

func TestFilterByPrefix(t *testing.T) {
	links := []string{
		"https://example.com/a",
		"https://example.com/b",
		"https://other.org/c",
	}

	kept := FilterByPrefix(links, "https://example.com")
	if len(kept) != 2 {
		t.Fatalf("expected 2 kept links, got %d: %v", len(kept), kept)
	}

	all := FilterByPrefix(links, "")
	if len(all) != 3 {
		t.Fatalf("empty prefix should keep everything, got %d", len(all))
	}
}

// --- CleanHTML Tests ---

func TestCleanHTMLStripsMarkup(t *testing.T) {
	got := CleanHTML(`<div><script>bad()</script><p>Hello   <b>world</b></p></div>`)
	if got != "Hello world" {
		t.Errorf("expected %q, got %q", "Hello world", got)
	}
}

func TestCleanHTMLPlainTextPassthrough(t *testing.T) {
	got := CleanHTML("plain   text  already")
	if got != "plain text already" {
		t.Errorf("expected collapsed plain text, got %q", got)
	}
}
