package parser

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page holds the extraction result for one fetched document.
type Page struct {
	// Text is the visible text of the page: script/style/noscript
	// removed, whitespace collapsed to single spaces.
	Text string

	// Links are all <a href> targets resolved against the base URL.
	Links []string
}

// ExtractPage parses an HTML document and returns its visible text and
// resolved outbound links.
func ExtractPage(baseURL string, body []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}

	clone := doc.Selection.Clone()
	clone.Find("script, style, noscript").Remove()
	text := strings.Join(strings.Fields(clone.Text()), " ")

	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		resolved := resolveLink(base, href)
		if resolved != "" {
			links = append(links, resolved)
		}
	})

	return &Page{Text: text, Links: links}, nil
}

// resolveLink resolves an href against the page base. Unparseable hrefs
// resolve to the raw value, mirroring lenient urljoin behavior.
func resolveLink(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// FilterByPrefix keeps only links that begin with the domain prefix.
// An empty prefix keeps everything.
func FilterByPrefix(links []string, prefix string) []string {
	if prefix == "" {
		return links
	}
	kept := links[:0:0]
	for _, link := range links {
		if strings.HasPrefix(link, prefix) {
			kept = append(kept, link)
		}
	}
	return kept
}
