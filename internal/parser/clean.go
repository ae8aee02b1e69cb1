package parser

import (
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// CleanHTML strips <script> and <style> subtrees from an HTML fragment
// and joins the remaining visible text with single spaces. The indexer
// runs every page payload through this before persisting it; payloads
// that are already plain text come back unchanged apart from whitespace
// normalization.
func CleanHTML(raw string) string {
	doc, err := htmlquery.Parse(strings.NewReader(raw))
	if err != nil {
		// Not parseable as HTML; fall back to whitespace cleanup.
		return strings.Join(strings.Fields(raw), " ")
	}

	for _, node := range htmlquery.Find(doc, "//script|//style|//noscript") {
		detach(node)
	}

	return strings.Join(strings.Fields(htmlquery.InnerText(doc)), " ")
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}
