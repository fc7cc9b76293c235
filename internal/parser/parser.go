package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/ddtech-scraper/internal/models"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type Parser interface {
	ParseProductPage(html, url string, scrapedAt time.Time) (*models.ProductRecord, error)
	ExtractProductLinks(html string, maxCount int) ([]string, error)
}

// ParseDocument parses rendered page source once for all rules.
func ParseDocument(source string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// StrippedText concatenates every descendant text node of the first node in
// sel after trimming each one, so markup whitespace never reaches a field.
// Script, style and template contents are not page text and are skipped.
func StrippedText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(strings.TrimSpace(n.Data))
			return
		case n.Type == html.ElementNode && isNonTextElement(n.DataAtom):
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(sel.Get(0))

	return b.String()
}

func isNonTextElement(a atom.Atom) bool {
	switch a {
	case atom.Script, atom.Style, atom.Template:
		return true
	}
	return false
}
