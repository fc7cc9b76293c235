package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/ddtech-scraper/internal/models"
)

const (
	ProductPathPrefix    = "https://ddtech.mx/producto/"
	ProductIDMarker      = "id="
	DescriptionMaxLength = 500

	productLinkSelector = `div.product-image a[href^="` + ProductPathPrefix + `"]`
)

var (
	priceNoise = regexp.MustCompile(`[^\d.,]`)
	skuPattern = regexp.MustCompile(`id=(\d+)`)
)

// Source tells a Rule where its raw value comes from.
type Source int

const (
	FromDocument Source = iota
	FromURL
)

// Rule extracts one field. Rules are independent of each other: a rule that
// matches nothing yields Fallback and never affects the others.
type Rule struct {
	Field     string
	Source    Source
	Selector  string
	Pattern   *regexp.Regexp
	Transform func(string) string
	Fallback  string

	assign func(*models.ProductRecord, string)
}

// Evaluate returns the rule's value for the given document and URL.
func (r Rule) Evaluate(doc *goquery.Document, url string) string {
	raw, ok := r.raw(doc, url)
	if !ok {
		return r.Fallback
	}
	if r.Transform != nil {
		return r.Transform(raw)
	}
	return raw
}

func (r Rule) raw(doc *goquery.Document, url string) (string, bool) {
	switch r.Source {
	case FromURL:
		if r.Pattern == nil {
			return "", false
		}
		m := r.Pattern.FindStringSubmatch(url)
		if len(m) < 2 {
			return "", false
		}
		return m[1], true
	default:
		if doc == nil {
			return "", false
		}
		sel := doc.Find(r.Selector).First()
		if sel.Length() == 0 {
			return "", false
		}
		return StrippedText(sel), true
	}
}

// ProductRules is the field extraction table for DDTech product pages.
func ProductRules() []Rule {
	return []Rule{
		{
			Field:    "title",
			Selector: "title",
			Fallback: models.NotFound,
			assign:   func(p *models.ProductRecord, v string) { p.Title = v },
		},
		{
			Field:     "price",
			Selector:  `[class*="price"]`,
			Transform: CleanPrice,
			Fallback:  models.NotFound,
			assign:    func(p *models.ProductRecord, v string) { p.Price = v },
		},
		{
			Field:    "sku",
			Source:   FromURL,
			Pattern:  skuPattern,
			Fallback: models.NotFound,
			assign:   func(p *models.ProductRecord, v string) { p.SKU = v },
		},
		{
			Field:     "description",
			Selector:  `[class*="description-container"]`,
			Transform: func(s string) string { return Truncate(s, DescriptionMaxLength) },
			Fallback:  models.NotFound,
			assign:    func(p *models.ProductRecord, v string) { p.Description = v },
		},
		{
			Field:    "availability",
			Selector: `[class="col-sm-9"]`,
			Fallback: models.NotFound,
			assign:   func(p *models.ProductRecord, v string) { p.Availability = v },
		},
	}
}

// ApplyRules fills rec from doc and url.
func ApplyRules(rules []Rule, doc *goquery.Document, url string, rec *models.ProductRecord) {
	for _, r := range rules {
		if r.assign == nil {
			continue
		}
		r.assign(rec, r.Evaluate(doc, url))
	}
}

// CleanPrice keeps only digits and separators. When nothing survives the
// original text is returned unchanged.
func CleanPrice(text string) string {
	cleaned := priceNoise.ReplaceAllString(text, "")
	if cleaned == "" {
		return text
	}
	return cleaned
}

// Truncate returns the first max characters of s.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

type DDTechParser struct {
	rules []Rule
}

func NewDDTechParser() *DDTechParser {
	return &DDTechParser{rules: ProductRules()}
}

func (p *DDTechParser) ParseProductPage(source, url string, scrapedAt time.Time) (*models.ProductRecord, error) {
	doc, err := ParseDocument(source)
	if err != nil {
		return nil, err
	}

	rec := models.NewProductRecord(url, scrapedAt)
	ApplyRules(p.rules, doc, url, rec)

	return rec, nil
}

func (p *DDTechParser) ExtractProductLinks(source string, maxCount int) ([]string, error) {
	doc, err := ParseDocument(source)
	if err != nil {
		return nil, err
	}
	return ProductLinks(doc, maxCount), nil
}

// ProductLinks walks product-image anchors in document order and returns up
// to maxCount distinct product URLs carrying an id marker.
func ProductLinks(doc *goquery.Document, maxCount int) []string {
	links := make([]string, 0)
	if maxCount <= 0 {
		return links
	}

	seen := make(map[string]struct{})

	doc.Find(productLinkSelector).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok || !IsProductURL(href) {
			return true
		}
		if _, dup := seen[href]; dup {
			return true
		}

		seen[href] = struct{}{}
		links = append(links, href)

		return len(links) < maxCount
	})

	return links
}

func IsProductURL(href string) bool {
	return strings.HasPrefix(href, ProductPathPrefix) && strings.Contains(href, ProductIDMarker)
}
