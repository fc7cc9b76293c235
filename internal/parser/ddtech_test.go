package parser

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/maltedev/ddtech-scraper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productURL = "https://ddtech.mx/producto/laptop-gamer-asus-tuf?id=12345"

const fullProductPage = `<!DOCTYPE html>
<html>
<head><title>
	Laptop Gamer ASUS TUF | DDTech
</title></head>
<body>
	<div class="product-info">
		<span class="product-price">
			$ 19,999.00 MXN
		</span>
		<span class="old-price">$ 24,999.00</span>
	</div>
	<div class="col-sm-3">Disponibilidad:</div>
	<div class="col-sm-9"> 12 </div>
	<div class="tab description-container">
		<p>Procesador Intel Core i7</p>
		<p>16 GB RAM</p>
	</div>
</body>
</html>`

func TestParseProductPageAllFields(t *testing.T) {
	p := NewDDTechParser()
	at := time.Date(2025, 8, 30, 12, 0, 0, 500, time.Local)

	rec, err := p.ParseProductPage(fullProductPage, productURL, at)
	require.NoError(t, err)

	assert.Equal(t, "Laptop Gamer ASUS TUF | DDTech", rec.Title)
	assert.Equal(t, "19,999.00", rec.Price)
	assert.Equal(t, "12345", rec.SKU)
	assert.Equal(t, "Procesador Intel Core i716 GB RAM", rec.Description)
	assert.Equal(t, "12", rec.Availability)
	assert.Equal(t, productURL, rec.URL)
	assert.Equal(t, at.Truncate(time.Second), rec.ScrapedAt)
	assert.Empty(t, rec.MissingFields())
}

func TestParseProductPageMissingFields(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		url     string
		missing []string
	}{
		{
			name:    "empty body",
			html:    `<html><body></body></html>`,
			url:     "https://ddtech.mx/producto/x",
			missing: []string{"title", "price", "sku", "description", "availability"},
		},
		{
			name:    "only title",
			html:    `<html><head><title>Mouse</title></head><body></body></html>`,
			url:     productURL,
			missing: []string{"price", "description", "availability"},
		},
		{
			name:    "availability class must match exactly",
			html:    `<html><head><title>Mouse</title></head><body><div class="col-sm-9 extra">5</div><span class="price">$10</span></body></html>`,
			url:     productURL,
			missing: []string{"description", "availability"},
		},
		{
			name:    "description only",
			html:    `<html><body><section class="product-description-container">Texto</section></body></html>`,
			url:     productURL,
			missing: []string{"title", "price", "availability"},
		},
	}

	p := NewDDTechParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := p.ParseProductPage(tt.html, tt.url, time.Now())
			require.NoError(t, err)

			assert.Equal(t, tt.missing, rec.MissingFields())
			for _, field := range rec.Row() {
				assert.NotEmpty(t, field)
			}
		})
	}
}

func TestPriceFallsBackToRawText(t *testing.T) {
	html := `<html><body><div class="price-box">Consultar</div></body></html>`

	rec, err := NewDDTechParser().ParseProductPage(html, productURL, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Consultar", rec.Price)
}

func TestPriceUsesFirstMatchInDocumentOrder(t *testing.T) {
	html := `<html><body><div class="price-now">$1,000</div><span class="price-old">$2,000</span></body></html>`

	rec, err := NewDDTechParser().ParseProductPage(html, productURL, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "1,000", rec.Price)
}

func TestCleanPrice(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"$ 19,999.00 MXN", "19,999.00"},
		{"1.299,00 €", "1.299,00"},
		{"Precio: 450", "450"},
		{"Agotado", "Agotado"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanPrice(tt.input))
		})
	}
}

func TestCleanPriceIdempotent(t *testing.T) {
	inputs := []string{"$ 19,999.00 MXN", "Agotado", "", "..,,", "MXN 1 2 3", "¡Oferta! 99.9"}
	for _, in := range inputs {
		once := CleanPrice(in)
		assert.Equal(t, once, CleanPrice(once), "input %q", in)
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", 700)
	assert.Equal(t, long[:500], Truncate(long, 500))
	assert.Len(t, Truncate(long, 500), 500)

	short := "descripción corta"
	assert.Equal(t, short, Truncate(short, 500))

	accented := strings.Repeat("ñ", 600)
	out := Truncate(accented, 500)
	assert.Equal(t, 500, len([]rune(out)))
	assert.Equal(t, string([]rune(accented)[:500]), out)
}

func TestDescriptionTruncatedInRecord(t *testing.T) {
	text := strings.Repeat("x", 800)
	html := fmt.Sprintf(`<html><body><div class="description-container">%s</div></body></html>`, text)

	rec, err := NewDDTechParser().ParseProductPage(html, productURL, time.Now())
	require.NoError(t, err)
	assert.Equal(t, text[:500], rec.Description)
}

func TestSKURule(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://ddtech.mx/producto/laptop?id=12345", "12345"},
		{"https://ddtech.mx/producto/laptop?ref=1&id=987&x=2", "987"},
		{"https://ddtech.mx/producto/laptop", models.NotFound},
		{"https://ddtech.mx/producto/laptop?id=abc", models.NotFound},
	}

	var sku Rule
	for _, r := range ProductRules() {
		if r.Field == "sku" {
			sku = r
		}
	}
	require.Equal(t, FromURL, sku.Source)

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			// the page content never influences the sku
			doc, err := ParseDocument(`<html><body><div class="sku">555</div></body></html>`)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, sku.Evaluate(doc, tt.url))
		})
	}
}

func TestRulesAreIndependent(t *testing.T) {
	rules := ProductRules()
	assert.Len(t, rules, 5)

	doc, err := ParseDocument(`<html><head><title>Solo título</title></head></html>`)
	require.NoError(t, err)

	for _, r := range rules {
		v := r.Evaluate(doc, "https://ddtech.mx/producto/x")
		if r.Field == "title" {
			assert.Equal(t, "Solo título", v)
		} else {
			assert.Equal(t, models.NotFound, v, r.Field)
		}
	}
}

func categoryPage(hrefs ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><div class=\"grid\">")
	for _, h := range hrefs {
		fmt.Fprintf(&b, `<div class="product-image"><a href="%s"><img src="x.jpg"></a></div>`, h)
	}
	b.WriteString("</div></body></html>")
	return b.String()
}

func TestExtractProductLinks(t *testing.T) {
	html := categoryPage(
		"https://ddtech.mx/producto/a?id=1",
		"https://ddtech.mx/producto/b?id=2",
		"https://ddtech.mx/producto/a?id=1",
		"https://ddtech.mx/producto/no-marker",
		"https://otro.mx/producto/c?id=3",
		"/producto/d?id=4",
		"https://ddtech.mx/producto/e?id=5",
	)

	p := NewDDTechParser()

	links, err := p.ExtractProductLinks(html, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://ddtech.mx/producto/a?id=1",
		"https://ddtech.mx/producto/b?id=2",
		"https://ddtech.mx/producto/e?id=5",
	}, links)

	links, err = p.ExtractProductLinks(html, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://ddtech.mx/producto/a?id=1",
		"https://ddtech.mx/producto/b?id=2",
	}, links)
}

func TestExtractProductLinksCountProperty(t *testing.T) {
	p := NewDDTechParser()

	for distinct := 0; distinct <= 6; distinct++ {
		var hrefs []string
		for i := 0; i < distinct; i++ {
			h := fmt.Sprintf("https://ddtech.mx/producto/p%d?id=%d", i, i)
			hrefs = append(hrefs, h, h)
		}
		html := categoryPage(hrefs...)

		for max := 0; max <= 8; max++ {
			links, err := p.ExtractProductLinks(html, max)
			require.NoError(t, err)
			assert.Len(t, links, min(distinct, max), "distinct=%d max=%d", distinct, max)
		}
	}
}

func TestExtractProductLinksIgnoresAnchorsOutsideImageContainer(t *testing.T) {
	html := `<html><body>
		<a href="https://ddtech.mx/producto/a?id=1">a</a>
		<div class="product-title"><a href="https://ddtech.mx/producto/b?id=2">b</a></div>
	</body></html>`

	links, err := NewDDTechParser().ExtractProductLinks(html, 10)
	require.NoError(t, err)
	assert.NotNil(t, links)
	assert.Empty(t, links)
}

func TestStrippedText(t *testing.T) {
	doc, err := ParseDocument(`<div id="x">  Hola <b> mundo </b>
		<span>!</span></div>`)
	require.NoError(t, err)

	assert.Equal(t, "Holamundo!", StrippedText(doc.Find("#x")))
	assert.Equal(t, "", StrippedText(doc.Find("#missing")))
}

func TestStrippedTextSkipsScriptAndStyle(t *testing.T) {
	doc, err := ParseDocument(`<div id="x">Laptop<script>var x = {"sku":1};</script>` +
		`<style>.a{color:red}</style><template><p>oculto</p></template> ligera</div>`)
	require.NoError(t, err)

	assert.Equal(t, "Laptopligera", StrippedText(doc.Find("#x")))
}

func TestParseProductPageIgnoresInlineScripts(t *testing.T) {
	page := `<html><head><title>Laptop</title></head><body>
		<div class="description-container">Laptop<script>var x = {"sku":1};</script><style>.a{color:red}</style></div>
		<div class="col-sm-9"><script>window.stock = 0;</script>5</div>
	</body></html>`

	rec, err := NewDDTechParser().ParseProductPage(page, "https://ddtech.mx/producto/laptop?id=7", time.Now())
	require.NoError(t, err)

	assert.Equal(t, "Laptop", rec.Description)
	assert.Equal(t, "5", rec.Availability)
}

func TestAsciiDigitsOnly(t *testing.T) {
	// full-width digits are not matched by \d
	assert.Equal(t, "$ １２３", CleanPrice("$ １２３"))
	assert.Equal(t, models.NotFound, skuRule(t).Evaluate(nil, "https://ddtech.mx/producto/x?id=１２"))
}

func skuRule(t *testing.T) Rule {
	t.Helper()
	for _, r := range ProductRules() {
		if r.Field == "sku" {
			return r
		}
	}
	t.Fatal("sku rule missing")
	return Rule{}
}
