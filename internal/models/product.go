package models

import (
	"time"
)

// NotFound is stored in any field whose extraction rule matched nothing.
const NotFound = "not found"

// TimestampLayout is the wall-clock format used for ScrapedAt in exports.
const TimestampLayout = "2006-01-02 15:04:05"

// CSVHeader is the fixed column order of the product export.
var CSVHeader = []string{"title", "price", "sku", "description", "availability", "url", "scraped_at"}

type ProductRecord struct {
	Title        string    `json:"title"`
	Price        string    `json:"price"`
	SKU          string    `json:"sku"`
	Description  string    `json:"description"`
	Availability string    `json:"availability"`
	URL          string    `json:"url"`
	ScrapedAt    time.Time `json:"scraped_at"`
}

// NewProductRecord returns a record for url with every extracted field set to
// NotFound and the timestamp truncated to whole seconds.
func NewProductRecord(url string, scrapedAt time.Time) *ProductRecord {
	return &ProductRecord{
		Title:        NotFound,
		Price:        NotFound,
		SKU:          NotFound,
		Description:  NotFound,
		Availability: NotFound,
		URL:          url,
		ScrapedAt:    scrapedAt.Truncate(time.Second),
	}
}

// IsZero reports whether the record carries no data at all.
func (p *ProductRecord) IsZero() bool {
	if p == nil {
		return true
	}
	return *p == ProductRecord{}
}

// ScrapedAtString renders ScrapedAt in local time.
func (p *ProductRecord) ScrapedAtString() string {
	if p.ScrapedAt.IsZero() {
		return ""
	}
	return p.ScrapedAt.Local().Format(TimestampLayout)
}

// Row returns the record in CSVHeader order.
func (p *ProductRecord) Row() []string {
	return []string{
		p.Title,
		p.Price,
		p.SKU,
		p.Description,
		p.Availability,
		p.URL,
		p.ScrapedAtString(),
	}
}

// MissingFields lists the extracted fields that fell back to NotFound.
func (p *ProductRecord) MissingFields() []string {
	var missing []string

	if p.Title == NotFound {
		missing = append(missing, "title")
	}
	if p.Price == NotFound {
		missing = append(missing, "price")
	}
	if p.SKU == NotFound {
		missing = append(missing, "sku")
	}
	if p.Description == NotFound {
		missing = append(missing, "description")
	}
	if p.Availability == NotFound {
		missing = append(missing, "availability")
	}

	return missing
}
