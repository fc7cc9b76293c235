package scraper

import (
	"fmt"
	"io"
	"time"

	"github.com/maltedev/ddtech-scraper/internal/models"
)

// Reporter receives human-facing progress events. It is separate from the
// structured log.
type Reporter interface {
	DiscoveryStarted(categoryURL string)
	DiscoveryFinished(count int)
	BatchStarted(total int)
	URLStarted(index, total int, url string)
	URLSucceeded(index int, rec *models.ProductRecord)
	URLFailed(index int, url string, f *Failure)
	Pacing(delay time.Duration)
	SinkWritten(sink string, records int, err error)
	Summary(s *RunSummary)
}

type NopReporter struct{}

func (NopReporter) DiscoveryStarted(string)                 {}
func (NopReporter) DiscoveryFinished(int)                   {}
func (NopReporter) BatchStarted(int)                        {}
func (NopReporter) URLStarted(int, int, string)             {}
func (NopReporter) URLSucceeded(int, *models.ProductRecord) {}
func (NopReporter) URLFailed(int, string, *Failure)         {}
func (NopReporter) Pacing(time.Duration)                    {}
func (NopReporter) SinkWritten(string, int, error)          {}
func (NopReporter) Summary(*RunSummary)                     {}

const titlePreviewLength = 80

// ConsoleReporter prints progress the way an operator watching the terminal
// expects it: one block per URL and a closing summary.
type ConsoleReporter struct {
	w io.Writer
}

func NewConsoleReporter(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{w: w}
}

func (c *ConsoleReporter) DiscoveryStarted(categoryURL string) {
	fmt.Fprintf(c.w, "Searching for products in: %s\n", categoryURL)
}

func (c *ConsoleReporter) DiscoveryFinished(count int) {
	fmt.Fprintf(c.w, "Found %d products.\n", count)
}

func (c *ConsoleReporter) BatchStarted(total int) {
	fmt.Fprintln(c.w)
	fmt.Fprintln(c.w, "Starting DDTech scrape...")
	fmt.Fprintf(c.w, "Total URLs to process: %d\n", total)
	fmt.Fprintln(c.w)
}

func (c *ConsoleReporter) URLStarted(index, total int, url string) {
	fmt.Fprintf(c.w, "Processing URL %d/%d\n", index, total)
	fmt.Fprintf(c.w, "  %s\n", url)
}

func (c *ConsoleReporter) URLSucceeded(index int, rec *models.ProductRecord) {
	title := []rune(rec.Title)
	preview := rec.Title
	if len(title) > titlePreviewLength {
		preview = string(title[:titlePreviewLength]) + "..."
	}

	availability := rec.Availability
	if availability == "0" {
		availability += " (out of stock)"
	}

	fmt.Fprintln(c.w)
	fmt.Fprintf(c.w, "Product %d extracted successfully\n", index)
	fmt.Fprintf(c.w, "  Title       : %s\n", preview)
	fmt.Fprintf(c.w, "  Price       : $ %s\n", rec.Price)
	fmt.Fprintf(c.w, "  SKU         : %s\n", rec.SKU)
	fmt.Fprintf(c.w, "  Availability: %s\n", availability)
	fmt.Fprintln(c.w)
}

func (c *ConsoleReporter) URLFailed(index int, url string, f *Failure) {
	fmt.Fprintf(c.w, "Error extracting product %d (%s): %v\n", index, f.Kind, f.Err)
	fmt.Fprintln(c.w)
}

func (c *ConsoleReporter) Pacing(delay time.Duration) {
	fmt.Fprintf(c.w, "Waiting %s before the next URL...\n", delay)
	fmt.Fprintln(c.w)
}

func (c *ConsoleReporter) SinkWritten(sink string, records int, err error) {
	if err != nil {
		fmt.Fprintf(c.w, "Error saving %d records to %s: %v\n", records, sink, err)
		return
	}
	fmt.Fprintf(c.w, "Data saved to %s (%d records)\n", sink, records)
}

func (c *ConsoleReporter) Summary(s *RunSummary) {
	if len(s.Records) == 0 {
		fmt.Fprintln(c.w, "Could not extract data from any URL")
		fmt.Fprintf(c.w, "Products with errors: %d\n", s.Failed)
		return
	}

	fmt.Fprintln(c.w, "Scrape completed!")
	fmt.Fprintf(c.w, "Products extracted successfully: %d\n", s.Succeeded)
	fmt.Fprintf(c.w, "Products with errors: %d\n", s.Failed)
	fmt.Fprintf(c.w, "Total products saved: %d\n", s.Saved)
	fmt.Fprintln(c.w)
}
