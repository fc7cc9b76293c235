package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/maltedev/ddtech-scraper/internal/browser"
	"github.com/maltedev/ddtech-scraper/internal/models"
)

type fakeSession struct {
	pages     map[string]string
	timeouts  map[string]bool
	sourceErr map[string]bool
	openErr   error

	open        bool
	opens       int
	closes      int
	current     string
	navigations []string
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		pages:     make(map[string]string),
		timeouts:  make(map[string]bool),
		sourceErr: make(map[string]bool),
	}
}

func (s *fakeSession) EnsureOpen(ctx context.Context) error {
	if s.open {
		return nil
	}
	if s.openErr != nil {
		return s.openErr
	}
	s.open = true
	s.opens++
	return nil
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	if !s.open {
		return browser.ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.navigations = append(s.navigations, url)
	if s.timeouts[url] {
		return fmt.Errorf("%w: %s: Timeout 15000ms exceeded", browser.ErrNavigationTimeout, url)
	}
	s.current = url
	return nil
}

func (s *fakeSession) PageSource() (string, error) {
	if s.sourceErr[s.current] {
		return "", errors.New("target closed")
	}
	return s.pages[s.current], nil
}

func (s *fakeSession) Close() error {
	if s.open {
		s.closes++
	}
	s.open = false
	return nil
}

type snapshotWrite struct {
	name   string
	source string
	pretty bool
}

type fakeSnapshots struct {
	mu     sync.Mutex
	writes []snapshotWrite
	err    error
}

func (f *fakeSnapshots) WriteRaw(name, source string) (string, error) {
	return f.write(name, source, false)
}

func (f *fakeSnapshots) WritePretty(name, source string) (string, error) {
	return f.write(name, source, true)
}

func (f *fakeSnapshots) write(name, source string, pretty bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.writes = append(f.writes, snapshotWrite{name: name, source: source, pretty: pretty})
	return name, nil
}

type fakeSink struct {
	name   string
	err    error
	calls  int
	gotten []*models.ProductRecord
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Write(_ context.Context, records []*models.ProductRecord) error {
	f.calls++
	f.gotten = records
	return f.err
}

// scriptedExtractor returns canned results keyed by URL.
type scriptedExtractor struct {
	failures  map[string]error
	snapshots []bool
}

func (e *scriptedExtractor) Extract(_ context.Context, url string, captureSnapshot bool) (*models.ProductRecord, error) {
	e.snapshots = append(e.snapshots, captureSnapshot)
	if err, ok := e.failures[url]; ok {
		return nil, AsFailure(url, err)
	}
	rec := models.NewProductRecord(url, fixedNow)
	rec.Title = "Producto " + url[strings.LastIndex(url, "=")+1:]
	return rec, nil
}

func productPage(title, price string) string {
	return fmt.Sprintf(`<html><head><title>%s</title></head><body>
		<span class="price">%s</span>
		<div class="col-sm-9">3</div>
		<div class="description-container">Laptop ligera</div>
	</body></html>`, title, price)
}

func categoryHTML(hrefs ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, h := range hrefs {
		fmt.Fprintf(&b, `<div class="product-image"><a href="%s"><img></a></div>`, h)
	}
	b.WriteString("</body></html>")
	return b.String()
}
