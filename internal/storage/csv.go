package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"

	"github.com/maltedev/ddtech-scraper/internal/models"
)

// ErrNoRecords is returned when there is nothing to export. No file is
// touched in that case.
var ErrNoRecords = errors.New("no records to write")

// WriteError reports an export that could not be completed.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write csv %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

type CSVSink struct {
	Path string
}

func NewCSVSink(path string) *CSVSink {
	return &CSVSink{Path: path}
}

func (s *CSVSink) Name() string {
	return "csv"
}

func (s *CSVSink) Write(_ context.Context, records []*models.ProductRecord) error {
	_, err := WriteCSV(s.Path, records)
	return err
}

// WriteCSV replaces path with a header row plus one row per non-empty record
// and returns the number of data rows written.
func WriteCSV(path string, records []*models.ProductRecord) (int, error) {
	if len(records) == 0 {
		return 0, ErrNoRecords
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(models.CSVHeader); err != nil {
		return 0, &WriteError{Path: path, Err: fmt.Errorf("write header: %w", err)}
	}

	rows := 0
	for _, rec := range records {
		if rec.IsZero() {
			continue
		}
		if err := w.Write(rec.Row()); err != nil {
			return 0, &WriteError{Path: path, Err: fmt.Errorf("write record: %w", err)}
		}
		rows++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return 0, &WriteError{Path: path, Err: fmt.Errorf("flush records: %w", err)}
	}

	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return 0, &WriteError{Path: path, Err: err}
	}

	return rows, nil
}
