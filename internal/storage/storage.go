package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yosssi/gohtml"
)

// writeFileAtomic writes to a sibling temp file and renames it over path so
// readers never observe a half-written file.
func writeFileAtomic(path string, data []byte) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return err
	}

	if err := os.Rename(tmpFile, path); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}

// Snapshots writes page dumps for offline inspection. Every write replaces
// the previous file.
type Snapshots struct {
	dir string
}

func NewSnapshots(dir string) *Snapshots {
	return &Snapshots{dir: dir}
}

func (s *Snapshots) path(name string) string {
	if s.dir == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.dir, name)
}

// WriteRaw stores source verbatim.
func (s *Snapshots) WriteRaw(name, source string) (string, error) {
	path := s.path(name)
	if err := writeFileAtomic(path, []byte(source)); err != nil {
		return "", fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return path, nil
}

// WritePretty stores source re-indented one element per line.
func (s *Snapshots) WritePretty(name, source string) (string, error) {
	return s.WriteRaw(name, Prettify(source))
}

func Prettify(source string) string {
	pretty := gohtml.Format(source)
	if !strings.HasSuffix(pretty, "\n") {
		pretty += "\n"
	}
	return pretty
}
