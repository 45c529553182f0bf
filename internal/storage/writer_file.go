package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/scottsmith200544/Firewall-Analysis/internal/model"
)

// timestampLayout names report directories; it sorts lexically in time
// order and is safe on every filesystem.
const timestampLayout = "2006-01-02_15-04-05"

// FileWriter persists each report as an indented JSON document under a
// timestamped directory, one file per analysis name.
type FileWriter struct {
	rootPath string
}

// NewFileWriter creates a file writer rooted at rootPath.
func NewFileWriter(rootPath string) *FileWriter {
	return &FileWriter{rootPath: rootPath}
}

// Write serializes the report to <root>/<timestamp>/<name>.json.
func (w *FileWriter) Write(report *model.Report, name string) error {
	// 1. Create the timestamped directory.
	dir := filepath.Join(w.rootPath, report.GeneratedAt.UTC().Format(timestampLayout))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	// 2. Write the report document.
	path := filepath.Join(dir, name+".json")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file '%s': %w", path, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report to json: %w", err)
	}

	return nil
}

// Close is a no-op; each Write opens and closes its own file.
func (w *FileWriter) Close() error {
	return nil
}
