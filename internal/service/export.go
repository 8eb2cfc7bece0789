package service

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/prospectus/catalog-source/internal/graph"
)

// Export is the file handed to the page generation layer.
type Export struct {
	RunID       string         `json:"runId"`
	GeneratedAt time.Time      `json:"generatedAt"`
	Counts      map[string]int `json:"counts"`
	Nodes       []graph.Node   `json:"nodes"`
	Diagnostics []Diagnostic   `json:"diagnostics"`
}

// NewExport builds the export of a finished run.
func NewExport(res *Result, now time.Time) *Export {
	return &Export{
		RunID:       res.RunID,
		GeneratedAt: now.UTC(),
		Counts:      res.Graph.Counts(),
		Nodes:       res.Graph.Nodes(),
		Diagnostics: res.Diagnostics,
	}
}

// WriteExport encodes the export of res to w.
func WriteExport(w io.Writer, res *Result, now time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewExport(res, now)); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

// WriteExportFile writes the export atomically to path.
func WriteExportFile(path string, res *Result, now time.Time) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".export-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteExport(tmp, res, now); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename export: %w", err)
	}
	return nil
}
