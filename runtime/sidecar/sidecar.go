// Package sidecar appends one JSON Lines record per executed cell to a
// notebook's <notebook>.woofnb.out file. Writes are
// line-atomic: a full line is buffered in memory and appended in a single
// write call, guarded by a mutex so the Writer is safe to reuse across an
// orchestrator run (cells always execute one at a time, but the writer
// does not assume that of its callers).
package sidecar

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/woofnb/woof/core/model"
)

// Record is one line of the sidecar file.
type Record struct {
	RunID     string         `json:"run_id"`
	Cell      string         `json:"cell"`
	Timestamp string         `json:"timestamp"`
	ElapsedMS int64          `json:"elapsed_ms"`
	Status    string         `json:"status"`
	Outputs   []model.Output `json:"outputs"`
}

// Writer appends Records to one notebook's sidecar file.
type Writer struct {
	path string
	mu   sync.Mutex
}

// Path returns the sidecar path for notebookPath: the source file's
// sibling with suffix ".woofnb.out".
func Path(notebookPath string) string {
	ext := filepath.Ext(notebookPath)
	stem := strings.TrimSuffix(notebookPath, ext)
	return stem + ".woofnb.out"
}

// Open returns a Writer appending to notebookPath's sidecar file.
func Open(notebookPath string) *Writer {
	return &Writer{path: Path(notebookPath)}
}

// Append writes one Record as a single JSON line. Timestamp is stamped
// with the current time in RFC-3339 if rec.Timestamp is empty.
func (w *Writer) Append(rec Record) error {
	if rec.Timestamp == "" {
		rec.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(line)
	return err
}

// Clean removes the sidecar file for notebookPath, if it exists.
func Clean(notebookPath string) error {
	err := os.Remove(Path(notebookPath))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
