// Package cache implements the content-hash cache: a
// 32-byte digest over the cell body, its transitive dependency bodies,
// environment, parameters, and runner version, persisted as one JSON file
// per cell under .woof-cache/<notebook-stem>/<cell-id>.json.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/woofnb/woof/core/model"
)

const keyPrefix = "woofnb-cache-v1\x00"

const defaultDirName = ".woof-cache"

// Store is a cache rooted at a notebook's cache directory
// (.woof-cache/<stem> by default, overridable via WOOF_CACHE_DIR).
type Store struct {
	dir string
}

// Open resolves the cache directory for notebookPath's stem, honoring
// WOOF_CACHE_DIR, and returns a Store over it. The directory is created
// lazily on first Store call.
func Open(notebookPath string) *Store {
	base := os.Getenv("WOOF_CACHE_DIR")
	if base == "" {
		base = defaultDirName
	}
	stem := strings.TrimSuffix(filepath.Base(notebookPath), filepath.Ext(notebookPath))
	return &Store{dir: filepath.Join(base, stem)}
}

// RunnerVersion resolves the runner-version component of the cache key:
// WOOF_RUNNER_VERSION if set, otherwise the version passed in by the
// caller (typically a build-time constant).
func RunnerVersion(fallback string) string {
	if v := os.Getenv("WOOF_RUNNER_VERSION"); v != "" {
		return v
	}
	return fallback
}

// Key computes the content-hash digest for cell, given its transitive
// dependency bodies (in topological order), the notebook's env and
// parameters, and the resolved runner version.
func Key(cell model.Cell, notebookLanguage string, deps []model.Cell, env model.Env, params model.Parameters, runnerVersion string) string {
	h := sha256.New()
	h.Write([]byte(keyPrefix))
	h.Write([]byte(runnerVersion))
	h.Write([]byte{0})
	h.Write([]byte(string(cell.Type)))
	h.Write([]byte{0})
	h.Write([]byte(cell.EffectiveLang(notebookLanguage)))
	h.Write([]byte{0})
	h.Write([]byte(cell.Body))
	h.Write([]byte{0})

	for _, dep := range deps {
		h.Write([]byte(dep.ID))
		h.Write([]byte{0})
		h.Write([]byte(dep.Body))
		h.Write([]byte{0})
	}

	h.Write(canonicalJSON(env))
	h.Write(canonicalJSON(params))

	return hex.EncodeToString(h.Sum(nil))
}

// canonicalJSON renders v as sorted-key JSON with no insignificant
// whitespace: marshal to a generic map, then re-marshal key order via
// encoding/json's natural map-key sort (Go's json.Marshal already sorts
// map keys), giving a stable byte sequence regardless of field/insertion
// order.
func canonicalJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return b
	}
	out, err := json.Marshal(generic)
	if err != nil {
		return b
	}
	return out
}

// Lookup reads the cache entry filed under cellID and returns it only if
// it is well-formed and its stored key matches key exactly. A missing or
// corrupt file, or a key mismatch (stale entry from a prior body/env), is
// treated as a miss, never an error.
func (s *Store) Lookup(cellID, key string) (model.CacheEntry, bool) {
	data, err := os.ReadFile(s.path(cellID))
	if err != nil {
		return model.CacheEntry{}, false
	}
	var entry model.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return model.CacheEntry{}, false
	}
	if entry.Key != key {
		return model.CacheEntry{}, false
	}
	return entry, true
}

// Store persists entry under its CellID via write-to-temp-then-rename, so
// a concurrent reader never observes a partially written file.
func (s *Store) Store(entry model.CacheEntry) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}

	final := s.path(entry.CellID)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, final)
}

// Clean removes the entire cache directory for this notebook stem.
func (s *Store) Clean() error {
	return os.RemoveAll(s.dir)
}

func (s *Store) path(cellID string) string {
	return filepath.Join(s.dir, cellID+".json")
}
