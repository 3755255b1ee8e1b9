// Package fsutil provides the file-write capability the site host hands to
// plugins.
package fsutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/docsmap/pkg/types"
)

// JSONFile writes JSON documents to disk atomically.
type JSONFile struct {
	// Indent is the per-level indentation. Empty writes compact JSON.
	Indent string
	// Perm is the mode of created files. Zero means 0o644.
	Perm os.FileMode
}

var _ types.JSONWriter = (*JSONFile)(nil)

// NewJSONFile returns a writer producing two-space indented JSON.
func NewJSONFile() *JSONFile {
	return &JSONFile{Indent: "  ", Perm: 0o644}
}

// WriteJSON marshals v and writes it to path followed by a newline, creating
// parent directories as needed. The file is replaced atomically.
func (w *JSONFile) WriteJSON(ctx context.Context, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if w.Indent != "" {
		enc.SetIndent("", w.Indent)
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	perm := w.Perm
	if perm == 0 {
		perm = 0o644
	}
	return WriteFileAtomic(path, buf.Bytes(), perm)
}

// WriteFileAtomic writes data to path using the temp-file, fsync, rename
// pattern so readers never observe a partial file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting file mode: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
