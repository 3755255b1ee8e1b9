package sqlite

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mesh-intelligence/docsmap/internal/fsutil"
)

// JSONL file names in the data directory.
const (
	buildsJSONL     = "builds.jsonl"
	buildPagesJSONL = "build_pages.jsonl"
)

// maxJSONLLine bounds a single record. Build page lists stay well below it.
const maxJSONLLine = 4 << 20

// readJSONL returns every non-empty, valid JSON line of the file at path.
// Malformed lines are skipped so one bad record does not hide the rest.
func readJSONL(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []json.RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxJSONLLine)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || !json.Valid(line) {
			continue
		}
		records = append(records, json.RawMessage(bytes.Clone(line)))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// writeJSONL replaces the file at path with one record per line.
func writeJSONL(path string, records []json.RawMessage) error {
	var buf bytes.Buffer
	for _, rec := range records {
		buf.Write(rec)
		buf.WriteByte('\n')
	}
	return fsutil.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

// ensureJSONL creates an empty file at path if none exists.
func ensureJSONL(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if os.IsExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	return f.Close()
}
