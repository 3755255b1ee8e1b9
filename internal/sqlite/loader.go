package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// jsonlTableMapping maps JSONL files to their SQLite tables and columns.
// Tables with foreign keys load after the tables they reference.
var jsonlTableMapping = []struct {
	file    string
	table   string
	columns []string
}{
	{buildsJSONL, "builds", []string{"build_id", "status", "output", "page_count", "doc_count", "error", "started_at", "finished_at"}},
	{buildPagesJSONL, "build_pages", []string{"build_id", "ordinal", "title", "address", "types"}},
}

// loadAllJSONL reads every JSONL file from dataDir into the database inside
// one transaction. Malformed records and records violating constraints are
// skipped; unknown fields are ignored.
func loadAllJSONL(db *sql.DB, dataDir string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	for _, m := range jsonlTableMapping {
		records, err := readJSONL(filepath.Join(dataDir, m.file))
		if err != nil {
			return err
		}
		if len(records) == 0 {
			continue
		}
		if err := insertRecords(tx, m.table, m.columns, records); err != nil {
			return fmt.Errorf("loading %s into %s: %w", m.file, m.table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	return nil
}

// insertRecords inserts JSON object records into table. Nested arrays and
// objects are stored as their JSON text.
func insertRecords(tx *sql.Tx, table string, columns []string, records []json.RawMessage) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	stmt, err := tx.Prepare(fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), placeholders,
	))
	if err != nil {
		return fmt.Errorf("preparing insert for %s: %w", table, err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var obj map[string]any
		if err := json.Unmarshal(rec, &obj); err != nil {
			continue
		}

		args := make([]any, len(columns))
		for i, col := range columns {
			switch v := obj[col].(type) {
			case map[string]any, []any:
				b, err := json.Marshal(v)
				if err != nil {
					continue
				}
				args[i] = string(b)
			default:
				args[i] = v
			}
		}

		if _, err := stmt.Exec(args...); err != nil {
			continue
		}
	}
	return nil
}
