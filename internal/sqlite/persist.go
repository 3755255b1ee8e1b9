package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
)

// buildRow and pageRow are the JSONL record shapes. Field names match the
// column lists in jsonlTableMapping.
type buildRow struct {
	BuildID    string  `json:"build_id"`
	Status     string  `json:"status"`
	Output     string  `json:"output"`
	PageCount  int     `json:"page_count"`
	DocCount   int     `json:"doc_count"`
	Error      *string `json:"error"`
	StartedAt  string  `json:"started_at"`
	FinishedAt string  `json:"finished_at"`
}

type pageRow struct {
	BuildID string          `json:"build_id"`
	Ordinal int             `json:"ordinal"`
	Title   string          `json:"title"`
	Address string          `json:"address"`
	Types   json.RawMessage `json:"types"`
}

// persistLocked rewrites every JSONL file from the database.
// The caller must hold b.mu.
func (b *Backend) persistLocked() error {
	builds, err := b.dumpBuilds()
	if err != nil {
		return err
	}
	if err := writeJSONL(filepath.Join(b.config.DataDir, buildsJSONL), builds); err != nil {
		return fmt.Errorf("writing %s: %w", buildsJSONL, err)
	}

	pages, err := b.dumpPages()
	if err != nil {
		return err
	}
	if err := writeJSONL(filepath.Join(b.config.DataDir, buildPagesJSONL), pages); err != nil {
		return fmt.Errorf("writing %s: %w", buildPagesJSONL, err)
	}
	return nil
}

func (b *Backend) dumpBuilds() ([]json.RawMessage, error) {
	rows, err := b.db.Query(`SELECT build_id, status, output, page_count, doc_count, error, started_at, finished_at
		FROM builds ORDER BY started_at, build_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []json.RawMessage
	for rows.Next() {
		var r buildRow
		var errText sql.NullString
		if err := rows.Scan(&r.BuildID, &r.Status, &r.Output, &r.PageCount, &r.DocCount,
			&errText, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		if errText.Valid {
			r.Error = &errText.String
		}
		data, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, rows.Err()
}

func (b *Backend) dumpPages() ([]json.RawMessage, error) {
	rows, err := b.db.Query(`SELECT p.build_id, p.ordinal, p.title, p.address, p.types
		FROM build_pages p JOIN builds b ON b.build_id = p.build_id
		ORDER BY b.started_at, p.build_id, p.ordinal`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []json.RawMessage
	for rows.Next() {
		var r pageRow
		var typesJSON string
		if err := rows.Scan(&r.BuildID, &r.Ordinal, &r.Title, &r.Address, &typesJSON); err != nil {
			return nil, err
		}
		r.Types = json.RawMessage(typesJSON)
		data, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, rows.Err()
}
