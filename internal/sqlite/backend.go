// Package sqlite implements the build history store. JSONL files in the data
// directory are the source of truth; SQLite is rebuilt from them on Attach
// and serves queries.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/docsmap/pkg/types"
)

// dbFileName is the SQLite database file inside the data directory.
const dbFileName = "history.db"

// timeLayout is used for every timestamp column. Its fixed width keeps
// lexical order equal to chronological order for UTC values.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Backend implements types.HistoryStore on SQLite.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.StoreConfig
	db       *sql.DB
}

var _ types.HistoryStore = (*Backend)(nil)

// NewBackend creates a detached backend. Call Attach before use.
func NewBackend() *Backend {
	return &Backend{}
}

// Attach creates DataDir if needed, builds a fresh database and loads the
// JSONL files into it. Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.StoreConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	// The database is a cache of the JSONL files; start from scratch.
	dbPath := filepath.Join(dataDir, dbFileName)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps PRAGMA settings consistent across queries.
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return err
	}

	for _, name := range []string{buildsJSONL, buildPagesJSONL} {
		if err := ensureJSONL(filepath.Join(dataDir, name)); err != nil {
			db.Close()
			return err
		}
	}
	if err := loadAllJSONL(db, dataDir); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	config.DataDir = dataDir
	b.config = config
	b.db = db
	b.attached = true
	return nil
}

// Detach closes the database. Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.attached = false
	if b.db != nil {
		err := b.db.Close()
		b.db = nil
		return err
	}
	return nil
}

func createSchema(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enabling foreign keys: %w", err)
	}
	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	for _, ddl := range indexDDL {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	return nil
}

// generateUUID generates a UUID v7 for build IDs.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// RecordBuild stores rec and its pages, then rewrites the JSONL files.
func (b *Backend) RecordBuild(rec types.BuildRecord) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return "", types.ErrStoreDetached
	}
	if rec.ID == "" {
		rec.ID = generateUUID()
	}

	tx, err := b.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO builds
		(build_id, status, output, page_count, doc_count, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Status, rec.Output, rec.PageCount, rec.DocCount, nullString(rec.Error),
		rec.StartedAt.UTC().Format(timeLayout), rec.FinishedAt.UTC().Format(timeLayout))
	if err != nil {
		return "", fmt.Errorf("inserting build: %w", err)
	}

	for i, p := range rec.Pages {
		typesJSON, err := marshalTypes(p.Types)
		if err != nil {
			return "", err
		}
		if _, err := tx.Exec(`INSERT INTO build_pages (build_id, ordinal, title, address, types)
			VALUES (?, ?, ?, ?, ?)`, rec.ID, i, p.Title, p.Address, typesJSON); err != nil {
			return "", fmt.Errorf("inserting page %s: %w", p.Address, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	if err := b.persistLocked(); err != nil {
		return "", fmt.Errorf("persisting history: %w", err)
	}
	return rec.ID, nil
}

// Builds returns up to limit builds, newest first. Pages are not loaded.
func (b *Backend) Builds(limit int) ([]types.BuildRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	query := `SELECT build_id, status, output, page_count, doc_count, error, started_at, finished_at
		FROM builds ORDER BY started_at DESC, build_id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := b.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.BuildRecord
	for rows.Next() {
		rec, err := scanBuild(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Build returns the build with the given ID and its pages.
func (b *Backend) Build(id string) (types.BuildRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.BuildRecord{}, types.ErrStoreDetached
	}

	rec, err := b.buildLocked(id)
	if err != nil {
		return types.BuildRecord{}, err
	}
	rec.Pages, err = b.pagesLocked(id, "")
	if err != nil {
		return types.BuildRecord{}, err
	}
	return rec, nil
}

// Pages returns the pages of a build in read order, optionally filtered to
// those whose types contain typeFilter.
func (b *Backend) Pages(buildID, typeFilter string) ([]types.PageInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	if _, err := b.buildLocked(buildID); err != nil {
		return nil, err
	}
	return b.pagesLocked(buildID, typeFilter)
}

func (b *Backend) buildLocked(id string) (types.BuildRecord, error) {
	row := b.db.QueryRow(`SELECT build_id, status, output, page_count, doc_count, error, started_at, finished_at
		FROM builds WHERE build_id = ?`, id)
	rec, err := scanBuild(row)
	if err == sql.ErrNoRows {
		return types.BuildRecord{}, types.ErrBuildNotFound
	}
	return rec, err
}

func (b *Backend) pagesLocked(buildID, typeFilter string) ([]types.PageInfo, error) {
	query := `SELECT title, address, types FROM build_pages WHERE build_id = ?`
	args := []any{buildID}
	if typeFilter != "" {
		query += ` AND EXISTS (SELECT 1 FROM json_each(build_pages.types) WHERE json_each.value = ?)`
		args = append(args, typeFilter)
	}
	query += ` ORDER BY ordinal`

	rows, err := b.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pages := []types.PageInfo{}
	for rows.Next() {
		var p types.PageInfo
		var typesJSON string
		if err := rows.Scan(&p.Title, &p.Address, &typesJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(typesJSON), &p.Types); err != nil {
			return nil, fmt.Errorf("decoding types of %s: %w", p.Address, err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBuild(row rowScanner) (types.BuildRecord, error) {
	var rec types.BuildRecord
	var errText sql.NullString
	var started, finished string
	if err := row.Scan(&rec.ID, &rec.Status, &rec.Output, &rec.PageCount, &rec.DocCount,
		&errText, &started, &finished); err != nil {
		return types.BuildRecord{}, err
	}
	rec.Error = errText.String

	var err error
	if rec.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return types.BuildRecord{}, fmt.Errorf("parsing started_at of %s: %w", rec.ID, err)
	}
	if rec.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return types.BuildRecord{}, fmt.Errorf("parsing finished_at of %s: %w", rec.ID, err)
	}
	return rec, nil
}

func marshalTypes(t []string) (string, error) {
	if t == nil {
		t = []string{}
	}
	data, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
