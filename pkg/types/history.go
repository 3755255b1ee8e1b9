package types

import (
	"errors"
	"time"
)

// StoreConfig holds backend selection and parameters for HistoryStore.Attach.
type StoreConfig struct {
	Backend string `json:"backend" yaml:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// Store configuration errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
)

var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the StoreConfig is well-formed.
func (c StoreConfig) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	return nil
}

// Build status values.
const (
	// BuildWritten means a docs map file was written.
	BuildWritten = "written"
	// BuildSkipped means the pass collected no pages and wrote nothing.
	BuildSkipped = "skipped"
	// BuildFailed means the pass returned an error.
	BuildFailed = "failed"
)

// BuildRecord describes one finished build pass.
type BuildRecord struct {
	ID         string     `json:"build_id"`
	Status     string     `json:"status"`
	Output     string     `json:"output"`
	PageCount  int        `json:"page_count"`
	DocCount   int        `json:"doc_count"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Pages      []PageInfo `json:"-"`
}

// HistoryStore records build passes and answers queries about them.
type HistoryStore interface {
	// Attach connects the store to the backend described by config.
	// Returns ErrAlreadyAttached if called while attached.
	Attach(config StoreConfig) error

	// Detach releases backend resources. Idempotent.
	Detach() error

	// RecordBuild stores rec and its pages and returns the build ID. An empty
	// rec.ID is replaced by a generated one.
	RecordBuild(rec BuildRecord) (string, error)

	// Builds returns up to limit records, newest first. limit <= 0 means all.
	Builds(limit int) ([]BuildRecord, error)

	// Build returns one record with its pages. Returns ErrBuildNotFound.
	Build(id string) (BuildRecord, error)

	// Pages returns the pages of a build in read order. A non-empty
	// typeFilter keeps only pages whose types contain it.
	Pages(buildID, typeFilter string) ([]PageInfo, error)
}

// History store errors.
var (
	ErrStoreDetached   = errors.New("history store is detached")
	ErrAlreadyAttached = errors.New("history store is already attached")
	ErrBuildNotFound   = errors.New("build not found")
)
