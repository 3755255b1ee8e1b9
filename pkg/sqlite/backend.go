// Package sqlite exposes the SQLite build history store to programs outside
// this module while keeping its implementation internal.
package sqlite

import (
	"github.com/mesh-intelligence/docsmap/internal/sqlite"
	"github.com/mesh-intelligence/docsmap/pkg/types"
)

// NewBackend creates a detached SQLite history store.
//
// Example:
//
//	store := sqlite.NewBackend()
//	err := store.Attach(types.StoreConfig{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".docsmap-db",
//	})
//	defer store.Detach()
func NewBackend() types.HistoryStore {
	return sqlite.NewBackend()
}
