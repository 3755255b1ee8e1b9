package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/docsmap/internal/paths"
	"github.com/mesh-intelligence/docsmap/internal/sqlite"
	"github.com/mesh-intelligence/docsmap/pkg/types"
)

// session is the resolved state a command runs with.
type session struct {
	configDir string
	dataDir   string
	cfg       types.Config
	logger    *slog.Logger
}

// load resolves directories, reads the configuration and builds the logger.
func (a *app) load() (*session, error) {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return nil, sysError(fmt.Errorf("resolve config directory: %w", err))
	}

	cfg, err := loadConfig(configDir)
	if err != nil {
		return nil, userError(err)
	}
	if a.flags.logLevel != "" {
		cfg.LogLevel = a.flags.logLevel
	}

	logger, err := newLogger(a.stderr, cfg.LogLevel)
	if err != nil {
		return nil, userError(err)
	}

	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, cfg.History.DataDir, configDir)
	if err != nil {
		return nil, sysError(fmt.Errorf("resolve data directory: %w", err))
	}

	return &session{
		configDir: configDir,
		dataDir:   dataDir,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// openHistory attaches the SQLite history store in the session data dir.
// The caller must Detach it.
func (s *session) openHistory() (types.HistoryStore, error) {
	store := sqlite.NewBackend()
	err := store.Attach(types.StoreConfig{
		Backend: types.BackendSQLite,
		DataDir: s.dataDir,
	})
	if err != nil {
		return nil, sysError(fmt.Errorf("attach history: %w", err))
	}
	return store, nil
}

// printJSON writes v as indented JSON to the command output.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return sysError(fmt.Errorf("encode output: %w", err))
	}
	return nil
}
