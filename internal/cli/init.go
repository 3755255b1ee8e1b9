package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/docsmap/pkg/types"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration and history storage",
		Long: "Write a default config.yaml to the configuration directory if none exists,\n" +
			"then initialize the build history storage.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInit(cmd)
		},
	}
}

func (a *app) runInit(cmd *cobra.Command) error {
	s, err := a.load()
	if err != nil {
		return err
	}

	written, err := writeConfigIfMissing(s.configDir, types.DefaultConfig())
	if err != nil {
		return sysError(fmt.Errorf("write config: %w", err))
	}
	configPath := filepath.Join(s.configDir, configFileExt)
	if written {
		s.logger.Info("wrote default config", "path", configPath)
	}

	store, err := s.openHistory()
	if err != nil {
		return err
	}
	if err := store.Detach(); err != nil {
		return sysError(fmt.Errorf("detach history: %w", err))
	}

	if a.flags.jsonMode {
		return printJSON(cmd, map[string]any{
			"config":         configPath,
			"config_written": written,
			"data_dir":       s.dataDir,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Initialized docsmap in %s\n", s.configDir)
	return nil
}
