// Package cli implements the docsmap command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/docsmap/pkg/docsmap"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// exitError carries the process exit code for an error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func userError(err error) error { return &exitError{code: exitUserError, err: err} }
func sysError(err error) error  { return &exitError{code: exitSysError, err: err} }

// exitCode maps err to a process exit code. Errors not classified by a
// command are usage errors reported by cobra.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUserError
}

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	logLevel  string
}

// app is the state shared by the commands of one invocation.
type app struct {
	flags  rootFlags
	stderr io.Writer
}

// NewRootCmd creates the top-level "docsmap" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{stderr: os.Stderr}

	root := &cobra.Command{
		Use:   "docsmap",
		Short: "Build a JSON map of a site's documentation pages",
		Long: "docsmap reads the Markdown pages of a site, collects the title, address and\n" +
			"types of every documentation page, and writes them to a JSON file.",
		Version:       docsmap.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.stderr = cmd.ErrOrStderr()
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: $(CWD)/.docsmap)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "history data directory (default: <config-dir>/history)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error (default from config)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newBuildCmd(a))
	root.AddCommand(newWatchCmd(a))
	root.AddCommand(newHistoryCmd(a))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
	}
	os.Exit(exitCode(err))
}

// newLogger builds the slog text logger for level, writing to w.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if level == "" {
		level = "info"
	}
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
