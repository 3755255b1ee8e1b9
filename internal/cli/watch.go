package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/docsmap/internal/metrics"
	"github.com/mesh-intelligence/docsmap/internal/site"
	"github.com/mesh-intelligence/docsmap/internal/watch"
	"github.com/mesh-intelligence/docsmap/pkg/types"
)

const shutdownTimeout = 5 * time.Second

type watchFlags struct {
	metricsAddr string
	debounce    time.Duration
}

func newWatchCmd(a *app) *cobra.Command {
	var f watchFlags
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Build, then rebuild whenever a page changes",
		Long: "Run a build pass, then watch the source directory and run a new pass after\n" +
			"every burst of Markdown changes. Stops on interrupt.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWatch(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().DurationVar(&f.debounce, "debounce", watch.DefaultDebounce, "quiet period before a rebuild")
	return cmd
}

func (a *app) runWatch(cmd *cobra.Command, f watchFlags) error {
	s, err := a.load()
	if err != nil {
		return err
	}
	if err := s.cfg.Validate(); err != nil {
		return userError(fmt.Errorf("invalid config: %w", err))
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []site.Option
	if f.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, site.WithRecorder(metrics.New(reg)))
		srv, err := serveMetrics(ctx, f.metricsAddr, reg, s)
		if err != nil {
			return sysError(err)
		}
		defer srv.Close()
	}

	var store types.HistoryStore
	if s.cfg.History.Enable {
		if store, err = s.openHistory(); err != nil {
			return err
		}
		defer store.Detach()
	}

	w, err := watch.New(watch.Config{
		Root:        s.cfg.SourceDir,
		Debounce:    f.debounce,
		ExcludeDirs: []string{s.cfg.PublicPath},
	}, s.logger)
	if err != nil {
		return sysError(fmt.Errorf("create watcher: %w", err))
	}
	defer w.Stop()

	if err := w.Start(ctx); err != nil {
		return sysError(fmt.Errorf("start watcher: %w", err))
	}

	p := newPass(s, store, opts...)
	if err := a.watchPass(ctx, cmd, p); err != nil {
		return err
	}

	for change := range w.Changes() {
		s.logger.Info("rebuilding", "changed", len(change.Paths))
		if err := a.watchPass(ctx, cmd, p); err != nil {
			return err
		}
	}
	return nil
}

// watchPass runs one pass in watch mode. Only configuration errors stop the
// loop; other failures are already logged and recorded.
func (a *app) watchPass(ctx context.Context, cmd *cobra.Command, p *pass) error {
	rec, err := p.run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		if exitCode(err) == exitUserError {
			return err
		}
		return nil
	}
	if a.flags.jsonMode {
		return printJSON(cmd, rec)
	}
	printBuild(cmd, rec)
	return nil
}

// serveMetrics starts an HTTP server exposing reg on /metrics. The server is
// shut down when ctx is done.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, s *session) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("serving metrics", "addr", ln.Addr().String())
	return srv, nil
}
