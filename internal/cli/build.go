package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/docsmap/internal/fsutil"
	"github.com/mesh-intelligence/docsmap/internal/site"
	"github.com/mesh-intelligence/docsmap/pkg/docsmap"
	"github.com/mesh-intelligence/docsmap/pkg/types"
)

func newBuildCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Run one build pass and write the docs map",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBuild(cmd)
		},
	}
}

func (a *app) runBuild(cmd *cobra.Command) error {
	s, err := a.load()
	if err != nil {
		return err
	}

	var store types.HistoryStore
	if s.cfg.History.Enable {
		if store, err = s.openHistory(); err != nil {
			return err
		}
		defer store.Detach()
	}

	p := newPass(s, store)
	rec, err := p.run(cmd.Context())
	if err != nil {
		return err
	}

	if a.flags.jsonMode {
		return printJSON(cmd, rec)
	}
	printBuild(cmd, rec)
	return nil
}

// pass wires a site builder, the docs map collector and the history store
// for repeated build passes.
type pass struct {
	s         *session
	collector *docsmap.Collector // nil when docs_map.enable is false
	builder   *site.Builder
	store     types.HistoryStore // nil when history is disabled
}

func newPass(s *session, store types.HistoryStore, opts ...site.Option) *pass {
	p := &pass{s: s, store: store}
	opts = append(opts, site.WithLogger(s.logger))
	if s.cfg.DocsMap.Enable {
		p.collector = docsmap.New(s.logger)
		opts = append(opts, site.WithHooks(p.collector))
	}
	p.builder = site.New(s.cfg, fsutil.NewJSONFile(), opts...)
	return p
}

// run executes one build pass and records it when a store is attached.
// A failed pass is recorded before its error is returned.
func (p *pass) run(ctx context.Context) (types.BuildRecord, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	res, buildErr := p.builder.Build(ctx)

	rec := types.BuildRecord{
		ID:         res.ID,
		Output:     docsmap.OutputPath(types.BuildContext{PublicPath: p.s.cfg.PublicPath, Config: p.s.cfg}),
		PageCount:  res.Pages,
		DocCount:   res.Docs,
		StartedAt:  res.StartedAt,
		FinishedAt: res.StartedAt.Add(res.Duration),
	}
	switch {
	case buildErr != nil:
		rec.Status = types.BuildFailed
		rec.Error = buildErr.Error()
	case p.collector != nil && len(p.collector.Infos()) > 0:
		rec.Status = types.BuildWritten
		rec.Pages = p.collector.Infos()
	default:
		rec.Status = types.BuildSkipped
	}

	if p.store != nil {
		if _, err := p.store.RecordBuild(rec); err != nil {
			p.s.logger.Error("failed to record build", "build", rec.ID, "error", err)
			if buildErr == nil {
				return rec, sysError(fmt.Errorf("record build: %w", err))
			}
		}
	}

	if buildErr != nil {
		if site.IsConfigError(buildErr) {
			return rec, userError(buildErr)
		}
		return rec, sysError(buildErr)
	}
	return rec, nil
}

func printBuild(cmd *cobra.Command, rec types.BuildRecord) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Build %s: %d pages read, %d docs\n", rec.ID, rec.PageCount, rec.DocCount)
	if rec.Status == types.BuildWritten {
		fmt.Fprintf(out, "Wrote %d entries to %s\n", len(rec.Pages), rec.Output)
		return
	}
	fmt.Fprintln(out, "No documentation pages collected; nothing written")
}
