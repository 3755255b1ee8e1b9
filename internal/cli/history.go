package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/docsmap/pkg/types"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded build passes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runHistory(cmd, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of builds to list (0 for all)")
	cmd.AddCommand(newHistoryShowCmd(a))
	return cmd
}

func newHistoryShowCmd(a *app) *cobra.Command {
	var typeFilter string
	cmd := &cobra.Command{
		Use:   "show <build-id>",
		Short: "Show one build pass and the pages it mapped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runHistoryShow(cmd, args[0], typeFilter)
		},
	}
	cmd.Flags().StringVar(&typeFilter, "type", "", "only list pages with this type")
	return cmd
}

func (a *app) runHistory(cmd *cobra.Command, limit int) error {
	if limit < 0 {
		return userError(fmt.Errorf("--limit must not be negative"))
	}
	s, err := a.load()
	if err != nil {
		return err
	}
	store, err := s.openHistory()
	if err != nil {
		return err
	}
	defer store.Detach()

	builds, err := store.Builds(limit)
	if err != nil {
		return sysError(fmt.Errorf("list builds: %w", err))
	}

	if a.flags.jsonMode {
		if builds == nil {
			builds = []types.BuildRecord{}
		}
		return printJSON(cmd, builds)
	}

	out := cmd.OutOrStdout()
	if len(builds) == 0 {
		fmt.Fprintln(out, "No builds recorded")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BUILD\tSTATUS\tSTARTED\tPAGES\tDOCS\tOUTPUT")
	for _, b := range builds {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			b.ID, b.Status, b.StartedAt.Local().Format(time.DateTime), b.PageCount, b.DocCount, b.Output)
	}
	return tw.Flush()
}

// buildDetail is the JSON shape of history show.
type buildDetail struct {
	types.BuildRecord
	Pages []types.PageInfo `json:"pages"`
}

func (a *app) runHistoryShow(cmd *cobra.Command, id, typeFilter string) error {
	s, err := a.load()
	if err != nil {
		return err
	}
	store, err := s.openHistory()
	if err != nil {
		return err
	}
	defer store.Detach()

	rec, err := store.Build(id)
	if err != nil {
		if errors.Is(err, types.ErrBuildNotFound) {
			return userError(fmt.Errorf("%w: %s", err, id))
		}
		return sysError(fmt.Errorf("get build: %w", err))
	}
	pages, err := store.Pages(id, typeFilter)
	if err != nil {
		return sysError(fmt.Errorf("list pages: %w", err))
	}
	if pages == nil {
		pages = []types.PageInfo{}
	}

	if a.flags.jsonMode {
		return printJSON(cmd, buildDetail{BuildRecord: rec, Pages: pages})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Build:    %s\n", rec.ID)
	fmt.Fprintf(out, "Status:   %s\n", rec.Status)
	fmt.Fprintf(out, "Started:  %s\n", rec.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(out, "Duration: %s\n", rec.FinishedAt.Sub(rec.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(out, "Output:   %s\n", rec.Output)
	fmt.Fprintf(out, "Pages:    %d read, %d docs\n", rec.PageCount, rec.DocCount)
	if rec.Error != "" {
		fmt.Fprintf(out, "Error:    %s\n", rec.Error)
	}
	if len(pages) == 0 {
		return nil
	}

	fmt.Fprintln(out)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TITLE\tADDRESS\tTYPES")
	for _, p := range pages {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Title, p.Address, strings.Join(p.Types, ","))
	}
	return tw.Flush()
}
