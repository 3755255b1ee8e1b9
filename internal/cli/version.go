package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/docsmap/pkg/docsmap"
)

const modulePath = "github.com/mesh-intelligence/docsmap"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the docsmap version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "docsmap v%s\nmodule: %s\n", docsmap.Version, modulePath)
			return nil
		},
	}
}
