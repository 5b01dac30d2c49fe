package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/autoci/autoci/internal/adapters/outbound/tui"
)

func newScanCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Detect the technologies used in a repository",
		Long:  "Walk a repository and report every detected language, framework, test tool, build tool, container, IaC tool, package manager and CI system with its confidence.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := projectPath(args)
			if err != nil {
				return err
			}
			svc, err := newScanService()
			if err != nil {
				return err
			}

			a, err := svc.Scan(cmd.Context(), path)
			if err != nil {
				return err
			}

			if jsonOutput {
				return renderJSON(cmd, a)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderAnalysis(a))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the analysis as JSON")

	return cmd
}
