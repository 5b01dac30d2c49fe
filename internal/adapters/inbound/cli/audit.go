package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/autoci/autoci/internal/adapters/outbound/tui"
	"github.com/autoci/autoci/internal/application"
)

func newAuditCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "audit [path]",
		Short: "Recommend missing pipeline practices",
		Long:  "Scan a repository and list the caching, security scanning and test coverage a pipeline for it would be missing.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := projectPath(args)
			if err != nil {
				return err
			}
			scan, err := newScanService()
			if err != nil {
				return err
			}
			ruleTable, err := loadRules()
			if err != nil {
				return err
			}

			report, err := application.NewAuditService(scan, ruleTable).Audit(cmd.Context(), path)
			if err != nil {
				return err
			}

			if jsonOutput {
				return renderJSON(cmd, report)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderAudit(report))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output recommendations as JSON")

	return cmd
}
