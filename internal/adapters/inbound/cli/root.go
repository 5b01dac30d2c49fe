package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/autoci/autoci/internal/platform/logger"
)

var (
	version = "dev"
	commit  = "none"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autoci",
		Short: "Generate CI pipelines from what your repository already contains",
		Long: "autoci scans a repository, detects its languages, frameworks, test tools and containers, " +
			"and writes a GitHub Actions, GitLab CI or CircleCI pipeline for it.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(logger.FromEnv())
		},
	}
	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newAuditCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newMCPCmd())
	return cmd
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

// Execute runs the CLI and reports a failure on stderr.
func Execute() error {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
