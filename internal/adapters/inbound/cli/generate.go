package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/autoci/autoci/internal/adapters/outbound/gitinfo"
	"github.com/autoci/autoci/internal/adapters/outbound/tui"
	"github.com/autoci/autoci/internal/adapters/outbound/writer"
	"github.com/autoci/autoci/internal/application"
)

func newGenerateCmd() *cobra.Command {
	var (
		platform   string
		outputDir  string
		noOptimize bool
		dryRun     bool
		versions   []string
		branches   []string
	)

	cmd := &cobra.Command{
		Use:   "generate [path]",
		Short: "Generate a CI pipeline for a repository",
		Long: "Scan a repository and write a pipeline for it. The platform comes from --ci, " +
			"then the ci key of .autoci.yaml, then the CI system already in the repository, then GitHub Actions.",
		Example: "  autoci generate --ci gitlab\n" +
			"  autoci generate ./service --version python=3.11,3.12 --branch main\n" +
			"  autoci generate --dry-run > ci.yml",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := projectPath(args)
			if err != nil {
				return err
			}
			overrides, err := parseVersions(versions)
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

			svc := application.NewGenerateService(scan, ruleTable, gitinfo.New(), writer.New())
			res, err := svc.Generate(cmd.Context(), path, application.GenerateOptions{
				Platform:   platform,
				OutputDir:  outputDir,
				DryRun:     dryRun,
				NoOptimize: noOptimize,
				Versions:   overrides,
				Branches:   branches,
			})
			if err != nil {
				return err
			}

			if dryRun {
				// stdout carries only the pipeline so it can be redirected.
				for _, w := range res.Analysis.Warnings {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
				}
				fmt.Fprint(cmd.OutOrStdout(), res.Pipeline.Content)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderGenerated(res.Pipeline, res.Spec, res.Written))
			return nil
		},
	}

	cmd.Flags().StringVar(&platform, "ci", "", "Target platform: github, gitlab or circleci")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory to write the pipeline under (defaults to the project root)")
	cmd.Flags().BoolVar(&noOptimize, "no-optimize", false, "Disable caching, version matrices and parallel jobs")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the pipeline to stdout instead of writing it")
	cmd.Flags().StringArrayVar(&versions, "version", nil, "Version matrix override as tool=v1,v2 (repeatable)")
	cmd.Flags().StringArrayVar(&branches, "branch", nil, "Branch that triggers the pipeline (repeatable)")

	return cmd
}

// parseVersions turns repeated tool=v1,v2 flags into a matrix override map.
// A later flag for the same tool replaces the earlier one.
func parseVersions(flags []string) (map[string][]string, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	out := make(map[string][]string, len(flags))
	for _, f := range flags {
		tool, list, ok := strings.Cut(f, "=")
		tool = strings.TrimSpace(tool)
		if !ok || tool == "" {
			return nil, fmt.Errorf("invalid --version %q (want tool=v1,v2)", f)
		}
		var values []string
		for _, v := range strings.Split(list, ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("invalid --version %q: no versions given", f)
		}
		out[tool] = values
	}
	return out, nil
}
