package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/autoci/autoci/internal/adapters/outbound/config"
	"github.com/autoci/autoci/internal/domain"
)

func newInitCmd() *cobra.Command {
	var (
		platform string
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Generate a .autoci.yaml configuration file",
		Long:  "Scan the project and create a .autoci.yaml that pins the target platform and lists the detected toolchain versions as a starting point.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := projectPath(args)
			if err != nil {
				return err
			}

			dest := filepath.Join(path, config.FileName)
			if !force {
				if _, err := os.Stat(dest); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", config.FileName)
				}
			}

			var ci domain.Platform
			if platform != "" {
				if ci, err = domain.ParsePlatform(platform); err != nil {
					return err
				}
			}

			svc, err := newScanService()
			if err != nil {
				return err
			}
			// A stale config must not stop init from replacing it.
			a, err := svc.ScanDefaults(cmd.Context(), path)
			if err != nil {
				return err
			}
			if ci == "" {
				ci = domain.PlatformGitHub
				for _, t := range a.CISystems {
					if p, err := domain.ParsePlatform(t.Name); err == nil {
						ci = p
						break
					}
				}
			}

			if err := os.WriteFile(dest, []byte(generateConfig(ci, a)), 0o644); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", config.FileName)
			return nil
		},
	}

	cmd.Flags().StringVar(&platform, "ci", "", "Target platform: github, gitlab or circleci (defaults to the CI system already in use)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing .autoci.yaml")

	return cmd
}

func generateConfig(ci domain.Platform, a *domain.RepoAnalysis) string {
	var b strings.Builder
	b.WriteString("# autoci configuration\n\n")
	fmt.Fprintf(&b, "ci: %s\n\n", ci)

	var versioned []domain.Technology
	for _, t := range a.Languages {
		if t.Version != "" {
			versioned = append(versioned, t)
		}
	}
	if len(versioned) > 0 {
		b.WriteString("# Version matrix per toolchain; the detected versions are:\n# versions:\n")
		for _, t := range versioned {
			fmt.Fprintf(&b, "#   %s: [%q]\n", t.Name, t.Version)
		}
		b.WriteString("\n")
	}

	b.WriteString(`# branches: [main]
# schedule: "0 3 * * 1"
# skip_security: false

# exclude_paths:
#   - vendor
#   - third_party
`)
	return b.String()
}
