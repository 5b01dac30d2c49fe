// Package render turns a PipelineSpec into the configuration document of a
// CI platform. Renderers are pure: the same spec always yields the same
// bytes.
package render

import (
	"fmt"
	"path"
	"strings"

	"github.com/autoci/autoci/internal/domain"
)

const header = "# Generated by autoci. Review before committing."

// Render serializes spec for platform p.
func Render(p domain.Platform, spec *domain.PipelineSpec) string {
	switch p {
	case domain.PlatformGitHub:
		return renderGitHub(spec)
	case domain.PlatformGitLab:
		return renderGitLab(spec)
	case domain.PlatformCircleCI:
		return renderCircleCI(spec)
	}
	panic(fmt.Sprintf("render: unsupported platform %q", p))
}

// Generate renders spec and wraps it with its analysis for traceability.
func Generate(p domain.Platform, spec *domain.PipelineSpec, a *domain.RepoAnalysis) *domain.GeneratedPipeline {
	return &domain.GeneratedPipeline{
		Platform: p,
		Path:     p.ConfigPath(),
		Content:  Render(p, spec),
		Analysis: a,
	}
}

// stepScript is the shell form of a step, or "" for steps a platform
// handles natively.
func stepScript(s domain.Step) string {
	switch s.Kind {
	case domain.StepRun, domain.StepAction:
		return s.Run
	}
	return ""
}

// caches returns the job's cache descriptors in step order.
func caches(j domain.Job) []*domain.Cache {
	var out []*domain.Cache
	for _, s := range j.Steps {
		if s.Kind == domain.StepCache && s.Cache != nil {
			out = append(out, s.Cache)
		}
	}
	return out
}

func envName(axis string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(axis))
}

// workspacePath resolves a repository-relative path against the job's
// working directory. Home, absolute and variable paths are left alone.
func workspacePath(dir, p string) string {
	if dir == "" || strings.HasPrefix(p, "~") || strings.HasPrefix(p, "/") || strings.HasPrefix(p, "$") {
		return p
	}
	return path.Join(dir, p)
}

func workspacePaths(dir string, ps []string) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, workspacePath(dir, p))
	}
	return out
}
