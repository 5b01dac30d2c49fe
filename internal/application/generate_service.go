package application

import (
	"context"
	"fmt"

	"github.com/autoci/autoci/internal/domain"
	"github.com/autoci/autoci/internal/domain/render"
	"github.com/autoci/autoci/internal/domain/rules"
	"github.com/autoci/autoci/internal/domain/synthesis"
	"github.com/autoci/autoci/internal/platform/logger"
)

// GenerateOptions are the per-invocation toggles of generate.
type GenerateOptions struct {
	// Platform is a platform tag; empty falls back to the config, then to
	// the CI system already in the repository, then to GitHub.
	Platform string
	// OutputDir receives the pipeline file; empty means the project root.
	OutputDir  string
	DryRun     bool
	NoOptimize bool
	// Versions overrides matrix values per toolchain and wins over config.
	Versions map[string][]string
	Branches []string
}

// GenerateResult carries everything a caller may want to show.
type GenerateResult struct {
	Analysis *domain.RepoAnalysis
	Spec     *domain.PipelineSpec
	Pipeline *domain.GeneratedPipeline
	// Written is the file path, empty on a dry run.
	Written string
	// Commit is the checked-out commit the pipeline was generated from,
	// empty outside a git repository.
	Commit string
}

// GenerateService orchestrates generation:
// scan → synthesize → render → write.
type GenerateService struct {
	scan    *ScanService
	rules   *rules.Table
	gitInfo domain.GitInfo
	writer  domain.PipelineWriter
}

func NewGenerateService(
	scan *ScanService,
	ruleTable *rules.Table,
	gitInfo domain.GitInfo,
	writer domain.PipelineWriter,
) *GenerateService {
	return &GenerateService{
		scan:    scan,
		rules:   ruleTable,
		gitInfo: gitInfo,
		writer:  writer,
	}
}

// ciPlatforms maps detected CI systems to the platform that renders them.
var ciPlatforms = map[string]domain.Platform{
	"github-actions": domain.PlatformGitHub,
	"gitlab-ci":      domain.PlatformGitLab,
	"circleci":       domain.PlatformCircleCI,
}

func (s *GenerateService) Generate(ctx context.Context, projectPath string, opts GenerateOptions) (*GenerateResult, error) {
	a, cfg, err := s.scan.ScanWithConfig(ctx, projectPath)
	if err != nil {
		return nil, err
	}

	platform, err := resolvePlatform(opts.Platform, cfg, a)
	if err != nil {
		return nil, err
	}

	synthOpts := domain.SynthesisOptions{
		Optimize:     !opts.NoOptimize,
		SkipSecurity: cfg.SkipSecurity,
		Versions:     mergeVersions(cfg.Versions, opts.Versions),
		Branches:     cfg.Branches,
		Schedule:     cfg.Schedule,
	}
	if len(opts.Branches) > 0 {
		synthOpts.Branches = opts.Branches
	}
	var commit string
	if s.gitInfo != nil {
		log := logger.Named("generate")
		branch, err := s.gitInfo.DefaultBranch(projectPath)
		if err != nil {
			log.Debug().Err(err).Msg("default branch unknown, deploy jobs gate on main")
		}
		synthOpts.DefaultBranch = branch
		if commit, err = s.gitInfo.CommitHash(projectPath); err != nil {
			log.Debug().Err(err).Msg("no commit checked out")
		}
	}

	spec, err := synthesis.Synthesize(a, s.rules, synthOpts)
	if err != nil {
		return nil, err
	}

	result := &GenerateResult{
		Analysis: a,
		Spec:     spec,
		Pipeline: render.Generate(platform, spec, a),
		Commit:   commit,
	}
	if opts.DryRun {
		return result, nil
	}

	dir := opts.OutputDir
	if dir == "" {
		dir = projectPath
	}
	written, err := s.writer.Write(dir, result.Pipeline)
	if err != nil {
		return nil, err
	}
	result.Written = written
	return result, nil
}

func resolvePlatform(flag string, cfg domain.ProjectConfig, a *domain.RepoAnalysis) (domain.Platform, error) {
	switch {
	case flag != "":
		return domain.ParsePlatform(flag)
	case cfg.CI != "":
		p, err := domain.ParsePlatform(cfg.CI)
		if err != nil {
			return "", fmt.Errorf("invalid config: %w", err)
		}
		return p, nil
	}
	for _, ci := range a.CISystems {
		if p, ok := ciPlatforms[ci.Name]; ok {
			return p, nil
		}
	}
	return domain.PlatformGitHub, nil
}

func mergeVersions(base, override map[string][]string) map[string][]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string][]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
