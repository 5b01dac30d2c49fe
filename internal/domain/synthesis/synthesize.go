// Package synthesis turns a RepoAnalysis into a platform-agnostic
// PipelineSpec using the rule table.
package synthesis

import (
	"fmt"
	"path"
	"sort"

	"github.com/autoci/autoci/internal/domain"
	"github.com/autoci/autoci/internal/domain/rules"
)

// PipelineName is the name given to every synthesized pipeline.
const PipelineName = "CI"

// draft accumulates the fragments merged into one job.
type draft struct {
	target    rules.Target
	toolchain string
	steps     []domain.Step
	matrix    *rules.Rule
	serial    bool
	// dirs holds the directories of the package manifests behind the job.
	dirs map[string]bool
}

// Synthesize builds the pipeline for a. It is a pure function of its
// arguments. It fails with *domain.UnsupportedStackError when there is
// nothing to build a pipeline around.
func Synthesize(a *domain.RepoAnalysis, table *rules.Table, opts domain.SynthesisOptions) (*domain.PipelineSpec, error) {
	if !a.HasPrimaryLanguage() && len(a.Frameworks) == 0 && len(a.BuildTools) == 0 {
		return nil, &domain.UnsupportedStackError{Root: a.RootPath}
	}

	var drafts []*draft
	byTarget := map[rules.Target]*draft{}
	for _, s := range table.Select(a) {
		r := s.Rule
		for _, tg := range r.Targets {
			if opts.SkipSecurity && tg.Stage == domain.StageSecurity {
				continue
			}
			d, ok := byTarget[tg]
			if !ok {
				d = &draft{target: tg, toolchain: r.Toolchain, dirs: map[string]bool{}}
				byTarget[tg] = d
				drafts = append(drafts, d)
			}
			if r.Trigger.Category == domain.CategoryPackageManager {
				if tech, ok := a.Lookup(r.Trigger.Category, s.Technology); ok {
					for _, f := range tech.Files {
						d.dirs[path.Dir(f)] = true
					}
				}
			}
			if r.Cache != nil {
				d.steps = append(d.steps, cacheStep(r.Cache))
			}
			for _, rs := range r.Steps {
				d.steps = append(d.steps, rs.Step())
			}
			if r.Hint.Matrix && d.matrix == nil {
				d.matrix = r
			}
			if !r.Hint.Parallelizable() {
				d.serial = true
			}
		}
	}

	var jobs []domain.Job
	serial := map[string]bool{}
	for _, d := range drafts {
		job, ok := buildJob(a, table, d, opts)
		if !ok {
			continue
		}
		serial[job.Name] = d.serial
		jobs = append(jobs, job)
	}
	if len(jobs) == 0 {
		return nil, &domain.UnsupportedStackError{Root: a.RootPath}
	}

	sort.SliceStable(jobs, func(i, j int) bool {
		if ri, rj := jobs[i].Stage.Rank(), jobs[j].Stage.Rank(); ri != rj {
			return ri < rj
		}
		return jobs[i].Name < jobs[j].Name
	})
	if opts.Optimize {
		fanOut(jobs, serial)
	} else {
		chain(jobs)
	}

	spec := &domain.PipelineSpec{
		Name:    PipelineName,
		Trigger: opts.Triggers(),
		Jobs:    jobs,
	}
	if err := Validate(spec); err != nil {
		return nil, err
	}
	return spec, nil
}

func buildJob(a *domain.RepoAnalysis, table *rules.Table, d *draft, opts domain.SynthesisOptions) (domain.Job, bool) {
	if !hasWork(d.steps) {
		return domain.Job{}, false
	}
	tc, ok := table.Toolchain(d.toolchain)
	if !ok {
		return domain.Job{}, false
	}

	job := domain.Job{
		Name:      d.target.JobName(),
		Stage:     d.target.Stage,
		Toolchain: tc.Name,
		Runtime:   tc.Runtime(),
	}
	if len(d.dirs) == 1 {
		for dir := range d.dirs {
			if dir != "." {
				job.WorkingDir = dir
			}
		}
	}

	detected := ""
	if tc.Language != "" {
		if lang, ok := a.Lookup(domain.CategoryLanguage, tc.Language); ok {
			detected = lang.Version
		}
	}
	if tc.Versioned() {
		job.Version = detected
		if job.Version == "" {
			job.Version = tc.DefaultVersion
		}
	}

	steps := []domain.Step{{Kind: domain.StepCheckout, Name: "Checkout", Phase: domain.PhaseCheckout}}
	if setup, ok := tc.SetupStep(); ok {
		steps = append(steps, setup)
	}
	steps = append(steps, d.steps...)
	if !opts.Optimize {
		steps = withoutCache(steps)
	}
	job.Steps = orderSteps(dedupe(steps))

	if opts.Optimize && d.matrix != nil && tc.Versioned() {
		values := matrixValues(tc, d.matrix.Hint.Values, detected, overrideVersions(opts, tc))
		switch {
		case len(values) > 1:
			job.Matrix = &domain.Matrix{Axis: tc.Axis(), Values: values}
		case len(values) == 1:
			job.Version = values[0]
		}
	}

	if job.Stage == domain.StageDeploy {
		job.Trigger = &domain.Trigger{PushOnly: true, PushBranches: []string{opts.DeployBranch()}}
	}
	return job, true
}

func overrideVersions(opts domain.SynthesisOptions, tc *rules.Toolchain) []string {
	if v := opts.Versions[tc.Name]; len(v) > 0 {
		return v
	}
	if tc.Language != "" {
		return opts.Versions[tc.Language]
	}
	return nil
}

// hasWork reports whether any step does more than prepare the job.
func hasWork(steps []domain.Step) bool {
	for _, s := range steps {
		if s.Phase == domain.PhaseRun || s.Phase == domain.PhaseReport {
			return true
		}
	}
	return false
}

func cacheStep(c *domain.Cache) domain.Step {
	cp := &domain.Cache{
		Key:        c.Key,
		Paths:      append([]string(nil), c.Paths...),
		LocalPaths: append([]string(nil), c.LocalPaths...),
		Env:        append([]domain.Param(nil), c.Env...),
		KeyFiles:   append([]string(nil), c.KeyFiles...),
	}
	return domain.Step{
		Kind:  domain.StepCache,
		Name:  "Cache " + c.Key,
		Cache: cp,
		Phase: domain.PhaseCache,
	}
}

func withoutCache(steps []domain.Step) []domain.Step {
	out := steps[:0:0]
	for _, s := range steps {
		if s.Kind != domain.StepCache {
			out = append(out, s)
		}
	}
	return out
}

// dedupe keeps the first occurrence of every step key.
func dedupe(steps []domain.Step) []domain.Step {
	seen := map[string]bool{}
	out := make([]domain.Step, 0, len(steps))
	for _, s := range steps {
		k := s.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}

// orderSteps sorts by phase, keeping selection order within a phase.
func orderSteps(steps []domain.Step) []domain.Step {
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Phase.Rank() < steps[j].Phase.Rank()
	})
	return steps
}

// Validate checks the structural invariants every renderer relies on.
func Validate(spec *domain.PipelineSpec) error {
	if err := domain.Validator().Struct(spec); err != nil {
		return fmt.Errorf("invalid pipeline: %w", err)
	}
	names := map[string]bool{}
	for _, j := range spec.Jobs {
		if names[j.Name] {
			return fmt.Errorf("invalid pipeline: duplicate job %q", j.Name)
		}
		names[j.Name] = true
	}
	for _, j := range spec.Jobs {
		for _, n := range j.Needs {
			if !names[n] {
				return fmt.Errorf("invalid pipeline: job %q needs unknown job %q", j.Name, n)
			}
		}
	}
	return nil
}
