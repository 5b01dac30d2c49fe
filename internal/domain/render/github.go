package render

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/autoci/autoci/internal/domain"
)

const (
	githubRunner   = "ubuntu-latest"
	githubCheckout = "actions/checkout@v4"
	githubCache    = "actions/cache@v4"
)

func renderGitHub(spec *domain.PipelineSpec) string {
	root := newObj().
		str("name", spec.Name).
		set("on", githubTriggers(spec.Trigger)).
		set("permissions", newObj().str("contents", "read").node())

	jobs := newObj()
	for _, j := range spec.Jobs {
		jobs.set(j.Name, githubJob(j))
	}
	root.set("jobs", jobs.node())
	return encode(root.node(), header)
}

func githubTriggers(t domain.Trigger) *yaml.Node {
	on := newObj()
	if len(t.PushBranches) > 0 {
		on.set("push", newObj().set("branches", flow(strList(t.PushBranches))).node())
	}
	if len(t.PullRequestBranches) > 0 {
		on.set("pull_request", newObj().set("branches", flow(strList(t.PullRequestBranches))).node())
	}
	if t.Schedule != "" {
		on.set("schedule", list(newObj().str("cron", t.Schedule).node()))
	}
	on.set("workflow_dispatch", newObj().node())
	return on.node()
}

func githubJob(j domain.Job) *yaml.Node {
	job := newObj().str("runs-on", githubRunner)
	if len(j.Needs) > 0 {
		job.set("needs", flow(strList(j.Needs)))
	}
	if j.Trigger != nil && j.Trigger.PushOnly {
		job.str("if", githubPushCondition(j.Trigger.PushBranches))
	}
	if j.WorkingDir != "" {
		job.set("defaults", newObj().set("run", newObj().str("working-directory", j.WorkingDir).node()).node())
	}
	if j.Matrix != nil {
		job.set("strategy", newObj().
			set("fail-fast", boolean(false)).
			set("matrix", newObj().set(j.Matrix.Axis, flow(strList(j.Matrix.Values))).node()).
			node())
	}

	version := j.Version
	if j.Matrix != nil {
		version = fmt.Sprintf("${{ matrix.%s }}", j.Matrix.Axis)
	}

	steps := list()
	for _, s := range j.Steps {
		steps.Content = append(steps.Content, githubStep(s, version, j.Matrix != nil, j.WorkingDir))
	}
	job.set("steps", steps)
	return job.node()
}

func githubPushCondition(branches []string) string {
	refs := make([]string, 0, len(branches))
	for _, b := range branches {
		refs = append(refs, fmt.Sprintf("github.ref == 'refs/heads/%s'", b))
	}
	cond := strings.Join(refs, " || ")
	if len(refs) > 1 {
		cond = "(" + cond + ")"
	}
	return "github.event_name == 'push' && " + cond
}

func githubStep(s domain.Step, version string, matrix bool, dir string) *yaml.Node {
	step := newObj()
	switch s.Kind {
	case domain.StepCheckout:
		return step.str("uses", githubCheckout).node()
	case domain.StepSetup, domain.StepAction:
		step.str("name", s.Name).str("uses", s.Uses)
		if len(s.With) > 0 {
			with := newObj()
			for _, p := range s.With {
				with.str(p.Key, domain.ExpandVersion(p.Value, version))
			}
			step.set("with", with.node())
		}
		return step.node()
	case domain.StepCache:
		return githubCacheStep(s, version, matrix, dir)
	}
	return step.str("name", s.Name).str("run", s.Run).node()
}

func githubCacheStep(s domain.Step, version string, matrix bool, dir string) *yaml.Node {
	c := s.Cache
	prefix := "${{ runner.os }}-" + c.Key + "-"
	if matrix {
		prefix += version + "-"
	}
	key := prefix
	if len(c.KeyFiles) > 0 {
		globs := make([]string, 0, len(c.KeyFiles))
		for _, f := range c.KeyFiles {
			globs = append(globs, fmt.Sprintf("'**/%s'", f))
		}
		key += fmt.Sprintf("${{ hashFiles(%s) }}", strings.Join(globs, ", "))
	} else {
		key += "${{ github.sha }}"
	}

	with := newObj().
		str("path", strings.Join(workspacePaths(dir, c.Paths), "\n")).
		str("key", key).
		str("restore-keys", prefix)
	return newObj().str("name", s.Name).str("uses", githubCache).set("with", with.node()).node()
}
