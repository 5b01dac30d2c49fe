package render

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/autoci/autoci/internal/domain"
)

const (
	circleCIVersion  = "2.1"
	circleCIWorkflow = "ci"
	circleCINightly  = "scheduled"
	// Bumping the suffix invalidates every cache.
	circleCICacheEpoch = "v1"
)

func renderCircleCI(spec *domain.PipelineSpec) string {
	jobs := newObj()
	for _, j := range spec.Jobs {
		jobs.set(j.Name, circleCIJob(j))
	}

	workflows := newObj().set(circleCIWorkflow, newObj().set("jobs", circleCIWorkflowJobs(spec.Jobs)).node())
	if spec.Trigger.Schedule != "" {
		schedule := newObj().str("cron", spec.Trigger.Schedule)
		if len(spec.Trigger.PushBranches) > 0 {
			schedule.set("filters", branchFilter(spec.Trigger.PushBranches[:1]))
		}
		trigger := newObj().set("schedule", schedule.node())
		workflows.set(circleCINightly, newObj().
			set("triggers", list(trigger.node())).
			set("jobs", circleCIWorkflowJobs(spec.Jobs)).
			node())
	}

	root := newObj().
		set("version", &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: circleCIVersion}).
		set("jobs", jobs.node()).
		set("workflows", workflows.node())
	return encode(root.node(), header)
}

func circleCIJob(j domain.Job) *yaml.Node {
	job := newObj()
	version := j.Version
	if j.Matrix != nil {
		job.set("parameters", newObj().set(j.Matrix.Axis, newObj().
			str("type", "string").
			str("default", j.Matrix.Values[0]).
			node()).node())
		version = fmt.Sprintf("<< parameters.%s >>", j.Matrix.Axis)
	}

	image := newObj().str("image", domain.ExpandVersion(j.Runtime.CircleCIImage, version))
	if j.Runtime.ResetEntrypoint {
		image.set("entrypoint", flow(strList([]string{"/bin/sh"})))
	}
	job.set("docker", list(image.node()))

	steps := list()
	var saves []*yaml.Node
	for _, s := range j.Steps {
		switch s.Kind {
		case domain.StepCheckout:
			steps.Content = append(steps.Content, str("checkout"))
			if j.Runtime.Docker {
				steps.Content = append(steps.Content, str("setup_remote_docker"))
			}
		case domain.StepSetup:
			// The image already provides the toolchain.
		case domain.StepCache:
			key, fallback := circleCICacheKeys(s.Cache, j.Matrix != nil, version, j.WorkingDir)
			steps.Content = append(steps.Content, newObj().set("restore_cache",
				newObj().set("keys", strList([]string{key, fallback})).node()).node())
			saves = append(saves, newObj().set("save_cache", newObj().
				str("key", key).
				set("paths", strList(workspacePaths(j.WorkingDir, s.Cache.Paths))).
				node()).node())
		default:
			run := newObj().str("name", s.Name).str("command", s.Run)
			if j.WorkingDir != "" {
				run.str("working_directory", j.WorkingDir)
			}
			steps.Content = append(steps.Content, newObj().set("run", run.node()).node())
		}
	}
	steps.Content = append(steps.Content, saves...)
	job.set("steps", steps)
	return job.node()
}

func circleCICacheKeys(c *domain.Cache, matrix bool, version, dir string) (key, fallback string) {
	fallback = c.Key + "-" + circleCICacheEpoch + "-"
	if matrix {
		fallback += version + "-"
	}
	sums := make([]string, 0, len(c.KeyFiles))
	for _, f := range c.KeyFiles {
		sums = append(sums, fmt.Sprintf("{{ checksum %q }}", workspacePath(dir, f)))
	}
	if len(sums) == 0 {
		sums = append(sums, "{{ .Revision }}")
	}
	return fallback + strings.Join(sums, "-"), fallback
}

func circleCIWorkflowJobs(jobs []domain.Job) *yaml.Node {
	out := list()
	for _, j := range jobs {
		entry := newObj()
		if len(j.Needs) > 0 {
			entry.set("requires", strList(j.Needs))
		}
		if j.Matrix != nil {
			entry.set("matrix", newObj().set("parameters", newObj().
				set(j.Matrix.Axis, flow(strList(j.Matrix.Values))).
				node()).node())
		}
		if j.Trigger != nil && j.Trigger.PushOnly {
			entry.set("filters", branchFilter(j.Trigger.PushBranches))
		}
		if entry.empty() {
			out.Content = append(out.Content, str(j.Name))
			continue
		}
		out.Content = append(out.Content, newObj().set(j.Name, entry.node()).node())
	}
	return out
}

func branchFilter(branches []string) *yaml.Node {
	return newObj().set("branches", newObj().set("only", strList(branches)).node()).node()
}
