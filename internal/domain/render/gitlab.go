package render

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/autoci/autoci/internal/domain"
)

// GitLab hashes at most two files into a cache key.
const gitlabMaxKeyFiles = 2

func renderGitLab(spec *domain.PipelineSpec) string {
	stages := make([]string, 0, len(domain.Stages))
	for _, s := range spec.StagesUsed() {
		stages = append(stages, string(s))
	}

	root := newObj().
		set("stages", strList(stages)).
		set("workflow", newObj().set("rules", gitlabWorkflowRules(spec.Trigger)).node())
	for _, j := range spec.Jobs {
		root.set(j.Name, gitlabJob(j))
	}

	comment := header
	if spec.Trigger.Schedule != "" {
		comment += fmt.Sprintf("\n# Create a pipeline schedule with cron %q under Build > Pipeline schedules.", spec.Trigger.Schedule)
	}
	return encode(root.node(), comment)
}

func gitlabWorkflowRules(t domain.Trigger) *yaml.Node {
	rules := list()
	if len(t.PullRequestBranches) > 0 {
		rules.Content = append(rules.Content, newObj().str("if",
			`$CI_PIPELINE_SOURCE == "merge_request_event" && $CI_MERGE_REQUEST_TARGET_BRANCH_NAME =~ `+branchPattern(t.PullRequestBranches)).node())
	}
	if len(t.PushBranches) > 0 {
		rules.Content = append(rules.Content, newObj().str("if",
			`$CI_PIPELINE_SOURCE == "push" && $CI_COMMIT_BRANCH =~ `+branchPattern(t.PushBranches)).node())
	}
	if t.Schedule != "" {
		rules.Content = append(rules.Content, newObj().str("if", `$CI_PIPELINE_SOURCE == "schedule"`).node())
	}
	rules.Content = append(rules.Content, newObj().str("if", `$CI_PIPELINE_SOURCE == "web"`).node())
	return rules
}

// branchPattern builds an anchored GitLab regex literal matching any branch.
func branchPattern(branches []string) string {
	quoted := make([]string, 0, len(branches))
	for _, b := range branches {
		quoted = append(quoted, strings.ReplaceAll(regexp.QuoteMeta(b), "/", `\/`))
	}
	return "/^(" + strings.Join(quoted, "|") + ")$/"
}

func gitlabJob(j domain.Job) *yaml.Node {
	version := j.Version
	var matrixVar string
	if j.Matrix != nil {
		matrixVar = envName(j.Matrix.Axis)
		version = "$" + matrixVar
	}

	job := newObj().str("stage", string(j.Stage))
	if img := domain.ExpandVersion(j.Runtime.Image, version); img != "" {
		if j.Runtime.ResetEntrypoint {
			job.set("image", newObj().str("name", img).set("entrypoint", flow(strList([]string{""}))).node())
		} else {
			job.str("image", img)
		}
	}
	if len(j.Runtime.Services) > 0 {
		job.set("services", strList(j.Runtime.Services))
	}
	if len(j.Needs) > 0 {
		job.set("needs", flow(strList(j.Needs)))
	}

	cs := caches(j)
	vars := newObj()
	if j.Runtime.Docker {
		vars.str("DOCKER_TLS_CERTDIR", "/certs")
	}
	for _, c := range cs {
		for _, e := range c.Env {
			vars.str(e.Key, e.Value)
		}
	}
	if !vars.empty() {
		job.set("variables", vars.node())
	}
	if len(cs) > 0 {
		entries := list()
		for _, c := range cs {
			entries.Content = append(entries.Content, gitlabCache(c, j.WorkingDir))
		}
		job.set("cache", entries)
	}

	if j.Matrix != nil {
		entry := newObj().set(matrixVar, flow(strList(j.Matrix.Values)))
		job.set("parallel", newObj().set("matrix", list(entry.node())).node())
	}
	if j.Trigger != nil && j.Trigger.PushOnly {
		job.set("rules", list(newObj().str("if",
			`$CI_PIPELINE_SOURCE == "push" && $CI_COMMIT_BRANCH =~ `+branchPattern(j.Trigger.PushBranches)).node()))
	}

	var script []string
	if j.WorkingDir != "" {
		script = append(script, "cd "+j.WorkingDir)
	}
	for _, s := range j.Steps {
		if line := stepScript(s); line != "" {
			script = append(script, line)
		}
	}
	job.set("script", strList(script))
	return job.node()
}

func gitlabCache(c *domain.Cache, dir string) *yaml.Node {
	key := newObj()
	files := c.KeyFiles
	if len(files) > gitlabMaxKeyFiles {
		files = files[:gitlabMaxKeyFiles]
	}
	if len(files) > 0 {
		key.set("files", strList(workspacePaths(dir, files))).str("prefix", c.Key)
	}

	entry := newObj()
	if key.empty() {
		entry.str("key", c.Key)
	} else {
		entry.set("key", key.node())
	}
	paths := c.LocalPaths
	if len(paths) == 0 {
		paths = c.Paths
	}
	local := make([]string, 0, len(paths))
	for _, p := range paths {
		local = append(local, gitlabLocalPath(c, dir, p))
	}
	return entry.set("paths", strList(local)).node()
}

// gitlabLocalPath keeps paths an env variable pins under $CI_PROJECT_DIR at
// the root and resolves the rest against the working directory.
func gitlabLocalPath(c *domain.Cache, dir, p string) string {
	for _, e := range c.Env {
		if strings.HasSuffix(e.Value, "$CI_PROJECT_DIR/"+p) {
			return p
		}
	}
	return workspacePath(dir, p)
}
