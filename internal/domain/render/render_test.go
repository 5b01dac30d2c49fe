package render_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/autoci/autoci/internal/domain"
	"github.com/autoci/autoci/internal/domain/render"
	"github.com/autoci/autoci/internal/domain/rules"
	"github.com/autoci/autoci/internal/domain/synthesis"
)

func pythonDockerSpec(t *testing.T) *domain.PipelineSpec {
	t.Helper()
	a := domain.NewRepoAnalysis("/repo")
	a.Languages = []domain.Technology{{Name: "python", Confidence: 0.8}}
	a.TestTools = []domain.Technology{{Name: "pytest", Confidence: 0.8}}
	a.PackageManagers = []domain.Technology{{Name: "pip", Confidence: 0.8}}
	a.Containers = []domain.Technology{{Name: "docker", Confidence: 0.8}}
	a.PrimaryLanguage = "python"

	rt, err := rules.DefaultTable()
	require.NoError(t, err)
	opts := domain.DefaultSynthesisOptions()
	opts.Schedule = "0 3 * * 1"
	spec, err := synthesis.Synthesize(a, rt, opts)
	require.NoError(t, err)
	return spec
}

func parse(t *testing.T, doc string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(doc), &out), doc)
	return out
}

func m(t *testing.T, v any, keys ...string) any {
	t.Helper()
	for _, k := range keys {
		obj, ok := v.(map[string]any)
		require.True(t, ok, "expected mapping at %q", k)
		v, ok = obj[k]
		require.True(t, ok, "missing key %q", k)
	}
	return v
}

func strs(v any) []string {
	var out []string
	for _, x := range v.([]any) {
		out = append(out, x.(string))
	}
	return out
}

func specJobNames(spec *domain.PipelineSpec) []string {
	var out []string
	for _, j := range spec.Jobs {
		out = append(out, j.Name)
	}
	return out
}

func TestRender_Deterministic(t *testing.T) {
	spec := pythonDockerSpec(t)
	for _, p := range domain.Platforms() {
		first := render.Render(p, spec)
		assert.True(t, strings.HasPrefix(first, "# Generated by autoci"), p)
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, render.Render(p, spec), p)
		}
	}
}

func TestRender_JobsMatchSpecOnEveryPlatform(t *testing.T) {
	spec := pythonDockerSpec(t)
	want := specJobNames(spec)

	gh := parse(t, render.Render(domain.PlatformGitHub, spec))
	var got []string
	for name := range m(t, gh, "jobs").(map[string]any) {
		got = append(got, name)
	}
	assert.ElementsMatch(t, want, got)

	gl := parse(t, render.Render(domain.PlatformGitLab, spec))
	got = nil
	for name, v := range gl {
		if obj, ok := v.(map[string]any); ok && obj["stage"] != nil {
			got = append(got, name)
		}
	}
	assert.ElementsMatch(t, want, got)

	cc := parse(t, render.Render(domain.PlatformCircleCI, spec))
	got = nil
	for name := range m(t, cc, "jobs").(map[string]any) {
		got = append(got, name)
	}
	assert.ElementsMatch(t, want, got)
}

func TestRender_GitHub(t *testing.T) {
	spec := pythonDockerSpec(t)
	doc := parse(t, render.Render(domain.PlatformGitHub, spec))

	assert.Equal(t, "CI", doc["name"])
	assert.Equal(t, []string{"main", "master", "develop"}, strs(m(t, doc, "on", "push", "branches")))
	assert.Equal(t, []string{"main", "master"}, strs(m(t, doc, "on", "pull_request", "branches")))
	assert.Equal(t, "0 3 * * 1", m(t, m(t, doc, "on", "schedule").([]any)[0], "cron"))

	test := m(t, doc, "jobs", "test-python")
	assert.Equal(t, []string{"lint-python"}, strs(m(t, test, "needs")))
	assert.Equal(t, []string{"3.10", "3.11", "3.12", "3.13"}, strs(m(t, test, "strategy", "matrix", "python-version")))

	steps := m(t, test, "steps").([]any)
	assert.Equal(t, "actions/checkout@v4", m(t, steps[0], "uses"))
	assert.Equal(t, "actions/setup-python@v5", m(t, steps[1], "uses"))
	assert.Equal(t, "${{ matrix.python-version }}", m(t, steps[1], "with", "python-version"))
	assert.Equal(t, "python -m pip install --upgrade pip", m(t, steps[2], "run"))
	assert.Equal(t, "actions/cache@v4", m(t, steps[3], "uses"))
	assert.Contains(t, m(t, steps[3], "with", "key"), "hashFiles('**/requirements.txt')")
	assert.Equal(t, "codecov/codecov-action@v4", m(t, steps[len(steps)-1], "uses"))

	deploy := m(t, doc, "jobs", "deploy-docker")
	assert.Equal(t, "github.event_name == 'push' && github.ref == 'refs/heads/main'", m(t, deploy, "if"))
}

func TestRender_GitLab(t *testing.T) {
	spec := pythonDockerSpec(t)
	out := render.Render(domain.PlatformGitLab, spec)
	doc := parse(t, out)

	var stages []string
	for _, s := range spec.StagesUsed() {
		stages = append(stages, string(s))
	}
	assert.Equal(t, stages, strs(doc["stages"]))
	assert.Contains(t, out, "Pipeline schedules")

	test := m(t, doc, "test-python")
	assert.Equal(t, "test", m(t, test, "stage"))
	assert.Equal(t, "python:$PYTHON_VERSION", m(t, test, "image"))
	matrix := m(t, test, "parallel", "matrix").([]any)
	assert.Equal(t, []string{"3.10", "3.11", "3.12", "3.13"}, strs(m(t, matrix[0], "PYTHON_VERSION")))
	assert.Equal(t, "$CI_PROJECT_DIR/.cache/pip", m(t, test, "variables", "PIP_CACHE_DIR"))

	cache := m(t, test, "cache").([]any)
	assert.Equal(t, []string{".cache/pip"}, strs(m(t, cache[0], "paths")))
	assert.Equal(t, []string{"requirements.txt"}, strs(m(t, cache[0], "key", "files")))

	script := strs(m(t, test, "script"))
	assert.Equal(t, "python -m pip install --upgrade pip", script[0])
	assert.Contains(t, script[len(script)-1], "codecov upload-process", "actions fall back to their shell form")

	deploy := m(t, doc, "deploy-docker")
	assert.Equal(t, []string{"docker:27-dind"}, strs(m(t, deploy, "services")))
	rule := m(t, deploy, "rules").([]any)[0]
	assert.Equal(t, `$CI_PIPELINE_SOURCE == "push" && $CI_COMMIT_BRANCH =~ /^(main)$/`, m(t, rule, "if"))
}

func TestRender_CircleCI(t *testing.T) {
	spec := pythonDockerSpec(t)
	doc := parse(t, render.Render(domain.PlatformCircleCI, spec))

	assert.Equal(t, 2.1, doc["version"])

	test := m(t, doc, "jobs", "test-python")
	assert.Equal(t, "3.10", m(t, test, "parameters", "python-version", "default"))
	image := m(t, test, "docker").([]any)[0]
	assert.Equal(t, "cimg/python:<< parameters.python-version >>", m(t, image, "image"))

	steps := m(t, test, "steps").([]any)
	assert.Equal(t, "checkout", steps[0])
	keys := strs(m(t, steps[2], "restore_cache", "keys"))
	assert.Equal(t, `pip-v1-<< parameters.python-version >>-{{ checksum "requirements.txt" }}`, keys[0])
	assert.Equal(t, keys[0], m(t, steps[len(steps)-1], "save_cache", "key"), "caches are saved after the job's work")

	deploySteps := m(t, doc, "jobs", "deploy-docker", "steps").([]any)
	assert.Equal(t, "setup_remote_docker", deploySteps[1])

	var sawMatrix, sawFilter bool
	for _, entry := range m(t, doc, "workflows", "ci", "jobs").([]any) {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if j, ok := obj["test-python"]; ok {
			sawMatrix = true
			assert.Equal(t, []string{"3.10", "3.11", "3.12", "3.13"}, strs(m(t, j, "matrix", "parameters", "python-version")))
			assert.Equal(t, []string{"lint-python"}, strs(m(t, j, "requires")))
		}
		if j, ok := obj["deploy-docker"]; ok {
			sawFilter = true
			assert.Equal(t, []string{"main"}, strs(m(t, j, "filters", "branches", "only")))
		}
	}
	assert.True(t, sawMatrix)
	assert.True(t, sawFilter)
	assert.Equal(t, "0 3 * * 1", m(t, m(t, doc, "workflows", "scheduled", "triggers").([]any)[0], "schedule", "cron"))
}

func TestRender_UnknownPlatformPanics(t *testing.T) {
	assert.Panics(t, func() { render.Render(domain.Platform("jenkins"), pythonDockerSpec(t)) })
}

func TestGenerate_UsesPlatformPath(t *testing.T) {
	spec := pythonDockerSpec(t)
	a := domain.NewRepoAnalysis("/repo")
	for _, p := range domain.Platforms() {
		g := render.Generate(p, spec, a)
		assert.Equal(t, p.ConfigPath(), g.Path)
		assert.Equal(t, render.Render(p, spec), g.Content)
		assert.Same(t, a, g.Analysis)
	}
}

func nodeInSubdirSpec(t *testing.T) *domain.PipelineSpec {
	t.Helper()
	a := domain.NewRepoAnalysis("/repo")
	a.Languages = []domain.Technology{{Name: "javascript", Confidence: 0.8, Files: []string{"web/package.json"}}}
	a.TestTools = []domain.Technology{{Name: "jest", Confidence: 0.8, Files: []string{"web/package.json"}}}
	a.PackageManagers = []domain.Technology{{Name: "npm", Confidence: 0.8, Files: []string{"web/package-lock.json", "web/package.json"}}}
	a.PrimaryLanguage = "javascript"

	rt, err := rules.DefaultTable()
	require.NoError(t, err)
	spec, err := synthesis.Synthesize(a, rt, domain.DefaultSynthesisOptions())
	require.NoError(t, err)
	return spec
}

func TestRender_WorkingDirectory(t *testing.T) {
	spec := nodeInSubdirSpec(t)
	test, ok := spec.Job("test-node")
	require.True(t, ok)
	require.Equal(t, "web", test.WorkingDir)

	gh := parse(t, render.Render(domain.PlatformGitHub, spec))
	assert.Equal(t, "web", m(t, gh, "jobs", "test-node", "defaults", "run", "working-directory"))

	gl := parse(t, render.Render(domain.PlatformGitLab, spec))
	glTest := m(t, gl, "test-node")
	assert.Equal(t, "cd web", strs(m(t, glTest, "script"))[0])
	cache := m(t, glTest, "cache").([]any)[0]
	assert.Equal(t, []string{"web/package-lock.json"}, strs(m(t, cache, "key", "files")))
	assert.Equal(t, []string{".npm"}, strs(m(t, cache, "paths")), "env-pinned caches stay at the project root")

	cc := render.Render(domain.PlatformCircleCI, spec)
	assert.Contains(t, cc, `{{ checksum "web/package-lock.json" }}`)
	assert.Contains(t, cc, "working_directory: web")
}
