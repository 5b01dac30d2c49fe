package detection_test

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoci/autoci/internal/domain"
	"github.com/autoci/autoci/internal/domain/detection"
)

// memRepo is an in-memory repository: relative path to content. A nil
// content makes reads fail.
type memRepo map[string][]byte

func (m memRepo) ReadFile(_, rel string) ([]byte, error) {
	data, ok := m[rel]
	if !ok || data == nil {
		return nil, errors.New("permission denied")
	}
	return data, nil
}

func (m memRepo) tree() *domain.FileTree {
	t := &domain.FileTree{Root: "/repo"}
	for p, data := range m {
		t.Files = append(t.Files, domain.FileEntry{Path: p, Size: int64(len(data))})
	}
	sort.Slice(t.Files, func(i, j int) bool { return t.Files[i].Path < t.Files[j].Path })
	return t
}

func analyze(t *testing.T, repo memRepo) *domain.RepoAnalysis {
	t.Helper()
	table, err := detection.DefaultTable()
	require.NoError(t, err)
	a, err := detection.NewEngine(table, repo, 4).Analyze(context.Background(), repo.tree())
	require.NoError(t, err)
	return a
}

func TestEngine_EmptyRepository(t *testing.T) {
	a := analyze(t, memRepo{})
	assert.Equal(t, domain.UnknownLanguage, a.PrimaryLanguage)
	assert.False(t, a.HasPrimaryLanguage())
	assert.Empty(t, a.Languages)
	assert.NotNil(t, a.Frameworks)
}

func TestEngine_CorroborationIncreasesConfidence(t *testing.T) {
	reqOnly := analyze(t, memRepo{"requirements.txt": []byte("requests\n")})
	pyOnly := analyze(t, memRepo{"main.py": []byte("print(1)\n")})
	both := analyze(t, memRepo{
		"requirements.txt": []byte("requests\n"),
		"main.py":          []byte("print(1)\n"),
	})

	c := both.Confidence(domain.CategoryLanguage, "python")
	assert.GreaterOrEqual(t, c, reqOnly.Confidence(domain.CategoryLanguage, "python"))
	assert.GreaterOrEqual(t, c, pyOnly.Confidence(domain.CategoryLanguage, "python"))
	assert.Greater(t, c, reqOnly.Confidence(domain.CategoryLanguage, "python"))
	assert.Equal(t, "python", both.PrimaryLanguage)
}

func TestEngine_TwoLanguagesIndependent(t *testing.T) {
	a := analyze(t, memRepo{
		"package.json":     []byte(`{"name":"x"}`),
		"requirements.txt": []byte("flask\n"),
	})

	names := []string{}
	for _, l := range a.Languages {
		names = append(names, l.Name)
	}
	assert.ElementsMatch(t, []string{"javascript", "python"}, names)
	assert.Equal(t, a.Languages[0].Name, a.PrimaryLanguage)
	assert.Contains(t, frameworkNames(a), "flask")
}

func TestEngine_ConfidenceWithinBounds(t *testing.T) {
	repo := memRepo{"go.mod": []byte("module x\n\ngo 1.22\n")}
	for _, name := range []string{"a.go", "b.go", "c.go", "d.go", "e.go", "f.go", "g.go", "h_test.go"} {
		repo["pkg/"+name] = []byte("package pkg\n")
	}
	a := analyze(t, repo)

	for _, c := range domain.Categories {
		for _, tech := range a.In(c) {
			assert.GreaterOrEqual(t, tech.Confidence, 0.0, tech.Name)
			assert.LessOrEqual(t, tech.Confidence, 1.0, tech.Name)
			assert.LessOrEqual(t, len(tech.Files), detection.MaxTechnologyFiles, tech.Name)
		}
	}
	goLang, ok := a.Lookup(domain.CategoryLanguage, "go")
	require.True(t, ok)
	assert.Equal(t, 1.0, goLang.Confidence)
	assert.Equal(t, "1.22", goLang.Version)
	assert.Equal(t, "go.mod", goLang.Files[0], "heaviest evidence first")
	assert.True(t, a.Confidence(domain.CategoryTestTool, "go-test") > 0)
	assert.True(t, a.Confidence(domain.CategoryPackageManager, "go-modules") > 0)
}

func TestEngine_DeterministicAcrossRuns(t *testing.T) {
	repo := memRepo{
		"package.json":     []byte(`{"dependencies":{"react":"^18"},"devDependencies":{"jest":"^29"}}`),
		"src/index.ts":     []byte("export {}\n"),
		"requirements.txt": []byte("pytest\n"),
		"app/main.py":      []byte("import os\n"),
		"Dockerfile":       []byte("FROM alpine\n"),
	}
	first := analyze(t, repo)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, analyze(t, repo))
	}
}

func TestEngine_ContentMatchers(t *testing.T) {
	a := analyze(t, memRepo{
		"pyproject.toml":  []byte("[tool.poetry]\nname = \"x\"\n\n[tool.pytest.ini_options]\naddopts = \"-q\"\n"),
		"poetry.lock":     []byte("# lock\n"),
		"deploy/app.yaml": []byte("apiVersion: apps/v1\nkind: Deployment\n---\napiVersion: v1\nkind: Service\n"),
		"composer.json":   []byte(`{"require":{"php":">=8.2","laravel/framework":"^11"}}`),
	})

	assert.True(t, a.Confidence(domain.CategoryTestTool, "pytest") >= 0.6, "toml key path")
	assert.True(t, a.Confidence(domain.CategoryPackageManager, "poetry") >= 0.8)
	assert.True(t, a.Confidence(domain.CategoryContainer, "kubernetes") > 0, "yaml keys")
	assert.True(t, a.Confidence(domain.CategoryFramework, "laravel") > 0, "json path")
	php, ok := a.Lookup(domain.CategoryLanguage, "php")
	require.True(t, ok)
	assert.Equal(t, "8.2", php.Version)
}

func TestEngine_UnreadableFileIsWarning(t *testing.T) {
	a := analyze(t, memRepo{
		"package.json": nil,
		"index.js":     []byte("module.exports = {}\n"),
	})

	require.Len(t, a.Warnings, 1)
	assert.Contains(t, a.Warnings[0], "package.json")
	assert.True(t, a.Confidence(domain.CategoryLanguage, "javascript") > 0, "filename signal survives read failure")
	assert.Empty(t, a.Frameworks)
}

func TestEngine_Cancelled(t *testing.T) {
	table, err := detection.DefaultTable()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := memRepo{"main.go": []byte("package main\n")}
	_, err = detection.NewEngine(table, repo, 1).Analyze(ctx, repo.tree())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_TruncatedTreeWarns(t *testing.T) {
	table, err := detection.DefaultTable()
	require.NoError(t, err)
	repo := memRepo{"main.go": []byte("package main\n")}
	tree := repo.tree()
	tree.Truncated = true

	a, err := detection.NewEngine(table, repo, 0).Analyze(context.Background(), tree)
	require.NoError(t, err)
	require.Len(t, a.Warnings, 1)
	assert.Contains(t, a.Warnings[0], "incomplete")
}

func frameworkNames(a *domain.RepoAnalysis) []string {
	var out []string
	for _, f := range a.Frameworks {
		out = append(out, f.Name)
	}
	return out
}
