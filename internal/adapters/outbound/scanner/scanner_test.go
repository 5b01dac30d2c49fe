package scanner_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoci/autoci/internal/adapters/outbound/scanner"
	"github.com/autoci/autoci/internal/domain"
)

const fixtureDir = "../../../../testdata/repos/python"

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func paths(tree *domain.FileTree) []string {
	var out []string
	for _, f := range tree.Files {
		out = append(out, f.Path)
	}
	return out
}

func defaultOpts() domain.ScanOptions {
	return domain.DefaultConfig().ScanOptions()
}

func TestFileScanner_ScanFixture(t *testing.T) {
	tree, err := scanner.New().Scan(context.Background(), fixtureDir, defaultOpts())
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(tree.Root))
	assert.Contains(t, paths(tree), "requirements.txt")
	assert.False(t, tree.Truncated)
}

func TestFileScanner_SortedSlashPathsWithSizes(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"b.txt":       "bb",
		"a/z.py":      "print()",
		"a.txt":       "a",
		"a/b/deep.go": "package b",
	})

	tree, err := scanner.New().Scan(context.Background(), root, defaultOpts())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "a/b/deep.go", "a/z.py", "b.txt"}, paths(tree))
	assert.Equal(t, int64(2), tree.Files[3].Size)
}

func TestFileScanner_SkipsDependencyAndVCSDirs(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"package.json":                "{}",
		"node_modules/x/package.json": "{}",
		".git/config":                 "",
		"vendor/lib/lib.go":           "package lib",
		".venv/bin/python":            "",
		"src/app.js":                  "",
	})

	tree, err := scanner.New().Scan(context.Background(), root, defaultOpts())
	require.NoError(t, err)
	assert.Equal(t, []string{"package.json", "src/app.js"}, paths(tree))
}

func TestFileScanner_ExcludePatterns(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"keep/main.go":       "",
		"generated/api.go":   "",
		"docs/site/index.md": "",
		"src/big.snapshot":   "",
		"src/nested/x.pb.go": "",
		"src/nested/keep.go": "",
	})
	opts := defaultOpts()
	opts.Exclude = []string{"generated/", "docs/**", "*.snapshot", "src/**/*.pb.go"}

	tree, err := scanner.New().Scan(context.Background(), root, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep/main.go", "src/nested/keep.go"}, paths(tree))
}

func TestFileScanner_RespectsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		".gitignore":      "build/\n*.log\n# comment\n",
		"build/out.bin":   "",
		"debug.log":       "",
		"app/.gitignore":  "local.cfg\n",
		"app/local.cfg":   "",
		"app/main.py":     "",
		"other/local.cfg": "",
	})

	tree, err := scanner.New().Scan(context.Background(), root, defaultOpts())
	require.NoError(t, err)
	assert.Equal(t, []string{".gitignore", "app/.gitignore", "app/main.py", "other/local.cfg"}, paths(tree))
}

func TestFileScanner_MaxDepth(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"top.txt":     "",
		"a/one.txt":   "",
		"a/b/two.txt": "",
	})
	opts := defaultOpts()
	opts.MaxDepth = 1

	tree, err := scanner.New().Scan(context.Background(), root, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/one.txt", "top.txt"}, paths(tree))
}

func TestFileScanner_MaxFilesTruncates(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"1": "", "2": "", "3": ""})
	opts := defaultOpts()

	opts.MaxFiles = 3
	tree, err := scanner.New().Scan(context.Background(), root, opts)
	require.NoError(t, err)
	assert.False(t, tree.Truncated, "reaching the cap exactly is not truncation")

	opts.MaxFiles = 2
	tree, err = scanner.New().Scan(context.Background(), root, opts)
	require.NoError(t, err)
	assert.True(t, tree.Truncated)
	assert.Len(t, tree.Files, 2)
}

func TestFileScanner_SymlinkCycleTerminates(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a/file.txt": ""})
	require.NoError(t, os.Symlink(filepath.Join(root, "a"), filepath.Join(root, "a", "loop")))
	require.NoError(t, os.Symlink(filepath.Join(root, "a", "file.txt"), filepath.Join(root, "link.txt")))

	tree, err := scanner.New().Scan(context.Background(), root, defaultOpts())
	require.NoError(t, err)
	assert.Equal(t, []string{"a/file.txt", "link.txt"}, paths(tree))
}

func TestFileScanner_RootErrors(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"file.txt": ""})

	for _, p := range []string{filepath.Join(root, "missing"), filepath.Join(root, "file.txt")} {
		_, err := scanner.New().Scan(context.Background(), p, defaultOpts())
		var scanErr *domain.ScanError
		require.True(t, errors.As(err, &scanErr), p)
		assert.True(t, strings.HasSuffix(scanErr.Path, filepath.Base(p)))
	}
}

func TestFileScanner_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.txt": ""})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := scanner.New().Scan(ctx, root, defaultOpts())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReader_CapsContent(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"dir/big.txt": strings.Repeat("x", 100)})

	data, err := scanner.NewReader(10).ReadFile(root, "dir/big.txt")
	require.NoError(t, err)
	assert.Len(t, data, 10)

	_, err = scanner.NewReader(0).ReadFile(root, "missing.txt")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
