package scanner

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/autoci/autoci/internal/domain"
	"github.com/autoci/autoci/internal/platform/logger"
)

// skipDirs are never descended into: VCS metadata, dependency trees and
// build output carry no signal about the project itself.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	".tox":         true,
	"dist":         true,
	"target":       true,
	".idea":        true,
	".gradle":      true,
	".terraform":   true,
}

const gitignoreFile = ".gitignore"

// FileScanner implements domain.ProjectScanner by walking the filesystem.
type FileScanner struct {
	log *logger.Logger
}

// New creates a FileScanner.
func New() *FileScanner {
	return &FileScanner{log: logger.Named("scanner")}
}

// walk is the state of one Scan call.
type walk struct {
	ctx     context.Context
	root    string
	opts    domain.ScanOptions
	exclude []string
	visited map[string]bool
	tree    *domain.FileTree
	done    bool
}

// Scan walks projectPath and returns every regular file below it. Only a
// root that cannot be read is an error; problems below it become warnings.
func (s *FileScanner) Scan(ctx context.Context, projectPath string, opts domain.ScanOptions) (*domain.FileTree, error) {
	absPath, err := filepath.Abs(projectPath)
	if err != nil {
		return nil, &domain.ScanError{Path: projectPath, Err: err}
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, &domain.ScanError{Path: absPath, Err: err}
	}
	if !info.IsDir() {
		return nil, &domain.ScanError{Path: absPath, Err: fmt.Errorf("not a directory")}
	}
	realRoot, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return nil, &domain.ScanError{Path: absPath, Err: err}
	}
	if _, err := os.ReadDir(absPath); err != nil {
		return nil, &domain.ScanError{Path: absPath, Err: err}
	}

	w := &walk{
		ctx:     ctx,
		root:    absPath,
		opts:    opts,
		exclude: normalizeExcludes(opts.Exclude),
		visited: map[string]bool{realRoot: true},
		tree:    &domain.FileTree{Root: absPath, Files: []domain.FileEntry{}},
	}
	if err := w.dir("", 0, nil); err != nil {
		return nil, err
	}

	sort.Slice(w.tree.Files, func(i, j int) bool { return w.tree.Files[i].Path < w.tree.Files[j].Path })
	s.log.Debug().
		Str("root", absPath).
		Int("files", len(w.tree.Files)).
		Int("warnings", len(w.tree.Warnings)).
		Bool("truncated", w.tree.Truncated).
		Msg("scan complete")
	return w.tree, nil
}

// dir lists one directory. rel is slash-separated and empty for the root.
func (w *walk) dir(rel string, depth int, ignores []gitignore.Pattern) error {
	abs := filepath.Join(w.root, filepath.FromSlash(rel))
	entries, err := os.ReadDir(abs)
	if err != nil {
		w.warn(rel, err)
		return nil
	}
	ignores = append(ignores[:len(ignores):len(ignores)], readGitignore(abs, split(rel))...)
	matcher := gitignore.NewMatcher(ignores)

	for _, e := range entries {
		if err := w.ctx.Err(); err != nil {
			return err
		}
		if w.done {
			return nil
		}

		name := e.Name()
		child := name
		if rel != "" {
			child = rel + "/" + name
		}

		isDir, size, ok := w.resolve(child, e)
		if !ok {
			continue
		}
		if matcher.Match(split(child), isDir) || w.excluded(child) {
			continue
		}

		if isDir {
			if skipDirs[name] || (w.opts.MaxDepth > 0 && depth+1 > w.opts.MaxDepth) {
				continue
			}
			if !w.enter(child) {
				continue
			}
			if err := w.dir(child, depth+1, ignores); err != nil {
				return err
			}
			continue
		}

		if w.opts.MaxFiles > 0 && len(w.tree.Files) >= w.opts.MaxFiles {
			w.tree.Truncated = true
			w.done = true
			return nil
		}
		w.tree.Files = append(w.tree.Files, domain.FileEntry{Path: child, Size: size})
	}
	return nil
}

// resolve follows symlinks and reports whether the entry is a directory and
// its size. Entries that are neither regular files nor directories, and
// dangling links, are skipped.
func (w *walk) resolve(rel string, e fs.DirEntry) (isDir bool, size int64, ok bool) {
	var info fs.FileInfo
	var err error
	if e.Type()&fs.ModeSymlink != 0 {
		info, err = os.Stat(filepath.Join(w.root, filepath.FromSlash(rel)))
	} else {
		info, err = e.Info()
	}
	if err != nil {
		w.warn(rel, err)
		return false, 0, false
	}
	switch {
	case info.IsDir():
		return true, 0, true
	case info.Mode().IsRegular():
		return false, info.Size(), true
	}
	return false, 0, false
}

// enter records a directory's real path and reports whether it is new, so
// symlink cycles end after one visit.
func (w *walk) enter(rel string) bool {
	realPath, err := filepath.EvalSymlinks(filepath.Join(w.root, filepath.FromSlash(rel)))
	if err != nil {
		w.warn(rel, err)
		return false
	}
	if w.visited[realPath] {
		return false
	}
	w.visited[realPath] = true
	return true
}

func (w *walk) excluded(rel string) bool {
	base := path.Base(rel)
	for _, p := range w.exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if !strings.Contains(p, "/") {
			if ok, _ := doublestar.Match(p, base); ok {
				return true
			}
		}
	}
	return false
}

func (w *walk) warn(rel string, err error) {
	if rel == "" {
		rel = "."
	}
	w.tree.Warnings = append(w.tree.Warnings, fmt.Sprintf("skipped %s: %v", rel, err))
}

func normalizeExcludes(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.Trim(filepath.ToSlash(strings.TrimSpace(p)), "/")
		p = strings.TrimPrefix(p, "./")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// readGitignore parses the .gitignore of dir, scoping its patterns to the
// directory's path components.
func readGitignore(dir string, domainPath []string) []gitignore.Pattern {
	data, err := os.ReadFile(filepath.Join(dir, gitignoreFile))
	if err != nil {
		return nil
	}
	var ps []gitignore.Pattern
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ps = append(ps, gitignore.ParsePattern(line, domainPath))
	}
	return ps
}

func split(rel string) []string {
	if rel == "" {
		return nil
	}
	return strings.Split(rel, "/")
}
