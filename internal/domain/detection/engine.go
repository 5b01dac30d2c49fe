package detection

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/autoci/autoci/internal/domain"
)

// Engine matches a file tree against a signature table.
type Engine struct {
	table   *Table
	reader  domain.ContentReader
	workers int
}

// NewEngine returns an engine using at most workers goroutines; zero or
// less means GOMAXPROCS.
func NewEngine(table *Table, reader domain.ContentReader, workers int) *Engine {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{table: table, reader: reader, workers: workers}
}

// fileResult is the private output slot of one matched file.
type fileResult struct {
	evidence []domain.Evidence
	warning  string
}

// Analyze produces the RepoAnalysis for tree. Unreadable files become
// warnings. It returns ctx.Err() if cancelled before every file was matched.
func (e *Engine) Analyze(ctx context.Context, tree *domain.FileTree) (*domain.RepoAnalysis, error) {
	slots := make([]fileResult, len(tree.Files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, f := range tree.Files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = e.matchFile(tree.Root, f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ev []domain.Evidence
	warnings := append([]string(nil), tree.Warnings...)
	for _, s := range slots {
		ev = append(ev, s.evidence...)
		if s.warning != "" {
			warnings = append(warnings, s.warning)
		}
	}

	a := Aggregate(tree.Root, ev, e.table)
	if tree.Truncated {
		warnings = append(warnings, fmt.Sprintf("scan stopped after %d files; results may be incomplete", len(tree.Files)))
	}
	a.Warnings = warnings
	return a, nil
}

func (e *Engine) matchFile(root string, f domain.FileEntry) fileResult {
	var res fileResult
	var content *fileContent
	readFailed := false

	for i := range e.table.Signatures {
		s := &e.table.Signatures[i]
		if !s.MatchPath(f.Path) {
			continue
		}
		ev := domain.Evidence{
			Technology: s.Technology,
			Category:   s.Category,
			Source:     f.Path,
			Signature:  i,
			Weight:     s.Weight,
		}
		if s.NeedsContent() {
			if content == nil && !readFailed {
				data, err := e.reader.ReadFile(root, f.Path)
				if err != nil {
					readFailed = true
					res.warning = fmt.Sprintf("skipped %s: %v", f.Path, err)
				} else {
					content = &fileContent{data: data}
				}
			}
			switch {
			case readFailed && s.gatesOnContent():
				continue
			case readFailed:
			case !s.matchContent(content):
				continue
			default:
				ev.Version = s.extractVersion(content)
			}
		}
		res.evidence = append(res.evidence, ev)
	}
	return res
}
