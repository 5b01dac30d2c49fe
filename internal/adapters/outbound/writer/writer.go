package writer

import (
	"os"
	"path/filepath"

	"github.com/autoci/autoci/internal/domain"
)

// FileWriter implements domain.PipelineWriter on the local filesystem.
type FileWriter struct{}

// New creates a FileWriter.
func New() *FileWriter { return &FileWriter{} }

// Write stores p at its conventional path below dir, creating parent
// directories. An existing file is replaced.
func (w *FileWriter) Write(dir string, p *domain.GeneratedPipeline) (string, error) {
	target := filepath.Join(dir, filepath.FromSlash(p.Path))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", &domain.WriteError{Path: target, Err: err}
	}
	if err := os.WriteFile(target, []byte(p.Content), 0o644); err != nil {
		return "", &domain.WriteError{Path: target, Err: err}
	}
	return target, nil
}
