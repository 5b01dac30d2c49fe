package scanner

import (
	"io"
	"os"
	"path/filepath"

	"github.com/autoci/autoci/internal/domain"
)

// Reader implements domain.ContentReader. Reads are truncated to MaxSize
// bytes so a stray large file cannot exhaust memory.
type Reader struct {
	MaxSize int64
}

// NewReader creates a Reader capped at maxSize bytes; zero or less means
// domain.DefaultMaxFileSize.
func NewReader(maxSize int64) *Reader {
	if maxSize <= 0 {
		maxSize = domain.DefaultMaxFileSize
	}
	return &Reader{MaxSize: maxSize}
}

// ReadFile reads relPath, a slash-separated path below root.
func (r *Reader) ReadFile(root, relPath string) ([]byte, error) {
	f, err := os.Open(filepath.Join(root, filepath.FromSlash(relPath)))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, r.MaxSize))
}
