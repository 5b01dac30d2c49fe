package domain

import "context"

// ProjectScanner enumerates the files of a repository.
type ProjectScanner interface {
	Scan(ctx context.Context, projectPath string, opts ScanOptions) (*FileTree, error)
}

// ContentReader reads a file below a repository root, truncated to a cap.
type ContentReader interface {
	ReadFile(root, relPath string) ([]byte, error)
}

// ConfigLoader loads the project-level configuration.
type ConfigLoader interface {
	Load(projectPath string) (ProjectConfig, error)
}

// GitInfo exposes repository metadata used to shape pipeline triggers.
type GitInfo interface {
	DefaultBranch(projectPath string) (string, error)
	CommitHash(projectPath string) (string, error)
}

// PipelineWriter persists a generated pipeline under a directory and returns
// the written path.
type PipelineWriter interface {
	Write(dir string, p *GeneratedPipeline) (string, error)
}

// ScanOptions bounds a filesystem walk.
type ScanOptions struct {
	MaxDepth    int
	MaxFiles    int
	MaxFileSize int64
	Exclude     []string
}

// FileTree is the flat result of walking a repository.
type FileTree struct {
	Root      string      `json:"root"`
	Files     []FileEntry `json:"files"`
	Warnings  []string    `json:"warnings,omitempty"`
	Truncated bool        `json:"truncated,omitempty"`
}

// FileEntry is one regular file, addressed by its slash-separated path
// relative to the root.
type FileEntry struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}
