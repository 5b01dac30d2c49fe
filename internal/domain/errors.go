package domain

import "fmt"

// ScanError reports that the repository root could not be read. It aborts
// the whole operation; unreadable files below the root are warnings instead.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("cannot scan %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// UnsupportedStackError reports that an analysis has nothing a pipeline can
// be built around.
type UnsupportedStackError struct {
	Root string
}

func (e *UnsupportedStackError) Error() string {
	if e.Root == "" {
		return "unsupported stack: no language, framework or build tool detected"
	}
	return fmt.Sprintf("unsupported stack: no language, framework or build tool detected in %s", e.Root)
}

// WriteError reports that a generated pipeline could not be written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("cannot write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
