package gitinfo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

const originHEAD = plumbing.ReferenceName("refs/remotes/origin/HEAD")

// GitInfoAdapter implements domain.GitInfo using go-git.
type GitInfoAdapter struct{}

func New() *GitInfoAdapter {
	return &GitInfoAdapter{}
}

func open(projectPath string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(projectPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening git repo: %w", err)
	}
	return repo, nil
}

// DefaultBranch returns the branch origin/HEAD points at, falling back to
// the branch checked out locally. An unborn HEAD still names its branch.
func (g *GitInfoAdapter) DefaultBranch(projectPath string) (string, error) {
	repo, err := open(projectPath)
	if err != nil {
		return "", err
	}

	if ref, err := repo.Reference(originHEAD, false); err == nil && ref.Type() == plumbing.SymbolicReference {
		if b := strings.TrimPrefix(ref.Target().Short(), "origin/"); b != "" {
			return b, nil
		}
	}

	head, err := repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", fmt.Errorf("getting HEAD: %w", err)
	}
	switch {
	case head.Type() == plumbing.SymbolicReference && head.Target().IsBranch():
		return head.Target().Short(), nil
	case head.Type() == plumbing.HashReference:
		return "", errors.New("HEAD is detached")
	}
	return "", fmt.Errorf("HEAD points at %s, not a branch", head.Target())
}

// CommitHash returns the full hash of the checked-out commit.
func (g *GitInfoAdapter) CommitHash(projectPath string) (string, error) {
	repo, err := open(projectPath)
	if err != nil {
		return "", err
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("getting HEAD: %w", err)
	}

	return head.Hash().String(), nil
}
