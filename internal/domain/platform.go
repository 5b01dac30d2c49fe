package domain

import (
	"fmt"
	"strings"
)

// Platform is the closed set of CI targets a pipeline can be rendered for.
type Platform string

const (
	PlatformGitHub   Platform = "github"
	PlatformGitLab   Platform = "gitlab"
	PlatformCircleCI Platform = "circleci"
)

// Platforms lists every supported platform.
func Platforms() []Platform {
	return []Platform{PlatformGitHub, PlatformGitLab, PlatformCircleCI}
}

// ParsePlatform maps a user-supplied tag onto a Platform.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "github", "github-actions", "gha":
		return PlatformGitHub, nil
	case "gitlab", "gitlab-ci":
		return PlatformGitLab, nil
	case "circleci", "circle":
		return PlatformCircleCI, nil
	}
	return "", fmt.Errorf("unsupported CI platform %q (valid: github, gitlab, circleci)", s)
}

// ConfigPath is the conventional location of the platform's pipeline file,
// relative to the repository root.
func (p Platform) ConfigPath() string {
	switch p {
	case PlatformGitHub:
		return ".github/workflows/ci.yml"
	case PlatformGitLab:
		return ".gitlab-ci.yml"
	case PlatformCircleCI:
		return ".circleci/config.yml"
	}
	return ""
}

// DisplayName is the human-readable platform name.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformGitHub:
		return "GitHub Actions"
	case PlatformGitLab:
		return "GitLab CI"
	case PlatformCircleCI:
		return "CircleCI"
	}
	return string(p)
}
