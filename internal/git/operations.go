package git

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Operations defines the git commands the builder runs.
// This allows mocking git in tests.
type Operations interface {
	// Clone makes a shallow clone of url at tag into dest.
	// dest must not exist or be empty.
	Clone(ctx context.Context, url, tag, dest string) error

	// HeadCommit returns the full hash of HEAD in repoPath.
	HeadCommit(ctx context.Context, repoPath string) (string, error)
}

// gitOps is the real implementation using exec.CommandContext.
type gitOps struct {
	binary string
}

// NewOperations returns the default git operations implementation.
func NewOperations() Operations {
	return &gitOps{binary: "git"}
}

// RepoURL returns the HTTPS clone URL for an "owner/name" GitHub slug.
func RepoURL(slug string) string {
	return "https://github.com/" + slug + ".git"
}

func (g *gitOps) Clone(ctx context.Context, url, tag, dest string) error {
	cmd := exec.CommandContext(ctx, g.binary, "clone", "--depth", "1", "--branch", tag, url, dest)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git clone %s@%s: %w: %s", url, tag, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func (g *gitOps) HeadCommit(ctx context.Context, repoPath string) (string, error) {
	cmd := exec.CommandContext(ctx, g.binary, "rev-parse", "HEAD")
	cmd.Dir = repoPath
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse HEAD: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}
