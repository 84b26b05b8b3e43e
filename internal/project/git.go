package project

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// GitInfo holds current git state.
type GitInfo struct {
	Branch  string
	Commit  string
	IsDirty bool
}

// CollectGitInfo gathers branch and commit information for the repository
// containing dir. An empty dir means the current directory.
func CollectGitInfo(ctx context.Context, dir string) (*GitInfo, error) {
	branch, err := gitOutput(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("getting git branch: %w", err)
	}

	commit, err := gitOutput(ctx, dir, "rev-parse", "--short", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("getting git commit: %w", err)
	}

	dirty, err := isDirty(ctx, dir)
	if err != nil {
		return nil, err
	}

	return &GitInfo{
		Branch:  branch,
		Commit:  commit,
		IsDirty: dirty,
	}, nil
}

// IsRepo reports whether dir is inside a git work tree.
func IsRepo(ctx context.Context, dir string) bool {
	out, err := gitOutput(ctx, dir, "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

func isDirty(ctx context.Context, dir string) (bool, error) {
	out, err := gitOutput(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("checking git status: %w", err)
	}
	return strings.TrimSpace(out) != "", nil
}

func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
