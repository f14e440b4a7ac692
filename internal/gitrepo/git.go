// Package gitrepo wraps the git operations the publication pipeline needs on
// the display repository's local working copy.
package gitrepo

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Git is the operation surface the pipeline depends on. Tests substitute a
// fake; the real implementation shells out to the git CLI.
type Git interface {
	CurrentBranch(ctx context.Context) (string, error)
	Checkout(ctx context.Context, branch string) error
	StashPush(ctx context.Context, message string) (created bool, err error)
	StashPop(ctx context.Context) error
	TopStash(ctx context.Context) (string, error)
	Add(ctx context.Context, paths ...string) error
	HasStagedChanges(ctx context.Context) (bool, error)
	Commit(ctx context.Context, message string) error
	Push(ctx context.Context, branch string) error
	RemoteURL(ctx context.Context) (string, error)
	SetRemoteURL(ctx context.Context, url string) error
}

// CLI runs git against a working copy.
type CLI struct {
	workDir string
	remote  string
}

// NewCLI returns a Git implementation over the working copy at workDir.
func NewCLI(workDir string) *CLI {
	return &CLI{workDir: workDir, remote: "origin"}
}

func (g *CLI) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// CurrentBranch returns the branch the working copy is on.
func (g *CLI) CurrentBranch(ctx context.Context) (string, error) {
	return g.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

// Checkout switches the working copy to branch.
func (g *CLI) Checkout(ctx context.Context, branch string) error {
	_, err := g.run(ctx, "checkout", branch)
	return err
}

// StashPush stashes uncommitted modifications, including untracked files,
// under a message so an auto-stash is distinguishable from a user's. On a
// clean tree `git stash push` is a no-op that still exits 0; the returned
// flag reports whether an entry was actually created, detected by comparing
// refs/stash around the push.
func (g *CLI) StashPush(ctx context.Context, message string) (bool, error) {
	before, err := g.stashRef(ctx)
	if err != nil {
		return false, err
	}
	if _, err := g.run(ctx, "stash", "push", "--include-untracked", "-m", message); err != nil {
		return false, err
	}
	after, err := g.stashRef(ctx)
	if err != nil {
		return false, err
	}
	return after != before, nil
}

// StashPop restores the most recent stash.
func (g *CLI) StashPop(ctx context.Context) error {
	_, err := g.run(ctx, "stash", "pop")
	return err
}

// TopStash returns the description of stash@{0}, or empty when the stash
// stack is empty.
func (g *CLI) TopStash(ctx context.Context) (string, error) {
	return g.run(ctx, "stash", "list", "-n", "1", "--format=%gs")
}

// stashRef resolves refs/stash, empty when no stash exists. rev-parse exits
// 1 for a missing ref, which is not a fault here.
func (g *CLI) stashRef(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "-q", "--verify", "refs/stash")
	cmd.Dir = g.workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return strings.TrimSpace(stdout.String()), nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
		return "", nil
	}
	return "", fmt.Errorf("git rev-parse refs/stash: %w: %s", err, strings.TrimSpace(stderr.String()))
}

// Add stages the given paths.
func (g *CLI) Add(ctx context.Context, paths ...string) error {
	_, err := g.run(ctx, append([]string{"add", "--"}, paths...)...)
	return err
}

// HasStagedChanges inspects the staged diff specifically, not merely any
// local change.
func (g *CLI) HasStagedChanges(ctx context.Context) (bool, error) {
	cmd := exec.CommandContext(ctx, "git", "diff", "--cached", "--quiet")
	cmd.Dir = g.workDir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return false, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
		return true, nil
	}
	return false, fmt.Errorf("git diff --cached: %w: %s", err, strings.TrimSpace(stderr.String()))
}

// Commit records the staged changes.
func (g *CLI) Commit(ctx context.Context, message string) error {
	_, err := g.run(ctx, "commit", "-m", message)
	return err
}

// Push pushes branch to the remote.
func (g *CLI) Push(ctx context.Context, branch string) error {
	_, err := g.run(ctx, "push", g.remote, branch)
	return err
}

// RemoteURL returns the remote's configured URL.
func (g *CLI) RemoteURL(ctx context.Context) (string, error) {
	return g.run(ctx, "remote", "get-url", g.remote)
}

// SetRemoteURL rewrites the remote's URL.
func (g *CLI) SetRemoteURL(ctx context.Context, url string) error {
	_, err := g.run(ctx, "remote", "set-url", g.remote, url)
	return err
}
