// Package publish pushes a normalized permit to the display repository. The
// working copy is shared with a human editor, so every mutation is bracketed:
// tagged auto-stash before switching branches, remote URL restored after a
// credentialed push, original branch restored on the way out.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/VisTechProjects/Toronto-Parking-Pass-Buyer/internal/gitrepo"
	"github.com/VisTechProjects/Toronto-Parking-Pass-Buyer/internal/ledger"
	"github.com/VisTechProjects/Toronto-Parking-Pass-Buyer/internal/permit"
)

const autoStashMessage = "permit-publish-autostash"

// writeAttempts bounds the retry loop for transiently locked record files.
const writeAttempts = 3

// Result tells the caller whether the permit made it to the remote and
// whether a conflict (rather than an infrastructure fault) blocked it.
type Result struct {
	Pushed   bool
	Conflict bool
	Err      error
}

// Options configures a publication pipeline.
type Options struct {
	RepoPath     string
	Branch       string
	RecordFile   string
	LedgerFile   string
	Token        string        // push credential, spliced into the remote URL for the push only
	WriteBackoff time.Duration // spacing between locked-file write attempts
}

// Pipeline publishes permits through a git working copy.
type Pipeline struct {
	git  gitrepo.Git
	opts Options
	log  *slog.Logger
}

// New creates a publication pipeline over the given git surface.
func New(git gitrepo.Git, opts Options, log *slog.Logger) *Pipeline {
	if opts.WriteBackoff <= 0 {
		opts.WriteBackoff = time.Second
	}
	return &Pipeline{git: git, opts: opts, log: log}
}

// Publish writes rec and the updated ledger on the target branch, commits and
// pushes. It is safe to retry: a record identical to what is already published
// produces an empty staged diff and no commit. Branch and stash state are
// restored best-effort regardless of outcome.
func (p *Pipeline) Publish(ctx context.Context, rec permit.Normalized) Result {
	originalBranch, err := p.git.CurrentBranch(ctx)
	if err != nil {
		return Result{Err: fmt.Errorf("resolve current branch: %w", err)}
	}

	switched := false
	stashed := false
	if originalBranch != p.opts.Branch {
		// The human editor may have uncommitted work on the original branch.
		// On a clean tree the push creates nothing, and nothing may be popped
		// later: the stack could hold the editor's own parked stash.
		created, err := p.git.StashPush(ctx, autoStashMessage)
		if err != nil {
			return Result{Err: fmt.Errorf("stash local modifications: %w", err)}
		}
		stashed = created

		if err := p.git.Checkout(ctx, p.opts.Branch); err != nil {
			// Nothing was written yet; put the stash back and abort.
			if stashed {
				p.popAutoStash(ctx)
			}
			return Result{Err: fmt.Errorf("switch to branch %s: %w", p.opts.Branch, err)}
		}
		switched = true
	}

	result := p.publishOnBranch(ctx, rec)

	if switched {
		// Restoration is best-effort: the publish outcome is already decided.
		if err := p.git.Checkout(ctx, originalBranch); err != nil {
			p.log.Error("failed to switch back to original branch", "branch", originalBranch, "error", err)
		} else if stashed {
			p.popAutoStash(ctx)
		}
	}

	return result
}

// popAutoStash restores the auto-stash created earlier in this run. The pop
// only consumes an entry carrying the auto-stash tag; anything else on top of
// the stack belongs to the human editor and stays put.
func (p *Pipeline) popAutoStash(ctx context.Context) {
	top, err := p.git.TopStash(ctx)
	if err != nil {
		p.log.Error("cannot inspect stash stack", "error", err)
		return
	}
	if !strings.Contains(top, autoStashMessage) {
		p.log.Error("top stash entry is not the auto-stash, leaving it in place", "entry", top)
		return
	}
	if err := p.git.StashPop(ctx); err != nil {
		p.log.Error("failed to restore auto-stash", "error", err)
	}
}

// publishOnBranch runs steps 3-5 of the protocol with the target branch
// checked out.
func (p *Pipeline) publishOnBranch(ctx context.Context, rec permit.Normalized) Result {
	recordPath := filepath.Join(p.opts.RepoPath, p.opts.RecordFile)
	ledgerPath := filepath.Join(p.opts.RepoPath, p.opts.LedgerFile)

	if err := p.writeWithRetry(ctx, "record", func() error {
		return writeRecordFile(recordPath, rec)
	}); err != nil {
		return Result{Err: fmt.Errorf("write record file: %w", err)}
	}

	if err := p.writeWithRetry(ctx, "ledger", func() error {
		hist, err := ledger.Load(ledgerPath)
		if err != nil {
			return err
		}
		added, total, err := hist.Append(rec)
		if err != nil {
			return err
		}
		p.log.Info("ledger updated", "added", added, "total", total)
		return nil
	}); err != nil {
		return Result{Err: fmt.Errorf("update ledger: %w", err)}
	}

	if err := p.git.Add(ctx, p.opts.RecordFile, p.opts.LedgerFile); err != nil {
		return Result{Err: fmt.Errorf("stage permit files: %w", err)}
	}

	staged, err := p.git.HasStagedChanges(ctx)
	if err != nil {
		return Result{Err: fmt.Errorf("inspect staged diff: %w", err)}
	}
	if !staged {
		// Retried run after a successful-but-unconfirmed attempt: the remote
		// already has this permit. Success, no commit.
		p.log.Info("staged diff empty, nothing to publish", "permit", rec.PermitNumber)
		return Result{Pushed: true}
	}

	message := fmt.Sprintf("Update permit to %s", rec.PermitNumber)
	if err := p.git.Commit(ctx, message); err != nil {
		return Result{Err: fmt.Errorf("commit permit: %w", err)}
	}

	if err := p.pushWithToken(ctx); err != nil {
		return Result{Conflict: isConflict(err), Err: fmt.Errorf("push permit: %w", err)}
	}

	p.log.Info("permit published", "permit", rec.PermitNumber, "branch", p.opts.Branch)
	return Result{Pushed: true}
}

// writeWithRetry retries fn on failure with fixed backoff: the working copy's
// files are transiently locked when the display host syncs.
func (p *Pipeline) writeWithRetry(ctx context.Context, what string, fn func() error) error {
	backoff := retry.WithMaxRetries(writeAttempts-1, retry.NewConstant(p.opts.WriteBackoff))
	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := fn(); err != nil {
			p.log.Warn("write failed, will retry", "target", what, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}

// pushWithToken embeds the credential in the remote URL for the duration of
// the push and restores the original URL unconditionally: credentials must
// never be left in the persisted remote configuration.
func (p *Pipeline) pushWithToken(ctx context.Context) error {
	if p.opts.Token == "" {
		return p.git.Push(ctx, p.opts.Branch)
	}

	originalURL, err := p.git.RemoteURL(ctx)
	if err != nil {
		return fmt.Errorf("read remote URL: %w", err)
	}

	authURL, err := spliceToken(originalURL, p.opts.Token)
	if err != nil {
		return err
	}
	if authURL == originalURL {
		return p.git.Push(ctx, p.opts.Branch)
	}

	if err := p.git.SetRemoteURL(ctx, authURL); err != nil {
		return fmt.Errorf("set authenticated remote URL: %w", err)
	}
	defer func() {
		if err := p.git.SetRemoteURL(ctx, originalURL); err != nil {
			p.log.Error("failed to restore remote URL", "error", err)
		}
	}()

	return p.git.Push(ctx, p.opts.Branch)
}

// spliceToken embeds the token as userinfo in an http(s) remote URL. Other
// schemes (ssh) are returned unchanged; their auth does not go through URLs.
func spliceToken(remote, token string) (string, error) {
	u, err := url.Parse(remote)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return remote, nil
	}
	u.User = url.UserPassword("x-access-token", token)
	return u.String(), nil
}

func isConflict(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "non-fast-forward") ||
		strings.Contains(msg, "fetch first") ||
		strings.Contains(msg, "[rejected]")
}

// writeRecordFile persists the permit record with the exact 2-space indented
// shape the display device reads.
func writeRecordFile(path string, rec permit.Normalized) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
