// Package gitrepo publishes patched files back to the host repository:
// write, stage, commit, push. The tool owns no state of its own between
// runs; the repository is the sole durable state.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	goGit "github.com/go-git/go-git/v5"
	goGitConfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	goGitHttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"go.uber.org/zap"
)

// PublishError wraps any git-level failure (auth, conflict, network) while
// committing or pushing. Op names the step that failed.
type PublishError struct {
	Op  string
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish (%s): %v", e.Op, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// FileChange is one file to write and stage, with its path relative to the
// repository root.
type FileChange struct {
	Path    string
	Content []byte
}

// Options configure a Publisher.
//
// Branch may be empty, in which case the currently checked-out branch is
// pushed. Token enables HTTPS basic auth; when empty the push relies on
// whatever credentials the environment provides (credential helper, remote
// URL with embedded token).
type Options struct {
	RepoPath    string
	Remote      string
	Branch      string
	Username    string
	Token       string
	AuthorName  string
	AuthorEmail string
}

// Publisher commits and pushes file changes to a git remote.
type Publisher struct {
	opts Options
	log  *zap.SugaredLogger
}

// NewPublisher validates the options and creates a Publisher.
func NewPublisher(opts Options, log *zap.SugaredLogger) (*Publisher, error) {
	if opts.RepoPath == "" {
		return nil, fmt.Errorf("repository path cannot be empty")
	}
	if _, err := os.Stat(opts.RepoPath); err != nil {
		return nil, fmt.Errorf("failed to access repository path: %w", err)
	}
	if opts.Remote == "" {
		opts.Remote = "origin"
	}
	return &Publisher{opts: opts, log: log}, nil
}

// Publish writes the changed files into the working tree, stages them,
// creates a single commit and pushes it. The caller guarantees the changes
// are real; publishing nothing is an error, never an empty commit.
func (p *Publisher) Publish(ctx context.Context, changes []FileChange, message string) error {
	if len(changes) == 0 {
		return &PublishError{Op: "stage", Err: fmt.Errorf("no file changes to publish")}
	}

	repo, err := goGit.PlainOpen(p.opts.RepoPath)
	if err != nil {
		return &PublishError{Op: "open", Err: err}
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return &PublishError{Op: "open", Err: err}
	}

	for _, change := range changes {
		fullPath := filepath.Join(p.opts.RepoPath, change.Path)
		if err := os.WriteFile(fullPath, change.Content, 0644); err != nil {
			return &PublishError{Op: "write", Err: err}
		}
		if _, err := worktree.Add(change.Path); err != nil {
			return &PublishError{Op: "stage", Err: err}
		}
	}

	commit, err := worktree.Commit(message, &goGit.CommitOptions{
		Author: &object.Signature{
			Name:  p.opts.AuthorName,
			Email: p.opts.AuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return &PublishError{Op: "commit", Err: err}
	}
	p.log.Infow("created commit", "hash", commit.String(), "files", len(changes))

	branch := p.opts.Branch
	if branch == "" {
		head, err := repo.Head()
		if err != nil {
			return &PublishError{Op: "push", Err: err}
		}
		branch = head.Name().Short()
	}

	pushOptions := &goGit.PushOptions{
		RemoteName: p.opts.Remote,
		RefSpecs: []goGitConfig.RefSpec{
			goGitConfig.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch)),
		},
	}
	if p.opts.Token != "" {
		username := p.opts.Username
		if username == "" {
			// GitHub accepts any non-empty username with a token
			username = "git"
		}
		pushOptions.Auth = &goGitHttp.BasicAuth{Username: username, Password: p.opts.Token}
	}

	if err := repo.PushContext(ctx, pushOptions); !pushSucceeded(err) {
		return &PublishError{Op: "push", Err: err}
	}

	p.log.Infow("pushed", "remote", p.opts.Remote, "branch", branch)
	return nil
}

// pushSucceeded treats an already up-to-date remote as success, unwrapping
// in case the transport wrapped the sentinel.
func pushSucceeded(err error) bool {
	return err == nil || errors.Is(err, goGit.NoErrAlreadyUpToDate)
}
