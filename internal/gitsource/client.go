// Package gitsource syncs a remote vault repository into the local workspace
// before a render: clone when missing, pull when present.
package gitsource

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/linktext/internal/config"
	apperrors "git.home.luguber.info/inful/linktext/internal/errors"
	"git.home.luguber.info/inful/linktext/internal/logfields"
)

// Client handles vault repository synchronization.
type Client struct {
	workspaceDir string
	repo         config.RepoConfig
}

// NewClient creates a client syncing repo into workspaceDir.
func NewClient(workspaceDir string, repo config.RepoConfig) *Client {
	return &Client{workspaceDir: workspaceDir, repo: repo}
}

// Path returns the local checkout directory.
func (c *Client) Path() string {
	return filepath.Join(c.workspaceDir, "vault")
}

// Sync clones the repository when the checkout is missing and fast-forwards
// it otherwise. An already-up-to-date checkout is not an error.
func (c *Client) Sync(ctx context.Context) (string, error) {
	path := c.Path()
	if _, err := os.Stat(filepath.Join(path, ".git")); err != nil {
		return c.clone(ctx, path)
	}
	return c.pull(ctx, path)
}

func (c *Client) clone(ctx context.Context, path string) (string, error) {
	slog.Debug("Cloning vault repository",
		slog.String("url", c.repo.URL),
		slog.String("branch", c.repo.Branch),
		logfields.Path(path))

	if err := os.RemoveAll(path); err != nil {
		return "", apperrors.Wrap(err, apperrors.CategorySource, apperrors.SeverityError,
			"failed to clear checkout directory")
	}

	opts := &git.CloneOptions{URL: c.repo.URL}
	if c.repo.Branch != "" {
		opts.ReferenceName = plumbing.ReferenceName("refs/heads/" + c.repo.Branch)
		opts.SingleBranch = true
	}
	if c.repo.Depth > 0 {
		opts.Depth = c.repo.Depth
	}

	repo, err := git.PlainCloneContext(ctx, path, false, opts)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CategorySource, apperrors.SeverityError,
			"failed to clone vault repository").WithContext("url", c.repo.URL)
	}

	if ref, herr := repo.Head(); herr == nil {
		slog.Info("Vault repository cloned",
			slog.String("url", c.repo.URL),
			slog.String("commit", ref.Hash().String()[:8]),
			logfields.Path(path))
	}
	return path, nil
}

func (c *Client) pull(ctx context.Context, path string) (string, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CategorySource, apperrors.SeverityError,
			"failed to open vault checkout")
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CategorySource, apperrors.SeverityError,
			"failed to get worktree")
	}

	opts := &git.PullOptions{}
	if c.repo.Branch != "" {
		opts.ReferenceName = plumbing.ReferenceName("refs/heads/" + c.repo.Branch)
		opts.SingleBranch = true
	}
	if c.repo.Depth > 0 {
		opts.Depth = c.repo.Depth
	}

	if err := wt.PullContext(ctx, opts); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return "", apperrors.Wrap(err, apperrors.CategorySource, apperrors.SeverityError,
			"failed to pull vault repository").WithContext("url", c.repo.URL)
	}

	if ref, herr := repo.Head(); herr == nil {
		slog.Debug("Vault repository synced",
			slog.String("commit", ref.Hash().String()[:8]),
			logfields.Path(path))
	}
	return path, nil
}
