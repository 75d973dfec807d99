// Package gitsource keeps a git-hosted vault mirrored to a local path, for
// setups where the note collection lives in a remote repository.
package gitsource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Sync clones url into localPath on first run and pulls on subsequent runs.
// branch may be empty to use the remote default.
func Sync(ctx context.Context, url, localPath, branch string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	_, err := os.Stat(localPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Info("cloning vault repository", "url", url, "path", localPath)
		opts := &git.CloneOptions{URL: url}
		if branch != "" {
			opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
			opts.SingleBranch = true
		}
		if _, err := git.PlainCloneContext(ctx, localPath, false, opts); err != nil {
			return fmt.Errorf("cloning %s: %w", url, err)
		}
		return nil

	case err != nil:
		return fmt.Errorf("checking vault path %s: %w", localPath, err)
	}

	logger.Info("pulling vault repository", "path", localPath)
	repo, err := git.PlainOpen(localPath)
	if err != nil {
		return fmt.Errorf("opening repo at %s: %w", localPath, err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree at %s: %w", localPath, err)
	}

	pull := &git.PullOptions{RemoteName: "origin"}
	if branch != "" {
		pull.ReferenceName = plumbing.NewBranchReferenceName(branch)
	}
	if err := worktree.PullContext(ctx, pull); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("pulling %s: %w", localPath, err)
	}
	return nil
}
