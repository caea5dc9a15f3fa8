package gitlog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// isoLayout matches git's %ai output.
const isoLayout = "2006-01-02 15:04:05 -0700"

// GoGitLog reads history straight from the object store, no git binary needed.
type GoGitLog struct{}

// Recent implements Log.
func (GoGitLog) Recent(ctx context.Context, repo string, n int) ([]Commit, error) {
	r, err := git.PlainOpen(repo)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", repo, err)
	}
	head, err := r.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve HEAD in %s: %w", repo, err)
	}
	iter, err := r.Log(&git.LogOptions{
		From:  head.Hash(),
		Order: git.LogOrderCommitterTime,
	})
	if err != nil {
		return nil, fmt.Errorf("log %s: %w", repo, err)
	}
	defer iter.Close()

	commits := make([]Commit, 0, n)
	err = iter.ForEach(func(c *object.Commit) error {
		if len(commits) >= n {
			return storer.ErrStop
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		subject, _, _ := strings.Cut(c.Message, "\n")
		commits = append(commits, Commit{
			Hash:    c.Hash.String(),
			Subject: strings.TrimSpace(subject),
			Author:  c.Author.Name,
			Date:    c.Author.When.Format(isoLayout),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", repo, err)
	}
	return commits, nil
}
