// Package gitlog reads recent commit history from local repositories and
// turns the commits that appeared since the last look into RawEvents.
package gitlog

import (
	"context"
	"fmt"
)

// Backends.
const (
	BackendExec  = "exec"
	BackendGoGit = "go-git"
)

// DefaultHistoryDepth is how many recent commits are fetched per diff.
const DefaultHistoryDepth = 20

// Commit is one entry of a repository's history.
type Commit struct {
	Hash    string
	Subject string
	Author  string
	// Date is ISO-8601 as git's %ai prints it: "2024-05-01 14:03:11 +0200".
	Date string
}

// Log fetches the n most recent commits reachable from HEAD, newest first.
// An empty repository yields no commits and no error.
type Log interface {
	Recent(ctx context.Context, repo string, n int) ([]Commit, error)
}

// NewLog returns the Log implementation for the named backend.
func NewLog(backend string) (Log, error) {
	switch backend {
	case "", BackendExec:
		return ExecLog{}, nil
	case BackendGoGit:
		return GoGitLog{}, nil
	default:
		return nil, fmt.Errorf("gitlog: unknown backend %q", backend)
	}
}
