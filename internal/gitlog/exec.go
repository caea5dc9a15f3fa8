package gitlog

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ExecLog shells out to the git binary on PATH.
type ExecLog struct {
	// Binary overrides the git executable. Empty means "git".
	Binary string
}

// Recent implements Log.
func (l ExecLog) Recent(ctx context.Context, repo string, n int) ([]Commit, error) {
	bin := l.Binary
	if bin == "" {
		bin = "git"
	}
	cmd := exec.CommandContext(ctx, bin, "log", "--format=%H|%s|%an|%ai", "-"+strconv.Itoa(n))
	cmd.Dir = repo
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		// A repository without commits has no HEAD to log from.
		if strings.Contains(msg, "does not have any commits") {
			return nil, nil
		}
		return nil, fmt.Errorf("git log in %s: %w: %s", repo, err, msg)
	}
	return ParseLog(string(out)), nil
}

// ParseLog parses "%H|%s|%an|%ai" lines. Only the first three separators
// split, so a subject containing "|" keeps the tail in the date field; lines
// with fewer than four fields are dropped.
func ParseLog(out string) []Commit {
	var commits []Commit
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 4)
		if len(parts) < 4 {
			continue
		}
		commits = append(commits, Commit{
			Hash:    parts[0],
			Subject: parts[1],
			Author:  parts[2],
			Date:    parts[3],
		})
	}
	return commits
}
