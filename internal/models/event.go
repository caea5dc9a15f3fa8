// Package models defines the domain types for Amber.
package models

// EventKind classifies a RawEvent.
type EventKind string

// Event kinds. Only commits are produced today.
const (
	KindCommit EventKind = "Commit"
)

// Event sources.
const (
	SourceGit = "git"
)

// RawEvent is one discrete piece of activity captured by a source.
// It is serialized as a single JSON line into the day's staging log and is
// never mutated after creation.
type RawEvent struct {
	Source    string         `json:"source"`
	Timestamp string         `json:"timestamp"`
	Kind      EventKind      `json:"kind"`
	Data      map[string]any `json:"data"`
}

// NewCommitEvent builds the RawEvent for a single git commit.
func NewCommitEvent(repo, hash, subject, author, timestamp string) RawEvent {
	return RawEvent{
		Source:    SourceGit,
		Timestamp: timestamp,
		Kind:      KindCommit,
		Data: map[string]any{
			"repo":    repo,
			"hash":    hash,
			"subject": subject,
			"author":  author,
		},
	}
}
