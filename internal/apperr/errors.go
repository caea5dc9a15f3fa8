// Package apperr defines the error kinds shared across Amber.
//
// Kinds are sentinels; call sites wrap them with fmt.Errorf("%w: ...", kind)
// and callers classify with errors.Is.
package apperr

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnavailable is returned when an operation needs a component this
	// process was not started with, e.g. a trigger without a scheduler.
	ErrUnavailable = errors.New("unavailable")

	// ErrConfig covers unreadable or invalid settings and an unresolvable home directory.
	ErrConfig = errors.New("config error")
	// ErrStorage covers filesystem and database I/O failures other than "not found".
	ErrStorage = errors.New("storage error")
	// ErrWatcher covers watch registration and git history query failures.
	ErrWatcher = errors.New("watcher error")
	// ErrProvider covers missing credentials, transport failures and malformed LLM responses.
	ErrProvider = errors.New("provider error")
)
