package storage

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/amber/internal/apperr"
)

// AppendStaging opens (creating if absent) the date's staging file in append
// mode and writes line plus a newline in a single write call.
func (f *FS) AppendStaging(date, line string) error {
	path, err := f.datePath(stagingDir, date, stagingExt)
	if err != nil {
		return err
	}
	if strings.ContainsRune(line, '\n') {
		return fmt.Errorf("%w: staging record contains a newline", apperr.ErrStorage)
	}

	unlock := f.lock(date)
	defer unlock()

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open staging %s: %w", apperr.ErrStorage, date, err)
	}
	if _, err := file.Write([]byte(line + "\n")); err != nil {
		_ = file.Close()
		return fmt.Errorf("%w: append staging %s: %w", apperr.ErrStorage, date, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: close staging %s: %w", apperr.ErrStorage, date, err)
	}
	return nil
}

// ReadStaging returns all non-empty lines staged for date, in append order.
func (f *FS) ReadStaging(date string) ([]string, error) {
	snap, err := f.SnapshotStaging(date)
	if err != nil {
		return nil, err
	}
	return snap.Lines, nil
}

// SnapshotStaging reads date's staging log and records how many bytes the
// returned lines cover.
func (f *FS) SnapshotStaging(date string) (Snapshot, error) {
	path, err := f.datePath(stagingDir, date, stagingExt)
	if err != nil {
		return Snapshot{}, err
	}

	unlock := f.lock(date)
	defer unlock()

	data, err := readIfExists(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: read staging %s: %w", apperr.ErrStorage, date, err)
	}
	// Only complete lines are part of the snapshot.
	end := bytes.LastIndexByte(data, '\n') + 1
	return Snapshot{
		Date:   date,
		Lines:  splitLines(data[:end]),
		Offset: int64(end),
	}, nil
}

// ClearStaging removes the date's staging file. Absence is not an error.
func (f *FS) ClearStaging(date string) error {
	path, err := f.datePath(stagingDir, date, stagingExt)
	if err != nil {
		return err
	}

	unlock := f.lock(date)
	defer unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: clear staging %s: %w", apperr.ErrStorage, date, err)
	}
	return nil
}

// ClearStagingThrough drops the first offset bytes of date's staging log.
// When nothing was appended after the snapshot the file is removed; otherwise
// the remaining tail is rewritten atomically.
func (f *FS) ClearStagingThrough(date string, offset int64) error {
	path, err := f.datePath(stagingDir, date, stagingExt)
	if err != nil {
		return err
	}

	unlock := f.lock(date)
	defer unlock()

	data, err := readIfExists(path)
	if err != nil {
		return fmt.Errorf("%w: read staging %s: %w", apperr.ErrStorage, date, err)
	}
	if int64(len(data)) <= offset {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: clear staging %s: %w", apperr.ErrStorage, date, err)
		}
		return nil
	}
	return writeAtomic(path, data[offset:])
}

// CountStaged returns the number of staged records across every date.
func (f *FS) CountStaged() (int, error) {
	dates, err := f.StagedDates()
	if err != nil {
		return 0, err
	}
	total := 0
	for _, date := range dates {
		lines, err := f.ReadStaging(date)
		if err != nil {
			return 0, err
		}
		total += len(lines)
	}
	return total, nil
}

// StagedDates returns every date that currently has a staging file, oldest first.
func (f *FS) StagedDates() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(f.root, stagingDir, "*"+stagingExt))
	if err != nil {
		return nil, fmt.Errorf("%w: list staging: %w", apperr.ErrStorage, err)
	}
	var out []string
	for _, m := range matches {
		date := strings.TrimSuffix(filepath.Base(m), stagingExt)
		if _, err := f.datePath(stagingDir, date, stagingExt); err == nil {
			out = append(out, date)
		}
	}
	return out, nil
}

func readIfExists(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

func splitLines(data []byte) []string {
	var out []string
	for _, l := range strings.Split(string(data), "\n") {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}
