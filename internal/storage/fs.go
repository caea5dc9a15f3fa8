package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/starford/amber/internal/apperr"
	"github.com/starford/amber/internal/models"
)

const (
	dailyDir   = "daily"
	stagingDir = "staging"

	noteExt    = ".md"
	stagingExt = ".jsonl"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the base directory

	// locks holds one *sync.Mutex per date; it serializes appends against
	// snapshot and clear of the same staging file.
	locks sync.Map
}

// Open creates the base directory layout under root if needed and returns an
// FS rooted there.
func Open(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve root: %w", apperr.ErrStorage, err)
	}
	for _, dir := range []string{dailyDir, stagingDir} {
		if err := os.MkdirAll(filepath.Join(abs, dir), 0o755); err != nil {
			return nil, fmt.Errorf("%w: create %s dir: %w", apperr.ErrStorage, dir, err)
		}
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute base directory.
func (f *FS) Root() string {
	return f.root
}

// datePath validates date and returns the file for it under dir. Only
// YYYY-MM-DD keys are accepted, which also rules out directory traversal.
func (f *FS) datePath(dir, date, ext string) (string, error) {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return "", fmt.Errorf("%w: invalid date %q", apperr.ErrInvalidInput, date)
	}
	return filepath.Join(f.root, dir, date+ext), nil
}

func (f *FS) lock(date string) func() {
	v, _ := f.locks.LoadOrStore(date, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// ReadNote returns the raw bytes of the note for date.
func (f *FS) ReadNote(date string) ([]byte, error) {
	path, err := f.datePath(dailyDir, date, noteExt)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: note %s: %w", apperr.ErrNotFound, date, err)
		}
		return nil, fmt.Errorf("%w: read note %s: %w", apperr.ErrStorage, date, err)
	}
	return data, nil
}

// WriteNote atomically writes content: tmp file → fsync → rename.
func (f *FS) WriteNote(date string, content []byte) error {
	path, err := f.datePath(dailyDir, date, noteExt)
	if err != nil {
		return err
	}
	return writeAtomic(path, content)
}

// ListNotes returns metadata for every note, newest date first.
func (f *FS) ListNotes() ([]models.NoteMetadata, error) {
	entries, err := os.ReadDir(filepath.Join(f.root, dailyDir))
	if err != nil {
		return nil, fmt.Errorf("%w: list notes: %w", apperr.ErrStorage, err)
	}
	var out []models.NoteMetadata
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, noteExt) {
			continue
		}
		date := strings.TrimSuffix(name, noteExt)
		if _, err := time.Parse(models.DateLayout, date); err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("%w: stat note %s: %w", apperr.ErrStorage, date, err)
		}
		data, err := os.ReadFile(filepath.Join(f.root, dailyDir, name))
		if err != nil {
			return nil, fmt.Errorf("%w: read note %s: %w", apperr.ErrStorage, date, err)
		}
		out = append(out, models.NoteMetadata{
			Date:      date,
			Checksum:  Checksum(data),
			UpdatedAt: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

// Checksum returns the hex-encoded SHA-256 digest of data.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir: %w", apperr.ErrStorage, err)
	}

	tmp, err := os.CreateTemp(dir, ".amber-tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp: %w", apperr.ErrStorage, err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("%w: write temp: %w", apperr.ErrStorage, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: fsync: %w", apperr.ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp: %w", apperr.ErrStorage, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: rename: %w", apperr.ErrStorage, err)
	}
	success = true
	return nil
}
