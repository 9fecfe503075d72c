package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName is the run lock created inside the temp directory.
const LockFileName = ".splicer.lock"

var (
	// ErrS3NotConfigured is returned when an upload is attempted
	// without S3 configuration.
	ErrS3NotConfigured = errors.New("S3 storage is not configured")
	// ErrLocked is returned when another run holds the temp directory.
	ErrLocked = errors.New("temp directory is in use by another run")
	// ErrInvalidGroupKey is returned for keys that would escape the run directory.
	ErrInvalidGroupKey = errors.New("invalid group key")
)

// Compile-time check that LocalStorage implements Storage.
var _ Storage = (*LocalStorage)(nil)

// LocalStorage implements Storage on local disk. Scratch files for a run live
// under <tempDir>/<runID>/<groupKey>/. It does not support uploads unless
// wrapped with S3Storage.
type LocalStorage struct {
	tempDir string
	runDir  string
	lock    *flock.Flock
}

// NewLocalStorage creates a LocalStorage for one run.
// If tempDir is empty, a directory under os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewLocalStorage(tempDir, runID string) (*LocalStorage, error) {
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "splicer")
	}
	if runID == "" || runID != filepath.Base(runID) {
		return nil, fmt.Errorf("invalid run id %q", runID)
	}

	if err := os.MkdirAll(tempDir, 0o750); err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}

	return &LocalStorage{
		tempDir: tempDir,
		runDir:  filepath.Join(tempDir, runID),
		lock:    flock.New(filepath.Join(tempDir, LockFileName)),
	}, nil
}

// TempDir returns the temporary directory path.
func (s *LocalStorage) TempDir() string {
	return s.tempDir
}

// RunDir returns this run's scratch directory.
func (s *LocalStorage) RunDir() string {
	return s.runDir
}

// Lock takes the temp directory's run lock without blocking.
// Returns ErrLocked when another process holds it.
func (s *LocalStorage) Lock() error {
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocked, s.lock.Path())
	}
	return nil
}

// Unlock releases the run lock.
func (s *LocalStorage) Unlock() error {
	return s.lock.Unlock()
}

// GroupDir returns <runDir>/<groupKey>, creating it if needed.
func (s *LocalStorage) GroupDir(groupKey string) (string, error) {
	if groupKey == "" || groupKey != filepath.Base(groupKey) || groupKey == "." || groupKey == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidGroupKey, groupKey)
	}
	dir := filepath.Join(s.runDir, groupKey)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create group directory: %w", err)
	}
	return dir, nil
}

// Cleanup removes this run's scratch directory. It leaves the temp directory
// itself, and any other run's files, in place.
func (s *LocalStorage) Cleanup(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	if err := os.RemoveAll(s.runDir); err != nil {
		return fmt.Errorf("remove run directory %s: %w", s.runDir, err)
	}
	return nil
}

// Upload is not supported by LocalStorage and returns ErrS3NotConfigured.
func (s *LocalStorage) Upload(_ context.Context, _, _ string) (string, error) {
	return "", ErrS3NotConfigured
}
