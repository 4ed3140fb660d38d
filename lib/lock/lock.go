// Package lock keeps two pipeline runs from writing the same artifacts at once.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrHeld is returned by Acquire when another process keeps the lock past
// the timeout.
var ErrHeld = errors.New("lock held by another process")

// FileLock is a lock based on exclusive creation of a file per key.
type FileLock struct {
	dir    string
	logger *slog.Logger
	// staleAfter is the age past which a lock file is considered abandoned.
	staleAfter time.Duration
	poll       time.Duration
}

// DefaultDir returns the lock directory used when none is configured.
func DefaultDir() string {
	return filepath.Join(os.TempDir(), "ecommerce-analysis-locks")
}

// NewFileLock stores lock files under dir. Lock files older than staleAfter
// are removed on contention.
func NewFileLock(dir string, staleAfter time.Duration, logger *slog.Logger) *FileLock {
	if dir == "" {
		dir = DefaultDir()
	}
	return &FileLock{
		dir:        dir,
		logger:     logger,
		staleAfter: staleAfter,
		poll:       100 * time.Millisecond,
	}
}

// TryLock attempts to acquire the lock for key until timeout elapses. It
// returns false without error when the timeout is reached.
func (fl *FileLock) TryLock(ctx context.Context, key string, timeout time.Duration) (bool, error) {
	lockFile, err := fl.path(key)
	if err != nil {
		return false, err
	}

	if err := os.MkdirAll(filepath.Dir(lockFile), 0750); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for {
		// #nosec G304 - lockFile is built by path from a validated key
		file, err := os.OpenFile(lockFile, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if err == nil {
			if _, err := fmt.Fprintf(file, "%d\n%d\n", time.Now().Unix(), os.Getpid()); err != nil {
				_ = file.Close()
				_ = os.Remove(lockFile)
				return false, fmt.Errorf("failed to write to lock file: %w", err)
			}
			if err := file.Close(); err != nil {
				return false, fmt.Errorf("failed to close lock file: %w", err)
			}
			fl.logger.Debug("Acquired lock", slog.String("key", key), slog.String("file", lockFile))
			return true, nil
		}
		if !os.IsExist(err) {
			return false, fmt.Errorf("failed to create lock file: %w", err)
		}

		if fl.isStale(lockFile) {
			fl.logger.Warn("Removing stale lock file", slog.String("file", lockFile))
			if err := os.Remove(lockFile); err != nil && !os.IsNotExist(err) {
				return false, fmt.Errorf("failed to remove stale lock file: %w", err)
			}
			continue
		}

		if !time.Now().Before(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(fl.poll):
		}
	}
}

// Acquire is TryLock that reports a timeout as ErrHeld.
func (fl *FileLock) Acquire(ctx context.Context, key string, timeout time.Duration) error {
	ok, err := fl.TryLock(ctx, key, timeout)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrHeld, key)
	}
	return nil
}

// KeepAlive touches the lock file for key every interval until the returned
// stop func is called, so a long run is never mistaken for an abandoned one.
func (fl *FileLock) KeepAlive(ctx context.Context, key string, interval time.Duration) (func(), error) {
	lockFile, err := fl.path(key)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		return nil, fmt.Errorf("invalid keepalive interval %s", interval)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				now := time.Now()
				if err := os.Chtimes(lockFile, now, now); err != nil {
					fl.logger.Warn("Failed to refresh lock file", slog.String("file", lockFile), slog.Any("error", err))
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}, nil
}

// Unlock releases the lock for key. Releasing a lock that is not held is not
// an error.
func (fl *FileLock) Unlock(ctx context.Context, key string) error {
	lockFile, err := fl.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(lockFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	fl.logger.Debug("Released lock", slog.String("key", key), slog.String("file", lockFile))
	return nil
}

func (fl *FileLock) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid lock key %q", key)
	}
	return filepath.Join(fl.dir, key+".lock"), nil
}

func (fl *FileLock) isStale(lockFile string) bool {
	if fl.staleAfter <= 0 {
		return false
	}
	info, err := os.Stat(lockFile)
	if err != nil {
		// Gone already; the next create attempt decides.
		return false
	}
	return time.Since(info.ModTime()) > fl.staleAfter
}
