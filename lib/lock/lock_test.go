package lock

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newLock(t *testing.T, staleAfter time.Duration) (*FileLock, string) {
	t.Helper()
	dir := t.TempDir()
	fl := NewFileLock(dir, staleAfter, slog.New(slog.NewTextHandler(io.Discard, nil)))
	fl.poll = 5 * time.Millisecond
	return fl, dir
}

func TestLockIsExclusive(t *testing.T) {
	ctx := context.Background()
	fl, dir := newLock(t, time.Hour)

	ok, err := fl.TryLock(ctx, "pipeline", 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	require.FileExists(t, filepath.Join(dir, "pipeline.lock"))

	ok, err = fl.TryLock(ctx, "pipeline", 20*time.Millisecond)
	require.NoError(t, err)
	require.False(t, ok)
	require.ErrorIs(t, fl.Acquire(ctx, "pipeline", 0), ErrHeld)

	ok, err = fl.TryLock(ctx, "other", 0)
	require.NoError(t, err)
	require.True(t, ok, "keys are independent")

	require.NoError(t, fl.Unlock(ctx, "pipeline"))
	require.NoError(t, fl.Unlock(ctx, "pipeline"), "unlocking twice is harmless")
	require.NoError(t, fl.Acquire(ctx, "pipeline", 0))
}

func TestStaleLockIsReclaimed(t *testing.T) {
	ctx := context.Background()
	fl, dir := newLock(t, time.Minute)

	lockFile := filepath.Join(dir, "pipeline.lock")
	require.NoError(t, os.WriteFile(lockFile, []byte("1\n1\n"), 0o600))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(lockFile, old, old))

	ok, err := fl.TryLock(ctx, "pipeline", 0)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestKeepAliveHoldsLongRuns(t *testing.T) {
	ctx := context.Background()
	fl, dir := newLock(t, 150*time.Millisecond)
	require.NoError(t, fl.Acquire(ctx, "pipeline", 0))

	stop, err := fl.KeepAlive(ctx, "pipeline", 20*time.Millisecond)
	require.NoError(t, err)
	time.Sleep(400 * time.Millisecond)

	other := NewFileLock(dir, 150*time.Millisecond, fl.logger)
	ok, err := other.TryLock(ctx, "pipeline", 0)
	require.NoError(t, err)
	require.False(t, ok, "a refreshed lock is not stale")

	stop()
	time.Sleep(300 * time.Millisecond)
	ok, err = other.TryLock(ctx, "pipeline", 0)
	require.NoError(t, err)
	require.True(t, ok, "the lock goes stale once refreshing stops")
}

func TestKeepAliveRejectsBadInput(t *testing.T) {
	fl, _ := newLock(t, time.Hour)
	_, err := fl.KeepAlive(context.Background(), "pipeline", 0)
	require.Error(t, err)
	_, err = fl.KeepAlive(context.Background(), "a/b", time.Second)
	require.Error(t, err)
}

func TestTryLockHonoursContext(t *testing.T) {
	fl, _ := newLock(t, time.Hour)
	require.NoError(t, fl.Acquire(context.Background(), "pipeline", 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := fl.TryLock(ctx, "pipeline", time.Second)
	require.ErrorIs(t, err, context.Canceled)
}

func TestInvalidKey(t *testing.T) {
	fl, _ := newLock(t, time.Hour)
	for _, key := range []string{"", "..", "a/b", `a\b`} {
		_, err := fl.TryLock(context.Background(), key, 0)
		require.Error(t, err, key)
	}
}
