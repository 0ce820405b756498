package watchdir

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kraken-torrent/engine/utils/backoff"
)

func testLog() *zap.SugaredLogger {
	l, _ := zap.NewDevelopment()
	return l.Sugar()
}

func hasTorrentExt(path string) bool {
	return filepath.Ext(path) == ".torrent"
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for condition")
}

func TestWatcherInvokesCallbackOnNewMatchingFile(t *testing.T) {
	r := require.New(t)
	dir := t.TempDir()

	var mu sync.Mutex
	var seen []string

	w, err := New(dir, hasTorrentExt, func(path string) Result {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, path)
		return Done
	}, backoff.Config{}, testLog())
	r.NoError(err)
	defer w.Close()

	target := filepath.Join(dir, "a.torrent")
	r.NoError(os.WriteFile(target, []byte("x"), 0644))

	waitUntil(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0
	})

	mu.Lock()
	r.Contains(seen, target)
	mu.Unlock()
}

func TestWatcherIgnoresNonMatchingFile(t *testing.T) {
	r := require.New(t)
	dir := t.TempDir()

	called := make(chan struct{}, 1)
	w, err := New(dir, hasTorrentExt, func(path string) Result {
		called <- struct{}{}
		return Done
	}, backoff.Config{}, testLog())
	r.NoError(err)
	defer w.Close()

	r.NoError(os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0644))

	select {
	case <-called:
		t.Fatal("callback should not have been invoked for a.txt")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherRetriesUntilDone(t *testing.T) {
	r := require.New(t)
	dir := t.TempDir()

	var mu sync.Mutex
	attempts := 0
	doneCh := make(chan struct{})

	w, err := New(dir, hasTorrentExt, func(path string) Result {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n < 3 {
			return Retry
		}
		close(doneCh)
		return Done
	}, backoff.Config{Min: 5 * time.Millisecond, Max: 20 * time.Millisecond, NoJitter: true, RetryTimeout: time.Second}, testLog())
	r.NoError(err)
	defer w.Close()

	r.NoError(os.WriteFile(filepath.Join(dir, "b.torrent"), []byte("x"), 0644))

	select {
	case <-doneCh:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for retries to complete")
	}

	mu.Lock()
	r.GreaterOrEqual(attempts, 3)
	mu.Unlock()
}

func TestWatcherGivesUpAfterRetryTimeout(t *testing.T) {
	r := require.New(t)
	dir := t.TempDir()

	var mu sync.Mutex
	attempts := 0

	w, err := New(dir, hasTorrentExt, func(path string) Result {
		mu.Lock()
		attempts++
		mu.Unlock()
		return Retry
	}, backoff.Config{Min: 5 * time.Millisecond, Max: 10 * time.Millisecond, NoJitter: true, RetryTimeout: 50 * time.Millisecond}, testLog())
	r.NoError(err)

	r.NoError(os.WriteFile(filepath.Join(dir, "c.torrent"), []byte("x"), 0644))

	time.Sleep(300 * time.Millisecond)
	r.NoError(w.Close())

	mu.Lock()
	got := attempts
	mu.Unlock()
	r.Greater(got, 0)
}
