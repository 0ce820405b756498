package location

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kraken-torrent/engine/core"
)

func testLogger() *zap.SugaredLogger {
	l, _ := zap.NewDevelopment()
	return l.Sugar()
}

func hashN(b byte) core.InfoHashV1 {
	var h core.InfoHashV1
	h[0] = b
	return h
}

type doneRecord struct {
	h       core.InfoHashV1
	aborted bool
	err     error
}

type collector struct {
	mu      sync.Mutex
	started []core.InfoHashV1
	done    []doneRecord
}

func (c *collector) onStarted(h core.InfoHashV1) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = append(c.started, h)
}

func (c *collector) onDone(h core.InfoHashV1, aborted bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.done = append(c.done, doneRecord{h, aborted, err})
}

func waitForDoneCount(t *testing.T, c *collector, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		got := len(c.done)
		c.mu.Unlock()
		if got >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d done callbacks", n)
}

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestRelocateMovesAllFiles(t *testing.T) {
	r := require.New(t)
	tmp := t.TempDir()
	oldRoot := filepath.Join(tmp, "old")
	newRoot := filepath.Join(tmp, "new")

	writeFile(t, filepath.Join(oldRoot, "a.txt"), "hello")
	writeFile(t, filepath.Join(oldRoot, "sub", "b.txt"), "world")

	w := New(testLogger())
	defer w.Close()

	c := &collector{}
	h := hashN(1)
	w.Add(Target{
		ID:      h,
		Files:   []string{"a.txt", "sub/b.txt"},
		OldRoot: oldRoot,
		NewRoot: newRoot,
	}, c.onStarted, c.onDone)

	waitForDoneCount(t, c, 1)

	r.Equal([]core.InfoHashV1{h}, c.started)
	r.Len(c.done, 1)
	r.False(c.done[0].aborted)
	r.NoError(c.done[0].err)

	got, err := os.ReadFile(filepath.Join(newRoot, "a.txt"))
	r.NoError(err)
	r.Equal("hello", string(got))
	got, err = os.ReadFile(filepath.Join(newRoot, "sub", "b.txt"))
	r.NoError(err)
	r.Equal("world", string(got))

	_, err = os.Stat(oldRoot)
	r.True(os.IsNotExist(err))
}

func TestRelocateSkipsMissingFiles(t *testing.T) {
	r := require.New(t)
	tmp := t.TempDir()
	oldRoot := filepath.Join(tmp, "old")
	newRoot := filepath.Join(tmp, "new")

	writeFile(t, filepath.Join(oldRoot, "a.txt"), "hello")

	w := New(testLogger())
	defer w.Close()

	c := &collector{}
	w.Add(Target{
		ID:      hashN(2),
		Files:   []string{"a.txt", "missing.txt"},
		OldRoot: oldRoot,
		NewRoot: newRoot,
	}, c.onStarted, c.onDone)

	waitForDoneCount(t, c, 1)
	r.NoError(c.done[0].err)
	r.False(c.done[0].aborted)

	_, err := os.Stat(filepath.Join(newRoot, "a.txt"))
	r.NoError(err)
}

func TestRelocateProcessesMultipleTorrentsInOrder(t *testing.T) {
	r := require.New(t)
	tmp := t.TempDir()

	w := New(testLogger())
	defer w.Close()

	c := &collector{}
	for i := byte(1); i <= 3; i++ {
		oldRoot := filepath.Join(tmp, "old", string(rune('a'+i)))
		newRoot := filepath.Join(tmp, "new", string(rune('a'+i)))
		writeFile(t, filepath.Join(oldRoot, "f.txt"), "x")
		w.Add(Target{
			ID:      hashN(i),
			Files:   []string{"f.txt"},
			OldRoot: oldRoot,
			NewRoot: newRoot,
		}, c.onStarted, c.onDone)
	}

	waitForDoneCount(t, c, 3)
	r.Len(c.done, 3)
	r.Equal([]core.InfoHashV1{hashN(1), hashN(2), hashN(3)}, c.started)
}

func TestRemoveQueuedTargetFiresAbortedCallback(t *testing.T) {
	r := require.New(t)
	tmp := t.TempDir()

	blockOld := filepath.Join(tmp, "blocker-old")
	blockNew := filepath.Join(tmp, "blocker-new")
	writeFile(t, filepath.Join(blockOld, "f.txt"), "x")

	release := make(chan struct{})
	blockingMove := func(oldPath, newPath string) error {
		<-release
		return DefaultMove(oldPath, newPath)
	}

	w := NewWithMover(testLogger(), blockingMove)
	defer w.Close()

	blockerDone := &collector{}
	w.Add(Target{
		ID:      hashN(1),
		Files:   []string{"f.txt"},
		OldRoot: blockOld,
		NewRoot: blockNew,
	}, blockerDone.onStarted, blockerDone.onDone)

	// Wait until the blocker is actually in flight before queueing the
	// second target, so Remove below hits the still-queued path.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		w.mu.Lock()
		inFlight := w.current != nil
		w.mu.Unlock()
		if inFlight {
			break
		}
		time.Sleep(time.Millisecond)
	}

	queuedOld := filepath.Join(tmp, "queued-old")
	writeFile(t, filepath.Join(queuedOld, "f.txt"), "y")

	c := &collector{}
	h := hashN(2)
	w.Add(Target{
		ID:      h,
		Files:   []string{"f.txt"},
		OldRoot: queuedOld,
		NewRoot: filepath.Join(tmp, "queued-new"),
	}, c.onStarted, c.onDone)

	w.Remove(h)
	r.Len(c.done, 1)
	r.True(c.done[0].aborted)

	close(release)
	waitForDoneCount(t, blockerDone, 1)
}
