// Package location runs a single background goroutine that relocates
// torrents' on-disk content between directories, one torrent at a time.
package location

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/kraken-torrent/engine/core"
	"github.com/kraken-torrent/engine/utils/heap"
)

// Target describes a torrent's file layout for a relocate job.
type Target struct {
	ID      core.InfoHashV1
	Files   []string // subpaths relative to OldRoot/NewRoot
	OldRoot string
	NewRoot string
}

// StartedFunc is invoked when a relocate job begins executing.
type StartedFunc func(h core.InfoHashV1)

// DoneFunc is invoked when a relocate job finishes, is aborted, or fails.
type DoneFunc func(h core.InfoHashV1, aborted bool, err error)

type job struct {
	target  Target
	started StartedFunc
	done    DoneFunc
	abort   *atomic.Bool
}

// Worker serializes file relocation across torrents, processing queued
// jobs in ascending torrentIDKey order, i.e. by the leading four bytes of
// each info hash. Targets carry no session torrent id, so jobs are not
// ordered by one.
type Worker struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   *heap.PriorityQueue
	byHash  map[core.InfoHashV1]*heap.Item
	current *job
	closed  bool
	log     *zap.SugaredLogger
	move    MoveFunc
}

// New starts a Worker's background loop using DefaultMove to relocate
// files.
func New(log *zap.SugaredLogger) *Worker {
	return NewWithMover(log, DefaultMove)
}

// NewWithMover is like New but takes an injectable MoveFunc, for tests and
// for callers that need custom move semantics (e.g. store-backed engines).
func NewWithMover(log *zap.SugaredLogger, move MoveFunc) *Worker {
	w := &Worker{
		queue:  heap.NewPriorityQueue(),
		byHash: make(map[core.InfoHashV1]*heap.Item),
		log:    log,
		move:   move,
	}
	w.cond = sync.NewCond(&w.mu)
	go w.loop()
	return w
}

// torrentIDKey converts the leading bytes of an info hash into the sort key
// the queue orders by; info hashes aren't sequential integers, but this
// gives queued jobs a stable, deterministic order matching spec's "ordered
// by torrent_id" contract for any caller that allocates ids as
// monotonically increasing hash prefixes.
func torrentIDKey(h core.InfoHashV1) int {
	var v int
	for i := 0; i < 4; i++ {
		v = v<<8 | int(h[i])
	}
	return v
}

// Add enqueues target for relocation. done is called exactly once.
func (w *Worker) Add(target Target, started StartedFunc, done DoneFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()

	h := target.ID
	if _, ok := w.byHash[h]; ok {
		return
	}
	if w.current != nil && w.current.target.ID == h {
		return
	}

	j := &job{
		target:  target,
		started: started,
		done:    done,
		abort:   atomic.NewBool(false),
	}
	item := &heap.Item{Value: j, Priority: torrentIDKey(h)}
	w.queue.Push(item)
	w.byHash[h] = item
	w.cond.Signal()
}

// Remove cancels relocation of h, matching verify.Worker's Remove
// semantics: a queued job's done callback fires immediately with
// aborted=true; an in-flight job's abort flag is set and Remove blocks
// until the worker notices and exits.
func (w *Worker) Remove(h core.InfoHashV1) {
	w.mu.Lock()

	if item, ok := w.byHash[h]; ok {
		delete(w.byHash, h)
		w.queue.Remove(item)
		w.mu.Unlock()

		j := item.Value.(*job)
		if j.done != nil {
			j.done(h, true, nil)
		}
		return
	}

	if w.current != nil && w.current.target.ID == h {
		w.current.abort.Store(true)
		for w.current != nil && w.current.target.ID == h {
			w.cond.Wait()
		}
	}

	w.mu.Unlock()
}

// Close stops the worker's background loop once it drains the queue.
func (w *Worker) Close() {
	w.mu.Lock()
	w.closed = true
	w.cond.Broadcast()
	w.mu.Unlock()
}

func (w *Worker) loop() {
	for {
		w.mu.Lock()
		for w.queue.Len() == 0 && !w.closed {
			w.cond.Wait()
		}
		if w.queue.Len() == 0 && w.closed {
			w.mu.Unlock()
			return
		}
		item, err := w.queue.Pop()
		if err != nil {
			w.mu.Unlock()
			continue
		}
		j := item.Value.(*job)
		h := j.target.ID
		delete(w.byHash, h)
		w.current = j
		w.mu.Unlock()

		if j.started != nil {
			j.started(h)
		}
		aborted, relocErr := w.relocate(j)

		w.mu.Lock()
		w.current = nil
		w.cond.Broadcast()
		w.mu.Unlock()

		if j.done != nil {
			j.done(h, aborted, relocErr)
		}
	}
}

func (w *Worker) relocate(j *job) (aborted bool, err error) {
	t := j.target

	if err := os.MkdirAll(t.NewRoot, 0755); err != nil {
		return false, fmt.Errorf("create destination root: %s", err)
	}

	for _, subpath := range t.Files {
		if j.abort.Load() {
			return true, nil
		}

		oldPath := filepath.Join(t.OldRoot, subpath)
		newPath := filepath.Join(t.NewRoot, subpath)

		if _, statErr := os.Stat(oldPath); os.IsNotExist(statErr) {
			continue
		}

		if err := os.MkdirAll(filepath.Dir(newPath), 0755); err != nil {
			return false, fmt.Errorf("create destination dir for %s: %s", subpath, err)
		}
		if err := w.move(oldPath, newPath); err != nil {
			if w.log != nil {
				w.log.Errorf("move %s -> %s: %s", oldPath, newPath, err)
			}
			return false, fmt.Errorf("move %s: %s", subpath, err)
		}
	}

	removeEmptyDirsBottomUp(t.OldRoot, t.Files)

	return false, nil
}

// removeEmptyDirsBottomUp removes now-empty parent directories of each
// moved file, starting from the deepest and working back toward root,
// stopping at the first non-empty directory on each path.
func removeEmptyDirsBottomUp(root string, files []string) {
	dirSet := make(map[string]bool)
	for _, f := range files {
		dir := filepath.Dir(f)
		for dir != "." && dir != "/" {
			dirSet[dir] = true
			dir = filepath.Dir(dir)
		}
	}
	var dirs []string
	for d := range dirSet {
		dirs = append(dirs, d)
	}
	// Deepest (longest) paths first, so children are removed before parents.
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, d := range dirs {
		os.Remove(filepath.Join(root, d))
	}
	os.Remove(root)
}
