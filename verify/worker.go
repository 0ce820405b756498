// Package verify runs a single background goroutine that hash-checks queued
// torrents in priority order, one torrent at a time.
package verify

import (
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/kraken-torrent/engine/core"
	"github.com/kraken-torrent/engine/utils/heap"
)

// ioThrottle is how long the verify loop sleeps after each wall-second of
// piece hashing, capping I/O load on the verify goroutine.
const ioThrottle = 100 * time.Millisecond

// Target is the subset of torrent state the verify worker needs in order to
// hash-check a torrent's pieces and report progress.
type Target interface {
	InfoHash() core.InfoHashV1
	NumPieces() uint32
	OnDiskSize() int64
	Priority() core.Priority
	VerifyPiece(piece uint32) (bool, error)
	SetPieceHave(piece uint32, have bool)
	SetProgress(fraction float64)
	SetVerifying()
}

// DoneFunc is invoked once a torrent finishes, or is aborted during,
// verification.
type DoneFunc func(h core.InfoHashV1, aborted bool)

type request struct {
	target Target
	done   DoneFunc
	abort  *atomic.Bool
}

// sizeBits bounds the on-disk size component of the composite sort key so it
// never overflows into the priority-rank bits above it.
const sizeBits = 48

// sortKey orders (priority desc, onDiskSize asc) as a single ascending int,
// since PriorityQueue pops the minimum Priority value first.
func sortKey(p core.Priority, onDiskSize int64) int {
	rank := int(core.PriorityHigh - p)
	size := onDiskSize
	if size < 0 {
		size = 0
	}
	const maxSize = int64(1)<<sizeBits - 1
	if size > maxSize {
		size = maxSize
	}
	return rank<<sizeBits | int(size)
}

// Worker processes a min-heap of pending torrents ordered by
// (priority desc, current on-disk size asc), verifying one torrent fully
// before moving to the next.
type Worker struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   *heap.PriorityQueue
	byHash  map[core.InfoHashV1]*heap.Item
	current *request
	closed  bool
	log     *zap.SugaredLogger
	clk     clock.Clock
}

// New starts a Worker's background loop and returns it, using the real wall
// clock to pace I/O.
func New(log *zap.SugaredLogger) *Worker {
	return NewWithClock(log, clock.New())
}

// NewWithClock is like New but takes an injectable clock, for tests that
// need to control the verify loop's I/O throttling.
func NewWithClock(log *zap.SugaredLogger, clk clock.Clock) *Worker {
	w := &Worker{
		queue:  heap.NewPriorityQueue(),
		byHash: make(map[core.InfoHashV1]*heap.Item),
		log:    log,
		clk:    clk,
	}
	w.cond = sync.NewCond(&w.mu)
	go w.loop()
	return w
}

// Add enqueues target for verification. done is called exactly once, either
// when verification completes or the torrent is removed before/during it. Add
// is a no-op if h is already queued or currently verifying.
func (w *Worker) Add(target Target, done DoneFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()

	h := target.InfoHash()
	if _, ok := w.byHash[h]; ok {
		return
	}
	if w.current != nil && w.current.target.InfoHash() == h {
		return
	}

	req := &request{
		target: target,
		done:   done,
		abort:  atomic.NewBool(false),
	}
	item := &heap.Item{
		Value:    req,
		Priority: sortKey(target.Priority(), target.OnDiskSize()),
	}
	w.queue.Push(item)
	w.byHash[h] = item
	w.cond.Signal()
}

// Remove cancels verification of h. If h is still queued, its done callback
// fires immediately with aborted=true. If h is currently verifying, Remove
// sets its abort flag and blocks until the running verify loop notices and
// exits.
func (w *Worker) Remove(h core.InfoHashV1) {
	w.mu.Lock()

	if item, ok := w.byHash[h]; ok {
		delete(w.byHash, h)
		w.queue.Remove(item)
		w.mu.Unlock()

		req := item.Value.(*request)
		if req.done != nil {
			req.done(h, true)
		}
		return
	}

	if w.current != nil && w.current.target.InfoHash() == h {
		w.current.abort.Store(true)
		for w.current != nil && w.current.target.InfoHash() == h {
			w.cond.Wait()
		}
	}

	w.mu.Unlock()
}

// Close stops the worker's background loop once it drains the queue.
// Queued and in-flight torrents still run to completion or abortion.
func (w *Worker) Close() {
	w.mu.Lock()
	w.closed = true
	w.cond.Broadcast()
	w.mu.Unlock()
}

// Len returns the number of torrents currently queued (excluding any
// in-flight verify).
func (w *Worker) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.queue.Len()
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
		req := item.Value.(*request)
		h := req.target.InfoHash()
		delete(w.byHash, h)
		w.current = req
		w.mu.Unlock()

		aborted := w.runVerify(req)

		w.mu.Lock()
		w.current = nil
		w.cond.Broadcast()
		w.mu.Unlock()

		if req.done != nil {
			req.done(h, aborted)
		}
	}
}

func (w *Worker) runVerify(req *request) (aborted bool) {
	t := req.target
	t.SetVerifying()
	n := t.NumPieces()
	lastThrottle := w.clk.Now()
	for p := uint32(0); p < n; p++ {
		if req.abort.Load() {
			return true
		}
		ok, err := t.VerifyPiece(p)
		if err != nil {
			if w.log != nil {
				w.log.Errorf("verify piece %d of %s: %s", p, t.InfoHash(), err)
			}
			ok = false
		}
		t.SetPieceHave(p, ok)
		t.SetProgress(float64(p+1) / float64(n))

		if now := w.clk.Now(); now.Sub(lastThrottle) >= time.Second {
			w.clk.Sleep(ioThrottle)
			lastThrottle = now
		}
	}
	return false
}
