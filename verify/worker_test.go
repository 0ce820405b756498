package verify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kraken-torrent/engine/core"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func hashN(b byte) core.InfoHashV1 {
	var h core.InfoHashV1
	h[0] = b
	return h
}

type fakeTarget struct {
	mu        sync.Mutex
	hash      core.InfoHashV1
	numPieces uint32
	onDisk    int64
	priority  core.Priority
	have      map[uint32]bool
	progress  float64
	verifying bool
	badPiece  uint32
	hasBad    bool
	block     chan struct{}
}

func newFakeTarget(h core.InfoHashV1, n uint32, size int64, pri core.Priority) *fakeTarget {
	return &fakeTarget{
		hash:      h,
		numPieces: n,
		onDisk:    size,
		priority:  pri,
		have:      make(map[uint32]bool),
	}
}

func (f *fakeTarget) InfoHash() core.InfoHashV1 { return f.hash }
func (f *fakeTarget) NumPieces() uint32         { return f.numPieces }
func (f *fakeTarget) OnDiskSize() int64         { return f.onDisk }
func (f *fakeTarget) Priority() core.Priority   { return f.priority }

func (f *fakeTarget) VerifyPiece(p uint32) (bool, error) {
	if f.block != nil && p == 0 {
		<-f.block
	}
	if f.hasBad && p == f.badPiece {
		return false, nil
	}
	return true, nil
}

func (f *fakeTarget) SetPieceHave(p uint32, have bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.have[p] = have
}

func (f *fakeTarget) SetProgress(frac float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = frac
}

func (f *fakeTarget) SetVerifying() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifying = true
}

func (f *fakeTarget) snapshot() (map[uint32]bool, float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	have := make(map[uint32]bool, len(f.have))
	for k, v := range f.have {
		have[k] = v
	}
	return have, f.progress, f.verifying
}

func waitForDone(t *testing.T, done chan struct{}) {
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for verify to complete")
	}
}

func TestVerifyAllPiecesPass(t *testing.T) {
	require := require.New(t)

	w := New(testLogger())
	defer w.Close()

	target := newFakeTarget(hashN(1), 4, 100, core.PriorityNormal)

	done := make(chan struct{})
	var aborted bool
	w.Add(target, func(h core.InfoHashV1, a bool) {
		aborted = a
		close(done)
	})

	waitForDone(t, done)

	require.False(aborted)
	have, progress, verifying := target.snapshot()
	require.True(verifying)
	require.Equal(1.0, progress)
	for p := uint32(0); p < 4; p++ {
		require.True(have[p])
	}
}

func TestVerifyFailingPieceMarkedNotHave(t *testing.T) {
	require := require.New(t)

	w := New(testLogger())
	defer w.Close()

	target := newFakeTarget(hashN(2), 3, 100, core.PriorityNormal)
	target.hasBad = true
	target.badPiece = 1

	done := make(chan struct{})
	w.Add(target, func(h core.InfoHashV1, a bool) {
		close(done)
	})

	waitForDone(t, done)

	have, _, _ := target.snapshot()
	require.True(have[0])
	require.False(have[1])
	require.True(have[2])
}

func TestVerifyOrdersByPriorityThenSize(t *testing.T) {
	require := require.New(t)

	w := New(testLogger())
	defer w.Close()

	// Block the worker on an initial torrent so all three below queue up
	// before any of them run, letting us observe pop order.
	blocker := newFakeTarget(hashN(0), 1, 0, core.PriorityLow)
	blocker.block = make(chan struct{})
	blockerDone := make(chan struct{})
	w.Add(blocker, func(core.InfoHashV1, bool) { close(blockerDone) })

	var mu sync.Mutex
	var order []core.InfoHashV1
	record := func(h core.InfoHashV1, aborted bool) {
		mu.Lock()
		order = append(order, h)
		mu.Unlock()
	}

	// wait until the blocker is actually picked up as current.
	for i := 0; i < 1000; i++ {
		w.mu.Lock()
		inFlight := w.current != nil
		w.mu.Unlock()
		if inFlight {
			break
		}
		time.Sleep(time.Millisecond)
	}

	small := newFakeTarget(hashN(3), 1, 10, core.PriorityNormal)
	large := newFakeTarget(hashN(4), 1, 1000, core.PriorityNormal)
	high := newFakeTarget(hashN(5), 1, 5000, core.PriorityHigh)

	done3 := make(chan struct{})
	w.Add(large, func(h core.InfoHashV1, a bool) { record(h, a); close(done3) })
	done2 := make(chan struct{})
	w.Add(small, func(h core.InfoHashV1, a bool) { record(h, a); close(done2) })
	done1 := make(chan struct{})
	w.Add(high, func(h core.InfoHashV1, a bool) { record(h, a); close(done1) })

	close(blocker.block)
	waitForDone(t, blockerDone)
	waitForDone(t, done1)
	waitForDone(t, done2)
	waitForDone(t, done3)

	require.Equal([]core.InfoHashV1{high.hash, small.hash, large.hash}, order)
}

func TestRemoveQueuedTorrentFiresAbortedCallback(t *testing.T) {
	require := require.New(t)

	w := New(testLogger())
	defer w.Close()

	blocker := newFakeTarget(hashN(10), 1, 0, core.PriorityLow)
	blocker.block = make(chan struct{})
	blockerDone := make(chan struct{})
	w.Add(blocker, func(core.InfoHashV1, bool) { close(blockerDone) })

	// wait until the blocker is in flight, so queued stays in the queue.
	for i := 0; i < 1000; i++ {
		w.mu.Lock()
		inFlight := w.current != nil
		w.mu.Unlock()
		if inFlight {
			break
		}
		time.Sleep(time.Millisecond)
	}

	queued := newFakeTarget(hashN(11), 1, 0, core.PriorityNormal)
	done := make(chan struct{})
	var aborted bool
	w.Add(queued, func(h core.InfoHashV1, a bool) {
		aborted = a
		close(done)
	})

	w.Remove(queued.hash)
	waitForDone(t, done)
	require.True(aborted)

	close(blocker.block)
	waitForDone(t, blockerDone)
}

func TestRemoveInFlightTorrentAbortsMidVerify(t *testing.T) {
	require := require.New(t)

	w := New(testLogger())
	defer w.Close()

	target := newFakeTarget(hashN(20), 1000, 0, core.PriorityNormal)
	target.block = make(chan struct{})

	done := make(chan struct{})
	var aborted bool
	w.Add(target, func(h core.InfoHashV1, a bool) {
		aborted = a
		close(done)
	})

	for i := 0; i < 1000; i++ {
		w.mu.Lock()
		inFlight := w.current != nil
		w.mu.Unlock()
		if inFlight {
			break
		}
		time.Sleep(time.Millisecond)
	}

	go w.Remove(target.hash)

	time.Sleep(10 * time.Millisecond)
	close(target.block)

	waitForDone(t, done)
	require.True(aborted)
}
