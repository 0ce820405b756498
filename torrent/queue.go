package torrent

import (
	"sort"
	"sync"
)

// Queue maintains dense [0..N) queue positions across a set of torrents,
// per spec's queue discipline: moving one torrent to a new position shifts
// every torrent between its old and new position by one to keep the
// invariant, and marks every moved torrent dirty.
type Queue struct {
	mu    sync.Mutex
	items []*Torrent
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Append adds t to the end of the queue, assigning it the next position.
func (q *Queue) Append(t *Torrent) {
	q.mu.Lock()
	defer q.mu.Unlock()

	t.mu.Lock()
	t.queuePosition = len(q.items)
	t.dirty = true
	t.mu.Unlock()

	q.items = append(q.items, t)
}

// Remove drops t from the queue, compacting positions of every torrent
// that followed it.
func (q *Queue) Remove(t *Torrent) {
	q.mu.Lock()
	defer q.mu.Unlock()

	idx := q.indexOf(t)
	if idx < 0 {
		return
	}
	q.items = append(q.items[:idx], q.items[idx+1:]...)
	q.renumberFrom(idx)
}

// SetPosition moves t to position p, shifting every torrent between t's old
// and new position by one. p is clamped to [0, len-1].
func (q *Queue) SetPosition(t *Torrent, p int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	idx := q.indexOf(t)
	if idx < 0 {
		return
	}
	if p < 0 {
		p = 0
	}
	if p >= len(q.items) {
		p = len(q.items) - 1
	}
	if p == idx {
		return
	}

	q.items = append(q.items[:idx], q.items[idx+1:]...)
	q.items = append(q.items[:p], append([]*Torrent{t}, q.items[p:]...)...)
	q.renumberFrom(min(idx, p))
}

// sortedByPosition returns a copy of ts ordered by current queue position,
// ascending or descending. Each torrent sorts by its stored queuePosition,
// so one not currently in the queue sorts by the position it last held.
func (q *Queue) sortedByPosition(ts []*Torrent, descending bool) []*Torrent {
	out := make([]*Torrent, len(ts))
	copy(out, ts)
	sort.Slice(out, func(i, j int) bool {
		pi, pj := out[i].QueuePosition(), out[j].QueuePosition()
		if descending {
			return pi > pj
		}
		return pi < pj
	})
	return out
}

// MoveTop moves ts to the front of the queue, preserving their relative
// order, per the original tr_torrentsQueueMoveTop: processing torrents from
// highest current position to lowest and repeatedly inserting each at
// position 0 leaves the lowest-positioned (and so first-selected) torrent
// at the very front.
func (q *Queue) MoveTop(ts []*Torrent) {
	for _, t := range q.sortedByPosition(ts, true) {
		q.SetPosition(t, 0)
	}
}

// MoveBottom moves ts to the end of the queue, preserving their relative
// order — the mirror of MoveTop, per tr_torrentsQueueMoveBottom.
func (q *Queue) MoveBottom(ts []*Torrent) {
	for _, t := range q.sortedByPosition(ts, false) {
		q.SetPosition(t, q.Len()-1)
	}
}

// MoveUp shifts each of ts one position earlier, skipping any already at
// the front, per tr_torrentsQueueMoveUp. Processed lowest-position-first so
// an earlier move never blocks a later one from reaching its new slot.
func (q *Queue) MoveUp(ts []*Torrent) {
	for _, t := range q.sortedByPosition(ts, false) {
		if p := t.QueuePosition(); p > 0 {
			q.SetPosition(t, p-1)
		}
	}
}

// MoveDown shifts each of ts one position later, skipping any already at
// the back, per tr_torrentsQueueMoveDown.
func (q *Queue) MoveDown(ts []*Torrent) {
	for _, t := range q.sortedByPosition(ts, true) {
		if p := t.QueuePosition(); p < q.Len()-1 {
			q.SetPosition(t, p+1)
		}
	}
}

func (q *Queue) indexOf(t *Torrent) int {
	for i, item := range q.items {
		if item == t {
			return i
		}
	}
	return -1
}

// renumberFrom reassigns queuePosition for every torrent at index >= from,
// marking each dirty.
func (q *Queue) renumberFrom(from int) {
	for i := from; i < len(q.items); i++ {
		item := q.items[i]
		item.mu.Lock()
		if item.queuePosition != i {
			item.queuePosition = i
			item.dirty = true
		}
		item.mu.Unlock()
	}
}

// Ordered returns the queue's torrents in position order.
func (q *Queue) Ordered() []*Torrent {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Torrent, len(q.items))
	copy(out, q.items)
	return out
}

// Len returns the number of torrents in the queue.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
