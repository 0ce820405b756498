// Package torrent holds the mutable, process-lifetime state of a single
// torrent: its activity state machine, queue position, verification
// bitfields, and transfer statistics. A Session (not implemented here)
// exclusively owns each Torrent; everything else holds an info hash and
// asks the session to resolve it.
package torrent

import (
	"sync"
	"time"

	"github.com/kraken-torrent/engine/core"
	"github.com/kraken-torrent/engine/geometry"
	"github.com/kraken-torrent/engine/ioengine"
	"github.com/kraken-torrent/engine/metainfo"
)

// ErrorKind classifies the most recent error recorded against a torrent.
type ErrorKind int

const (
	ErrorNone ErrorKind = iota
	ErrorTrackerWarning
	ErrorTrackerError
	ErrorLocalError
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorNone:
		return "none"
	case ErrorTrackerWarning:
		return "tracker-warning"
	case ErrorTrackerError:
		return "tracker-error"
	case ErrorLocalError:
		return "local-error"
	default:
		return "unknown"
	}
}

// TorrentError is the last error recorded against a torrent, if any.
type TorrentError struct {
	Kind        ErrorKind
	AnnounceURL string
	Message     string
}

// ByteCounter tracks a lifetime total alongside a count since the torrent
// was last started, matching spec's "(ever, this_session)" pairs.
type ByteCounter struct {
	Ever       uint64
	ThisSession uint64
}

// Add increments both halves of the counter by n.
func (c *ByteCounter) Add(n uint64) {
	c.Ever += n
	c.ThisSession += n
}

// ResetSession zeroes the session half, e.g. on restart.
func (c *ByteCounter) ResetSession() {
	c.ThisSession = 0
}

// Torrent is the mutable state the session tracks for one swarm membership.
// All exported accessor/mutator methods are safe for concurrent use.
type Torrent struct {
	mu sync.RWMutex

	id            uint32
	meta          *metainfo.Metainfo
	geom          geometry.BlockInfo
	engine        *ioengine.Engine

	queuePosition int
	priority      core.Priority
	activity      Activity
	finished      bool

	completion *core.BitField // per-piece verified state
	haveBlocks *core.BitField // per-block downloaded state
	checked    *core.BitField // per-piece "has been hash-checked this session"
	fileMtimes []time.Time

	downloadDir   string
	incompleteDir string
	currentDir    string

	uploaded   ByteCounter
	downloaded ByteCounter
	corrupt    ByteCounter

	lastError TorrentError

	labels         []string
	bandwidthGroup string
	hasBandwidthGroup bool

	dirty bool

	dateAdded   time.Time
	dateStarted time.Time
	dateActive  time.Time
	dateDone    time.Time
	dateEdited  time.Time
	dateChanged time.Time

	secondsSeeding    time.Duration
	secondsDownloading time.Duration

	verifyProgress float64
	verifying      bool

	seedRatioMode  LimitMode
	seedRatioLimit float64
	idleLimitMode  LimitMode
	idleMinutes    uint16
}

// New constructs a Torrent in the Stopped activity, with no pieces marked
// complete, rooted at downloadDir.
func New(
	id uint32,
	meta *metainfo.Metainfo,
	geom geometry.BlockInfo,
	engine *ioengine.Engine,
	downloadDir string,
	priority core.Priority,
) *Torrent {
	now := time.Now()
	return &Torrent{
		id:            id,
		meta:          meta,
		geom:          geom,
		engine:        engine,
		priority:      priority,
		activity:      Stopped,
		completion:    core.NewBitField(geom.NPieces),
		haveBlocks:    core.NewBitField(geom.NBlocks),
		checked:       core.NewBitField(geom.NPieces),
		fileMtimes:    make([]time.Time, len(meta.Files.Files)),
		downloadDir:   downloadDir,
		currentDir:    downloadDir,
		dateAdded:     now,
		dateActive:    now,
		dateEdited:    now,
		dateChanged:   now,
		dirty:         true,
	}
}

func (t *Torrent) touchLocked() {
	t.dateChanged = time.Now()
}

func (t *Torrent) isDoneLocked() bool {
	return t.completion.All()
}

// ID returns the torrent's session-unique numeric id.
func (t *Torrent) ID() uint32 { return t.id }

// InfoHash returns the torrent's v1 info hash, satisfying verify.Target and
// location.Target.
func (t *Torrent) InfoHash() core.InfoHashV1 { return t.meta.InfoHashV1 }

// NumPieces returns the number of pieces, satisfying verify.Target.
func (t *Torrent) NumPieces() uint32 { return t.geom.NPieces }

// OnDiskSize returns the torrent's total content size, satisfying
// verify.Target's secondary sort key.
func (t *Torrent) OnDiskSize() int64 { return int64(t.geom.TotalSize) }

// Priority returns the torrent's scheduling priority, satisfying
// verify.Target.
func (t *Torrent) Priority() core.Priority {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.priority
}

// SetPriority updates the torrent's scheduling priority.
func (t *Torrent) SetPriority(p core.Priority) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.priority = p
	t.dirty = true
}

// VerifyPiece hash-checks piece p against the engine, satisfying
// verify.Target.
func (t *Torrent) VerifyPiece(p uint32) (bool, error) {
	return t.engine.VerifyPiece(p)
}

// SetPieceHave records piece p's verified-complete state, satisfying
// verify.Target.
func (t *Torrent) SetPieceHave(p uint32, have bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completion.Set(p, have)
	t.checked.Set(p, true)
	t.dirty = true
}

// SetProgress records the verify worker's fractional progress through this
// torrent's pieces, satisfying verify.Target.
func (t *Torrent) SetProgress(fraction float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.verifyProgress = fraction
}

// SetVerifying marks the torrent as actively being hash-checked, satisfying
// verify.Target.
func (t *Torrent) SetVerifying() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.verifying = true
	t.verifyProgress = 0
}

// IsDone reports whether every piece has verified-complete.
func (t *Torrent) IsDone() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.isDoneLocked()
}

// Completion returns the per-piece completion bitfield.
func (t *Torrent) Completion() *core.BitField { return t.completion }

// HaveBlocks returns the per-block download bitfield.
func (t *Torrent) HaveBlocks() *core.BitField { return t.haveBlocks }

// QueuePosition returns the torrent's dense queue position.
func (t *Torrent) QueuePosition() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.queuePosition
}

// RecordUpload adds n bytes to the upload counters.
func (t *Torrent) RecordUpload(n uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.uploaded.Add(n)
	t.dateActive = time.Now()
	t.dirty = true
}

// RecordDownload adds n bytes to the download counters.
func (t *Torrent) RecordDownload(n uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.downloaded.Add(n)
	t.dateActive = time.Now()
	t.dirty = true
}

// RecordCorrupt adds n bytes to the corrupt-data counters.
func (t *Torrent) RecordCorrupt(n uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.corrupt.Add(n)
	t.dirty = true
}

// Stats returns a snapshot of the upload/download/corrupt byte counters.
func (t *Torrent) Stats() (uploaded, downloaded, corrupt ByteCounter) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.uploaded, t.downloaded, t.corrupt
}

// SetError records an error against the torrent. kind ErrorNone clears it.
func (t *Torrent) SetError(kind ErrorKind, announceURL, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastError = TorrentError{Kind: kind, AnnounceURL: announceURL, Message: message}
	if kind == ErrorLocalError {
		t.setActivityLocked(Stopped)
	}
	t.dirty = true
}

// LastError returns the torrent's most recently recorded error.
func (t *Torrent) LastError() TorrentError {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastError
}

// SetLabels replaces the torrent's label set.
func (t *Torrent) SetLabels(labels []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.labels = append([]string(nil), labels...)
	t.dirty = true
	t.dateEdited = time.Now()
}

// Labels returns a copy of the torrent's labels.
func (t *Torrent) Labels() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.labels...)
}

// SetBandwidthGroup assigns the torrent to a named bandwidth group. An
// empty name clears the assignment.
func (t *Torrent) SetBandwidthGroup(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bandwidthGroup = name
	t.hasBandwidthGroup = name != ""
	t.dirty = true
}

// BandwidthGroup returns the torrent's bandwidth group name and whether one
// is assigned.
func (t *Torrent) BandwidthGroup() (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.bandwidthGroup, t.hasBandwidthGroup
}

// Dirty reports whether the torrent has unsaved changes since the last
// ClearDirty, driving "needs resume-file rewrite".
func (t *Torrent) Dirty() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.dirty
}

// ClearDirty marks the torrent as persisted.
func (t *Torrent) ClearDirty() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dirty = false
}

// DownloadDir returns the torrent's configured download directory.
func (t *Torrent) DownloadDir() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.downloadDir
}

// CurrentDir returns the directory the torrent's content currently lives
// in, which may differ from DownloadDir while incomplete.
func (t *Torrent) CurrentDir() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.currentDir
}

// SetCurrentDir updates the torrent's current content directory, e.g.
// after the location worker completes a relocate job.
func (t *Torrent) SetCurrentDir(dir string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.currentDir = dir
	t.dirty = true
}

// Metainfo returns the torrent's immutable metainfo.
func (t *Torrent) Metainfo() *metainfo.Metainfo { return t.meta }

// Geometry returns the torrent's piece/block geometry.
func (t *Torrent) Geometry() geometry.BlockInfo { return t.geom }
