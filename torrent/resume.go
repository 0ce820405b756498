package torrent

import (
	"strings"
	"time"

	"github.com/kraken-torrent/engine/core"
	"github.com/kraken-torrent/engine/resumedb"
)

func priorityFromInt(v int) core.Priority {
	switch core.Priority(v) {
	case core.PriorityLow, core.PriorityHigh:
		return core.Priority(v)
	default:
		return core.PriorityNormal
	}
}

func bitFieldFromBytes(n uint32, data []byte) *core.BitField {
	return core.BitFieldFromBytes(n, data)
}

// ToRecord snapshots the torrent's persistent fields into a resumedb.Record
// suitable for Store.Save.
func (t *Torrent) ToRecord() resumedb.Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var dateDone *time.Time
	if !t.dateDone.IsZero() {
		d := t.dateDone
		dateDone = &d
	}

	return resumedb.Record{
		InfoHash:           t.meta.InfoHashV1.Hex(),
		Name:               t.meta.Name,
		DownloadDir:        t.downloadDir,
		CurrentDir:         t.currentDir,
		Priority:           int(t.priority),
		QueuePosition:      t.queuePosition,
		Activity:           int(t.activity),
		Finished:           t.finished,
		CompletionBitfield: t.completion.Bytes(),
		HaveBlocksBitfield: t.haveBlocks.Bytes(),
		UploadedEver:       t.uploaded.Ever,
		DownloadedEver:     t.downloaded.Ever,
		CorruptEver:        t.corrupt.Ever,
		Labels:             strings.Join(t.labels, ","),
		BandwidthGroup:     t.bandwidthGroup,
		DateAdded:          t.dateAdded,
		DateDone:           dateDone,
		SecondsSeeding:     int64(t.secondsSeeding / time.Second),
		SecondsDownloading: int64(t.secondsDownloading / time.Second),
	}
}

// ApplyRecord restores persisted state onto a freshly constructed Torrent
// (built via New against the same metainfo). A recorded Stopped activity
// stays Stopped; any other recorded activity is restored as CheckWait
// rather than the recorded value, since any resume must re-verify piece
// data before trusting it as Download/Seed — the one deliberate deviation
// from a literal field restore.
func (t *Torrent) ApplyRecord(rec resumedb.Record) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.currentDir = rec.CurrentDir
	t.priority = priorityFromInt(rec.Priority)
	t.queuePosition = rec.QueuePosition
	t.finished = rec.Finished
	t.completion = bitFieldFromBytes(t.geom.NPieces, rec.CompletionBitfield)
	t.haveBlocks = bitFieldFromBytes(t.geom.NBlocks, rec.HaveBlocksBitfield)
	t.uploaded = ByteCounter{Ever: rec.UploadedEver}
	t.downloaded = ByteCounter{Ever: rec.DownloadedEver}
	t.corrupt = ByteCounter{Ever: rec.CorruptEver}
	if rec.Labels != "" {
		t.labels = strings.Split(rec.Labels, ",")
	}
	t.bandwidthGroup = rec.BandwidthGroup
	t.hasBandwidthGroup = rec.BandwidthGroup != ""
	t.dateAdded = rec.DateAdded
	if rec.DateDone != nil {
		t.dateDone = *rec.DateDone
	}
	t.secondsSeeding = time.Duration(rec.SecondsSeeding) * time.Second
	t.secondsDownloading = time.Duration(rec.SecondsDownloading) * time.Second

	t.activity = Stopped
	if Activity(rec.Activity) != Stopped {
		t.activity = CheckWait
	}
	t.dirty = false
}
