// Package ioengine reads, writes, and verifies torrent content by walking
// the file map and routing each sub-range through the open-files cache.
package ioengine

import (
	"crypto/sha1"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kraken-torrent/engine/bandwidth"
	"github.com/kraken-torrent/engine/geometry"
	"github.com/kraken-torrent/engine/metainfo"
	"github.com/kraken-torrent/engine/openfiles"
)

// throttlePause is how long Read/Write waits before asking the limiter for
// the remainder of a clamped transfer, per spec §5.
const throttlePause = 500 * time.Millisecond

// Engine performs block-level I/O for a single torrent's content, backed by
// a shared open-files cache.
type Engine struct {
	torrentID      uint32
	downloadDir    string
	files          *metainfo.FilePieceMap
	geom           geometry.BlockInfo
	cache          *openfiles.Cache
	pieceHashes    [][20]byte
	prealloc       openfiles.Prealloc
	limiter        *bandwidth.Limiter
	bandwidthGroup string
}

// New creates an Engine for a torrent rooted at downloadDir. limiter clamps
// every Read/Write against bandwidthGroup's shared token buckets.
func New(
	torrentID uint32,
	downloadDir string,
	files *metainfo.FilePieceMap,
	geom geometry.BlockInfo,
	pieceHashes [][20]byte,
	cache *openfiles.Cache,
	prealloc openfiles.Prealloc,
	limiter *bandwidth.Limiter,
	bandwidthGroup string,
) *Engine {
	return &Engine{
		torrentID:      torrentID,
		downloadDir:    downloadDir,
		files:          files,
		geom:           geom,
		cache:          cache,
		pieceHashes:    pieceHashes,
		prealloc:       prealloc,
		limiter:        limiter,
		bandwidthGroup: bandwidthGroup,
	}
}

// throttle clamps n bytes of direction traffic against the shared limiter,
// pausing and retrying for the remainder when the grant is partial.
func (e *Engine) throttle(direction bandwidth.Direction, n int) {
	if e.limiter == nil {
		return
	}
	tag := bandwidth.Tag{Direction: direction, Group: e.bandwidthGroup}
	remaining := n
	for remaining > 0 {
		granted := e.limiter.Clamp(tag, remaining)
		remaining -= granted
		if remaining > 0 {
			time.Sleep(throttlePause)
		}
	}
}

// span is one (file, offset, length) leg of a read/write that may cross
// file boundaries.
type span struct {
	fileIndex int
	fileOff   int64
	length    int64
}

func (e *Engine) spansFor(byteOffset uint64, length int) ([]span, error) {
	if length < 0 {
		return nil, fmt.Errorf("negative length")
	}
	var spans []span
	remaining := int64(length)
	cur := byteOffset
	for remaining > 0 {
		fi, ok := e.files.FileForByte(cur)
		if !ok {
			return nil, fmt.Errorf("byte offset %d out of range", cur)
		}
		f := e.files.Files[fi]
		fileOff := int64(cur - f.BeginByte)
		avail := int64(f.Size) - fileOff
		n := remaining
		if n > avail {
			n = avail
		}
		spans = append(spans, span{fileIndex: fi, fileOff: fileOff, length: n})
		cur += uint64(n)
		remaining -= n
	}
	return spans, nil
}

func (e *Engine) path(fileIndex int) string {
	return filepath.Join(e.downloadDir, e.files.Files[fileIndex].Subpath)
}

// Read fills out with the torrent content at [byteOffset, byteOffset+len(out)).
func (e *Engine) Read(byteOffset uint64, out []byte) error {
	spans, err := e.spansFor(byteOffset, len(out))
	if err != nil {
		return err
	}
	pos := 0
	for _, s := range spans {
		f, err := e.cache.Get(e.torrentID, s.fileIndex, false, e.path(s.fileIndex), openfiles.PreallocNone, 0)
		if err != nil {
			return fmt.Errorf("open file %d: %s", s.fileIndex, err)
		}
		e.throttle(bandwidth.Upload, int(s.length))
		if _, err := f.ReadAt(out[pos:pos+int(s.length)], s.fileOff); err != nil {
			return fmt.Errorf("read file %d: %s", s.fileIndex, err)
		}
		pos += int(s.length)
	}
	return nil
}

// Write stores in at [byteOffset, byteOffset+len(in)).
func (e *Engine) Write(byteOffset uint64, in []byte) error {
	spans, err := e.spansFor(byteOffset, len(in))
	if err != nil {
		return err
	}
	pos := 0
	for _, s := range spans {
		expected := int64(e.files.Files[s.fileIndex].Size)
		f, err := e.cache.Get(e.torrentID, s.fileIndex, true, e.path(s.fileIndex), e.prealloc, expected)
		if err != nil {
			return fmt.Errorf("open file %d: %s", s.fileIndex, err)
		}
		e.throttle(bandwidth.Download, int(s.length))
		if _, err := f.WriteAt(in[pos:pos+int(s.length)], s.fileOff); err != nil {
			return fmt.Errorf("write file %d: %s", s.fileIndex, err)
		}
		pos += int(s.length)
	}
	return nil
}

// Prefetch hints the OS that the given range will be read soon. It does no
// copying; platforms without readahead support treat this as a no-op.
func (e *Engine) Prefetch(byteOffset uint64, length int) error {
	spans, err := e.spansFor(byteOffset, length)
	if err != nil {
		return err
	}
	for _, s := range spans {
		f, err := e.cache.Get(e.torrentID, s.fileIndex, false, e.path(s.fileIndex), openfiles.PreallocNone, 0)
		if err != nil {
			return fmt.Errorf("open file %d: %s", s.fileIndex, err)
		}
		fadvWillNeed(f, s.fileOff, s.length)
	}
	return nil
}

// VerifyPiece reads piece p's full byte range and compares its SHA-1 digest
// against the torrent's recorded piece hash.
func (e *Engine) VerifyPiece(p uint32) (bool, error) {
	if int(p) >= len(e.pieceHashes) {
		return false, fmt.Errorf("piece %d out of range", p)
	}
	pieceLen := e.geom.PieceLen(p)
	buf := make([]byte, pieceLen)
	byteOffset := uint64(p) * uint64(e.geom.PieceSize)
	if err := e.Read(byteOffset, buf); err != nil {
		return false, err
	}
	sum := sha1.Sum(buf)
	return sum == e.pieceHashes[p], nil
}

func fadvWillNeed(f *os.File, offset, length int64) {
	fadvWillNeedPlatform(f, offset, length)
}
