package metainfo

import "sort"

// FileEntry describes one file within a (possibly multi-file) torrent.
type FileEntry struct {
	Subpath   string
	Size      uint64
	BeginByte uint64
}

// EndByte returns the exclusive end offset of the file within the torrent's
// linear content.
func (f FileEntry) EndByte() uint64 { return f.BeginByte + f.Size }

// FilePieceMap is the ordered sequence of files making up a torrent's
// linear content, supporting lookups from byte offset or piece index to
// the file(s) involved.
type FilePieceMap struct {
	Files     []FileEntry
	PieceSize uint32
}

// NewFilePieceMap builds a FilePieceMap from files in on-disk order,
// assigning begin_byte offsets by accumulation.
func NewFilePieceMap(files []FileEntry, pieceSize uint32) *FilePieceMap {
	var offset uint64
	out := make([]FileEntry, len(files))
	for i, f := range files {
		f.BeginByte = offset
		out[i] = f
		offset += f.Size
	}
	return &FilePieceMap{Files: out, PieceSize: pieceSize}
}

// TotalSize returns the sum of all file sizes.
func (m *FilePieceMap) TotalSize() uint64 {
	if len(m.Files) == 0 {
		return 0
	}
	last := m.Files[len(m.Files)-1]
	return last.EndByte()
}

// FileForByte returns the index of the file containing byte offset b, via
// binary search for the first file whose EndByte lies past b.
func (m *FilePieceMap) FileForByte(b uint64) (int, bool) {
	i := sort.Search(len(m.Files), func(i int) bool {
		return m.Files[i].EndByte() > b
	})
	if i >= len(m.Files) || b < m.Files[i].BeginByte {
		return 0, false
	}
	return i, true
}

// FilesForPiece returns the inclusive [first, last] file indices spanned by
// piece p.
func (m *FilePieceMap) FilesForPiece(p uint32) (first, last int, ok bool) {
	if m.PieceSize == 0 {
		return 0, 0, false
	}
	start := uint64(p) * uint64(m.PieceSize)
	end := start + uint64(m.PieceSize) - 1
	total := m.TotalSize()
	if total == 0 || start >= total {
		return 0, 0, false
	}
	if end >= total {
		end = total - 1
	}
	first, ok1 := m.FileForByte(start)
	last, ok2 := m.FileForByte(end)
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	return first, last, true
}
