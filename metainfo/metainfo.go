// Package metainfo parses bencoded .torrent files and magnet URIs into an
// immutable description of a swarm: trackers, webseeds, info-hash(es), and
// the file layout backing the torrent's linear content.
package metainfo

import (
	"github.com/kraken-torrent/engine/bencode"
	"github.com/kraken-torrent/engine/core"
)

// Metainfo is the immutable, fully-parsed description of a torrent, shared
// by every Torrent object referencing the same swarm.
type Metainfo struct {
	InfoHashV1    core.InfoHashV1
	HasInfoHashV2 bool
	InfoHashV2    core.InfoHashV2

	Name      string
	Comment   string
	Creator   string
	Source    string
	CreatedAt int64
	IsPrivate bool
	IsV2      bool

	PieceSize    uint32
	PieceHashes  [][20]byte
	Files        *FilePieceMap
	AnnounceList [][]string
	WebseedURLs  []string

	// Byte offsets into the original .torrent blob, used for ut_metadata
	// piece-wise exchange of the info dictionary.
	InfoDictOffset int
	InfoDictSize   int
	PiecesOffset   int
}

// InfoHashStr returns the canonical hex identifier for the torrent: the v1
// hash if present, else the v2 hash.
func (m *Metainfo) InfoHashStr() string {
	if !isZeroV1(m.InfoHashV1) {
		return m.InfoHashV1.Hex()
	}
	return m.InfoHashV2.Hex()
}

func isZeroV1(h core.InfoHashV1) bool {
	for _, b := range h {
		if b != 0 {
			return false
		}
	}
	return true
}

// TotalSize returns the sum of all file sizes described by the torrent.
func (m *Metainfo) TotalSize() uint64 {
	if m.Files == nil {
		return 0
	}
	return m.Files.TotalSize()
}

// Parse decodes a raw .torrent file's bencoded bytes into a Metainfo.
func Parse(data []byte) (*Metainfo, error) {
	top := &topLevelHandler{src: data}
	if _, err := bencode.Decode(data, top); err != nil {
		return nil, translateBencodeErr(err)
	}
	if top.infoSpan.Length == 0 {
		return nil, &ParseError{Reason: "missing info dictionary"}
	}

	infoBytes := data[top.infoSpan.Offset : top.infoSpan.Offset+top.infoSpan.Length]
	info := &infoHandler{}
	if _, err := bencode.Decode(infoBytes, info); err != nil {
		return nil, translateBencodeErr(err)
	}
	if info.name == "" {
		return nil, &ParseError{Reason: "info dictionary missing name"}
	}
	if info.pieceLength <= 0 {
		return nil, &ParseError{Reason: "info dictionary missing or invalid piece length"}
	}
	if len(info.pieces)%20 != 0 {
		return nil, &ParseError{Reason: "pieces field is not a multiple of 20 bytes"}
	}

	var files []FileEntry
	if len(info.files) > 0 {
		for _, f := range info.files {
			p, err := SanitizePath(f.path)
			if err != nil {
				return nil, err
			}
			files = append(files, FileEntry{Subpath: p, Size: uint64(f.length)})
		}
	} else {
		p, err := SanitizePath([]string{info.name})
		if err != nil {
			return nil, err
		}
		files = []FileEntry{{Subpath: p, Size: uint64(info.length)}}
	}

	isV2 := info.metaVersion == 2
	var hashes [][20]byte
	for i := 0; i+20 <= len(info.pieces); i += 20 {
		var h [20]byte
		copy(h[:], info.pieces[i:i+20])
		hashes = append(hashes, h)
	}

	mi := &Metainfo{
		InfoHashV1:     core.NewInfoHashV1FromBytes(infoBytes),
		Name:           info.name,
		Comment:        top.comment,
		Creator:        top.createdBy,
		Source:         info.source,
		CreatedAt:      top.creationDate,
		IsPrivate:      info.private,
		IsV2:           isV2,
		PieceSize:      uint32(info.pieceLength),
		PieceHashes:    hashes,
		Files:          NewFilePieceMap(files, uint32(info.pieceLength)),
		AnnounceList:   buildAnnounceList(top),
		WebseedURLs:    top.urlList,
		InfoDictOffset: top.infoSpan.Offset,
		InfoDictSize:   top.infoSpan.Length,
		PiecesOffset:   info.piecesSpan.Offset,
	}
	if isV2 {
		mi.HasInfoHashV2 = true
		mi.InfoHashV2 = core.NewInfoHashV2FromBytes(infoBytes)
	}

	multiFile := len(info.files) > 0
	if multiFile {
		for i, ws := range mi.WebseedURLs {
			if len(ws) > 0 && ws[len(ws)-1] != '/' {
				mi.WebseedURLs[i] = ws + "/"
			}
		}
	}

	return mi, nil
}

func buildAnnounceList(top *topLevelHandler) [][]string {
	if len(top.announceList) > 0 {
		return top.announceList
	}
	if top.announce != "" {
		return [][]string{{top.announce}}
	}
	return nil
}

func translateBencodeErr(err error) error {
	switch e := err.(type) {
	case *bencode.ErrMalformed:
		return &ParseError{Offset: e.Offset, Reason: e.Reason}
	case *bencode.ErrTruncated:
		return &ParseError{Offset: e.Offset, Reason: "truncated input"}
	case *bencode.ErrTooDeep:
		return &ParseError{Offset: e.Offset, Reason: "nesting too deep"}
	case *bencode.ErrCancelled:
		return &ParseError{Offset: e.Offset, Reason: "cancelled"}
	default:
		return err
	}
}
