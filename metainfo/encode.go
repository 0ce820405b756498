package metainfo

import (
	"bytes"

	bencodego "github.com/jackpal/bencode-go"
)

// wireInfo mirrors the bencode shape of an info dictionary for
// re-serialization (e.g. when a torrent is reconstructed from resume state
// or trimmed to a single-file magnet-derived placeholder).
type wireFile struct {
	Length int64    `bencode:"length"`
	Path   []string `bencode:"path"`
}

type wireInfo struct {
	Name        string      `bencode:"name"`
	PieceLength int64       `bencode:"piece length"`
	Pieces      string      `bencode:"pieces"`
	Length      int64       `bencode:"length,omitempty"`
	Files       []wireFile  `bencode:"files,omitempty"`
	Private     int64       `bencode:"private,omitempty"`
	MetaVersion int64       `bencode:"meta version,omitempty"`
	Source      string      `bencode:"source,omitempty"`
}

type wireTorrent struct {
	Info         wireInfo   `bencode:"info"`
	Announce     string     `bencode:"announce,omitempty"`
	AnnounceList [][]string `bencode:"announce-list,omitempty"`
	Comment      string     `bencode:"comment,omitempty"`
	CreatedBy    string     `bencode:"created by,omitempty"`
	CreationDate int64      `bencode:"creation date,omitempty"`
	URLList      []string   `bencode:"url-list,omitempty"`
}

// Encode re-serializes m into bencoded .torrent bytes, using
// github.com/jackpal/bencode-go's struct-tag driven marshaller.
func Encode(m *Metainfo) ([]byte, error) {
	pieces := make([]byte, 0, len(m.PieceHashes)*20)
	for _, h := range m.PieceHashes {
		pieces = append(pieces, h[:]...)
	}

	info := wireInfo{
		Name:        m.Name,
		PieceLength: int64(m.PieceSize),
		Pieces:      string(pieces),
		Source:      m.Source,
	}
	if m.IsPrivate {
		info.Private = 1
	}
	if m.IsV2 {
		info.MetaVersion = 2
	}

	if m.Files != nil {
		if len(m.Files.Files) == 1 {
			info.Length = int64(m.Files.Files[0].Size)
		} else {
			for _, f := range m.Files.Files {
				info.Files = append(info.Files, wireFile{
					Length: int64(f.Size),
					Path:   splitSubpath(f.Subpath),
				})
			}
		}
	}

	wt := wireTorrent{
		Info:         info,
		Comment:      m.Comment,
		CreatedBy:    m.Creator,
		CreationDate: m.CreatedAt,
		AnnounceList: m.AnnounceList,
		URLList:      m.WebseedURLs,
	}
	if len(m.AnnounceList) > 0 && len(m.AnnounceList[0]) > 0 {
		wt.Announce = m.AnnounceList[0][0]
	}

	var buf bytes.Buffer
	if err := bencodego.Marshal(&buf, wt); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func splitSubpath(p string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(p); i++ {
		if p[i] == '/' {
			parts = append(parts, p[start:i])
			start = i + 1
		}
	}
	parts = append(parts, p[start:])
	return parts
}
