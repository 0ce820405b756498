package metainfo

import "github.com/kraken-torrent/engine/bencode"

// topLevelHandler walks the outer .torrent dictionary, recording the byte
// span of the "info" sub-dictionary (needed to hash it and to serve
// ut_metadata piece requests) and collecting the remaining scalar fields.
type topLevelHandler struct {
	bencode.BaseHandler

	src []byte
	key string
	// depth 0 = top dict itself; 1 = direct child value of top dict.
	depth int

	infoSpan     bencode.Span
	announce     string
	announceList [][]string
	comment      string
	createdBy    string
	creationDate int64
	urlList      []string

	// announce-list parsing state.
	inAnnounceList bool
	curTier        []string
	tierDepth      int

	// url-list may be a single string or a list of strings.
	inURLList bool
}

func (h *topLevelHandler) StartDict(span bencode.Span) bool {
	h.depth++
	if h.depth == 2 && h.key == "info" {
		h.infoSpan = span
	}
	return true
}

func (h *topLevelHandler) EndDict(span bencode.Span) bool {
	if h.depth == 2 && h.key == "info" {
		h.infoSpan.Length = span.Offset + span.Length - h.infoSpan.Offset
	}
	h.depth--
	return true
}

func (h *topLevelHandler) Key(span bencode.Span, k []byte) bool {
	if h.depth == 1 {
		h.key = string(k)
	}
	return true
}

func (h *topLevelHandler) String(span bencode.Span, v []byte) bool {
	switch {
	case h.inAnnounceList:
		h.curTier = append(h.curTier, string(v))
	case h.inURLList:
		h.urlList = append(h.urlList, string(v))
	case h.depth == 1 && h.key == "announce":
		h.announce = string(v)
	case h.depth == 1 && h.key == "comment":
		h.comment = string(v)
	case h.depth == 1 && h.key == "created by":
		h.createdBy = string(v)
	case h.depth == 1 && h.key == "url-list":
		h.urlList = append(h.urlList, string(v))
	}
	return true
}

func (h *topLevelHandler) Int64(span bencode.Span, v int64) bool {
	if h.depth == 1 && h.key == "creation date" {
		h.creationDate = v
	}
	return true
}

func (h *topLevelHandler) StartArray(span bencode.Span) bool {
	if h.depth == 1 && h.key == "announce-list" {
		h.inAnnounceList = true
		h.tierDepth = 0
	} else if h.inAnnounceList {
		h.tierDepth++
		h.curTier = nil
	} else if h.depth == 1 && h.key == "url-list" {
		h.inURLList = true
	}
	h.depth++
	return true
}

func (h *topLevelHandler) EndArray(span bencode.Span) bool {
	h.depth--
	if h.inAnnounceList {
		if h.tierDepth > 0 {
			h.announceList = append(h.announceList, h.curTier)
			h.curTier = nil
			h.tierDepth--
		} else {
			h.inAnnounceList = false
		}
	} else if h.inURLList {
		h.inURLList = false
	}
	return true
}

// fileEntry is a raw (unsanitized) file record from the info dict's "files"
// list.
type fileEntry struct {
	path   []string
	length int64
}

// infoHandler walks a torrent's info dictionary in isolation (sliced out of
// the original buffer by topLevelHandler's span), collecting the fields
// needed to build a Metainfo.
type infoHandler struct {
	bencode.BaseHandler

	depth int
	key   string

	name        string
	pieceLength int64
	pieces      []byte
	piecesSpan  bencode.Span
	length      int64
	private     bool
	metaVersion int64
	source      string

	files       []fileEntry
	inFiles     bool
	fileDepth   int
	curFile     fileEntry
	inPathList  bool
	pathSegment []string
}

func (h *infoHandler) StartDict(span bencode.Span) bool {
	h.depth++
	if h.inFiles {
		h.fileDepth++
		if h.fileDepth == 1 {
			h.curFile = fileEntry{}
		}
	}
	return true
}

func (h *infoHandler) EndDict(span bencode.Span) bool {
	h.depth--
	if h.inFiles {
		h.fileDepth--
		if h.fileDepth == 0 {
			h.files = append(h.files, h.curFile)
		}
	}
	return true
}

func (h *infoHandler) Key(span bencode.Span, k []byte) bool {
	if h.depth == 1 {
		h.key = string(k)
	} else if h.inFiles && h.fileDepth == 1 {
		h.key = string(k)
	}
	return true
}

func (h *infoHandler) String(span bencode.Span, v []byte) bool {
	switch {
	case h.inPathList:
		h.pathSegment = append(h.pathSegment, string(v))
	case h.depth == 1 && h.key == "name":
		h.name = string(v)
	case h.depth == 1 && h.key == "name.utf-8":
		h.name = string(v)
	case h.depth == 1 && h.key == "pieces":
		h.pieces = v
		h.piecesSpan = span
	case h.depth == 1 && h.key == "source":
		h.source = string(v)
	}
	return true
}

func (h *infoHandler) Int64(span bencode.Span, v int64) bool {
	switch {
	case h.depth == 1 && h.key == "piece length":
		h.pieceLength = v
	case h.depth == 1 && h.key == "length":
		h.length = v
	case h.depth == 1 && h.key == "private":
		h.private = v != 0
	case h.depth == 1 && h.key == "meta version":
		h.metaVersion = v
	case h.inFiles && h.fileDepth == 1 && h.key == "length":
		h.curFile.length = v
	}
	return true
}

func (h *infoHandler) StartArray(span bencode.Span) bool {
	if h.depth == 1 && h.key == "files" {
		h.inFiles = true
	} else if h.inFiles && h.fileDepth == 1 && h.key == "path" {
		h.inPathList = true
		h.pathSegment = nil
	}
	h.depth++
	return true
}

func (h *infoHandler) EndArray(span bencode.Span) bool {
	h.depth--
	if h.inFiles && h.fileDepth == 1 && h.inPathList {
		h.curFile.path = h.pathSegment
		h.inPathList = false
	} else if h.depth == 1 && h.inFiles {
		h.inFiles = false
	}
	return true
}
