package announce

import (
	"net"

	"github.com/kraken-torrent/engine/bencode"
	"github.com/kraken-torrent/engine/core"
)

// responseHandler decodes a bencoded HTTP/UDP-scrape-analogous tracker
// announce response into a Response, recognizing both the compact binary
// peer formats and the older dict-list format.
type responseHandler struct {
	bencode.BaseHandler

	resp *Response

	depth   int
	key     string
	curPeer Peer
	peers6  bool
}

func newResponseHandler() *responseHandler {
	return &responseHandler{resp: &Response{}}
}

func (h *responseHandler) StartDict(bencode.Span) bool {
	h.depth++
	if h.depth == 3 {
		h.curPeer = Peer{}
	}
	return true
}

func (h *responseHandler) EndDict(bencode.Span) bool {
	if h.depth == 3 {
		p := h.curPeer
		if h.peers6 {
			h.resp.Peers6 = append(h.resp.Peers6, p)
		} else {
			h.resp.Peers = append(h.resp.Peers, p)
		}
	}
	h.depth--
	return true
}

func (h *responseHandler) StartArray(bencode.Span) bool {
	h.depth++
	return true
}

func (h *responseHandler) EndArray(bencode.Span) bool {
	h.depth--
	return true
}

func (h *responseHandler) Key(_ bencode.Span, k []byte) bool {
	if h.depth == 1 {
		h.key = string(k)
	} else if h.depth == 3 {
		h.key = string(k)
	}
	return true
}

func (h *responseHandler) Int64(_ bencode.Span, v int64) bool {
	switch h.depth {
	case 1:
		switch h.key {
		case "interval":
			h.resp.Interval = int(v)
		case "min interval":
			h.resp.MinInterval = int(v)
		case "complete":
			h.resp.Complete = int(v)
		case "incomplete":
			h.resp.Incomplete = int(v)
		case "downloaded":
			h.resp.Downloaded = int(v)
		}
	case 3:
		if h.key == "port" {
			h.curPeer.Port = uint16(v)
		}
	}
	return true
}

func (h *responseHandler) String(_ bencode.Span, v []byte) bool {
	switch h.depth {
	case 1:
		switch h.key {
		case "tracker id":
			h.resp.TrackerID = string(v)
		case "failure reason":
			h.resp.FailureReason = string(v)
		case "warning message":
			h.resp.WarningMessage = string(v)
		case "external ip":
			if len(v) == 4 {
				h.resp.ExternalIP = net.IP(append([]byte(nil), v...))
			}
		case "peers":
			h.peers6 = false
			h.resp.Peers = append(h.resp.Peers, decodeCompactPeers(v, false)...)
		case "peers6":
			h.peers6 = true
			h.resp.Peers6 = append(h.resp.Peers6, decodeCompactPeers(v, true)...)
		}
	case 3:
		switch h.key {
		case "peer id":
			if len(v) == 20 {
				var id core.PeerID
				copy(id[:], v)
				h.curPeer.ID = &id
			}
		case "ip":
			h.curPeer.IP = net.ParseIP(string(v))
		}
	}
	return true
}

// decodeCompactPeers unpacks a compact peer string: 6 bytes per peer
// (4-byte IPv4 + 2-byte port) or 18 bytes per peer (16-byte IPv6 + port).
func decodeCompactPeers(v []byte, v6 bool) []Peer {
	size := 6
	ipLen := 4
	if v6 {
		size = 18
		ipLen = 16
	}
	if len(v)%size != 0 {
		return nil
	}
	var peers []Peer
	for i := 0; i+size <= len(v); i += size {
		ip := make(net.IP, ipLen)
		copy(ip, v[i:i+ipLen])
		port := uint16(v[i+ipLen])<<8 | uint16(v[i+ipLen+1])
		peers = append(peers, Peer{IP: ip, Port: port})
	}
	return peers
}

// scrapeHandler decodes a bencoded scrape response's top-level
// `files` dict, keyed by raw 20-byte info hashes.
type scrapeHandler struct {
	bencode.BaseHandler

	resp *ScrapeResponse

	depth    int
	key      string
	curHash  core.InfoHashV1
	curStats ScrapeStats
}

func newScrapeHandler() *scrapeHandler {
	return &scrapeHandler{resp: &ScrapeResponse{Files: make(map[core.InfoHashV1]ScrapeStats)}}
}

func (h *scrapeHandler) StartDict(bencode.Span) bool {
	h.depth++
	if h.depth == 3 {
		h.curStats = ScrapeStats{}
	}
	return true
}

func (h *scrapeHandler) EndDict(bencode.Span) bool {
	if h.depth == 3 {
		h.resp.Files[h.curHash] = h.curStats
	}
	h.depth--
	return true
}

func (h *scrapeHandler) Key(_ bencode.Span, k []byte) bool {
	switch h.depth {
	case 1:
		h.key = string(k)
	case 2:
		if len(k) == 20 {
			copy(h.curHash[:], k)
		}
	case 3:
		h.key = string(k)
	}
	return true
}

func (h *scrapeHandler) Int64(_ bencode.Span, v int64) bool {
	if h.depth != 3 {
		return true
	}
	switch h.key {
	case "complete":
		h.curStats.Complete = int(v)
	case "downloaded":
		h.curStats.Downloaded = int(v)
	case "incomplete":
		h.curStats.Incomplete = int(v)
	}
	return true
}

func (h *scrapeHandler) String(_ bencode.Span, v []byte) bool {
	if h.depth == 3 && h.key == "name" {
		h.curStats.Name = string(v)
	}
	return true
}

// parseResponse decodes a raw HTTP/UDP-analogous announce reply body.
func parseResponse(data []byte) (*Response, error) {
	h := newResponseHandler()
	if _, err := bencode.Decode(data, h); err != nil {
		return nil, err
	}
	return h.resp, nil
}

// parseScrapeResponse decodes a raw scrape reply body.
func parseScrapeResponse(data []byte) (*ScrapeResponse, error) {
	h := newScrapeHandler()
	if _, err := bencode.Decode(data, h); err != nil {
		return nil, err
	}
	return h.resp, nil
}
