// Package announce implements HTTP and UDP (BEP-15) BitTorrent tracker
// announce and scrape clients.
package announce

import (
	"net"

	"github.com/kraken-torrent/engine/core"
)

// Event is the announce event field.
type Event int

const (
	// EventNone is sent on regular interval announces.
	EventNone Event = iota
	// EventCompleted is sent exactly once, when the torrent finishes downloading.
	EventCompleted
	// EventStarted is sent on the first announce of a torrent.
	EventStarted
	// EventStopped is sent when a torrent is stopped or removed.
	EventStopped
)

// String renders the event the way trackers expect it on the wire.
func (e Event) String() string {
	switch e {
	case EventCompleted:
		return "completed"
	case EventStarted:
		return "started"
	case EventStopped:
		return "stopped"
	default:
		return ""
	}
}

// udpAction mirrors BEP-15's announce event encoding (0 none, 1 completed,
// 2 started, 3 stopped); any other event, including eventPaused, maps to 0.
func (e Event) udpAction() uint32 {
	switch e {
	case EventCompleted:
		return 1
	case EventStarted:
		return 2
	case EventStopped:
		return 3
	default:
		return 0
	}
}

// Request describes one announce to a single tracker.
type Request struct {
	InfoHash      core.InfoHashV1
	PeerID        core.PeerID
	Port          uint16
	Uploaded      uint64
	Downloaded    uint64
	Left          uint64
	NumWant       int
	Key           uint32
	Event         Event
	IP            net.IP // explicit announce IP override, nil if unset
	TrackerID     string
	RequireCrypto bool
	SupportCrypto bool
	Corrupt       uint64
	PartialSeed   bool
}

// wireEvent applies spec §4.8's "paused" substitution: a partial seed
// announces "paused" instead of its literal event, unless it is stopping.
func (r Request) wireEvent() Event {
	if r.PartialSeed && r.Event != EventStopped {
		return eventPaused
	}
	return r.Event
}

// eventPaused is a pseudo-event recognized only on the HTTP wire encoding,
// never sent over UDP (which has no analogous action code).
const eventPaused Event = 100

func (e Event) httpString() string {
	if e == eventPaused {
		return "paused"
	}
	return e.String()
}

// Peer is a single peer returned by a tracker, possibly without an ID (the
// compact binary peer formats omit it).
type Peer struct {
	ID   *core.PeerID
	IP   net.IP
	Port uint16
}

// Response is a tracker's normalized announce reply.
type Response struct {
	Interval       int
	MinInterval    int
	Complete       int
	Incomplete     int
	Downloaded     int
	TrackerID      string
	FailureReason  string
	WarningMessage string
	Peers          []Peer
	Peers6         []Peer
	ExternalIP     net.IP
}

// Failed reports whether the tracker rejected the request outright.
func (r *Response) Failed() bool {
	return r.FailureReason != ""
}

// ScrapeRequest batches info hashes for a single scrape call.
type ScrapeRequest struct {
	InfoHashes []core.InfoHashV1
}

// ScrapeStats is one torrent's entry in a scrape response.
type ScrapeStats struct {
	Complete   int
	Downloaded int
	Incomplete int
	Name       string
}

// ScrapeResponse maps each requested info hash to its stats. Hashes absent
// from the tracker's reply are simply missing from the map.
type ScrapeResponse struct {
	Files map[core.InfoHashV1]ScrapeStats
}
