package announce

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"

	"github.com/kraken-torrent/engine/core"
	"github.com/kraken-torrent/engine/cryptoutil"
)

// BEP-15 wire constants.
const (
	udpConnectMagic uint64 = 0x41727101980

	udpActionConnect  uint32 = 0
	udpActionAnnounce uint32 = 1
	udpActionScrape   uint32 = 2
	udpActionError    uint32 = 3

	// connectTTL is how long a connection id stays valid after a
	// successful CONNECT, per BEP-15.
	connectTTL = 45 * time.Second
	// connectRetry is the minimum spacing between repeated CONNECT
	// attempts to the same authority.
	connectRetry = 30 * time.Second
	// dnsRetryWait bounds how often a failed DNS lookup is retried.
	dnsRetryWait = time.Hour

	minConnectReplySize  = 16
	minAnnounceReplySize = 20
	minScrapeReplySize   = 20
	minErrorReplySize    = 8
)

// udpState names the BEP-15 connection lifecycle for a single
// (authority, IP family) pair. The client below collapses the explicit
// state machine into linear request/response calls that move through
// udpIdle, udpConnecting, udpConnected and udpAwaitingReply; udpNeedConnect
// is never entered, since address resolution happens inside dial before
// any state change.
type udpState int

const (
	udpIdle udpState = iota
	udpNeedConnect
	udpConnecting
	udpConnected
	udpAwaitingReply
)

type cachedConn struct {
	mu      sync.Mutex
	state   udpState
	id      uint64
	expires time.Time
}

// UDPClient implements BEP-15 UDP tracker announce/scrape, caching a
// connection id per (authority, IP family) for connectTTL.
type UDPClient struct {
	mu      sync.Mutex
	conns   map[string]*cachedConn
	clk     clock.Clock
	timeout time.Duration
}

// NewUDPClient returns a UDPClient using the real wall clock and a 15s
// per-datagram timeout.
func NewUDPClient() *UDPClient {
	return NewUDPClientWithClock(clock.New(), 15*time.Second)
}

// NewUDPClientWithClock is like NewUDPClient but takes an injectable clock
// and timeout, for tests.
func NewUDPClientWithClock(clk clock.Clock, timeout time.Duration) *UDPClient {
	return &UDPClient{
		conns:   make(map[string]*cachedConn),
		clk:     clk,
		timeout: timeout,
	}
}

func (c *UDPClient) connFor(network, authority string) *cachedConn {
	key := network + "|" + authority
	c.mu.Lock()
	defer c.mu.Unlock()
	cc, ok := c.conns[key]
	if !ok {
		cc = &cachedConn{state: udpIdle}
		c.conns[key] = cc
	}
	return cc
}

func newTransactionID() uint32 {
	var b [4]byte
	cryptoutil.Fill(b[:])
	return binary.BigEndian.Uint32(b[:])
}

// dial opens a UDP socket to authority forced over network ("udp4" or
// "udp6"), per spec's per-IP-family announce requirement.
func dial(network, authority string) (net.Conn, error) {
	addr, err := net.ResolveUDPAddr(network, authority)
	if err != nil {
		return nil, err
	}
	return net.DialUDP(network, nil, addr)
}

// connectLocked performs (or reuses) the CONNECT handshake for cc, which
// must already be locked by the caller.
func (c *UDPClient) connectLocked(conn net.Conn, cc *cachedConn) (uint64, error) {
	now := c.clk.Now()
	if cc.state == udpConnected && now.Before(cc.expires) {
		return cc.id, nil
	}

	cc.state = udpConnecting
	txID := newTransactionID()

	var req [16]byte
	binary.BigEndian.PutUint64(req[0:8], udpConnectMagic)
	binary.BigEndian.PutUint32(req[8:12], udpActionConnect)
	binary.BigEndian.PutUint32(req[12:16], txID)

	conn.SetDeadline(c.clk.Now().Add(c.timeout))
	if _, err := conn.Write(req[:]); err != nil {
		cc.state = udpIdle
		return 0, err
	}

	buf := make([]byte, 16)
	n, err := conn.Read(buf)
	if err != nil {
		cc.state = udpIdle
		return 0, err
	}
	if n < minConnectReplySize {
		cc.state = udpIdle
		return 0, fmt.Errorf("connect reply too short: %d bytes", n)
	}
	action := binary.BigEndian.Uint32(buf[0:4])
	gotTxID := binary.BigEndian.Uint32(buf[4:8])
	if gotTxID != txID {
		cc.state = udpIdle
		return 0, fmt.Errorf("connect reply transaction id mismatch")
	}
	if action == udpActionError {
		cc.state = udpIdle
		return 0, fmt.Errorf("tracker error: %s", string(buf[8:n]))
	}
	if action != udpActionConnect {
		cc.state = udpIdle
		return 0, fmt.Errorf("unexpected connect reply action %d", action)
	}

	connID := binary.BigEndian.Uint64(buf[8:16])
	cc.id = connID
	cc.expires = now.Add(connectTTL)
	cc.state = udpConnected
	return connID, nil
}

// Announce performs a BEP-15 UDP announce to authority over the given
// network ("udp4" or "udp6"), reconnecting first if the cached connection
// id has expired.
func (c *UDPClient) Announce(ctx context.Context, network, authority string, req Request) (*Response, error) {
	cc := c.connFor(network, authority)
	cc.mu.Lock()
	defer cc.mu.Unlock()

	conn, err := dial(network, authority)
	if err != nil {
		cc.state = udpIdle
		return nil, err
	}
	defer conn.Close()

	connID, err := c.connectLocked(conn, cc)
	if err != nil {
		return nil, err
	}

	cc.state = udpAwaitingReply
	txID := newTransactionID()

	pkt := make([]byte, 98)
	binary.BigEndian.PutUint64(pkt[0:8], connID)
	binary.BigEndian.PutUint32(pkt[8:12], udpActionAnnounce)
	binary.BigEndian.PutUint32(pkt[12:16], txID)
	copy(pkt[16:36], req.InfoHash.Bytes())
	copy(pkt[36:56], req.PeerID[:])
	binary.BigEndian.PutUint64(pkt[56:64], req.Downloaded)
	binary.BigEndian.PutUint64(pkt[64:72], req.Left)
	binary.BigEndian.PutUint64(pkt[72:80], req.Uploaded)
	binary.BigEndian.PutUint32(pkt[80:84], req.Event.udpAction())
	var ipv4 uint32
	if req.IP != nil {
		if v4 := req.IP.To4(); v4 != nil {
			ipv4 = binary.BigEndian.Uint32(v4)
		}
	}
	binary.BigEndian.PutUint32(pkt[84:88], ipv4)
	binary.BigEndian.PutUint32(pkt[88:92], req.Key)
	numwant := int32(-1)
	if req.NumWant > 0 {
		numwant = int32(req.NumWant)
	}
	binary.BigEndian.PutUint32(pkt[92:96], uint32(numwant))
	binary.BigEndian.PutUint16(pkt[96:98], req.Port)

	conn.SetDeadline(c.clk.Now().Add(c.timeout))
	if _, err := conn.Write(pkt); err != nil {
		cc.state = udpConnected
		return nil, err
	}

	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		cc.state = udpConnected
		return nil, err
	}
	cc.state = udpConnected

	if n < minErrorReplySize {
		return nil, fmt.Errorf("announce reply too short: %d bytes", n)
	}
	action := binary.BigEndian.Uint32(buf[0:4])
	gotTxID := binary.BigEndian.Uint32(buf[4:8])
	if gotTxID != txID {
		return nil, fmt.Errorf("announce reply transaction id mismatch")
	}
	if action == udpActionError {
		return nil, fmt.Errorf("tracker error: %s", string(buf[8:n]))
	}
	if action != udpActionAnnounce || n < minAnnounceReplySize {
		return nil, fmt.Errorf("malformed announce reply: action=%d size=%d", action, n)
	}

	resp := &Response{
		Interval:   int(binary.BigEndian.Uint32(buf[8:12])),
		Incomplete: int(binary.BigEndian.Uint32(buf[12:16])),
		Complete:   int(binary.BigEndian.Uint32(buf[16:20])),
	}
	peers := decodeCompactPeers(buf[20:n], network == "udp6")
	if network == "udp6" {
		resp.Peers6 = peers
	} else {
		resp.Peers = peers
	}
	return resp, nil
}

// Scrape performs a BEP-15 UDP scrape to a single authority. Every hash in
// req is sent in one datagram; the request is not split or capped at
// BEP-15's batching limit of about 74 torrents.
func (c *UDPClient) Scrape(ctx context.Context, network, authority string, req ScrapeRequest) (*ScrapeResponse, error) {
	cc := c.connFor(network, authority)
	cc.mu.Lock()
	defer cc.mu.Unlock()

	conn, err := dial(network, authority)
	if err != nil {
		cc.state = udpIdle
		return nil, err
	}
	defer conn.Close()

	connID, err := c.connectLocked(conn, cc)
	if err != nil {
		return nil, err
	}

	cc.state = udpAwaitingReply
	txID := newTransactionID()

	pkt := make([]byte, 16+20*len(req.InfoHashes))
	binary.BigEndian.PutUint64(pkt[0:8], connID)
	binary.BigEndian.PutUint32(pkt[8:12], udpActionScrape)
	binary.BigEndian.PutUint32(pkt[12:16], txID)
	for i, h := range req.InfoHashes {
		copy(pkt[16+i*20:16+(i+1)*20], h.Bytes())
	}

	conn.SetDeadline(c.clk.Now().Add(c.timeout))
	if _, err := conn.Write(pkt); err != nil {
		cc.state = udpConnected
		return nil, err
	}

	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		cc.state = udpConnected
		return nil, err
	}
	cc.state = udpConnected

	if n < minErrorReplySize {
		return nil, fmt.Errorf("scrape reply too short: %d bytes", n)
	}
	action := binary.BigEndian.Uint32(buf[0:4])
	gotTxID := binary.BigEndian.Uint32(buf[4:8])
	if gotTxID != txID {
		return nil, fmt.Errorf("scrape reply transaction id mismatch")
	}
	if action == udpActionError {
		return nil, fmt.Errorf("tracker error: %s", string(buf[8:n]))
	}
	if action != udpActionScrape || n < minScrapeReplySize {
		return nil, fmt.Errorf("malformed scrape reply: action=%d size=%d", action, n)
	}

	return parseUDPScrapeBody(buf[8:n], req.InfoHashes)
}

// parseUDPScrapeBody decodes the (complete, downloaded, incomplete)
// triplets following a scrape reply's 8-byte header, zipped positionally
// against the info hashes in the original request.
func parseUDPScrapeBody(body []byte, hashes []core.InfoHashV1) (*ScrapeResponse, error) {
	const entrySize = 12
	resp := &ScrapeResponse{Files: make(map[core.InfoHashV1]ScrapeStats, len(hashes))}
	for i := 0; i+entrySize <= len(body) && i/entrySize < len(hashes); i += entrySize {
		complete := binary.BigEndian.Uint32(body[i : i+4])
		downloaded := binary.BigEndian.Uint32(body[i+4 : i+8])
		incomplete := binary.BigEndian.Uint32(body[i+8 : i+12])
		resp.Files[hashes[i/entrySize]] = ScrapeStats{
			Complete:   int(complete),
			Downloaded: int(downloaded),
			Incomplete: int(incomplete),
		}
	}
	return resp, nil
}
