package announce

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"
)

// HTTPClient announces to and scrapes HTTP trackers.
type HTTPClient struct {
	log *zap.SugaredLogger
}

// NewHTTPClient returns an HTTPClient.
func NewHTTPClient(log *zap.SugaredLogger) *HTTPClient {
	return &HTTPClient{log: log}
}

func buildAnnounceURL(base string, req Request) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse tracker url: %s", err)
	}
	q := u.Query()
	q.Set("info_hash", string(req.InfoHash.Bytes()))
	q.Set("peer_id", string(req.PeerID[:]))
	q.Set("port", strconv.Itoa(int(req.Port)))
	q.Set("uploaded", strconv.FormatUint(req.Uploaded, 10))
	q.Set("downloaded", strconv.FormatUint(req.Downloaded, 10))
	q.Set("left", strconv.FormatUint(req.Left, 10))
	if req.NumWant > 0 {
		q.Set("numwant", strconv.Itoa(req.NumWant))
	}
	q.Set("key", fmt.Sprintf("%08x", req.Key))
	q.Set("compact", "1")
	if req.SupportCrypto {
		q.Set("supportcrypto", "1")
	}
	if req.RequireCrypto {
		q.Set("requirecrypto", "1")
	}
	if req.Corrupt > 0 {
		q.Set("corrupt", strconv.FormatUint(req.Corrupt, 10))
	}
	if ev := req.wireEvent(); ev != EventNone {
		q.Set("event", ev.httpString())
	}
	if req.TrackerID != "" {
		q.Set("trackerid", req.TrackerID)
	}
	if req.IP != nil {
		q.Set("ip", req.IP.String())
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// dialNetwork forces the outgoing TCP connection over "tcp4" or "tcp6",
// emulating libcurl's CURLOPT_IPRESOLVE when sending one announce per IP
// family.
func dialNetwork(network string) *http.Transport {
	return &http.Transport{
		DialContext: func(ctx context.Context, _, addr string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, addr)
		},
	}
}

func (c *HTTPClient) get(ctx context.Context, transport *http.Transport, url string) (*Response, error) {
	client := &http.Client{Transport: transport}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %s", err)
	}
	return parseResponse(body)
}

// errRank orders announce failures by how "advanced" they got, so a dual
// IPv4/IPv6 announce can surface the more informative of two failures: a
// connection that was actually attempted (or timed out) outranks a bare DNS
// resolution failure.
func errRank(err error) int {
	if err == nil {
		return 2
	}
	var dnsErr *net.DNSError
	if ok := asDNSError(err, &dnsErr); ok {
		return 0
	}
	return 1
}

func asDNSError(err error, target **net.DNSError) bool {
	for err != nil {
		if de, ok := err.(*net.DNSError); ok {
			*target = de
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Announce performs an HTTP tracker announce. If singleRequest is true (the
// tracker client is too old to support per-family requests, or an explicit
// announce IP is configured), exactly one request is sent; otherwise two
// requests are sent concurrently, one forced over IPv4 and one over IPv6,
// and the single most successful result is returned.
func (c *HTTPClient) Announce(ctx context.Context, trackerURL string, req Request, singleRequest bool) (*Response, error) {
	fullURL, err := buildAnnounceURL(trackerURL, req)
	if err != nil {
		return nil, err
	}

	if singleRequest {
		return c.get(ctx, nil, fullURL)
	}

	type result struct {
		resp *Response
		err  error
	}
	results := make(chan result, 2)
	for _, network := range []string{"tcp4", "tcp6"} {
		network := network
		go func() {
			resp, err := c.get(ctx, dialNetwork(network), fullURL)
			results <- result{resp, err}
		}()
	}

	r1 := <-results
	r2 := <-results

	if r1.err == nil {
		return r1.resp, nil
	}
	if r2.err == nil {
		return r2.resp, nil
	}
	if errRank(r1.err) >= errRank(r2.err) {
		return nil, r1.err
	}
	return nil, r2.err
}

func buildScrapeURL(base string, hashes []string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for _, h := range hashes {
		q.Add("info_hash", h)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Scrape batches a scrape request for one or more torrents to a single
// HTTP tracker.
func (c *HTTPClient) Scrape(ctx context.Context, scrapeURL string, req ScrapeRequest) (*ScrapeResponse, error) {
	hashes := make([]string, len(req.InfoHashes))
	for i, h := range req.InfoHashes {
		hashes[i] = string(h.Bytes())
	}
	fullURL, err := buildScrapeURL(scrapeURL, hashes)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %s", err)
	}
	return parseScrapeResponse(body)
}
