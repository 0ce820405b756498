package metainfo

import (
	"encoding/base32"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"

	"github.com/kraken-torrent/engine/core"
)

// Magnet is the decoded content of a magnet URI.
type Magnet struct {
	InfoHashV1 *core.InfoHashV1
	InfoHashV2 *core.InfoHashV2
	Name       string
	Trackers   [][]string // one inner slice per tier, in encounter order
	Webseeds   []string
}

const (
	v1Prefix = "urn:btih:"
	v2Prefix = "urn:btmh:1220" // multihash 0x12 (sha2-256), 0x20 (32 bytes)
)

// ParseMagnet parses a "magnet:?..." URI. Unknown query parameters are
// ignored. Per BEP-9/BEP-52, xt may appear more than once to carry both a
// v1 and v2 hash (a hybrid magnet).
func ParseMagnet(raw string) (*Magnet, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, &ParseError{Reason: "invalid URI: " + err.Error()}
	}
	if u.Scheme != "magnet" {
		return nil, &ParseError{Reason: "not a magnet URI"}
	}
	q := u.Query()

	m := &Magnet{}
	for _, xt := range q["xt"] {
		if err := m.applyXT(xt); err != nil {
			return nil, err
		}
	}
	if m.InfoHashV1 == nil && m.InfoHashV2 == nil {
		return nil, &ErrInvalidInfoHash{Reason: "magnet carries no xt parameter"}
	}
	if dn := q.Get("dn"); dn != "" {
		m.Name = dn
	}

	// url.Values is a map; ranging over it directly would make tier order
	// depend on map iteration, which Go randomizes per run. Collect the
	// matching keys and sort them (lexically, so "tr" sorts before "tr.N")
	// to keep parsing deterministic.
	var trackerKeys []string
	for key := range q {
		if key == "tr" || strings.HasPrefix(key, "tr.") {
			trackerKeys = append(trackerKeys, key)
		}
	}
	sort.Strings(trackerKeys)
	for _, key := range trackerKeys {
		for _, v := range q[key] {
			m.Trackers = append(m.Trackers, []string{v})
		}
	}
	m.Webseeds = append(m.Webseeds, q["ws"]...)

	return m, nil
}

func (m *Magnet) applyXT(xt string) error {
	switch {
	case strings.HasPrefix(xt, v1Prefix):
		rest := xt[len(v1Prefix):]
		h, err := decodeV1Hash(rest)
		if err != nil {
			return err
		}
		m.InfoHashV1 = &h
	case strings.HasPrefix(xt, v2Prefix):
		rest := xt[len(v2Prefix):]
		h, err := core.NewInfoHashV2FromHex(rest)
		if err != nil {
			return &ErrInvalidInfoHash{Reason: err.Error()}
		}
		m.InfoHashV2 = &h
	default:
		// Unrecognized xt namespace; ignored per spec.
	}
	return nil
}

func decodeV1Hash(s string) (core.InfoHashV1, error) {
	switch len(s) {
	case 40:
		h, err := core.NewInfoHashV1FromHex(s)
		if err != nil {
			return core.InfoHashV1{}, &ErrInvalidInfoHash{Reason: err.Error()}
		}
		return h, nil
	case 32:
		raw, err := base32.StdEncoding.DecodeString(strings.ToUpper(s))
		if err != nil || len(raw) != 20 {
			return core.InfoHashV1{}, &ErrInvalidInfoHash{Reason: "invalid base32 info hash"}
		}
		return core.NewInfoHashV1FromHex(hex.EncodeToString(raw))
	default:
		return core.InfoHashV1{}, &ErrInvalidInfoHash{Reason: "info hash must be 40 hex or 32 base32 characters"}
	}
}

// FormatMagnet renders m back into a "magnet:?..." URI.
func FormatMagnet(m *Magnet) string {
	var b strings.Builder
	b.WriteString("magnet:?")
	first := true
	add := func(k, v string) {
		if !first {
			b.WriteByte('&')
		}
		first = false
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v))
	}
	if m.InfoHashV1 != nil {
		add("xt", v1Prefix+m.InfoHashV1.Hex())
	}
	if m.InfoHashV2 != nil {
		add("xt", v2Prefix+m.InfoHashV2.Hex())
	}
	if m.Name != "" {
		add("dn", m.Name)
	}
	for _, tier := range m.Trackers {
		for _, tr := range tier {
			add("tr", tr)
		}
	}
	for _, ws := range m.Webseeds {
		add("ws", ws)
	}
	return b.String()
}
