// Package bandwidth implements the shared, per-(direction, group) token
// bucket bandwidth limiter described in spec §5: clamp(tag, bytes_requested)
// -> bytes_allowed. Grounded on the teacher's
// lib/torrent/scheduler/bandwidth.Limiter (a single egress-only
// rate.Limiter), generalized to two directions and named groups since the
// spec requires accounting per (direction, group) rather than one global
// egress rate.
package bandwidth

import (
	"sync"
	"time"

	"github.com/c2h5oh/datasize"
	"golang.org/x/time/rate"
)

// Direction distinguishes download (ingress) from upload (egress) traffic;
// each gets its own token bucket per group.
type Direction int

const (
	Download Direction = iota
	Upload
)

func (d Direction) String() string {
	if d == Upload {
		return "upload"
	}
	return "download"
}

// Tag identifies which token bucket a transfer draws from. Group is the
// bandwidth group name a torrent belongs to; the empty group is the
// session-wide default shared by every ungrouped torrent.
type Tag struct {
	Direction Direction
	Group     string
}

// GroupConfig overrides the default rate for one named bandwidth group.
type GroupConfig struct {
	DownloadRate datasize.ByteSize `yaml:"download_rate"`
	UploadRate   datasize.ByteSize `yaml:"upload_rate"`
}

// Config configures the limiter's default rates and any per-group
// overrides.
type Config struct {
	DefaultDownloadRate datasize.ByteSize     `yaml:"default_download_rate"`
	DefaultUploadRate   datasize.ByteSize     `yaml:"default_upload_rate"`
	Groups              map[string]GroupConfig `yaml:"groups"`

	// TokenSize is the number of bytes one token represents, bounding the
	// granularity (and overflow risk) of the underlying rate.Limiter.
	TokenSize datasize.ByteSize `yaml:"token_size"`

	Disable bool `yaml:"disable"`
}

func (c Config) applyDefaults() Config {
	if c.TokenSize == 0 {
		c.TokenSize = datasize.KB
	}
	return c
}

// unlimited is used for rates that are zero (meaning "no limit configured").
const unlimited = rate.Inf

// Limiter hands out byte allowances from a shared pool of per-(direction,
// group) token buckets.
type Limiter struct {
	config    Config
	tokenSize uint64

	mu      sync.Mutex
	buckets map[Tag]*rate.Limiter
}

// New builds a Limiter from config. Buckets are created lazily per Tag on
// first use, seeded from the tag's group override or the direction's
// default rate.
func New(config Config) *Limiter {
	config = config.applyDefaults()
	return &Limiter{
		config:    config,
		tokenSize: uint64(config.TokenSize),
		buckets:   make(map[Tag]*rate.Limiter),
	}
}

func (l *Limiter) rateFor(tag Tag) rate.Limit {
	if l.config.Disable {
		return unlimited
	}
	var bytesPerSec datasize.ByteSize
	if g, ok := l.config.Groups[tag.Group]; ok {
		if tag.Direction == Upload {
			bytesPerSec = g.UploadRate
		} else {
			bytesPerSec = g.DownloadRate
		}
	}
	if bytesPerSec == 0 {
		if tag.Direction == Upload {
			bytesPerSec = l.config.DefaultUploadRate
		} else {
			bytesPerSec = l.config.DefaultDownloadRate
		}
	}
	if bytesPerSec == 0 {
		return unlimited
	}
	tps := uint64(bytesPerSec) / l.tokenSize
	if tps == 0 {
		tps = 1
	}
	return rate.Limit(tps)
}

func (l *Limiter) bucketFor(tag Tag) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[tag]
	if !ok {
		limit := l.rateFor(tag)
		burst := 1
		if limit != unlimited {
			burst = int(limit)
			if burst < 1 {
				burst = 1
			}
		}
		b = rate.NewLimiter(limit, burst)
		l.buckets[tag] = b
	}
	return b
}

func (l *Limiter) tokensFor(nbytes int) int {
	if nbytes <= 0 {
		return 0
	}
	tokens := uint64(nbytes) / l.tokenSize
	if tokens == 0 {
		tokens = 1
	}
	return int(tokens)
}

func (l *Limiter) bytesFor(tokens int) int {
	if tokens <= 0 {
		return 0
	}
	return tokens * int(l.tokenSize)
}

// Clamp returns how many of bytesRequested may be transferred right now
// under tag's token bucket, never more than bytesRequested. A returned
// value less than bytesRequested means the caller should pause (spec says
// 500ms) before asking again for the remainder.
func (l *Limiter) Clamp(tag Tag, bytesRequested int) int {
	if bytesRequested <= 0 {
		return 0
	}
	b := l.bucketFor(tag)
	if b.Limit() == unlimited {
		return bytesRequested
	}

	requestedTokens := l.tokensFor(bytesRequested)
	if burst := b.Burst(); requestedTokens > burst {
		requestedTokens = burst
	}

	now := time.Now()
	probe := b.ReserveN(now, requestedTokens)
	if !probe.OK() {
		return 0
	}
	delay := probe.DelayFrom(now)
	if delay <= 0 {
		granted := l.bytesFor(requestedTokens)
		if granted > bytesRequested {
			granted = bytesRequested
		}
		return granted
	}
	probe.CancelAt(now)

	// requestedTokens aren't all available now; derive how many are, from
	// the delay the full request would have incurred, and commit only that
	// many.
	available := requestedTokens - int(delay.Seconds()*float64(b.Limit()))
	if available <= 0 {
		return 0
	}
	commit := b.ReserveN(now, available)
	if !commit.OK() || commit.DelayFrom(now) > 0 {
		commit.CancelAt(now)
		return 0
	}
	granted := l.bytesFor(available)
	if granted > bytesRequested {
		granted = bytesRequested
	}
	return granted
}
