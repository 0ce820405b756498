package rpc

import (
	"net"
	"path"
	"strings"
)

// Whitelist matches candidate strings (a dotted-quad remote address or a
// Host header) against a set of wildmat-style patterns ('*' and '?'
// wildcards, as produced by transmission-daemon's rpc-whitelist /
// rpc-host-whitelist settings).
type Whitelist struct {
	patterns []string
}

// NewWhitelist compiles patterns into a Whitelist. Patterns are matched
// case-insensitively.
func NewWhitelist(patterns []string) *Whitelist {
	lowered := make([]string, len(patterns))
	for i, p := range patterns {
		lowered[i] = strings.ToLower(p)
	}
	return &Whitelist{patterns: lowered}
}

// Allowed reports whether candidate matches any pattern. An empty
// Whitelist allows nothing; callers must skip the check entirely when no
// whitelist was configured.
func (w *Whitelist) Allowed(candidate string) bool {
	candidate = strings.ToLower(candidate)
	for _, p := range w.patterns {
		if ok, _ := path.Match(p, candidate); ok {
			return true
		}
	}
	return false
}

// IsLocalOrIPLiteral reports whether host (as found in a Request.Host,
// with any port already stripped) is localhost or a literal IP address.
// These are always allowed through the Host header check regardless of
// the whitelist, per the pipeline's step 5.
func IsLocalOrIPLiteral(host string) bool {
	if host == "localhost" || host == "localhost.localdomain" {
		return true
	}
	return net.ParseIP(host) != nil
}

// StripPort removes a trailing ":port" from a Host header value, leaving
// IPv6 literals ("[::1]:9091") intact as "[::1]" before unwrapping the
// brackets.
func StripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
