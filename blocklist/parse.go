// Package blocklist compiles PeerGuardian, eMule/DAT, and CIDR rule files
// into a sorted, coalesced array of IPv4 address ranges supporting O(log n)
// membership lookup.
package blocklist

import (
	"encoding/binary"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
)

// Range is an inclusive IPv4 address range, each bound the big-endian
// uint32 value of the address.
type Range struct {
	Low, High uint32
}

var (
	peerGuardianRe = regexp.MustCompile(`^.*:([0-9.]+)-([0-9.]+)$`)
	eMuleRe        = regexp.MustCompile(`^\s*([0-9.]+)\s*-\s*([0-9.]+)\s*,`)
	cidrRe         = regexp.MustCompile(`^([0-9.]+)/(\d+)$`)
)

func ip4ToUint32(ip net.IP) (uint32, error) {
	ip4 := ip.To4()
	if ip4 == nil {
		return 0, fmt.Errorf("not an IPv4 address: %s", ip)
	}
	return binary.BigEndian.Uint32(ip4), nil
}

// Uint32ToIP converts a packed address back into a net.IP for display.
func Uint32ToIP(v uint32) net.IP {
	b := make(net.IP, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func parseBound(s string) (uint32, error) {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return 0, fmt.Errorf("invalid address: %q", s)
	}
	return ip4ToUint32(ip)
}

// errBlankLine signals a comment or empty line that callers should silently
// skip rather than treat as a parse failure.
var errBlankLine = fmt.Errorf("blank or comment line")

// ParseLine recognizes one of three rule grammars and returns its
// normalized, low<=high address range:
//
//	PeerGuardian: comment:A-B
//	eMule/DAT:    A - B , lvl , comment
//	CIDR:         A/prefix  (IPv4 only)
func ParseLine(line string) (Range, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Range{}, errBlankLine
	}

	if m := cidrRe.FindStringSubmatch(line); m != nil {
		return parseCIDR(m[1], m[2])
	}
	if m := eMuleRe.FindStringSubmatch(line); m != nil {
		return rangeFromBounds(m[1], m[2])
	}
	if m := peerGuardianRe.FindStringSubmatch(line); m != nil {
		return rangeFromBounds(m[1], m[2])
	}
	return Range{}, fmt.Errorf("unrecognized blocklist line: %q", line)
}

func rangeFromBounds(a, b string) (Range, error) {
	lo, err := parseBound(a)
	if err != nil {
		return Range{}, err
	}
	hi, err := parseBound(b)
	if err != nil {
		return Range{}, err
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return Range{Low: lo, High: hi}, nil
}

func parseCIDR(addr, prefixStr string) (Range, error) {
	prefix, err := strconv.Atoi(prefixStr)
	if err != nil || prefix < 0 || prefix > 32 {
		return Range{}, fmt.Errorf("invalid CIDR prefix: %q", prefixStr)
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		return Range{}, fmt.Errorf("invalid CIDR address: %q", addr)
	}
	_, network, err := net.ParseCIDR(fmt.Sprintf("%s/%d", addr, prefix))
	if err != nil {
		return Range{}, err
	}
	lo, err := ip4ToUint32(network.IP)
	if err != nil {
		return Range{}, err
	}
	ones, bits := network.Mask.Size()
	hostBits := bits - ones
	var span uint32
	if hostBits >= 32 {
		span = 0xFFFFFFFF
	} else {
		span = (uint32(1) << uint(hostBits)) - 1
	}
	return Range{Low: lo, High: lo + span}, nil
}
