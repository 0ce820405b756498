package blocklist

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"sort"
)

// filePrefix is the sentinel written at the start of every compiled
// blocklist's binary form, both to identify the format and to let readers
// reject files written by an incompatible version.
const filePrefix = "-tr-blocklist-file-format-v3-"

// List is a compiled, sorted, coalesced set of IPv4 address ranges
// supporting O(log n) membership lookup.
type List struct {
	ranges []Range
}

// Compile normalizes, sorts, and coalesces the ranges parsed from lines,
// skipping blank lines and comments. A parse error on any non-blank line is
// returned immediately.
func Compile(lines []string) (*List, error) {
	var ranges []Range
	for i, line := range lines {
		r, err := ParseLine(line)
		if err != nil {
			if err == errBlankLine {
				continue
			}
			return nil, fmt.Errorf("line %d: %s", i+1, err)
		}
		ranges = append(ranges, r)
	}
	return &List{ranges: coalesce(ranges)}, nil
}

// CompileFile reads newline-delimited rules from path and compiles them.
func CompileFile(path string) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return Compile(lines)
}

func coalesce(ranges []Range) []Range {
	if len(ranges) == 0 {
		return nil
	}
	sort.Slice(ranges, func(i, j int) bool {
		if ranges[i].Low != ranges[j].Low {
			return ranges[i].Low < ranges[j].Low
		}
		return ranges[i].High < ranges[j].High
	})

	out := make([]Range, 0, len(ranges))
	cur := ranges[0]
	for _, r := range ranges[1:] {
		// touching or overlapping: r.Low <= cur.High+1 (guard overflow at
		// the top of the address space).
		if r.Low <= cur.High || (cur.High != 0xFFFFFFFF && r.Low == cur.High+1) {
			if r.High > cur.High {
				cur.High = r.High
			}
			continue
		}
		out = append(out, cur)
		cur = r
	}
	out = append(out, cur)
	return out
}

// Len returns the number of coalesced ranges in the list.
func (l *List) Len() int {
	return len(l.ranges)
}

// Contains reports whether addr falls within some range in the list. It is
// O(log n) and side-effect free.
func (l *List) Contains(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	v, err := ip4ToUint32(ip)
	if err != nil {
		return false
	}
	return l.ContainsUint32(v)
}

// ContainsUint32 is like Contains but takes a pre-packed IPv4 address.
func (l *List) ContainsUint32(v uint32) bool {
	ranges := l.ranges
	i := sort.Search(len(ranges), func(i int) bool { return ranges[i].High >= v })
	return i < len(ranges) && ranges[i].Low <= v
}

// Serialize writes l's binary form: the sentinel prefix followed by the
// packed (low, high) range array in host byte order.
func (l *List) Serialize(w io.Writer) error {
	if _, err := io.WriteString(w, filePrefix); err != nil {
		return err
	}
	for _, r := range l.ranges {
		if err := writeUint32(w, r.Low); err != nil {
			return err
		}
		if err := writeUint32(w, r.High); err != nil {
			return err
		}
	}
	return nil
}

// Deserialize reads a List previously written by Serialize. It returns an
// error if the sentinel prefix is missing or the payload size is not a
// whole number of (low, high) pairs.
func Deserialize(r io.Reader) (*List, error) {
	prefix := make([]byte, len(filePrefix))
	if _, err := io.ReadFull(r, prefix); err != nil {
		return nil, fmt.Errorf("read prefix: %s", err)
	}
	if string(prefix) != filePrefix {
		return nil, fmt.Errorf("corrupt blocklist file: bad prefix")
	}

	rest, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(rest)%8 != 0 {
		return nil, fmt.Errorf("corrupt blocklist file: size %d not a multiple of 8", len(rest))
	}

	ranges := make([]Range, 0, len(rest)/8)
	for i := 0; i < len(rest); i += 8 {
		lo := hostUint32(rest[i : i+4])
		hi := hostUint32(rest[i+4 : i+8])
		ranges = append(ranges, Range{Low: lo, High: hi})
	}
	return &List{ranges: ranges}, nil
}
