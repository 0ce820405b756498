package core

import (
	"bytes"
	"sync"

	"github.com/willf/bitset"
)

// BitField is a fixed-length, concurrency-safe set of bits indexed by piece
// or block number. It backs a Torrent's completion/have_blocks/checked
// fields.
type BitField struct {
	mu sync.RWMutex
	b  *bitset.BitSet
}

// NewBitField returns a BitField of n bits, all clear.
func NewBitField(n uint32) *BitField {
	return &BitField{b: bitset.New(uint(n))}
}

// Has reports whether bit i is set.
func (f *BitField) Has(i uint32) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.b.Test(uint(i))
}

// Set sets or clears bit i.
func (f *BitField) Set(i uint32, v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.b.SetTo(uint(i), v)
}

// Len returns the number of bits in the field.
func (f *BitField) Len() uint32 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return uint32(f.b.Len())
}

// Count returns the number of set bits.
func (f *BitField) Count() uint32 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return uint32(f.b.Count())
}

// All reports whether every bit is set.
func (f *BitField) All() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.b.All()
}

// Fraction returns Count()/Len(), or 0 if Len() is 0.
func (f *BitField) Fraction() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.b.Len() == 0 {
		return 0
	}
	return float64(f.b.Count()) / float64(f.b.Len())
}

// String renders the field as a string of '0'/'1' characters, matching the
// teacher's syncBitfield.String for debug logging.
func (f *BitField) String() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var buf bytes.Buffer
	for i := uint(0); i < f.b.Len(); i++ {
		if f.b.Test(i) {
			buf.WriteByte('1')
		} else {
			buf.WriteByte('0')
		}
	}
	return buf.String()
}

// Bytes packs the field into big-endian bit-per-flag bytes, most
// significant bit first within each byte, matching the bitfield wire
// format used by the peer protocol and by resume persistence.
func (f *BitField) Bytes() []byte {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := f.b.Len()
	out := make([]byte, (n+7)/8)
	for i := uint(0); i < n; i++ {
		if f.b.Test(i) {
			out[i/8] |= 1 << (7 - i%8)
		}
	}
	return out
}

// BitFieldFromBytes reconstructs a BitField of n bits from its packed byte
// representation, as produced by Bytes.
func BitFieldFromBytes(n uint32, data []byte) *BitField {
	f := NewBitField(n)
	for i := uint32(0); i < n; i++ {
		byteIdx := i / 8
		if int(byteIdx) >= len(data) {
			break
		}
		if data[byteIdx]&(1<<(7-i%8)) != 0 {
			f.Set(i, true)
		}
	}
	return f
}
