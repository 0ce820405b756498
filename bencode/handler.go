// Package bencode implements a SAX-style bencode decoder: the caller
// supplies a Handler and the decoder streams callbacks over it without
// building an intermediate tree, so strings are returned as zero-copy views
// into the caller's source buffer.
package bencode

// Span is the byte range of the token currently being reported, relative to
// the start of the buffer passed to Decode.
type Span struct {
	Offset int
	Length int
}

// Handler receives SAX callbacks while decoding a bencoded value. Every
// method returns false to cancel the parse immediately; Decode then returns
// an *ErrCancelled carrying the offset at which the handler balked.
//
// String views (in String and Key) alias the original source buffer and are
// only valid until the next Decode call on that buffer.
type Handler interface {
	Int64(span Span, v int64) bool
	String(span Span, v []byte) bool
	StartDict(span Span) bool
	Key(span Span, k []byte) bool
	EndDict(span Span) bool
	StartArray(span Span) bool
	EndArray(span Span) bool
}

// BaseHandler provides no-op implementations of Handler so callers can embed
// it and override only the callbacks they care about.
type BaseHandler struct{}

func (BaseHandler) Int64(Span, int64) bool     { return true }
func (BaseHandler) String(Span, []byte) bool   { return true }
func (BaseHandler) StartDict(Span) bool        { return true }
func (BaseHandler) Key(Span, []byte) bool      { return true }
func (BaseHandler) EndDict(Span) bool          { return true }
func (BaseHandler) StartArray(Span) bool       { return true }
func (BaseHandler) EndArray(Span) bool         { return true }
