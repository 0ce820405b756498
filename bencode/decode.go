package bencode

import "errors"

// DefaultMaxDepth is used by Decode when MaxDepth isn't overridden via
// DecodeDepth.
const DefaultMaxDepth = 32

var (
	errEmptyInt = errors.New("empty integer")
	errBadInt   = errors.New("invalid integer digit")
)

// Decode parses the bencoded value(s) in src, invoking h's callbacks as it
// goes. It stops at the first top-level value; callers wanting to decode a
// concatenation of values should slice past the returned offset.
func Decode(src []byte, h Handler) (int, error) {
	return DecodeDepth(src, h, DefaultMaxDepth)
}

// DecodeDepth is Decode with an explicit nesting bound.
func DecodeDepth(src []byte, handler Handler, maxDepth int) (int, error) {
	d := &decoder{src: src, handler: handler, stack: NewParserStack(maxDepth)}
	if err := d.value(); err != nil {
		return d.pos, err
	}
	return d.pos, nil
}

type decoder struct {
	src     []byte
	pos     int
	handler Handler
	stack   *ParserStack
}

func (d *decoder) value() error {
	if d.pos >= len(d.src) {
		return &ErrTruncated{Offset: d.pos}
	}
	switch c := d.src[d.pos]; {
	case c == 'i':
		return d.integer()
	case c == 'l':
		return d.list()
	case c == 'd':
		return d.dict()
	case c >= '0' && c <= '9':
		return d.stringValue()
	default:
		return &ErrMalformed{Offset: d.pos, Reason: "unexpected token"}
	}
}

func (d *decoder) integer() error {
	start := d.pos
	d.pos++ // consume 'i'
	numStart := d.pos
	for {
		if d.pos >= len(d.src) {
			return &ErrTruncated{Offset: start}
		}
		if d.src[d.pos] == 'e' {
			break
		}
		d.pos++
	}
	v, err := parseInt(d.src[numStart:d.pos])
	if err != nil {
		return &ErrMalformed{Offset: start, Reason: err.Error()}
	}
	d.pos++ // consume 'e'
	span := Span{Offset: start, Length: d.pos - start}
	if !d.handler.Int64(span, v) {
		return &ErrCancelled{Offset: start}
	}
	d.stack.ToggleKeyExpectation()
	return nil
}

func (d *decoder) stringValue() error {
	start := d.pos
	raw, err := d.readString()
	if err != nil {
		return err
	}
	span := Span{Offset: start, Length: d.pos - start}

	if d.stack.ExpectingKey() {
		ok := d.handler.Key(span, raw)
		d.stack.ToggleKeyExpectation()
		if !ok {
			return &ErrCancelled{Offset: start}
		}
		return nil
	}
	if !d.handler.String(span, raw) {
		return &ErrCancelled{Offset: start}
	}
	d.stack.ToggleKeyExpectation()
	return nil
}

// readString reads a "<len>:<bytes>" token and returns a view into d.src.
func (d *decoder) readString() ([]byte, error) {
	start := d.pos
	lenStart := d.pos
	for d.pos < len(d.src) && d.src[d.pos] != ':' {
		if d.src[d.pos] < '0' || d.src[d.pos] > '9' {
			return nil, &ErrMalformed{Offset: start, Reason: "invalid string length"}
		}
		d.pos++
	}
	if d.pos >= len(d.src) {
		return nil, &ErrTruncated{Offset: start}
	}
	n, err := parseInt(d.src[lenStart:d.pos])
	if err != nil || n < 0 {
		return nil, &ErrMalformed{Offset: start, Reason: "invalid string length"}
	}
	d.pos++ // consume ':'
	if d.pos+int(n) > len(d.src) {
		return nil, &ErrTruncated{Offset: start}
	}
	raw := d.src[d.pos : d.pos+int(n)]
	d.pos += int(n)
	return raw, nil
}

func (d *decoder) list() error {
	start := d.pos
	d.pos++ // consume 'l'
	if !d.stack.PushList() {
		return &ErrTooDeep{Offset: start, MaxDepth: d.stack.maxDepth}
	}
	if !d.handler.StartArray(Span{Offset: start, Length: 1}) {
		return &ErrCancelled{Offset: start}
	}
	for {
		if d.pos >= len(d.src) {
			return &ErrTruncated{Offset: start}
		}
		if d.src[d.pos] == 'e' {
			break
		}
		if err := d.value(); err != nil {
			return err
		}
	}
	end := d.pos
	d.pos++ // consume 'e'
	d.stack.Pop()
	if !d.handler.EndArray(Span{Offset: end, Length: 1}) {
		return &ErrCancelled{Offset: end}
	}
	d.stack.ToggleKeyExpectation()
	return nil
}

func (d *decoder) dict() error {
	start := d.pos
	d.pos++ // consume 'd'
	if !d.stack.PushDict() {
		return &ErrTooDeep{Offset: start, MaxDepth: d.stack.maxDepth}
	}
	if !d.handler.StartDict(Span{Offset: start, Length: 1}) {
		return &ErrCancelled{Offset: start}
	}
	for {
		if d.pos >= len(d.src) {
			return &ErrTruncated{Offset: start}
		}
		if d.src[d.pos] == 'e' {
			if !d.stack.ExpectingKey() {
				return &ErrMalformed{Offset: d.pos, Reason: "dict key without value"}
			}
			break
		}
		if err := d.value(); err != nil {
			return err
		}
	}
	end := d.pos
	d.pos++ // consume 'e'
	d.stack.Pop()
	if !d.handler.EndDict(Span{Offset: end, Length: 1}) {
		return &ErrCancelled{Offset: end}
	}
	d.stack.ToggleKeyExpectation()
	return nil
}

func parseInt(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, errEmptyInt
	}
	neg := false
	i := 0
	if b[0] == '-' {
		neg = true
		i++
	}
	if i >= len(b) {
		return 0, errEmptyInt
	}
	var v int64
	for ; i < len(b); i++ {
		c := b[i]
		if c < '0' || c > '9' {
			return 0, errBadInt
		}
		v = v*10 + int64(c-'0')
	}
	if neg {
		v = -v
	}
	return v, nil
}
