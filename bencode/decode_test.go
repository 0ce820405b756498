package bencode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// recorder captures every callback invocation as a flat token stream so
// tests can assert structure without building a tree type.
type recorder struct {
	BaseHandler
	tokens []string
}

func (r *recorder) Int64(_ Span, v int64) bool {
	r.tokens = append(r.tokens, "i")
	return true
}

func (r *recorder) String(_ Span, v []byte) bool {
	r.tokens = append(r.tokens, "s:"+string(v))
	return true
}

func (r *recorder) StartDict(Span) bool {
	r.tokens = append(r.tokens, "d(")
	return true
}

func (r *recorder) Key(_ Span, k []byte) bool {
	r.tokens = append(r.tokens, "k:"+string(k))
	return true
}

func (r *recorder) EndDict(Span) bool {
	r.tokens = append(r.tokens, ")d")
	return true
}

func (r *recorder) StartArray(Span) bool {
	r.tokens = append(r.tokens, "l(")
	return true
}

func (r *recorder) EndArray(Span) bool {
	r.tokens = append(r.tokens, ")l")
	return true
}

func TestDecodeScalarTypes(t *testing.T) {
	require := require.New(t)

	r := &recorder{}
	n, err := Decode([]byte("i42e"), r)
	require.NoError(err)
	require.Equal(4, n)
	require.Equal([]string{"i"}, r.tokens)

	r = &recorder{}
	n, err = Decode([]byte("4:spam"), r)
	require.NoError(err)
	require.Equal(6, n)
	require.Equal([]string{"s:spam"}, r.tokens)

	r = &recorder{}
	_, err = Decode([]byte("i-13e"), r)
	require.NoError(err)
	require.Equal([]string{"i"}, r.tokens)
}

func TestDecodeList(t *testing.T) {
	require := require.New(t)

	r := &recorder{}
	_, err := Decode([]byte("l4:spam4:eggsi7ee"), r)
	require.NoError(err)
	require.Equal([]string{"l(", "s:spam", "s:eggs", "i", ")l"}, r.tokens)
}

func TestDecodeDict(t *testing.T) {
	require := require.New(t)

	r := &recorder{}
	_, err := Decode([]byte("d3:cow3:moo4:spam4:eggse"), r)
	require.NoError(err)
	require.Equal([]string{"d(", "k:cow", "s:moo", "k:spam", "s:eggs", ")d"}, r.tokens)
}

func TestDecodeNestedStructures(t *testing.T) {
	require := require.New(t)

	r := &recorder{}
	_, err := Decode([]byte("d4:infod6:lengthi100e4:name5:filesee"), r)
	require.NoError(err)
	require.Equal([]string{
		"d(", "k:info", "d(", "k:length", "i", "k:name", "s:files", ")d", ")d",
	}, r.tokens)
}

func TestDecodeMalformed(t *testing.T) {
	require := require.New(t)

	cases := []string{"x", "i1x2e", "3abc:foo", "d1:ae"}
	for _, c := range cases {
		_, err := Decode([]byte(c), &recorder{})
		require.Error(err, c)
		var malformed *ErrMalformed
		require.ErrorAs(err, &malformed, c)
	}
}

func TestDecodeTruncated(t *testing.T) {
	require := require.New(t)

	cases := []string{"i42", "4:spa", "l4:spam", "d3:cow3:moo", ""}
	for _, c := range cases {
		_, err := Decode([]byte(c), &recorder{})
		require.Error(err, c)
		var truncated *ErrTruncated
		require.ErrorAs(err, &truncated, c)
	}
}

func TestDecodeTooDeep(t *testing.T) {
	require := require.New(t)

	nesting := ""
	for i := 0; i < 10; i++ {
		nesting += "l"
	}
	for i := 0; i < 10; i++ {
		nesting += "e"
	}

	_, err := DecodeDepth([]byte(nesting), &recorder{}, 5)
	require.Error(err)
	var tooDeep *ErrTooDeep
	require.ErrorAs(err, &tooDeep)
	require.Equal(5, tooDeep.MaxDepth)
}

type cancelAfterN struct {
	BaseHandler
	n int
}

func (c *cancelAfterN) String(Span, []byte) bool {
	c.n--
	return c.n >= 0
}

func TestDecodeCancelled(t *testing.T) {
	require := require.New(t)

	_, err := Decode([]byte("l4:spam4:eggse"), &cancelAfterN{n: 1})
	require.Error(err)
	var cancelled *ErrCancelled
	require.ErrorAs(err, &cancelled)
}

// encode re-emits the token stream recorded by recorder back into bencode,
// used to check the parse/emit round trip on structurally simple inputs.
func encode(tokens []string) string {
	out := ""
	for _, tok := range tokens {
		switch {
		case tok == "i":
			out += "i0e"
		case len(tok) > 2 && tok[:2] == "s:":
			s := tok[2:]
			out += itoa(len(s)) + ":" + s
		case len(tok) > 2 && tok[:2] == "k:":
			s := tok[2:]
			out += itoa(len(s)) + ":" + s
		case tok == "d(", tok == "l(":
			out += tok[:1]
		case tok == ")d", tok == ")l":
			out += "e"
		}
	}
	return out
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return digits
}

func TestDecodeRoundTripsStringsAndContainers(t *testing.T) {
	require := require.New(t)

	src := "d3:bar4:spam3:fooi42ee"
	r := &recorder{}
	_, err := Decode([]byte(src), r)
	require.NoError(err)

	r2 := &recorder{}
	_, err = Decode([]byte(encode(r.tokens)), r2)
	require.NoError(err)
	require.Equal(r.tokens, r2.tokens)
}
