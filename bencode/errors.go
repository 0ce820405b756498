package bencode

import "fmt"

// ErrMalformed reports invalid bencode syntax at Offset.
type ErrMalformed struct {
	Offset int
	Reason string
}

func (e *ErrMalformed) Error() string {
	return fmt.Sprintf("bencode: malformed at offset %d: %s", e.Offset, e.Reason)
}

// ErrTooDeep reports that nesting exceeded the parser's configured MaxDepth.
type ErrTooDeep struct {
	Offset   int
	MaxDepth int
}

func (e *ErrTooDeep) Error() string {
	return fmt.Sprintf("bencode: nesting exceeds max depth %d at offset %d", e.MaxDepth, e.Offset)
}

// ErrCancelled reports that a Handler callback returned false, aborting the parse.
type ErrCancelled struct {
	Offset int
}

func (e *ErrCancelled) Error() string {
	return fmt.Sprintf("bencode: handler cancelled parse at offset %d", e.Offset)
}

// ErrTruncated reports that the input ended in the middle of a value.
type ErrTruncated struct {
	Offset int
}

func (e *ErrTruncated) Error() string {
	return fmt.Sprintf("bencode: truncated input at offset %d", e.Offset)
}
