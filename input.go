package kuroko

import (
	"io"
	"unicode/utf8"
)

// sourceCursor is the scanner's byte/rune cursor over an in-memory
// source buffer (§4.1 "pointer into a source buffer"). Grounded on the
// teacher's vm_input.go MemInput almost verbatim — a PEG matcher and an
// indentation-aware lexer need the identical peek/read/seek primitives
// over a byte slice; only the name changed since this is no longer one
// of several pluggable `Input` backends, just the scanner's own cursor.
type sourceCursor struct {
	data []byte
	pos  int
}

func newSourceCursor(data []byte) sourceCursor {
	return sourceCursor{data: data}
}

func (in *sourceCursor) peekByte() (byte, error) {
	if in.pos >= len(in.data) {
		return 0, io.EOF
	}
	return in.data[in.pos], nil
}

func (in *sourceCursor) readByte() (byte, error) {
	b, err := in.peekByte()
	if err != nil {
		return 0, err
	}
	in.pos++
	return b, nil
}

func (in *sourceCursor) peekRune() (rune, int, error) {
	if in.pos >= len(in.data) {
		return 0, 0, io.EOF
	}
	if r := in.data[in.pos]; r < utf8.RuneSelf {
		return rune(r), 1, nil
	}
	r, size := utf8.DecodeRune(in.data[in.pos:])
	return r, size, nil
}

func (in *sourceCursor) readRune() (rune, int, error) {
	r, size, err := in.peekRune()
	if err != nil {
		return 0, 0, err
	}
	in.pos += size
	return r, size, nil
}

func (in *sourceCursor) seek(offset int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(in.data) {
		offset = len(in.data)
	}
	in.pos = offset
}

func (in *sourceCursor) slice(start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(in.data) {
		end = len(in.data)
	}
	return string(in.data[start:end])
}

func (in *sourceCursor) atEOF() bool { return in.pos >= len(in.data) }
