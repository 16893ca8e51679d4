package validator

import (
	"fmt"
	"unicode/utf8"

	"github.com/nihei9/isoebnf/spec"
)

// Cursor is a read position in an input. It keeps the raw byte offset and the position counted in characters
// in step with each other. Cursor is a value; copying it saves the position.
type Cursor struct {
	src    []byte
	offset int
	pos    spec.Position
}

// NewCursor returns a cursor at the beginning of src.
func NewCursor(src []byte) Cursor {
	return Cursor{
		src: src,
		pos: spec.Position{
			Row: 1,
			Col: 1,
		},
	}
}

// Remaining returns the unread part of the input. The caller must not modify it.
func (c *Cursor) Remaining() []byte {
	return c.src[c.offset:]
}

// Offset returns the byte offset from the beginning of the input.
func (c *Cursor) Offset() int {
	return c.offset
}

func (c *Cursor) Position() spec.Position {
	return c.pos
}

func (c *Cursor) EOF() bool {
	return c.offset >= len(c.src)
}

// Advance moves the cursor forward by n bytes. n must not exceed the length of the remaining input.
func (c *Cursor) Advance(n int) {
	if n < 0 || c.offset+n > len(c.src) {
		panic(fmt.Errorf("cannot advance a cursor by %v bytes; remaining: %v bytes", n, len(c.src)-c.offset))
	}
	end := c.offset + n
	for c.offset < end {
		r, size := utf8.DecodeRune(c.src[c.offset:end])
		c.offset += size
		c.pos.Index++
		if r == '\n' {
			c.pos.Row++
			c.pos.Col = 1
		} else {
			c.pos.Col++
		}
	}
}

// limit returns a copy of the cursor that sees no input beyond the byte offset end.
func (c *Cursor) limit(end int) Cursor {
	if end < c.offset || end > len(c.src) {
		panic(fmt.Errorf("cannot limit a cursor at %v to %v; input length: %v", c.offset, end, len(c.src)))
	}
	l := *c
	l.src = c.src[:end]
	return l
}

// peekText describes the character at the cursor for error messages.
func (c *Cursor) peekText() string {
	if c.EOF() {
		return "end of input"
	}
	r, _ := utf8.DecodeRune(c.Remaining())
	return fmt.Sprintf("'%c'", r)
}
