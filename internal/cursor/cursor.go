package cursor

import (
	"github.com/nonergodic/layout/errors"
)

// Writer is a mutable write position over an output buffer.
type Writer struct {
	buf []byte
	off int
}

func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// Offset returns the number of bytes written so far.
func (w *Writer) Offset() int {
	return w.off
}

// Reserve advances the cursor by n bytes and returns the reserved
// window. The caller may fill it immediately or hold on to it and
// patch it after later writes (length prefixes do this).
func (w *Writer) Reserve(n int) ([]byte, error) {
	if w.off+n > len(w.buf) {
		return nil, errors.Truncated(errors.PhaseSerialize, n, len(w.buf)-w.off)
	}
	window := w.buf[w.off : w.off+n]
	w.off += n
	return window, nil
}

// Write copies p at the cursor and advances.
func (w *Writer) Write(p []byte) error {
	window, err := w.Reserve(len(p))
	if err != nil {
		return err
	}
	copy(window, p)
	return nil
}

// Chunk bounds reads to buf[off:end]. Sub-chunks carve nested regions
// for size-delimited payloads.
type Chunk struct {
	buf []byte
	off int
	end int
}

func NewChunk(buf []byte) *Chunk {
	return &Chunk{buf: buf, end: len(buf)}
}

// Offset returns the absolute read position.
func (c *Chunk) Offset() int {
	return c.off
}

// Remaining returns the number of unread bytes in the chunk.
func (c *Chunk) Remaining() int {
	return c.end - c.off
}

// Done reports whether the chunk is fully consumed.
func (c *Chunk) Done() bool {
	return c.off >= c.end
}

// Take advances past n bytes and returns them as a view of the input.
func (c *Chunk) Take(n int) ([]byte, error) {
	if c.off+n > c.end {
		return nil, errors.Truncated(errors.PhaseDeserialize, n, c.end-c.off)
	}
	view := c.buf[c.off : c.off+n]
	c.off += n
	return view, nil
}

// TakeRest consumes and returns everything up to the chunk's end.
func (c *Chunk) TakeRest() []byte {
	view := c.buf[c.off:c.end]
	c.off = c.end
	return view
}

// Sub carves an n-byte sub-chunk at the cursor and advances past it.
// Reads through the sub-chunk cannot escape the carved region.
func (c *Chunk) Sub(n int) (*Chunk, error) {
	if c.off+n > c.end {
		return nil, errors.Truncated(errors.PhaseDeserialize, n, c.end-c.off)
	}
	sub := &Chunk{buf: c.buf, off: c.off, end: c.off + n}
	c.off += n
	return sub, nil
}
