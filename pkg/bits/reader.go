package bits

import "fmt"

// Reader walks a buffer front to back. Unlike Buffer accessors it never
// panics; running out of bits is reported as ErrInsufficientBits.
type Reader struct {
	buf    *Buffer
	offset int
	limit  int
}

// NewReader reads the whole buffer
func NewReader(buf *Buffer) *Reader {
	return &Reader{buf: buf, limit: buf.Len()}
}

// NewFrameReader reads the written part of a frame
func NewFrameReader(f *Frame) *Reader {
	return &Reader{buf: f.buf, limit: f.cursor}
}

// Offset returns the next bit index to be read
func (r *Reader) Offset() int {
	return r.offset
}

// Remaining returns the number of unread bits
func (r *Reader) Remaining() int {
	return r.limit - r.offset
}

func (r *Reader) need(n int) error {
	if n < 0 || r.offset+n > r.limit {
		return fmt.Errorf("%w: need %d, have %d", ErrInsufficientBits, n, r.Remaining())
	}
	return nil
}

// ReadUint reads a width-bit unsigned integer
func (r *Reader) ReadUint(width int) (uint64, error) {
	if width > 64 {
		return 0, fmt.Errorf("%w: width %d", ErrInvalidLength, width)
	}
	if err := r.need(width); err != nil {
		return 0, err
	}
	v := r.buf.Uint(r.offset, width)
	r.offset += width
	return v, nil
}

// ReadBool reads one bit
func (r *Reader) ReadBool() (bool, error) {
	if err := r.need(1); err != nil {
		return false, err
	}
	v := r.buf.Get(r.offset)
	r.offset++
	return v, nil
}

// ReadBits returns a copy of the next n bits
func (r *Reader) ReadBits(n int) (*Buffer, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	out := r.buf.Slice(r.offset, n)
	r.offset += n
	return out, nil
}

// Next reserves the next n bits and returns their offset in the underlying buffer
func (r *Reader) Next(n int) (int, error) {
	if err := r.need(n); err != nil {
		return 0, err
	}
	off := r.offset
	r.offset += n
	return off, nil
}

// Buffer returns the buffer being read
func (r *Reader) Buffer() *Buffer {
	return r.buf
}
