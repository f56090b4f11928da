package bits

import "fmt"

// DefaultFrameBits is the modem payload size of one message (70 bytes).
const DefaultFrameBits = 560

// Frame is a fixed-capacity buffer with an append cursor.
// The cursor never passes the capacity; a rejected append leaves the frame unchanged.
type Frame struct {
	buf    *Buffer
	cursor int
}

// NewFrame creates an empty frame holding at most capacity bits
func NewFrame(capacity int) *Frame {
	return &Frame{buf: New(capacity)}
}

// FrameFromBytes wraps a received wire image as a full frame of capacity bits.
// The cursor is placed at the end so the whole frame is readable.
func FrameFromBytes(data []byte, capacity int) (*Frame, error) {
	buf, err := FromBytes(data, capacity)
	if err != nil {
		return nil, err
	}
	return &Frame{buf: buf, cursor: capacity}, nil
}

// Capacity returns the frame size in bits
func (f *Frame) Capacity() int {
	return f.buf.Len()
}

// Len returns the number of bits written so far
func (f *Frame) Len() int {
	return f.cursor
}

// Remaining returns the free space in bits
func (f *Frame) Remaining() int {
	return f.buf.Len() - f.cursor
}

// Fits reports whether n more bits can be appended
func (f *Frame) Fits(n int) bool {
	return n >= 0 && f.cursor+n <= f.buf.Len()
}

// Append copies all of src to the cursor
func (f *Frame) Append(src *Buffer) error {
	if !f.Fits(src.Len()) {
		return fmt.Errorf("%w: need %d bits, %d free", ErrCapacityExceeded, src.Len(), f.Remaining())
	}
	f.buf.CopyRange(f.cursor, src, 0, src.Len())
	f.cursor += src.Len()
	return nil
}

// AppendUint writes the low width bits of v at the cursor
func (f *Frame) AppendUint(v uint64, width int) error {
	if !f.Fits(width) {
		return fmt.Errorf("%w: need %d bits, %d free", ErrCapacityExceeded, width, f.Remaining())
	}
	f.buf.SetUint(f.cursor, width, v)
	f.cursor += width
	return nil
}

// Reserve advances the cursor by n bits and returns the offset of the reserved
// region, for serializers that write in place.
func (f *Frame) Reserve(n int) (int, error) {
	if !f.Fits(n) {
		return 0, fmt.Errorf("%w: need %d bits, %d free", ErrCapacityExceeded, n, f.Remaining())
	}
	off := f.cursor
	f.cursor += n
	return off, nil
}

// Mark returns the current cursor for a later Rollback
func (f *Frame) Mark() int {
	return f.cursor
}

// Rollback clears everything written after mark
func (f *Frame) Rollback(mark int) {
	if mark < 0 || mark > f.cursor {
		panic(&IndexError{Index: mark, Len: f.cursor})
	}
	for i := mark; i < f.cursor; i++ {
		f.buf.Set(i, false)
	}
	f.cursor = mark
}

// Buffer returns the underlying storage
func (f *Frame) Buffer() *Buffer {
	return f.buf
}

// Bytes returns the full-capacity wire image; unused bits are zero
func (f *Frame) Bytes() []byte {
	return f.buf.Bytes()
}

// Reset empties the frame
func (f *Frame) Reset() {
	f.buf.Reset()
	f.cursor = 0
}

// String returns a string representation of the frame
func (f *Frame) String() string {
	return fmt.Sprintf("Frame{Len=%d, Capacity=%d}", f.cursor, f.buf.Len())
}
