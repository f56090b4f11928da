// Package bits provides the fixed-length bit storage every serializer and
// packet producer writes into.
//
// Bit i of a Buffer lives in byte i/8 at position 7-(i%8), so Bytes returns
// the wire image directly. Multi-bit integers are stored least significant
// bit first starting at the given offset.
package bits

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCapacityExceeded = errors.New("bits: frame capacity exceeded")
	ErrInsufficientBits = errors.New("bits: insufficient bits remaining")
	ErrInvalidLength    = errors.New("bits: invalid length")
)

// IndexError reports an access past the end of a Buffer.
type IndexError struct {
	Index int
	Count int
	Len   int
}

func (e *IndexError) Error() string {
	if e.Count > 1 {
		return fmt.Sprintf("bits: range [%d, %d) out of bounds for length %d", e.Index, e.Index+e.Count, e.Len)
	}
	return fmt.Sprintf("bits: index %d out of bounds for length %d", e.Index, e.Len)
}

// Buffer is a fixed-length sequence of bits. It is not safe for concurrent use.
type Buffer struct {
	n    int
	data []byte
}

// New creates a zeroed buffer of n bits
func New(n int) *Buffer {
	if n < 0 {
		panic(&IndexError{Index: n, Len: 0})
	}
	return &Buffer{
		n:    n,
		data: make([]byte, (n+7)/8),
	}
}

// FromBytes builds an n-bit buffer from its wire image
func FromBytes(b []byte, n int) (*Buffer, error) {
	if n < 0 || n > len(b)*8 {
		return nil, fmt.Errorf("%w: %d bits from %d bytes", ErrInvalidLength, n, len(b))
	}
	buf := New(n)
	copy(buf.data, b)
	// Bits past n must stay zero so Equal and Bytes behave.
	if rem := n % 8; rem != 0 {
		buf.data[len(buf.data)-1] &= byte(0xFF << (8 - rem))
	}
	return buf, nil
}

// Len returns the number of bits
func (b *Buffer) Len() int {
	return b.n
}

func (b *Buffer) check(i, count int) {
	if i < 0 || count < 0 || i+count > b.n {
		panic(&IndexError{Index: i, Count: count, Len: b.n})
	}
}

// Get returns bit i
func (b *Buffer) Get(i int) bool {
	b.check(i, 1)
	return b.data[i>>3]&(0x80>>(i&7)) != 0
}

// Set sets bit i
func (b *Buffer) Set(i int, v bool) {
	b.check(i, 1)
	if v {
		b.data[i>>3] |= 0x80 >> (i & 7)
	} else {
		b.data[i>>3] &^= 0x80 >> (i & 7)
	}
}

// CopyRange copies count bits from src starting at srcOff into b at dstOff.
func (b *Buffer) CopyRange(dstOff int, src *Buffer, srcOff, count int) {
	b.check(dstOff, count)
	src.check(srcOff, count)
	if b == src && dstOff > srcOff {
		for i := count - 1; i >= 0; i-- {
			b.Set(dstOff+i, src.Get(srcOff+i))
		}
		return
	}
	for i := 0; i < count; i++ {
		b.Set(dstOff+i, src.Get(srcOff+i))
	}
}

// SetUint writes the low width bits of v at off, least significant bit first.
func (b *Buffer) SetUint(off, width int, v uint64) {
	if width > 64 {
		panic(&IndexError{Index: off, Count: width, Len: b.n})
	}
	b.check(off, width)
	for k := 0; k < width; k++ {
		b.Set(off+k, v&(1<<k) != 0)
	}
}

// Uint reads width bits at off, least significant bit first.
func (b *Buffer) Uint(off, width int) uint64 {
	if width > 64 {
		panic(&IndexError{Index: off, Count: width, Len: b.n})
	}
	b.check(off, width)
	var v uint64
	for k := 0; k < width; k++ {
		if b.Get(off + k) {
			v |= 1 << k
		}
	}
	return v
}

// Slice returns a copy of count bits starting at off
func (b *Buffer) Slice(off, count int) *Buffer {
	out := New(count)
	out.CopyRange(0, b, off, count)
	return out
}

// Bytes returns the wire image, (Len()+7)/8 bytes long
func (b *Buffer) Bytes() []byte {
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

// Reset clears every bit
func (b *Buffer) Reset() {
	for i := range b.data {
		b.data[i] = 0
	}
}

// Clone creates a deep copy of the buffer
func (b *Buffer) Clone() *Buffer {
	out := New(b.n)
	copy(out.data, b.data)
	return out
}

// Equal reports whether both buffers hold the same bits
func (b *Buffer) Equal(other *Buffer) bool {
	if other == nil || b.n != other.n {
		return false
	}
	for i := range b.data {
		if b.data[i] != other.data[i] {
			return false
		}
	}
	return true
}

// String renders the bits as '0' and '1' characters in index order
func (b *Buffer) String() string {
	var sb strings.Builder
	sb.Grow(b.n)
	for i := 0; i < b.n; i++ {
		if b.Get(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// Parse builds a buffer from a string of '0' and '1' characters
func Parse(s string) (*Buffer, error) {
	buf := New(len(s))
	for i, c := range s {
		switch c {
		case '0':
		case '1':
			buf.Set(i, true)
		default:
			return nil, fmt.Errorf("bits: invalid character %q at %d", c, i)
		}
	}
	return buf, nil
}
