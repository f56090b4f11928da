// Package serializer defines the bit-exact encodings of every value type
// that can appear in a downlink or uplink frame.
//
// A serializer's width is fixed by its configuration and can be queried
// without encoding anything, so packet producers size frames up front.
// Bounded numeric encodings clamp out-of-range input instead of failing.
package serializer

import (
	"errors"
	"fmt"

	"avaneesh/satstate-go/pkg/bits"
)

var (
	ErrInvalidWidth = errors.New("serializer: invalid bit width")
	ErrInvalidRange = errors.New("serializer: min must be less than max")
	ErrSizeMismatch = errors.New("serializer: buffer size does not match bitsize")
	ErrInvalidValue = errors.New("serializer: cannot parse value")
)

// MaxQuantizedWidth bounds the width of float encodings; wider steps are not
// exactly representable as float64 integers.
const MaxQuantizedWidth = 52

// Serializer is the encoding contract for values of type T.
// Put and Get address Bitsize() bits starting at off and panic with
// *bits.IndexError if that range falls outside the buffer.
type Serializer[T any] interface {
	// Bitsize returns the fixed encoded width in bits
	Bitsize() int

	// Put writes the encoding of v into dst at off
	Put(dst *bits.Buffer, off int, v T)

	// Get decodes a value from src at off
	Get(src *bits.Buffer, off int) T

	// Format renders v as operator text
	Format(v T) string

	// Parse reads operator text produced by Format
	Parse(s string) (T, error)
}

// Encode returns the encoding of v in a buffer of exactly s.Bitsize() bits
func Encode[T any](s Serializer[T], v T) *bits.Buffer {
	buf := bits.New(s.Bitsize())
	s.Put(buf, 0, v)
	return buf
}

// Decode reads a value from a buffer that must be exactly s.Bitsize() bits
func Decode[T any](s Serializer[T], b *bits.Buffer) (T, error) {
	if b.Len() != s.Bitsize() {
		var zero T
		return zero, fmt.Errorf("%w: got %d bits, want %d", ErrSizeMismatch, b.Len(), s.Bitsize())
	}
	return s.Get(b, 0), nil
}

// EncodeString parses operator text and returns its encoding
func EncodeString[T any](s Serializer[T], text string) (*bits.Buffer, error) {
	v, err := s.Parse(text)
	if err != nil {
		return nil, err
	}
	return Encode(s, v), nil
}

func invalidValue(s string, err error) error {
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidValue, s, err)
	}
	return fmt.Errorf("%w %q", ErrInvalidValue, s)
}
