package serializer

import (
	"fmt"
	mathbits "math/bits"
	"strconv"
	"strings"

	"avaneesh/satstate-go/pkg/bits"
)

// Signed is the set of sized signed integer types
type Signed interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

// Unsigned is the set of sized unsigned integer types
type Unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Int encodes a signed integer in [min, max] as the offset from min,
// using exactly as many bits as max-min needs.
type Int[T Signed] struct {
	min, max T
	span     uint64
	width    int
}

// NewInt creates a signed integer serializer for [min, max]
func NewInt[T Signed](min, max T) (*Int[T], error) {
	if min >= max {
		return nil, fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, min, max)
	}
	span := uint64(int64(max)) - uint64(int64(min))
	return &Int[T]{
		min:   min,
		max:   max,
		span:  span,
		width: mathbits.Len64(span),
	}, nil
}

func (s *Int[T]) Bitsize() int { return s.width }

// Min returns the lower bound
func (s *Int[T]) Min() T { return s.min }

// Max returns the upper bound
func (s *Int[T]) Max() T { return s.max }

func (s *Int[T]) Put(dst *bits.Buffer, off int, v T) {
	v = min(max(v, s.min), s.max)
	dst.SetUint(off, s.width, uint64(int64(v))-uint64(int64(s.min)))
}

func (s *Int[T]) Get(src *bits.Buffer, off int) T {
	raw := min(src.Uint(off, s.width), s.span)
	return T(int64(uint64(int64(s.min)) + raw))
}

func (s *Int[T]) Format(v T) string {
	return strconv.FormatInt(int64(v), 10)
}

func (s *Int[T]) Parse(text string) (T, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return 0, invalidValue(text, err)
	}
	return T(min(max(v, int64(s.min)), int64(s.max))), nil
}

// Uint encodes an unsigned integer in [min, max] as the offset from min.
type Uint[T Unsigned] struct {
	min, max T
	width    int
}

// NewUint creates an unsigned integer serializer for [min, max]
func NewUint[T Unsigned](min, max T) (*Uint[T], error) {
	if min >= max {
		return nil, fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, min, max)
	}
	return &Uint[T]{
		min:   min,
		max:   max,
		width: mathbits.Len64(uint64(max - min)),
	}, nil
}

// NewUintMax creates an unsigned integer serializer for [0, max]
func NewUintMax[T Unsigned](max T) (*Uint[T], error) {
	return NewUint[T](0, max)
}

func (s *Uint[T]) Bitsize() int { return s.width }

// Min returns the lower bound
func (s *Uint[T]) Min() T { return s.min }

// Max returns the upper bound
func (s *Uint[T]) Max() T { return s.max }

func (s *Uint[T]) Put(dst *bits.Buffer, off int, v T) {
	v = min(max(v, s.min), s.max)
	dst.SetUint(off, s.width, uint64(v-s.min))
}

func (s *Uint[T]) Get(src *bits.Buffer, off int) T {
	raw := min(src.Uint(off, s.width), uint64(s.max-s.min))
	return s.min + T(raw)
}

func (s *Uint[T]) Format(v T) string {
	return strconv.FormatUint(uint64(v), 10)
}

func (s *Uint[T]) Parse(text string) (T, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return 0, invalidValue(text, err)
	}
	return T(min(max(v, uint64(s.min)), uint64(s.max))), nil
}
