package serializer

import (
	"avaneesh/satstate-go/pkg/bits"
	"avaneesh/satstate-go/pkg/types"
)

// Vector encodes a 3-vector by quantizing each component over [min, max].
type Vector[F types.Float] struct {
	q    quantizer
	prec int
}

// NewFVector creates a float32 3-vector serializer, width bits per component
func NewFVector(min, max float32, width int) (*Vector[float32], error) {
	q, err := newQuantizer(float64(min), float64(max), width)
	if err != nil {
		return nil, err
	}
	return &Vector[float32]{q: q, prec: 32}, nil
}

// NewDVector creates a float64 3-vector serializer, width bits per component
func NewDVector(min, max float64, width int) (*Vector[float64], error) {
	q, err := newQuantizer(min, max, width)
	if err != nil {
		return nil, err
	}
	return &Vector[float64]{q: q, prec: 64}, nil
}

func (s *Vector[F]) Bitsize() int { return 3 * s.q.width }

// Step returns the per-component quantization step
func (s *Vector[F]) Step() float64 { return s.q.step }

func (s *Vector[F]) Put(dst *bits.Buffer, off int, v [3]F) {
	for i, c := range v {
		s.q.put(dst, off+i*s.q.width, float64(c))
	}
}

func (s *Vector[F]) Get(src *bits.Buffer, off int) [3]F {
	var v [3]F
	for i := range v {
		v[i] = F(s.q.get(src, off+i*s.q.width))
	}
	return v
}

func (s *Vector[F]) Format(v [3]F) string {
	return formatComponents(v[:], s.prec)
}

func (s *Vector[F]) Parse(text string) ([3]F, error) {
	var v [3]F
	err := parseComponents(text, v[:], s.prec)
	return v, err
}

// Quat encodes a quaternion. Input is normalized before quantizing each
// component over [-1, 1]; output is not renormalized.
type Quat[F types.Float] struct {
	q    quantizer
	prec int
}

// NewFQuat creates a float32 quaternion serializer, width bits per component
func NewFQuat(width int) (*Quat[float32], error) {
	q, err := newQuantizer(-1, 1, width)
	if err != nil {
		return nil, err
	}
	return &Quat[float32]{q: q, prec: 32}, nil
}

// NewDQuat creates a float64 quaternion serializer, width bits per component
func NewDQuat(width int) (*Quat[float64], error) {
	q, err := newQuantizer(-1, 1, width)
	if err != nil {
		return nil, err
	}
	return &Quat[float64]{q: q, prec: 64}, nil
}

func (s *Quat[F]) Bitsize() int { return 4 * s.q.width }

// Step returns the per-component quantization step
func (s *Quat[F]) Step() float64 { return s.q.step }

func (s *Quat[F]) Put(dst *bits.Buffer, off int, v [4]F) {
	types.Normalize(v[:])
	for i, c := range v {
		s.q.put(dst, off+i*s.q.width, float64(c))
	}
}

func (s *Quat[F]) Get(src *bits.Buffer, off int) [4]F {
	var v [4]F
	for i := range v {
		v[i] = F(s.q.get(src, off+i*s.q.width))
	}
	return v
}

func (s *Quat[F]) Format(v [4]F) string {
	return formatComponents(v[:], s.prec)
}

func (s *Quat[F]) Parse(text string) ([4]F, error) {
	var v [4]F
	err := parseComponents(text, v[:], s.prec)
	return v, err
}
