package serializer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"avaneesh/satstate-go/pkg/bits"
	"avaneesh/satstate-go/pkg/types"
)

// quantizer maps [min, max] onto width-bit integers with
// step = (max-min)/(2^width-1).
type quantizer struct {
	min, max float64
	width    int
	maxRaw   uint64
	step     float64
}

func newQuantizer(min, max float64, width int) (quantizer, error) {
	if width < 1 || width > MaxQuantizedWidth {
		return quantizer{}, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidWidth, width, MaxQuantizedWidth)
	}
	if !(min < max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
		return quantizer{}, fmt.Errorf("%w: [%g, %g]", ErrInvalidRange, min, max)
	}
	maxRaw := uint64(1)<<width - 1
	return quantizer{
		min:    min,
		max:    max,
		width:  width,
		maxRaw: maxRaw,
		step:   (max - min) / float64(maxRaw),
	}, nil
}

func (q quantizer) encode(x float64) uint64 {
	if math.IsNaN(x) || x <= q.min {
		return 0
	}
	if x >= q.max {
		return q.maxRaw
	}
	raw := math.Round((x - q.min) / q.step)
	if raw >= float64(q.maxRaw) {
		return q.maxRaw
	}
	return uint64(raw)
}

func (q quantizer) decode(raw uint64) float64 {
	if raw >= q.maxRaw {
		return q.max
	}
	return q.min + float64(raw)*q.step
}

func (q quantizer) put(dst *bits.Buffer, off int, x float64) {
	dst.SetUint(off, q.width, q.encode(x))
}

func (q quantizer) get(src *bits.Buffer, off int) float64 {
	return q.decode(src.Uint(off, q.width))
}

// Real encodes a bounded float32 or float64 value
type Real[F types.Float] struct {
	q    quantizer
	prec int
}

// NewFloat creates a float32 serializer over [min, max] using width bits
func NewFloat(min, max float32, width int) (*Real[float32], error) {
	q, err := newQuantizer(float64(min), float64(max), width)
	if err != nil {
		return nil, err
	}
	return &Real[float32]{q: q, prec: 32}, nil
}

// NewDouble creates a float64 serializer over [min, max] using width bits
func NewDouble(min, max float64, width int) (*Real[float64], error) {
	q, err := newQuantizer(min, max, width)
	if err != nil {
		return nil, err
	}
	return &Real[float64]{q: q, prec: 64}, nil
}

func (s *Real[F]) Bitsize() int { return s.q.width }

// Step returns the quantization step
func (s *Real[F]) Step() float64 { return s.q.step }

func (s *Real[F]) Put(dst *bits.Buffer, off int, v F) {
	s.q.put(dst, off, float64(v))
}

func (s *Real[F]) Get(src *bits.Buffer, off int) F {
	return F(s.q.get(src, off))
}

func (s *Real[F]) Format(v F) string {
	return strconv.FormatFloat(float64(v), 'g', -1, s.prec)
}

func (s *Real[F]) Parse(text string) (F, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), s.prec)
	if err != nil {
		return 0, invalidValue(text, err)
	}
	return F(v), nil
}

func formatComponents[F types.Float](v []F, prec int) string {
	parts := make([]string, len(v))
	for i, c := range v {
		parts[i] = strconv.FormatFloat(float64(c), 'g', -1, prec)
	}
	return strings.Join(parts, ",")
}

func parseComponents[F types.Float](text string, dst []F, prec int) error {
	parts := strings.Split(text, ",")
	if len(parts) != len(dst) {
		return invalidValue(text, fmt.Errorf("want %d components, got %d", len(dst), len(parts)))
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), prec)
		if err != nil {
			return invalidValue(text, err)
		}
		dst[i] = F(v)
	}
	return nil
}
