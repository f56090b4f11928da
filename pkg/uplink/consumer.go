package uplink

import (
	"fmt"

	"avaneesh/satstate-go/pkg/bits"
	"avaneesh/satstate-go/pkg/internal/logger"
	"avaneesh/satstate-go/pkg/registry"
)

// TupleError reports one tuple that could not be applied. Offset is the bit
// offset of the tuple's index; Index is the schema position it named.
type TupleError struct {
	Offset int
	Index  int
	Err    error
}

func (e *TupleError) Error() string {
	return fmt.Sprintf("uplink: tuple at bit %d (index %d): %v", e.Offset, e.Index, e.Err)
}

func (e *TupleError) Unwrap() error {
	return e.Err
}

// Result lists what one frame did
type Result struct {
	Applied  []string
	Failures []*TupleError
}

// Consumer applies received uplink frames to the writable fields of a registry
type Consumer struct {
	schema   *boundSchema
	capacity int
	logger   logger.Logger
}

// NewConsumer binds schema to the writable fields of reg
func NewConsumer(reg *registry.Registry, schema Schema, opts Options) (*Consumer, error) {
	opts.normalize()
	b, err := bind(reg, schema)
	if err != nil {
		return nil, err
	}
	return &Consumer{schema: b, capacity: opts.CapacityBits, logger: opts.Logger}, nil
}

// Capacity returns the frame capacity in bits
func (c *Consumer) Capacity() int {
	return c.capacity
}

// Apply decodes a received frame of capacity bits and applies it
func (c *Consumer) Apply(data []byte) (*Result, error) {
	fr, err := bits.FrameFromBytes(data, c.capacity)
	if err != nil {
		return nil, err
	}
	return c.ApplyFrame(fr), nil
}

// ApplyFrame applies every valid tuple in fr. A tuple naming a field already
// updated by this frame is skipped. An index outside the schema ends decoding,
// since the width of its value is unknown; tuples before it stay applied.
func (c *Consumer) ApplyFrame(fr *bits.Frame) *Result {
	res := &Result{}
	seen := make([]bool, len(c.schema.fields))

	c.schema.walk(fr, func(off, pos int, err error, apply func()) bool {
		if err != nil {
			res.Failures = append(res.Failures, &TupleError{Offset: off, Index: pos, Err: err})
			return false
		}
		if seen[pos] {
			res.Failures = append(res.Failures, &TupleError{Offset: off, Index: pos, Err: ErrDuplicateIndex})
			return true
		}
		seen[pos] = true
		apply()
		res.Applied = append(res.Applied, c.schema.fields[pos].Name())
		return true
	})

	for _, f := range res.Failures {
		c.logger.Warn("Uplink: skipped %v", f)
	}
	c.logger.Debug("Uplink: applied %d updates", len(res.Applied))
	return res
}

// Validate checks fr without applying it
func (c *Consumer) Validate(fr *bits.Frame) error {
	return c.schema.validate(fr)
}
