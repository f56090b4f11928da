// Package uplink packs and applies index-addressed updates of writable fields.
//
// A frame is a run of [index][value] tuples. The index is the field's
// position in a Schema plus one; its width is the number of bits needed for
// len(Fields)+1. An index of zero, or running out of bits, ends the frame.
//
// An index past the schema ends decoding too: the value width behind it is
// unknown, so every tuple after a bad index is lost. Tuples before it stay
// applied and the bad index is reported in Result.Failures.
package uplink

import (
	"errors"
	"fmt"
	mathbits "math/bits"

	"avaneesh/satstate-go/pkg/bits"
	"avaneesh/satstate-go/pkg/field"
	"avaneesh/satstate-go/pkg/internal/logger"
	"avaneesh/satstate-go/pkg/registry"
)

var (
	ErrEmptySchema    = errors.New("uplink: schema has no fields")
	ErrUnknownField   = errors.New("uplink: field not writable")
	ErrDuplicateField = errors.New("uplink: field listed twice in schema")
	ErrUnknownIndex   = errors.New("uplink: index outside schema")
	ErrDuplicateIndex = errors.New("uplink: index already updated in this frame")
	ErrTruncatedTuple = errors.New("uplink: frame ends inside a tuple")
	ErrBatchTooLarge  = errors.New("uplink: batch does not fit in frame")
	ErrSizeMismatch   = errors.New("uplink: value width does not match field")
	ErrNonZeroPadding = errors.New("uplink: non-zero bits after end of frame")
)

// Schema is the shared, versioned index to field table. Both ends must hold
// identical schemas.
type Schema struct {
	Version int
	Fields  []string
}

// SchemaFromRegistry lists every writable field of reg in name order
func SchemaFromRegistry(reg *registry.Registry, version int) Schema {
	return Schema{Version: version, Fields: reg.WritableNames()}
}

// IndexWidth returns the width of an index on the wire
func (s Schema) IndexWidth() int {
	return mathbits.Len(uint(len(s.Fields) + 1))
}

// Options configures a Producer or a Consumer
type Options struct {
	CapacityBits int // 0 means bits.DefaultFrameBits
	Logger       logger.Logger
}

func (o *Options) normalize() {
	if o.CapacityBits <= 0 {
		o.CapacityBits = bits.DefaultFrameBits
	}
	if o.Logger == nil {
		o.Logger = logger.NewNoOpLogger()
	}
}

// boundSchema is a schema resolved against a registry
type boundSchema struct {
	schema     Schema
	fields     []field.Base
	positions  map[string]int
	indexWidth int
}

func bind(reg *registry.Registry, s Schema) (*boundSchema, error) {
	if len(s.Fields) == 0 {
		return nil, ErrEmptySchema
	}
	b := &boundSchema{
		schema:     Schema{Version: s.Version, Fields: append([]string(nil), s.Fields...)},
		fields:     make([]field.Base, len(s.Fields)),
		positions:  make(map[string]int, len(s.Fields)),
		indexWidth: s.IndexWidth(),
	}
	for i, name := range s.Fields {
		if _, dup := b.positions[name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateField, name)
		}
		f, ok := reg.FindWritableField(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, name)
		}
		b.fields[i] = f
		b.positions[name] = i
	}
	return b, nil
}

// field returns the field at schema position pos
func (b *boundSchema) field(pos int) (field.Base, bool) {
	if pos < 0 || pos >= len(b.fields) {
		return nil, false
	}
	return b.fields[pos], true
}

// maxPacketSize is the size of a frame updating every field once
func (b *boundSchema) maxPacketSize() int {
	n := 0
	for _, f := range b.fields {
		n += b.indexWidth + f.Bitsize()
	}
	return n
}

// validate checks fr without applying it: every index must be in the schema
// and unique, every value complete, and any bits after the last tuple zero.
func (b *boundSchema) validate(fr *bits.Frame) error {
	seen := make([]bool, len(b.fields))
	var failure error

	end := b.walk(fr, func(off, pos int, err error, _ func()) bool {
		if err == nil && seen[pos] {
			err = ErrDuplicateIndex
		}
		if err != nil {
			failure = &TupleError{Offset: off, Index: pos, Err: err}
			return false
		}
		seen[pos] = true
		return true
	})
	if failure != nil {
		return failure
	}

	r := bits.NewFrameReader(fr)
	if _, err := r.Next(end); err != nil {
		return err
	}
	for r.Remaining() > 0 {
		if v, _ := r.ReadBool(); v {
			return fmt.Errorf("%w: bit %d", ErrNonZeroPadding, r.Offset()-1)
		}
	}
	return nil
}

// walk visits each tuple of fr. visit gets the tuple's offset, its schema
// position and either an error or an apply func that decodes the value into
// its field; it returns false to stop. walk returns the offset where the
// tuples end.
func (b *boundSchema) walk(fr *bits.Frame, visit func(off, pos int, err error, apply func()) bool) int {
	r := bits.NewFrameReader(fr)
	for {
		start := r.Offset()
		raw, err := r.ReadUint(b.indexWidth)
		if err != nil || raw == 0 {
			return start
		}
		pos := int(raw) - 1
		f, ok := b.field(pos)
		if !ok {
			visit(start, pos, fmt.Errorf("%w: %d", ErrUnknownIndex, pos), nil)
			return start
		}
		off, err := r.Next(f.Bitsize())
		if err != nil {
			visit(start, pos, fmt.Errorf("%w: %s", ErrTruncatedTuple, f.Name()), nil)
			return start
		}
		buf := r.Buffer()
		if !visit(start, pos, nil, func() { f.Deserialize(buf, off) }) {
			return r.Offset()
		}
	}
}
