package uplink

import (
	"fmt"

	"avaneesh/satstate-go/pkg/bits"
	"avaneesh/satstate-go/pkg/internal/logger"
	"avaneesh/satstate-go/pkg/registry"
)

// Update sets the field at schema position Index to the encoded value Bits
type Update struct {
	Index int
	Bits  *bits.Buffer
}

// Producer builds uplink frames on the ground
type Producer struct {
	schema   *boundSchema
	capacity int
	logger   logger.Logger
}

// NewProducer binds schema to the writable fields of reg
func NewProducer(reg *registry.Registry, schema Schema, opts Options) (*Producer, error) {
	opts.normalize()
	b, err := bind(reg, schema)
	if err != nil {
		return nil, err
	}
	return &Producer{schema: b, capacity: opts.CapacityBits, logger: opts.Logger}, nil
}

// Schema returns a copy of the bound schema
func (p *Producer) Schema() Schema {
	return Schema{Version: p.schema.schema.Version, Fields: append([]string(nil), p.schema.schema.Fields...)}
}

// Capacity returns the frame capacity in bits
func (p *Producer) Capacity() int {
	return p.capacity
}

// MaxPacketSize returns the bits needed to update every field once
func (p *Producer) MaxPacketSize() int {
	return p.schema.maxPacketSize()
}

// Encode turns operator text for the named field into an update. The
// field's current value is not touched.
func (p *Producer) Encode(name, text string) (Update, error) {
	pos, ok := p.schema.positions[name]
	if !ok {
		return Update{}, fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	buf, err := p.schema.fields[pos].EncodeString(text)
	if err != nil {
		return Update{}, fmt.Errorf("uplink: %s: %w", name, err)
	}
	return Update{Index: pos, Bits: buf}, nil
}

// Commands encodes a list of commands in order
func (p *Producer) Commands(cmds []Command) ([]Update, error) {
	out := make([]Update, 0, len(cmds))
	for _, c := range cmds {
		u, err := p.Encode(c.Name, c.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// size checks every update and returns the bits the batch needs
func (p *Producer) size(updates []Update) (int, error) {
	n := 0
	for _, u := range updates {
		f, ok := p.schema.field(u.Index)
		if !ok {
			return 0, fmt.Errorf("%w: %d", ErrUnknownIndex, u.Index)
		}
		if u.Bits == nil || u.Bits.Len() != f.Bitsize() {
			return 0, fmt.Errorf("%w: %s", ErrSizeMismatch, f.Name())
		}
		n += p.schema.indexWidth + f.Bitsize()
	}
	return n, nil
}

// PackInto appends updates to fr in order. If any update is invalid or the
// batch does not fit, nothing is written and fr is left as it was.
func (p *Producer) PackInto(fr *bits.Frame, updates []Update) error {
	need, err := p.size(updates)
	if err != nil {
		return err
	}
	if !fr.Fits(need) {
		p.logger.Warn("Uplink: batch of %d updates needs %d bits, %d free", len(updates), need, fr.Remaining())
		return fmt.Errorf("%w: need %d bits, %d free", ErrBatchTooLarge, need, fr.Remaining())
	}

	mark := fr.Mark()
	for _, u := range updates {
		if err := fr.AppendUint(uint64(u.Index+1), p.schema.indexWidth); err != nil {
			fr.Rollback(mark)
			return err
		}
		if err := fr.Append(u.Bits); err != nil {
			fr.Rollback(mark)
			return err
		}
	}
	p.logger.Debug("Uplink: packed %d updates into %d bits", len(updates), fr.Len()-mark)
	return nil
}

// Pack builds a new frame holding updates
func (p *Producer) Pack(updates []Update) (*bits.Frame, error) {
	fr := bits.NewFrame(p.capacity)
	if err := p.PackInto(fr, updates); err != nil {
		return nil, err
	}
	return fr, nil
}

// Validate checks a packed frame the way the consumer will read it
func (p *Producer) Validate(fr *bits.Frame) error {
	return p.schema.validate(fr)
}
