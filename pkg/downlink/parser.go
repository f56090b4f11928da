package downlink

import (
	"errors"
	"fmt"

	"avaneesh/satstate-go/pkg/bits"
	"avaneesh/satstate-go/pkg/field"
	"avaneesh/satstate-go/pkg/internal/logger"
	"avaneesh/satstate-go/pkg/registry"
)

// Value is one parsed field rendered as text
type Value struct {
	Name string
	Text string
}

// Report is the content of one parsed downlink frame
type Report struct {
	Cycle  string // rendered cycle field, empty if frames carry no header
	Flows  []int
	Values []Value
}

// Parser decodes downlink frames into the fields of a ground registry built
// from the same definitions as the spacecraft's.
//
// Untagged frames are parsed by walking the parser's own flow table, so its
// active flags and priorities must track the spacecraft's. Flow commands set
// in the ground registry are applied after the next parsed frame, the same
// point the producer applies them. Frames already in flight when a command
// lands on the spacecraft break that alignment; use TagFlows when flow
// commands are sent while downlinks are streaming.
type Parser struct {
	table    *flowTable
	cmds     *commands
	cycle    field.Base
	capacity int
	tag      bool
	logger   logger.Logger
}

// NewParser creates a ground-side parser for flows
func NewParser(reg *registry.Registry, flows []FlowData, opts Options) (*Parser, error) {
	opts.normalize()

	table, err := newFlowTable(reg, flows)
	if err != nil {
		return nil, err
	}
	cycle, err := resolveCycle(reg, opts.CycleField)
	if err != nil {
		return nil, err
	}
	cmds, err := registerCommands(reg, len(flows))
	if err != nil {
		return nil, err
	}
	return &Parser{
		table:    table,
		cmds:     cmds,
		cycle:    cycle,
		capacity: opts.CapacityBits,
		tag:      opts.TagFlows,
		logger:   opts.Logger,
	}, nil
}

// Parse decodes a received frame of capacity bits packed MSB-first into data
func (p *Parser) Parse(data []byte) (*Report, error) {
	fr, err := bits.FrameFromBytes(data, p.capacity)
	if err != nil {
		return nil, err
	}
	return p.ParseFrame(fr)
}

// ParseFrame decodes fr, writing every value it carries into the ground
// registry. Running out of bits ends the frame and is not an error.
func (p *Parser) ParseFrame(fr *bits.Frame) (*Report, error) {
	defer p.cmds.apply(p.table, p.logger)

	r := bits.NewFrameReader(fr)
	rep := &Report{}

	if p.cycle != nil {
		if !p.read(r, p.cycle) {
			return rep, nil
		}
		rep.Cycle = p.cycle.String()
	}

	if p.tag {
		return rep, p.parseTagged(r, rep)
	}
	for _, f := range p.table.ordered() {
		rep.Flows = append(rep.Flows, f.id)
		if !p.readFlow(r, f, rep) {
			break
		}
	}
	p.logger.Debug("Downlink parser: %d values from flows %v", len(rep.Values), rep.Flows)
	return rep, nil
}

func (p *Parser) parseTagged(r *bits.Reader, rep *Report) error {
	for {
		id, err := r.ReadUint(p.table.idWidth)
		if err != nil || id == 0 {
			break
		}
		p.table.mu.RLock()
		f, ok := p.table.byID[int(id)]
		p.table.mu.RUnlock()
		if !ok {
			return fmt.Errorf("%w: %d at bit %d", ErrUnknownFlow, id, r.Offset()-p.table.idWidth)
		}
		rep.Flows = append(rep.Flows, f.id)
		if !p.readFlow(r, f, rep) {
			break
		}
	}
	p.logger.Debug("Downlink parser: %d values from flows %v", len(rep.Values), rep.Flows)
	return nil
}

func (p *Parser) readFlow(r *bits.Reader, f *flow, rep *Report) bool {
	for _, fld := range f.fields {
		if !p.read(r, fld) {
			return false
		}
		rep.Values = append(rep.Values, Value{Name: fld.Name(), Text: fld.String()})
	}
	return true
}

func (p *Parser) read(r *bits.Reader, fld field.Base) bool {
	off, err := r.Next(fld.Bitsize())
	if err != nil {
		if !errors.Is(err, bits.ErrInsufficientBits) {
			p.logger.Error("Downlink parser: reading %s: %v", fld.Name(), err)
		}
		return false
	}
	fld.Deserialize(r.Buffer(), off)
	return true
}

// Toggle flips a flow's active flag in the parser's table
func (p *Parser) Toggle(id int) error {
	return p.table.toggle(id)
}

// SetActive sets a flow's active flag in the parser's table
func (p *Parser) SetActive(id int, active bool) error {
	return p.table.setActive(id, active)
}

// ShiftPriorities swaps two flows in the parser's table
func (p *Parser) ShiftPriorities(id1, id2 int) error {
	return p.table.shift(id1, id2)
}
