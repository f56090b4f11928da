package downlink

import (
	"fmt"
	"sync"

	"avaneesh/satstate-go/pkg/bits"
	"avaneesh/satstate-go/pkg/field"
	"avaneesh/satstate-go/pkg/internal/logger"
	"avaneesh/satstate-go/pkg/registry"
)

// Options configures a Producer or a Parser. Both ends must use the same values.
type Options struct {
	CapacityBits int    // frame capacity; 0 means bits.DefaultFrameBits
	CycleField   string // readable field packed ahead of all flows, empty for none
	TagFlows     bool   // prefix each flow with its id
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

// Packet is one finalized downlink frame
type Packet struct {
	Frame     *bits.Frame
	Flows     []int    // ids of flows that were started, in packing order
	Fields    []string // names of fields packed, in packing order
	Truncated bool     // a field or flow tag was rejected for lack of space
}

// Producer packs active flows into frames, highest priority first.
type Producer struct {
	mu       sync.Mutex
	table    *flowTable
	cmds     *commands
	cycle    field.Base
	capacity int
	tag      bool
	logger   logger.Logger
}

// NewProducer resolves every flow field against reg and registers the flow
// command fields.
func NewProducer(reg *registry.Registry, flows []FlowData, opts Options) (*Producer, error) {
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

	p := &Producer{
		table:    table,
		cmds:     cmds,
		cycle:    cycle,
		capacity: opts.CapacityBits,
		tag:      opts.TagFlows,
		logger:   opts.Logger,
	}
	for _, f := range table.flows {
		if size := p.headerBits() + p.tagBits() + f.bitsize(); size > p.capacity {
			p.logger.Warn("Downlink: flow %d needs %d bits, frame holds %d; it will be truncated", f.id, size, p.capacity)
		}
	}
	return p, nil
}

func resolveCycle(reg *registry.Registry, name string) (field.Base, error) {
	if name == "" {
		return nil, nil
	}
	f, ok := reg.FindReadableField(name)
	if !ok {
		return nil, fmt.Errorf("%w: cycle field %s", ErrUnknownField, name)
	}
	return f, nil
}

func (p *Producer) headerBits() int {
	if p.cycle == nil {
		return 0
	}
	return p.cycle.Bitsize()
}

func (p *Producer) tagBits() int {
	if !p.tag {
		return 0
	}
	return p.table.idWidth
}

// Capacity returns the frame capacity in bits
func (p *Producer) Capacity() int {
	return p.capacity
}

// Produce packs one frame. Packing stops at the first field or tag that does
// not fit; nothing after it is packed. Flow commands received since the last
// frame are applied afterwards.
func (p *Producer) Produce() *Packet {
	p.mu.Lock()
	defer p.mu.Unlock()

	pkt := &Packet{Frame: bits.NewFrame(p.capacity)}
	pack(pkt, p.cycle, p.table, p.tag)

	if pkt.Truncated {
		p.logger.Warn("Downlink: frame truncated at %d/%d bits after %d fields",
			pkt.Frame.Len(), p.capacity, len(pkt.Fields))
	}
	p.logger.Debug("Downlink: packed %d fields from flows %v into %d bits",
		len(pkt.Fields), pkt.Flows, pkt.Frame.Len())

	p.cmds.apply(p.table, p.logger)
	return pkt
}

func pack(pkt *Packet, cycle field.Base, table *flowTable, tag bool) {
	fr := pkt.Frame
	if cycle != nil {
		if err := fr.Append(cycle.BitArray()); err != nil {
			pkt.Truncated = true
			return
		}
	}
	for _, f := range table.ordered() {
		if tag {
			if err := table.writeTag(fr, f.id); err != nil {
				pkt.Truncated = true
				return
			}
		}
		pkt.Flows = append(pkt.Flows, f.id)
		for _, fld := range f.fields {
			if err := fr.Append(fld.BitArray()); err != nil {
				pkt.Truncated = true
				return
			}
			pkt.Fields = append(pkt.Fields, fld.Name())
		}
	}
}

// Toggle flips a flow's active flag
func (p *Producer) Toggle(id int) error {
	return p.table.toggle(id)
}

// SetActive sets a flow's active flag
func (p *Producer) SetActive(id int, active bool) error {
	return p.table.setActive(id, active)
}

// SetPriority sets a flow's priority
func (p *Producer) SetPriority(id, priority int) error {
	return p.table.setPriority(id, priority)
}

// ShiftPriorities swaps the packing positions of two flows
func (p *Producer) ShiftPriorities(id1, id2 int) error {
	return p.table.shift(id1, id2)
}

// Flows returns the current flow state in configured order
func (p *Producer) Flows() []FlowData {
	return p.table.snapshot()
}

// MaxSize returns the bits needed to pack every flow, active or not
func (p *Producer) MaxSize() int {
	return p.headerBits() + len(p.table.flows)*p.tagBits() + p.table.size(true)
}

// ActiveSize returns the bits needed to pack the active flows
func (p *Producer) ActiveSize() int {
	return p.headerBits() + len(p.table.ordered())*p.tagBits() + p.table.size(false)
}
