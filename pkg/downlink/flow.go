// Package downlink packs configured flows of readable fields into
// fixed-capacity frames and parses those frames on the ground.
package downlink

import (
	"errors"
	"fmt"
	mathbits "math/bits"
	"sync"

	"avaneesh/satstate-go/pkg/bits"
	"avaneesh/satstate-go/pkg/field"
	"avaneesh/satstate-go/pkg/internal/logger"
	"avaneesh/satstate-go/pkg/internal/queue"
	"avaneesh/satstate-go/pkg/registry"
	"avaneesh/satstate-go/pkg/serializer"
)

// Names of the flow command fields
const (
	ToggleFieldName = "downlink.toggle_id"
	Shift1FieldName = "downlink.shift_id1"
	Shift2FieldName = "downlink.shift_id2"

	// MaxFlows bounds the flow count so ids fit the uint8 command fields
	MaxFlows = 255
)

var (
	ErrNoFlows       = errors.New("downlink: no flows configured")
	ErrInvalidFlowID = errors.New("downlink: invalid flow id")
	ErrDuplicateFlow = errors.New("downlink: duplicate flow id")
	ErrUnknownField  = errors.New("downlink: field not readable")
	ErrUnknownFlow   = errors.New("downlink: unknown flow id in frame")
	ErrCommandField  = errors.New("downlink: command field has wrong type")
)

// FlowData is the static description of one flow. IDs run 1..len(flows).
type FlowData struct {
	ID       int
	Priority int
	Active   bool
	Fields   []string
}

type flow struct {
	id       int
	priority int
	active   bool
	seq      int
	fields   []field.Base
}

// bitsize is the packed size of the flow without its id tag
func (f *flow) bitsize() int {
	n := 0
	for _, fld := range f.fields {
		n += fld.Bitsize()
	}
	return n
}

// flowTable is the flow state shared by the producer and the parser.
type flowTable struct {
	mu      sync.RWMutex
	flows   []*flow
	byID    map[int]*flow
	idWidth int
}

func newFlowTable(reg *registry.Registry, data []FlowData) (*flowTable, error) {
	if len(data) == 0 {
		return nil, ErrNoFlows
	}
	if len(data) > MaxFlows {
		return nil, fmt.Errorf("%w: %d flows, max %d", ErrInvalidFlowID, len(data), MaxFlows)
	}
	t := &flowTable{
		flows:   make([]*flow, 0, len(data)),
		byID:    make(map[int]*flow, len(data)),
		idWidth: mathbits.Len(uint(len(data))),
	}
	for i, d := range data {
		if d.ID < 1 || d.ID > len(data) {
			return nil, fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidFlowID, d.ID, len(data))
		}
		if _, dup := t.byID[d.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateFlow, d.ID)
		}
		f := &flow{id: d.ID, priority: d.Priority, active: d.Active, seq: i}
		for _, name := range d.Fields {
			fld, ok := reg.FindReadableField(name)
			if !ok {
				return nil, fmt.Errorf("%w: %s in flow %d", ErrUnknownField, name, d.ID)
			}
			f.fields = append(f.fields, fld)
		}
		t.flows = append(t.flows, f)
		t.byID[d.ID] = f
	}
	return t, nil
}

// ordered returns the active flows, highest priority first, ties by packing
// position
func (t *flowTable) ordered() []*flow {
	t.mu.RLock()
	defer t.mu.RUnlock()

	pq := queue.NewPriorityQueue()
	for _, f := range t.flows {
		if f.active {
			pq.PushWithSeq(f, f.priority, f.seq)
		}
	}
	out := make([]*flow, 0, pq.Len())
	for _, v := range pq.Drain() {
		out = append(out, v.(*flow))
	}
	return out
}

func (t *flowTable) toggle(id int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.byID[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrInvalidFlowID, id)
	}
	f.active = !f.active
	return nil
}

func (t *flowTable) setActive(id int, active bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.byID[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrInvalidFlowID, id)
	}
	f.active = active
	return nil
}

func (t *flowTable) setPriority(id, priority int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.byID[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrInvalidFlowID, id)
	}
	f.priority = priority
	return nil
}

// shift swaps the packing position of two flows
func (t *flowTable) shift(id1, id2 int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.byID[id1]
	if !ok {
		return fmt.Errorf("%w: %d", ErrInvalidFlowID, id1)
	}
	b, ok := t.byID[id2]
	if !ok {
		return fmt.Errorf("%w: %d", ErrInvalidFlowID, id2)
	}
	a.priority, b.priority = b.priority, a.priority
	a.seq, b.seq = b.seq, a.seq
	return nil
}

// snapshot copies the current flow state, in configured order
func (t *flowTable) snapshot() []FlowData {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]FlowData, len(t.flows))
	for i, f := range t.flows {
		names := make([]string, len(f.fields))
		for j, fld := range f.fields {
			names[j] = fld.Name()
		}
		out[i] = FlowData{ID: f.id, Priority: f.priority, Active: f.active, Fields: names}
	}
	return out
}

func (t *flowTable) size(all bool) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, f := range t.flows {
		if f.active || all {
			n += f.bitsize()
		}
	}
	return n
}

func (t *flowTable) writeTag(fr *bits.Frame, id int) error {
	return fr.AppendUint(uint64(id), t.idWidth)
}

// IsCommandField reports whether name is one of the flow command fields
func IsCommandField(name string) bool {
	return name == ToggleFieldName || name == Shift1FieldName || name == Shift2FieldName
}

// commands holds the flow command fields
type commands struct {
	toggle *field.Field[uint8]
	shift1 *field.Field[uint8]
	shift2 *field.Field[uint8]
}

// apply runs the shift then the toggle command against t and clears both
func (c *commands) apply(t *flowTable, log logger.Logger) {
	id1, id2 := int(c.shift1.Get()), int(c.shift2.Get())
	if id1 > 0 && id2 > 0 {
		if err := t.shift(id1, id2); err != nil {
			log.Warn("Downlink: shift command rejected: %v", err)
		} else {
			log.Info("Downlink: swapped flows %d and %d", id1, id2)
		}
		c.shift1.Set(0)
		c.shift2.Set(0)
	}

	if id := int(c.toggle.Get()); id > 0 {
		if err := t.toggle(id); err != nil {
			log.Warn("Downlink: toggle command rejected: %v", err)
		} else {
			log.Info("Downlink: toggled flow %d", id)
		}
		c.toggle.Set(0)
	}
}

// registerCommands finds or registers the three flow command fields. Both
// ends register them so uplink schemas built from the registry agree.
func registerCommands(reg *registry.Registry, numFlows int) (*commands, error) {
	s, err := serializer.NewUintMax(uint8(numFlows))
	if err != nil {
		return nil, err
	}
	get := func(name string) (*field.Field[uint8], error) {
		if _, ok := reg.FindReadableField(name); ok {
			f, ok := registry.Writable[uint8](reg, name)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrCommandField, name)
			}
			return f, nil
		}
		f := field.NewWritable(name, serializer.Serializer[uint8](s))
		if err := reg.AddWritableField(f); err != nil {
			return nil, err
		}
		return f, nil
	}

	c := &commands{}
	if c.toggle, err = get(ToggleFieldName); err != nil {
		return nil, err
	}
	if c.shift1, err = get(Shift1FieldName); err != nil {
		return nil, err
	}
	if c.shift2, err = get(Shift2FieldName); err != nil {
		return nil, err
	}
	return c, nil
}
