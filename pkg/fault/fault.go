// Package fault models fault signaling with persistence, ground overrides and
// the safehold/standby response a fault recommends.
package fault

import (
	"sync"

	"avaneesh/satstate-go/pkg/field"
	"avaneesh/satstate-go/pkg/serializer"
)

// Companion field suffixes registered alongside every fault
const (
	SuffixSuppress    = ".suppress"
	SuffixOverride    = ".override"
	SuffixUnsignal    = ".unsignal"
	SuffixPersistence = ".persistence"
)

// MaxPersistence is the largest threshold the persistence field can carry
const MaxPersistence = 65535

var persistenceSerializer = mustUint(serializer.NewUintMax[uint32](MaxPersistence))

func mustUint(s *serializer.Uint[uint32], err error) *serializer.Uint[uint32] {
	if err != nil {
		panic("fault: persistence serializer: " + err.Error())
	}
	return s
}

// Fault is a writable boolean field driven by a consecutive-signal counter.
//
// The reported state is, in order of precedence: false while unsignal is set,
// true while override is set, false while suppress is set, otherwise true
// once the counter has reached the persistence threshold. With a control
// cycle attached, Signal counts at most once per cycle.
type Fault struct {
	signaled    *field.Field[bool]
	suppress    *field.Field[bool]
	override    *field.Field[bool]
	unsignal    *field.Field[bool]
	persistence *field.Field[uint32]
	cycle       *field.Field[uint32]

	mu           sync.Mutex
	count        uint32
	lastCycle    uint32
	prevSuppress bool
	prevOverride bool
}

// New creates a fault; threshold is clamped to MaxPersistence
func New(name string, threshold uint32) *Fault {
	b := serializer.NewBool()
	f := &Fault{
		signaled:    field.NewWritable[bool](name, b),
		suppress:    field.NewWritable[bool](name+SuffixSuppress, b),
		override:    field.NewWritable[bool](name+SuffixOverride, b),
		unsignal:    field.NewWritable[bool](name+SuffixUnsignal, b),
		persistence: field.NewWritable[uint32](name+SuffixPersistence, persistenceSerializer),
	}
	f.persistence.Set(min(threshold, MaxPersistence))
	return f
}

// NewWithCycle creates a fault whose counter advances once per control cycle
// read from cycle. Cycle 0 always counts.
func NewWithCycle(name string, threshold uint32, cycle *field.Field[uint32]) *Fault {
	f := New(name, threshold)
	f.cycle = cycle
	return f
}

// Name returns the fault name
func (f *Fault) Name() string {
	return f.signaled.Name()
}

// Fields returns the fault field followed by its four companions
func (f *Fault) Fields() []field.Base {
	return []field.Base{f.signaled, f.suppress, f.override, f.unsignal, f.persistence}
}

// Field returns the fault's own boolean field
func (f *Fault) Field() *field.Field[bool] { return f.signaled }

// SuppressField returns the <name>.suppress command field
func (f *Fault) SuppressField() *field.Field[bool] { return f.suppress }

// OverrideField returns the <name>.override command field
func (f *Fault) OverrideField() *field.Field[bool] { return f.override }

// UnsignalField returns the <name>.unsignal command field
func (f *Fault) UnsignalField() *field.Field[bool] { return f.unsignal }

// PersistenceField returns the <name>.persistence threshold field
func (f *Fault) PersistenceField() *field.Field[uint32] { return f.persistence }

// Signal records that the fault condition held this control cycle
func (f *Fault) Signal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cycle != nil {
		cc := f.cycle.Get()
		if cc != 0 && cc <= f.lastCycle {
			return
		}
		f.lastCycle = cc
	}
	if f.count < ^uint32(0) {
		f.count++
	}
}

// Unsignal records that the condition did not hold; the counter restarts
func (f *Fault) Unsignal() {
	f.mu.Lock()
	f.count = 0
	f.mu.Unlock()
}

// Evaluate calls Signal or Unsignal depending on flag
func (f *Fault) Evaluate(flag bool) {
	if flag {
		f.Signal()
	} else {
		f.Unsignal()
	}
}

// Count returns the number of consecutive signals
func (f *Fault) Count() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// Threshold returns the persistence threshold
func (f *Fault) Threshold() uint32 {
	return f.persistence.Get()
}

// IsFaulted computes the fault state and publishes it in the fault's field
func (f *Fault) IsFaulted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	suppress := f.suppress.Get()
	override := f.override.Get()
	unsignal := f.unsignal.Get()

	// A newly raised command starts the counter over.
	if (override && !f.prevOverride) || (suppress && !f.prevSuppress) || unsignal {
		f.count = 0
	}
	f.prevOverride = override
	f.prevSuppress = suppress

	var faulted bool
	switch {
	case unsignal:
		faulted = false
	case override:
		faulted = true
	case suppress:
		faulted = false
	default:
		faulted = f.count > 0 && f.count >= f.persistence.Get()
	}

	f.signaled.Set(faulted)
	return faulted
}
