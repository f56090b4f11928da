// Package event records bit-packed snapshots of field groups stamped with the
// control cycle in which they were taken.
package event

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"avaneesh/satstate-go/pkg/bits"
	"avaneesh/satstate-go/pkg/field"
)

// CycleBits is the width of the control cycle stamp heading every record
const CycleBits = 32

var (
	ErrNotParsable     = errors.New("event: events cannot be set from text")
	ErrNilCycle        = errors.New("event: nil control cycle field")
	ErrRecordSize      = errors.New("event: record size mismatch")
	ErrInvalidCapacity = errors.New("event: storage capacity must be between 1 and 99")
)

// PrintFunc renders a decoded record for operators
type PrintFunc func(cycle uint32, fields []field.Base) string

// Event is a readable entry whose value is the last record taken by Signal:
// the 32-bit control cycle followed by each field's encoding in order.
type Event struct {
	name    string
	cycle   *field.Field[uint32]
	fields  []field.Base
	printFn PrintFunc

	mu   sync.RWMutex
	data *bits.Buffer
}

// New creates an event over fields, stamped from cycle
func New(name string, cycle *field.Field[uint32], fields []field.Base, printFn PrintFunc) (*Event, error) {
	if cycle == nil {
		return nil, ErrNilCycle
	}
	size := CycleBits
	for _, f := range fields {
		size += f.Bitsize()
	}
	return &Event{
		name:    name,
		cycle:   cycle,
		fields:  append([]field.Base(nil), fields...),
		printFn: printFn,
		data:    bits.New(size),
	}, nil
}

// Name returns the event name
func (e *Event) Name() string {
	return e.name
}

// Capability returns field.Readable; events are downlinked, never uplinked
func (e *Event) Capability() field.Capability {
	return field.Readable
}

// Fields returns the recorded fields in order
func (e *Event) Fields() []field.Base {
	return e.fields
}

// Signal takes a record of the current cycle and field values
func (e *Event) Signal() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.data.SetUint(0, CycleBits, uint64(e.cycle.Get()))
	off := CycleBits
	for _, f := range e.fields {
		f.Serialize(e.data, off)
		off += f.Bitsize()
	}
}

// Bitsize returns the record width
func (e *Event) Bitsize() int {
	return e.data.Len()
}

// Cycle returns the control cycle stamped in the current record
func (e *Event) Cycle() uint32 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return uint32(e.data.Uint(0, CycleBits))
}

// Serialize copies the record into dst at off
func (e *Event) Serialize(dst *bits.Buffer, off int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	dst.CopyRange(off, e.data, 0, e.data.Len())
}

// Deserialize loads a record from src at off and pushes the recorded values
// into the constituent fields.
func (e *Event) Deserialize(src *bits.Buffer, off int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.data.CopyRange(0, src, off, e.data.Len())
	e.unpack()
}

// BitArray returns a copy of the record
func (e *Event) BitArray() *bits.Buffer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.data.Clone()
}

// SetBitArray replaces the record without decoding it
func (e *Event) SetBitArray(b *bits.Buffer) error {
	if b.Len() != e.data.Len() {
		return fmt.Errorf("%w: got %d bits, want %d", ErrRecordSize, b.Len(), e.data.Len())
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.data.CopyRange(0, b, 0, b.Len())
	return nil
}

// Decode pushes the current record into the constituent fields and returns
// its control cycle.
func (e *Event) Decode() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unpack()
}

func (e *Event) unpack() uint32 {
	off := CycleBits
	for _, f := range e.fields {
		f.Deserialize(e.data, off)
		off += f.Bitsize()
	}
	return uint32(e.data.Uint(0, CycleBits))
}

// EncodeString always fails; events carry no operator-settable value
func (e *Event) EncodeString(string) (*bits.Buffer, error) {
	return nil, fmt.Errorf("%w: %s", ErrNotParsable, e.name)
}

// String renders the recorded cycle and the constituent field values
func (e *Event) String() string {
	cycle := e.Cycle()
	if e.printFn != nil {
		return e.printFn(cycle, e.fields)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s@%d", e.name, cycle)
	for _, f := range e.fields {
		fmt.Fprintf(&sb, " %s=%s", f.Name(), f.String())
	}
	return sb.String()
}
