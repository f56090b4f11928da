package event

import (
	"fmt"
	"sync"

	"avaneesh/satstate-go/pkg/bits"
	"avaneesh/satstate-go/pkg/field"
)

// MaxStorageCapacity keeps slot suffixes to two digits
const MaxStorageCapacity = 99

// Storage is a fixed ring of events sharing one field list. Slot i is named
// "<name>.<i+1>". Signal writes the slot at the cursor and then advances it,
// so the oldest record is overwritten once the ring is full.
//
// Bitsize, BitArray and String report the slot at the cursor at call time,
// which after a Signal is the next slot to be written, not the record just
// taken. Use Latest for that.
type Storage struct {
	name   string
	events []*Event

	mu     sync.RWMutex
	cursor int
	latest int
}

// NewStorage creates a ring of capacity events over fields
func NewStorage(name string, capacity int, cycle *field.Field[uint32], fields []field.Base, printFn PrintFunc) (*Storage, error) {
	if capacity < 1 || capacity > MaxStorageCapacity {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}

	s := &Storage{
		name:   name,
		events: make([]*Event, capacity),
		latest: -1,
	}
	for i := range s.events {
		e, err := New(SlotName(name, i), cycle, fields, printFn)
		if err != nil {
			return nil, err
		}
		s.events[i] = e
	}
	return s, nil
}

// SlotName returns the registered name of slot i
func SlotName(name string, i int) string {
	return fmt.Sprintf("%s.%d", name, i+1)
}

// Name returns the storage name
func (s *Storage) Name() string {
	return s.name
}

// Capability returns field.Readable
func (s *Storage) Capability() field.Capability {
	return field.Readable
}

// Capacity returns the number of slots
func (s *Storage) Capacity() int {
	return len(s.events)
}

// Events returns every slot in ring order
func (s *Storage) Events() []*Event {
	return s.events
}

// Slot returns slot i
func (s *Storage) Slot(i int) *Event {
	return s.events[i]
}

// Cursor returns the slot the next Signal writes
func (s *Storage) Cursor() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor
}

// Signal records into the slot at the cursor and advances the cursor
func (s *Storage) Signal() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[s.cursor].Signal()
	s.latest = s.cursor
	s.cursor = (s.cursor + 1) % len(s.events)
}

// Current returns the slot at the cursor
func (s *Storage) Current() *Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events[s.cursor]
}

// Latest returns the slot written by the most recent Signal, or nil
func (s *Storage) Latest() *Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest < 0 {
		return nil
	}
	return s.events[s.latest]
}

func (s *Storage) Bitsize() int {
	return s.events[0].Bitsize()
}

func (s *Storage) Serialize(dst *bits.Buffer, off int) {
	s.Current().Serialize(dst, off)
}

func (s *Storage) Deserialize(src *bits.Buffer, off int) {
	s.Current().Deserialize(src, off)
}

func (s *Storage) BitArray() *bits.Buffer {
	return s.Current().BitArray()
}

func (s *Storage) EncodeString(string) (*bits.Buffer, error) {
	return nil, fmt.Errorf("%w: %s", ErrNotParsable, s.name)
}

func (s *Storage) String() string {
	return s.Current().String()
}
