// Package field provides named, typed state values shared between control tasks.
package field

import (
	"errors"
	"fmt"
	"sync"

	"avaneesh/satstate-go/pkg/bits"
	"avaneesh/satstate-go/pkg/serializer"
)

var ErrNotSerializable = errors.New("field: internal field has no serializer")

// Capability controls which packet producers may reference a field
type Capability int

const (
	// Internal fields are visible only to control tasks
	Internal Capability = iota
	// Readable fields may be downlinked
	Readable
	// Writable fields may be downlinked and set by uplink
	Writable
)

// String returns string representation of Capability
func (c Capability) String() string {
	switch c {
	case Internal:
		return "Internal"
	case Readable:
		return "Readable"
	case Writable:
		return "Writable"
	default:
		return "Unknown"
	}
}

// IsReadable reports whether c allows downlink. Writable implies readable.
func (c Capability) IsReadable() bool {
	return c == Readable || c == Writable
}

// IsWritable reports whether c allows uplink
func (c Capability) IsWritable() bool {
	return c == Writable
}

// Base is the type-erased view of a field used by the registry and the
// packet producers.
type Base interface {
	Name() string
	Capability() Capability

	// Bitsize returns the encoded width, 0 for internal fields
	Bitsize() int

	// Serialize writes the current value into dst at off
	Serialize(dst *bits.Buffer, off int)

	// Deserialize sets the current value from dst at off
	Deserialize(src *bits.Buffer, off int)

	// BitArray returns the encoding of the current value
	BitArray() *bits.Buffer

	// EncodeString parses operator text into an encoding without changing the value
	EncodeString(s string) (*bits.Buffer, error)

	// String renders the current value
	String() string
}

// Field holds one value of type T. Get and Set are safe for concurrent use;
// serialization holds the read lock so a frame never sees a half-written value.
type Field[T any] struct {
	name       string
	capability Capability
	serializer serializer.Serializer[T]

	mu    sync.RWMutex
	value T
}

// NewInternal creates a field visible only to control tasks
func NewInternal[T any](name string, initial T) *Field[T] {
	return &Field[T]{
		name:       name,
		capability: Internal,
		value:      initial,
	}
}

// NewReadable creates a downlink-eligible field
func NewReadable[T any](name string, s serializer.Serializer[T]) *Field[T] {
	return &Field[T]{
		name:       name,
		capability: Readable,
		serializer: s,
	}
}

// NewWritable creates a field that can be downlinked and set from the ground
func NewWritable[T any](name string, s serializer.Serializer[T]) *Field[T] {
	return &Field[T]{
		name:       name,
		capability: Writable,
		serializer: s,
	}
}

// Name returns the field name
func (f *Field[T]) Name() string {
	return f.name
}

// Capability returns the field capability
func (f *Field[T]) Capability() Capability {
	return f.capability
}

// Serializer returns the encoding used by the field, nil for internal fields
func (f *Field[T]) Serializer() serializer.Serializer[T] {
	return f.serializer
}

// Get returns the current value
func (f *Field[T]) Get() T {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.value
}

// Set replaces the current value
func (f *Field[T]) Set(v T) {
	f.mu.Lock()
	f.value = v
	f.mu.Unlock()
}

// Update applies fn to the value under the write lock
func (f *Field[T]) Update(fn func(T) T) {
	f.mu.Lock()
	f.value = fn(f.value)
	f.mu.Unlock()
}

func (f *Field[T]) Bitsize() int {
	if f.serializer == nil {
		return 0
	}
	return f.serializer.Bitsize()
}

func (f *Field[T]) Serialize(dst *bits.Buffer, off int) {
	if f.serializer == nil {
		return
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	f.serializer.Put(dst, off, f.value)
}

func (f *Field[T]) Deserialize(src *bits.Buffer, off int) {
	if f.serializer == nil {
		return
	}
	v := f.serializer.Get(src, off)
	f.Set(v)
}

func (f *Field[T]) BitArray() *bits.Buffer {
	buf := bits.New(f.Bitsize())
	f.Serialize(buf, 0)
	return buf
}

func (f *Field[T]) EncodeString(s string) (*bits.Buffer, error) {
	if f.serializer == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotSerializable, f.name)
	}
	return serializer.EncodeString(f.serializer, s)
}

func (f *Field[T]) String() string {
	v := f.Get()
	if f.serializer == nil {
		return fmt.Sprint(v)
	}
	return f.serializer.Format(v)
}
