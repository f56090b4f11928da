// Package registry is the name-keyed store of every field, fault, event and
// control task. It is the single point of lookup for all other components.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"avaneesh/satstate-go/pkg/event"
	"avaneesh/satstate-go/pkg/fault"
	"avaneesh/satstate-go/pkg/field"
)

var (
	ErrNameCollision   = errors.New("registry: name already registered")
	ErrWrongCapability = errors.New("registry: field capability does not match")
	ErrNilEntry        = errors.New("registry: nil entry")
)

// ControlTask is a unit of flight software run once per control cycle by an
// external scheduler. Tasks publish and consume state through the registry.
type ControlTask interface {
	Name() string
	Execute()
}

// Registry holds all registered state. Registrations are permanent; a failed
// registration leaves the registry unchanged.
type Registry struct {
	mu sync.RWMutex

	internal map[string]field.Base
	readable map[string]field.Base
	writable map[string]field.Base
	faults   map[string]*fault.Fault
	events   map[string]*event.Event
	storages map[string]*event.Storage
	tasks    map[string]ControlTask
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		internal: make(map[string]field.Base),
		readable: make(map[string]field.Base),
		writable: make(map[string]field.Base),
		faults:   make(map[string]*fault.Fault),
		events:   make(map[string]*event.Event),
		storages: make(map[string]*event.Storage),
		tasks:    make(map[string]ControlTask),
	}
}

// taken reports whether name is used by any field; callers hold mu
func (r *Registry) taken(name string) bool {
	if _, ok := r.internal[name]; ok {
		return true
	}
	_, ok := r.readable[name]
	return ok
}

func (r *Registry) checkFree(names ...string) error {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup || r.taken(name) {
			return fmt.Errorf("%w: %s", ErrNameCollision, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

func checkCapability(f field.Base, want field.Capability) error {
	if f == nil {
		return ErrNilEntry
	}
	if f.Capability() != want {
		return fmt.Errorf("%w: %s is %s, want %s", ErrWrongCapability, f.Name(), f.Capability(), want)
	}
	return nil
}

// AddInternalField registers a field visible only to control tasks
func (r *Registry) AddInternalField(f field.Base) error {
	if err := checkCapability(f, field.Internal); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkFree(f.Name()); err != nil {
		return err
	}
	r.internal[f.Name()] = f
	return nil
}

// AddReadableField registers a downlink-eligible field
func (r *Registry) AddReadableField(f field.Base) error {
	if err := checkCapability(f, field.Readable); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkFree(f.Name()); err != nil {
		return err
	}
	r.readable[f.Name()] = f
	return nil
}

// AddWritableField registers a field that is both downlink- and uplink-eligible
func (r *Registry) AddWritableField(f field.Base) error {
	if err := checkCapability(f, field.Writable); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkFree(f.Name()); err != nil {
		return err
	}
	r.readable[f.Name()] = f
	r.writable[f.Name()] = f
	return nil
}

// AddFault registers a fault and its four companion fields, or nothing at all
func (r *Registry) AddFault(flt *fault.Fault) error {
	if flt == nil {
		return ErrNilEntry
	}
	fields := flt.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkFree(names...); err != nil {
		return err
	}
	for _, f := range fields {
		r.readable[f.Name()] = f
		r.writable[f.Name()] = f
	}
	r.faults[flt.Name()] = flt
	return nil
}

// AddEvent registers an event as a readable entry
func (r *Registry) AddEvent(e *event.Event) error {
	if e == nil {
		return ErrNilEntry
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkFree(e.Name()); err != nil {
		return err
	}
	r.readable[e.Name()] = e
	r.events[e.Name()] = e
	return nil
}

// AddEventStorage registers a storage under its own name and every slot
// under its slot name, or nothing at all
func (r *Registry) AddEventStorage(s *event.Storage) error {
	if s == nil {
		return ErrNilEntry
	}
	names := []string{s.Name()}
	for _, e := range s.Events() {
		names = append(names, e.Name())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkFree(names...); err != nil {
		return err
	}
	r.readable[s.Name()] = s
	r.storages[s.Name()] = s
	for _, e := range s.Events() {
		r.readable[e.Name()] = e
		r.events[e.Name()] = e
	}
	return nil
}

// AddTask registers a control task reference. Tasks have their own namespace.
func (r *Registry) AddTask(task ControlTask) error {
	if task == nil {
		return ErrNilEntry
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[task.Name()]; exists {
		return fmt.Errorf("%w: task %s", ErrNameCollision, task.Name())
	}
	r.tasks[task.Name()] = task
	return nil
}

// FindInternalField looks up an internal field
func (r *Registry) FindInternalField(name string) (field.Base, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.internal[name]
	return f, ok
}

// FindReadableField looks up a readable or writable field, event or storage
func (r *Registry) FindReadableField(name string) (field.Base, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.readable[name]
	return f, ok
}

// FindWritableField looks up a writable field
func (r *Registry) FindWritableField(name string) (field.Base, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.writable[name]
	return f, ok
}

// FindFault looks up a fault by its base name
func (r *Registry) FindFault(name string) (*fault.Fault, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.faults[name]
	return f, ok
}

// FindEvent looks up an event or storage slot
func (r *Registry) FindEvent(name string) (*event.Event, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.events[name]
	return e, ok
}

// FindEventStorage looks up an event storage
func (r *Registry) FindEventStorage(name string) (*event.Storage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.storages[name]
	return s, ok
}

// FindTask looks up a control task
func (r *Registry) FindTask(name string) (ControlTask, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[name]
	return t, ok
}

// ReadableNames returns every readable name, sorted
func (r *Registry) ReadableNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.readable)
}

// WritableNames returns every writable name, sorted
func (r *Registry) WritableNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.writable)
}

// Faults returns every registered fault, sorted by name
func (r *Registry) Faults() []*fault.Fault {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*fault.Fault, 0, len(r.faults))
	for _, name := range sortedKeys(r.faults) {
		out = append(out, r.faults[name])
	}
	return out
}

// Len returns the number of registered field names
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.internal) + len(r.readable)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
