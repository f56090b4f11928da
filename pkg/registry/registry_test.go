package registry

import (
	"errors"
	"testing"

	"avaneesh/satstate-go/pkg/event"
	"avaneesh/satstate-go/pkg/fault"
	"avaneesh/satstate-go/pkg/field"
	"avaneesh/satstate-go/pkg/serializer"
)

func uint8Serializer(t *testing.T) serializer.Serializer[uint8] {
	t.Helper()
	s, err := serializer.NewUint[uint8](0, 255)
	if err != nil {
		t.Fatalf("NewUint() error = %v", err)
	}
	return s
}

func TestRegistry_AddAndFind(t *testing.T) {
	r := New()
	s := uint8Serializer(t)

	ro := field.NewReadable[uint8]("gomspace.vbatt", s)
	rw := field.NewWritable[uint8]("adcs.cmd_mode", s)
	in := field.NewInternal[int]("cycle.start_ns", 0)

	if err := r.AddReadableField(ro); err != nil {
		t.Fatalf("AddReadableField() error = %v", err)
	}
	if err := r.AddWritableField(rw); err != nil {
		t.Fatalf("AddWritableField() error = %v", err)
	}
	if err := r.AddInternalField(in); err != nil {
		t.Fatalf("AddInternalField() error = %v", err)
	}

	tests := []struct {
		name     string
		find     func(string) (field.Base, bool)
		key      string
		wantFind bool
	}{
		{"Readable as readable", r.FindReadableField, "gomspace.vbatt", true},
		{"Readable is not writable", r.FindWritableField, "gomspace.vbatt", false},
		{"Writable as writable", r.FindWritableField, "adcs.cmd_mode", true},
		{"Writable implies readable", r.FindReadableField, "adcs.cmd_mode", true},
		{"Internal as internal", r.FindInternalField, "cycle.start_ns", true},
		{"Internal hidden from readable", r.FindReadableField, "cycle.start_ns", false},
		{"Internal hidden from writable", r.FindWritableField, "cycle.start_ns", false},
		{"Missing name", r.FindReadableField, "nope", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := tt.find(tt.key); ok != tt.wantFind {
				t.Errorf("find(%s) = %v, want %v", tt.key, ok, tt.wantFind)
			}
		})
	}

	if f, ok := Writable[uint8](r, "adcs.cmd_mode"); !ok || f != rw {
		t.Errorf("Writable[uint8]() = %v, %v", f, ok)
	}
	if _, ok := Writable[bool](r, "adcs.cmd_mode"); ok {
		t.Errorf("Writable[bool]() found a uint8 field")
	}
	if f, ok := Internal[int](r, "cycle.start_ns"); !ok || f != in {
		t.Errorf("Internal[int]() = %v, %v", f, ok)
	}
}

func TestRegistry_NameCollisionLeavesState(t *testing.T) {
	r := New()
	s := uint8Serializer(t)

	first := field.NewWritable[uint8]("x", s)
	first.Set(7)
	if err := r.AddWritableField(first); err != nil {
		t.Fatalf("AddWritableField() error = %v", err)
	}

	second := field.NewReadable[uint8]("x", s)
	second.Set(99)
	if err := r.AddReadableField(second); !errors.Is(err, ErrNameCollision) {
		t.Fatalf("AddReadableField() error = %v, want ErrNameCollision", err)
	}
	if err := r.AddInternalField(field.NewInternal("x", 0)); !errors.Is(err, ErrNameCollision) {
		t.Errorf("AddInternalField() error = %v, want ErrNameCollision", err)
	}

	got, _ := Readable[uint8](r, "x")
	if got != first || got.Get() != 7 {
		t.Errorf("registered field replaced or mutated: %v = %d", got, got.Get())
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistry_CapabilityChecked(t *testing.T) {
	r := New()
	s := uint8Serializer(t)
	if err := r.AddReadableField(field.NewWritable[uint8]("a", s)); !errors.Is(err, ErrWrongCapability) {
		t.Errorf("AddReadableField(writable) error = %v, want ErrWrongCapability", err)
	}
	if err := r.AddWritableField(field.NewReadable[uint8]("a", s)); !errors.Is(err, ErrWrongCapability) {
		t.Errorf("AddWritableField(readable) error = %v, want ErrWrongCapability", err)
	}
	if err := r.AddReadableField(nil); !errors.Is(err, ErrNilEntry) {
		t.Errorf("AddReadableField(nil) error = %v, want ErrNilEntry", err)
	}
}

func TestRegistry_AddFault(t *testing.T) {
	r := New()
	f := fault.New("fault", 1)
	if err := r.AddFault(f); err != nil {
		t.Fatalf("AddFault() error = %v", err)
	}

	for _, name := range []string{"fault", "fault.suppress", "fault.override", "fault.unsignal", "fault.persistence"} {
		if _, ok := r.FindWritableField(name); !ok {
			t.Errorf("FindWritableField(%s) not found", name)
		}
	}
	if got, ok := r.FindFault("fault"); !ok || got != f {
		t.Errorf("FindFault() = %v, %v", got, ok)
	}
}

func TestRegistry_AddFaultAllOrNothing(t *testing.T) {
	r := New()
	blocker := field.NewWritable[bool]("wheel.override", serializer.NewBool())
	if err := r.AddWritableField(blocker); err != nil {
		t.Fatalf("AddWritableField() error = %v", err)
	}

	if err := r.AddFault(fault.New("wheel", 3)); !errors.Is(err, ErrNameCollision) {
		t.Fatalf("AddFault() error = %v, want ErrNameCollision", err)
	}
	for _, name := range []string{"wheel", "wheel.suppress", "wheel.unsignal", "wheel.persistence"} {
		if _, ok := r.FindReadableField(name); ok {
			t.Errorf("%s registered by a failed AddFault", name)
		}
	}
	if _, ok := r.FindFault("wheel"); ok {
		t.Errorf("fault registered by a failed AddFault")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistry_Events(t *testing.T) {
	r := New()
	cs, _ := serializer.NewUint[uint32](0, 1<<20)
	cycle := field.NewReadable[uint32]("pan.cycle_no", cs)
	mode := field.NewReadable[uint8]("adcs.mode", uint8Serializer(t))

	e, _ := event.New("adcs.mode_event", cycle, []field.Base{mode}, nil)
	if err := r.AddEvent(e); err != nil {
		t.Fatalf("AddEvent() error = %v", err)
	}
	if got, ok := r.FindEvent("adcs.mode_event"); !ok || got != e {
		t.Errorf("FindEvent() = %v, %v", got, ok)
	}
	if _, ok := r.FindReadableField("adcs.mode_event"); !ok {
		t.Errorf("event not readable")
	}

	s, _ := event.NewStorage("fault_log", 3, cycle, []field.Base{mode}, nil)
	if err := r.AddEventStorage(s); err != nil {
		t.Fatalf("AddEventStorage() error = %v", err)
	}
	for _, name := range []string{"fault_log", "fault_log.1", "fault_log.2", "fault_log.3"} {
		if _, ok := r.FindReadableField(name); !ok {
			t.Errorf("FindReadableField(%s) not found", name)
		}
	}

	clash, _ := event.NewStorage("fault_log", 2, cycle, nil, nil)
	if err := r.AddEventStorage(clash); !errors.Is(err, ErrNameCollision) {
		t.Errorf("AddEventStorage() error = %v, want ErrNameCollision", err)
	}
}

type stubTask struct{ name string }

func (s stubTask) Name() string { return s.name }
func (s stubTask) Execute()     {}

func TestRegistry_Tasks(t *testing.T) {
	r := New()
	if err := r.AddTask(stubTask{"adcs_monitor"}); err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}
	if err := r.AddTask(stubTask{"adcs_monitor"}); !errors.Is(err, ErrNameCollision) {
		t.Errorf("AddTask() error = %v, want ErrNameCollision", err)
	}
	if _, ok := r.FindTask("adcs_monitor"); !ok {
		t.Errorf("FindTask() not found")
	}
}

func TestRegistry_WritableNamesSorted(t *testing.T) {
	r := New()
	b := serializer.NewBool()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		r.AddWritableField(field.NewWritable[bool](name, b))
	}
	got := r.WritableNames()
	want := []string{"alpha", "mid", "zeta"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("WritableNames()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
