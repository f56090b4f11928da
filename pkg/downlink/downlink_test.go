package downlink

import (
	"errors"
	"testing"

	"avaneesh/satstate-go/pkg/field"
	"avaneesh/satstate-go/pkg/registry"
	"avaneesh/satstate-go/pkg/serializer"
)

// newTestRegistry registers four readable uint8 fields and a uint32 cycle counter
func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	s, err := serializer.NewUint[uint8](0, 255)
	if err != nil {
		t.Fatalf("NewUint() error = %v", err)
	}
	for i, name := range []string{"a", "b", "c", "d"} {
		f := field.NewReadable[uint8](name, s)
		f.Set(uint8(0x11 * (i + 1)))
		if err := reg.AddReadableField(f); err != nil {
			t.Fatalf("AddReadableField(%s) error = %v", name, err)
		}
	}
	cs, _ := serializer.NewUint[uint32](0, 1<<32-1)
	cycle := field.NewReadable[uint32]("pan.cycle_no", cs)
	cycle.Set(42)
	if err := reg.AddReadableField(cycle); err != nil {
		t.Fatalf("AddReadableField(cycle) error = %v", err)
	}
	return reg
}

func TestProducer_Truncation(t *testing.T) {
	reg := newTestRegistry(t)
	p, err := NewProducer(reg, []FlowData{
		{ID: 1, Priority: 1, Active: true, Fields: []string{"a", "b", "c", "d"}},
	}, Options{CapacityBits: 20})
	if err != nil {
		t.Fatalf("NewProducer() error = %v", err)
	}

	pkt := p.Produce()
	if !pkt.Truncated {
		t.Errorf("Truncated = false, want true")
	}
	want := []string{"a", "b"}
	if len(pkt.Fields) != len(want) {
		t.Fatalf("Fields = %v, want %v", pkt.Fields, want)
	}
	for i := range want {
		if pkt.Fields[i] != want[i] {
			t.Errorf("Fields[%d] = %s, want %s", i, pkt.Fields[i], want[i])
		}
	}
	if pkt.Frame.Len() != 16 || pkt.Frame.Len() > pkt.Frame.Capacity() {
		t.Errorf("cursor = %d, capacity = %d", pkt.Frame.Len(), pkt.Frame.Capacity())
	}
	buf := pkt.Frame.Buffer()
	if got := buf.Uint(0, 8); got != 0x11 {
		t.Errorf("a = %#x, want 0x11", got)
	}
	if got := buf.Uint(8, 8); got != 0x22 {
		t.Errorf("b = %#x, want 0x22", got)
	}
	if got := buf.Uint(16, 4); got != 0 {
		t.Errorf("bits after truncation = %#x, want 0", got)
	}
}

func TestProducer_StopsAtFirstRejection(t *testing.T) {
	reg := newTestRegistry(t)
	bs := serializer.NewBool()
	small := field.NewReadable[bool]("flag", bs)
	if err := reg.AddReadableField(small); err != nil {
		t.Fatal(err)
	}
	// "c" is rejected; "flag" would still fit but must not be packed
	p, err := NewProducer(reg, []FlowData{
		{ID: 1, Priority: 2, Active: true, Fields: []string{"a", "b", "c"}},
		{ID: 2, Priority: 1, Active: true, Fields: []string{"flag"}},
	}, Options{CapacityBits: 20})
	if err != nil {
		t.Fatal(err)
	}
	pkt := p.Produce()
	if len(pkt.Fields) != 2 {
		t.Errorf("Fields = %v, want [a b]", pkt.Fields)
	}
	if len(pkt.Flows) != 1 || pkt.Flows[0] != 1 {
		t.Errorf("Flows = %v, want [1]", pkt.Flows)
	}
}

func TestProducer_PriorityOrder(t *testing.T) {
	reg := newTestRegistry(t)
	p, err := NewProducer(reg, []FlowData{
		{ID: 1, Priority: 1, Active: true, Fields: []string{"a"}},
		{ID: 2, Priority: 5, Active: true, Fields: []string{"b"}},
		{ID: 3, Priority: 9, Active: false, Fields: []string{"c"}},
		{ID: 4, Priority: 1, Active: true, Fields: []string{"d"}},
	}, Options{})
	if err != nil {
		t.Fatal(err)
	}

	pkt := p.Produce()
	want := []int{2, 1, 4}
	if len(pkt.Flows) != len(want) {
		t.Fatalf("Flows = %v, want %v", pkt.Flows, want)
	}
	for i := range want {
		if pkt.Flows[i] != want[i] {
			t.Errorf("Flows[%d] = %d, want %d", i, pkt.Flows[i], want[i])
		}
	}
	if pkt.Frame.Capacity() != 560 {
		t.Errorf("Capacity() = %d, want 560", pkt.Frame.Capacity())
	}
	if got := p.ActiveSize(); got != 24 {
		t.Errorf("ActiveSize() = %d, want 24", got)
	}
	if got := p.MaxSize(); got != 32 {
		t.Errorf("MaxSize() = %d, want 32", got)
	}
}

func TestProducer_Commands(t *testing.T) {
	reg := newTestRegistry(t)
	p, err := NewProducer(reg, []FlowData{
		{ID: 1, Priority: 2, Active: true, Fields: []string{"a"}},
		{ID: 2, Priority: 1, Active: true, Fields: []string{"b"}},
	}, Options{})
	if err != nil {
		t.Fatal(err)
	}

	toggle, ok := registry.Writable[uint8](reg, ToggleFieldName)
	if !ok {
		t.Fatalf("%s not registered", ToggleFieldName)
	}
	shift1, _ := registry.Writable[uint8](reg, Shift1FieldName)
	shift2, _ := registry.Writable[uint8](reg, Shift2FieldName)
	if toggle.Bitsize() != 2 {
		t.Errorf("command width = %d, want 2", toggle.Bitsize())
	}

	shift1.Set(1)
	shift2.Set(2)
	p.Produce()
	if shift1.Get() != 0 || shift2.Get() != 0 {
		t.Errorf("shift commands not cleared")
	}
	if pkt := p.Produce(); pkt.Flows[0] != 2 {
		t.Errorf("after shift Flows = %v, want flow 2 first", pkt.Flows)
	}

	toggle.Set(2)
	p.Produce()
	if toggle.Get() != 0 {
		t.Errorf("toggle command not cleared")
	}
	if pkt := p.Produce(); len(pkt.Flows) != 1 || pkt.Flows[0] != 1 {
		t.Errorf("after toggle Flows = %v, want [1]", pkt.Flows)
	}

	toggle.Set(3) // no such flow
	p.Produce()
	if toggle.Get() != 0 {
		t.Errorf("invalid toggle not cleared")
	}
}

func TestProducer_ShiftEqualPriority(t *testing.T) {
	reg := newTestRegistry(t)
	p, err := NewProducer(reg, []FlowData{
		{ID: 1, Active: true, Fields: []string{"a"}},
		{ID: 2, Active: true, Fields: []string{"b"}},
		{ID: 3, Active: true, Fields: []string{"c"}},
	}, Options{})
	if err != nil {
		t.Fatal(err)
	}

	if err := p.ShiftPriorities(1, 2); err != nil {
		t.Fatalf("ShiftPriorities() error = %v", err)
	}
	want := []int{2, 1, 3}
	pkt := p.Produce()
	for i := range want {
		if pkt.Flows[i] != want[i] {
			t.Errorf("Flows = %v, want %v", pkt.Flows, want)
			break
		}
	}

	shift1, _ := registry.Writable[uint8](reg, Shift1FieldName)
	shift2, _ := registry.Writable[uint8](reg, Shift2FieldName)
	shift1.Set(3)
	shift2.Set(2)
	p.Produce()
	want = []int{3, 1, 2}
	pkt = p.Produce()
	for i := range want {
		if pkt.Flows[i] != want[i] {
			t.Errorf("after shift command Flows = %v, want %v", pkt.Flows, want)
			break
		}
	}
}

func TestNewProducer_Errors(t *testing.T) {
	tests := []struct {
		name  string
		flows []FlowData
		opts  Options
		want  error
	}{
		{"No flows", nil, Options{}, ErrNoFlows},
		{"Zero id", []FlowData{{ID: 0, Fields: []string{"a"}}}, Options{}, ErrInvalidFlowID},
		{"Id past count", []FlowData{{ID: 2, Fields: []string{"a"}}}, Options{}, ErrInvalidFlowID},
		{"Duplicate id", []FlowData{{ID: 1}, {ID: 1}}, Options{}, ErrDuplicateFlow},
		{"Unknown field", []FlowData{{ID: 1, Fields: []string{"nope"}}}, Options{}, ErrUnknownField},
		{"Unknown cycle", []FlowData{{ID: 1}}, Options{CycleField: "nope"}, ErrUnknownField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProducer(newTestRegistry(t), tt.flows, tt.opts)
			if !errors.Is(err, tt.want) {
				t.Errorf("NewProducer() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewProducer_InternalFieldInvisible(t *testing.T) {
	reg := newTestRegistry(t)
	if err := reg.AddInternalField(field.NewInternal("secret", 1)); err != nil {
		t.Fatal(err)
	}
	_, err := NewProducer(reg, []FlowData{{ID: 1, Fields: []string{"secret"}}}, Options{})
	if !errors.Is(err, ErrUnknownField) {
		t.Errorf("NewProducer() error = %v, want ErrUnknownField", err)
	}
}

func TestParser_RoundTrip(t *testing.T) {
	flows := []FlowData{
		{ID: 1, Priority: 1, Active: true, Fields: []string{"a", "b"}},
		{ID: 2, Priority: 3, Active: true, Fields: []string{"c"}},
		{ID: 3, Priority: 2, Active: false, Fields: []string{"d"}},
	}
	for _, tagged := range []bool{false, true} {
		opts := Options{CycleField: "pan.cycle_no", TagFlows: tagged}

		sc := newTestRegistry(t)
		p, err := NewProducer(sc, flows, opts)
		if err != nil {
			t.Fatal(err)
		}
		ground := registry.New()
		s, _ := serializer.NewUint[uint8](0, 255)
		for _, name := range []string{"a", "b", "c", "d"} {
			ground.AddReadableField(field.NewReadable[uint8](name, s))
		}
		cs, _ := serializer.NewUint[uint32](0, 1<<32-1)
		ground.AddReadableField(field.NewReadable[uint32]("pan.cycle_no", cs))

		ps, err := NewParser(ground, flows, opts)
		if err != nil {
			t.Fatal(err)
		}

		pkt := p.Produce()
		rep, err := ps.Parse(pkt.Frame.Bytes())
		if err != nil {
			t.Fatalf("tagged=%v: Parse() error = %v", tagged, err)
		}
		if rep.Cycle != "42" {
			t.Errorf("tagged=%v: Cycle = %q, want 42", tagged, rep.Cycle)
		}
		if len(rep.Flows) != 2 || rep.Flows[0] != 2 || rep.Flows[1] != 1 {
			t.Errorf("tagged=%v: Flows = %v, want [2 1]", tagged, rep.Flows)
		}
		wantValues := []Value{{"c", "51"}, {"a", "17"}, {"b", "34"}}
		if len(rep.Values) != len(wantValues) {
			t.Fatalf("tagged=%v: Values = %v, want %v", tagged, rep.Values, wantValues)
		}
		for i, v := range wantValues {
			if rep.Values[i] != v {
				t.Errorf("tagged=%v: Values[%d] = %v, want %v", tagged, i, rep.Values[i], v)
			}
		}
		if d, _ := registry.Readable[uint8](ground, "d"); d.Get() != 0 {
			t.Errorf("tagged=%v: inactive flow field d = %d, want 0", tagged, d.Get())
		}
	}
}

func TestParser_TruncatedFrame(t *testing.T) {
	flows := []FlowData{{ID: 1, Priority: 1, Active: true, Fields: []string{"a", "b", "c"}}}
	opts := Options{CapacityBits: 20, TagFlows: true}

	p, err := NewProducer(newTestRegistry(t), flows, opts)
	if err != nil {
		t.Fatal(err)
	}
	ground := registry.New()
	s, _ := serializer.NewUint[uint8](0, 255)
	for _, name := range []string{"a", "b", "c"} {
		ground.AddReadableField(field.NewReadable[uint8](name, s))
	}
	ps, err := NewParser(ground, flows, opts)
	if err != nil {
		t.Fatal(err)
	}

	pkt := p.Produce()
	if len(pkt.Fields) != 2 {
		t.Fatalf("Fields = %v, want [a b]", pkt.Fields)
	}
	rep, err := ps.ParseFrame(pkt.Frame)
	if err != nil {
		t.Fatalf("ParseFrame() error = %v", err)
	}
	if len(rep.Values) != 2 {
		t.Errorf("Values = %v, want a and b only", rep.Values)
	}
}

func TestParser_AppliesFlowCommands(t *testing.T) {
	flows := []FlowData{
		{ID: 1, Active: true, Fields: []string{"a"}},
		{ID: 2, Active: true, Fields: []string{"b"}},
	}
	sc := newTestRegistry(t)
	p, err := NewProducer(sc, flows, Options{})
	if err != nil {
		t.Fatal(err)
	}
	ground := newTestRegistry(t)
	for _, name := range []string{"a", "b"} {
		f, _ := registry.Readable[uint8](ground, name)
		f.Set(0)
	}
	ps, err := NewParser(ground, flows, Options{})
	if err != nil {
		t.Fatal(err)
	}

	// the same command lands on both ends before the next frame
	for _, reg := range []*registry.Registry{sc, ground} {
		s1, _ := registry.Writable[uint8](reg, Shift1FieldName)
		s2, _ := registry.Writable[uint8](reg, Shift2FieldName)
		s1.Set(1)
		s2.Set(2)
	}

	for i, want := range [][]int{{1, 2}, {2, 1}} {
		pkt := p.Produce()
		rep, err := ps.ParseFrame(pkt.Frame)
		if err != nil {
			t.Fatalf("frame %d: ParseFrame() error = %v", i, err)
		}
		for j := range want {
			if pkt.Flows[j] != want[j] || rep.Flows[j] != want[j] {
				t.Errorf("frame %d: produced %v, parsed %v, want %v", i, pkt.Flows, rep.Flows, want)
				break
			}
		}
	}
	if s1, _ := registry.Writable[uint8](ground, Shift1FieldName); s1.Get() != 0 {
		t.Errorf("ground shift command not cleared")
	}
	if b, _ := registry.Readable[uint8](ground, "b"); b.Get() != 0x22 {
		t.Errorf("b = 0x%X, want 0x22", b.Get())
	}
}
