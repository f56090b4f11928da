package event

import (
	"errors"
	"testing"

	"avaneesh/satstate-go/pkg/bits"
	"avaneesh/satstate-go/pkg/field"
	"avaneesh/satstate-go/pkg/serializer"
)

func newFixture(t *testing.T) (*field.Field[uint32], *field.Field[uint8], *field.Field[bool]) {
	t.Helper()
	cs, _ := serializer.NewUint[uint32](0, 1<<31)
	cycle := field.NewReadable[uint32]("pan.cycle_no", cs)
	us, _ := serializer.NewUint[uint8](0, 200)
	mode := field.NewReadable[uint8]("adcs.mode", us)
	flag := field.NewReadable[bool]("prop.valve_open", serializer.NewBool())
	return cycle, mode, flag
}

func TestEvent_SignalLayout(t *testing.T) {
	cycle, mode, flag := newFixture(t)
	e, err := New("adcs.mode_change", cycle, []field.Base{mode, flag}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if e.Bitsize() != 32+8+1 {
		t.Fatalf("Bitsize() = %d, want 41", e.Bitsize())
	}

	cycle.Set(0x01020304)
	mode.Set(150)
	flag.Set(true)
	e.Signal()

	arr := e.BitArray()
	if got := arr.Uint(0, 32); got != 0x01020304 {
		t.Errorf("cycle bits = 0x%X, want 0x01020304", got)
	}
	if got := arr.Uint(32, 8); got != 150 {
		t.Errorf("mode bits = %d, want 150", got)
	}
	if !arr.Get(40) {
		t.Errorf("flag bit not set")
	}

	// Later changes do not touch the record until the next Signal.
	mode.Set(3)
	if e.BitArray().Uint(32, 8) != 150 {
		t.Errorf("record changed without Signal")
	}
}

func TestEvent_DeserializeOnGround(t *testing.T) {
	cycle, mode, flag := newFixture(t)
	e, _ := New("evt", cycle, []field.Base{mode, flag}, nil)
	cycle.Set(77)
	mode.Set(9)
	flag.Set(true)
	e.Signal()
	record := e.BitArray()

	gCycle, gMode, gFlag := newFixture(t)
	ground, _ := New("evt", gCycle, []field.Base{gMode, gFlag}, nil)

	frame := bits.New(record.Len() + 5)
	frame.CopyRange(5, record, 0, record.Len())
	ground.Deserialize(frame, 5)

	if ground.Cycle() != 77 {
		t.Errorf("Cycle() = %d, want 77", ground.Cycle())
	}
	if gMode.Get() != 9 || !gFlag.Get() {
		t.Errorf("decoded fields = (%d, %v), want (9, true)", gMode.Get(), gFlag.Get())
	}
	if got := ground.String(); got != "evt@77 adcs.mode=9 prop.valve_open=true" {
		t.Errorf("String() = %s", got)
	}
}

func TestEvent_SetBitArraySize(t *testing.T) {
	cycle, mode, _ := newFixture(t)
	e, _ := New("evt", cycle, []field.Base{mode}, nil)
	if err := e.SetBitArray(bits.New(3)); !errors.Is(err, ErrRecordSize) {
		t.Errorf("SetBitArray() error = %v, want ErrRecordSize", err)
	}
	if _, err := New("evt", nil, nil, nil); !errors.Is(err, ErrNilCycle) {
		t.Errorf("New(nil cycle) error = %v, want ErrNilCycle", err)
	}
}

func TestEvent_PrintFunc(t *testing.T) {
	cycle, mode, _ := newFixture(t)
	e, _ := New("evt", cycle, []field.Base{mode}, func(c uint32, fs []field.Base) string {
		return fs[0].String()
	})
	mode.Set(12)
	if e.String() != "12" {
		t.Errorf("String() = %s, want 12", e.String())
	}
}

func TestStorage_Capacity(t *testing.T) {
	cycle, mode, _ := newFixture(t)
	tests := []struct {
		capacity int
		wantErr  bool
	}{
		{0, true},
		{1, false},
		{99, false},
		{100, true},
	}
	for _, tt := range tests {
		_, err := NewStorage("log", tt.capacity, cycle, []field.Base{mode}, nil)
		if (err != nil) != tt.wantErr {
			t.Errorf("NewStorage(%d) error = %v, wantErr %v", tt.capacity, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidCapacity) {
			t.Errorf("NewStorage(%d) error = %v, want ErrInvalidCapacity", tt.capacity, err)
		}
	}
}

func TestStorage_SlotNames(t *testing.T) {
	cycle, mode, _ := newFixture(t)
	s, _ := NewStorage("fault_log", 12, cycle, []field.Base{mode}, nil)
	if s.Slot(0).Name() != "fault_log.1" || s.Slot(11).Name() != "fault_log.12" {
		t.Errorf("slot names = %s, %s", s.Slot(0).Name(), s.Slot(11).Name())
	}
}

func TestStorage_RingOverwrite(t *testing.T) {
	const k = 4
	cycle, mode, _ := newFixture(t)
	s, _ := NewStorage("log", k, cycle, []field.Base{mode}, nil)

	if s.Latest() != nil {
		t.Errorf("Latest() before any signal = %v, want nil", s.Latest())
	}

	signal := func(call int) {
		cycle.Set(uint32(call))
		s.Signal()
	}

	for call := 1; call <= k; call++ {
		signal(call)
	}
	if s.Cursor() != 0 {
		t.Errorf("Cursor() after %d signals = %d, want 0", k, s.Cursor())
	}
	if s.Latest() != s.Slot(k-1) || s.Latest().Cycle() != k {
		t.Errorf("Latest() = %s cycle %d, want slot %d from call %d", s.Latest().Name(), s.Latest().Cycle(), k-1, k)
	}
	if s.Current().Cycle() != 1 {
		t.Errorf("Current() cycle = %d, want 1 (oldest, next to overwrite)", s.Current().Cycle())
	}

	signal(k + 1)
	if s.Slot(0).Cycle() != k+1 {
		t.Errorf("slot 0 cycle = %d, want %d", s.Slot(0).Cycle(), k+1)
	}
	if s.Latest() != s.Slot(0) {
		t.Errorf("Latest() = %s, want slot 0", s.Latest().Name())
	}
	if s.Cursor() != 1 {
		t.Errorf("Cursor() = %d, want 1", s.Cursor())
	}
	if !s.BitArray().Equal(s.Slot(1).BitArray()) {
		t.Errorf("BitArray() does not report the slot at the cursor")
	}
}
