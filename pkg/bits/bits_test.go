package bits

import (
	"bytes"
	"errors"
	"testing"
)

func expectIndexPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic, got none")
		}
		if _, ok := r.(*IndexError); !ok {
			t.Fatalf("panic value = %T, want *IndexError", r)
		}
	}()
	fn()
}

func TestBuffer_GetSet(t *testing.T) {
	b := New(10)
	if b.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", b.Len())
	}

	b.Set(0, true)
	b.Set(9, true)
	b.Set(3, true)
	b.Set(3, false)

	if got := b.String(); got != "1000000001" {
		t.Errorf("String() = %s, want 1000000001", got)
	}
	if !b.Get(9) || b.Get(3) {
		t.Errorf("Get returned wrong values")
	}
}

func TestBuffer_OutOfRange(t *testing.T) {
	b := New(8)
	tests := []struct {
		name string
		fn   func()
	}{
		{"Get past end", func() { b.Get(8) }},
		{"Get negative", func() { b.Get(-1) }},
		{"Set past end", func() { b.Set(8, true) }},
		{"SetUint overruns", func() { b.SetUint(4, 5, 1) }},
		{"CopyRange source overrun", func() { b.CopyRange(0, New(4), 0, 5) }},
		{"CopyRange destination overrun", func() { b.CopyRange(6, New(4), 0, 3) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectIndexPanic(t, tt.fn)
		})
	}
}

func TestBuffer_UintLSBFirst(t *testing.T) {
	b := New(16)
	b.SetUint(2, 5, 0b10011)
	if got := b.String(); got != "0011001000000000" {
		t.Errorf("String() = %s, want 0011001000000000", got)
	}
	if v := b.Uint(2, 5); v != 0b10011 {
		t.Errorf("Uint() = %b, want 10011", v)
	}

	b.Reset()
	b.SetUint(0, 64, 0xDEADBEEFCAFEF00D&0xFFFF)
	if v := b.Uint(0, 16); v != 0xF00D {
		t.Errorf("Uint() = 0x%X, want 0xF00D", v)
	}
}

func TestBuffer_BytesMSBFirst(t *testing.T) {
	b := New(12)
	b.Set(0, true)
	b.Set(7, true)
	b.Set(8, true)

	want := []byte{0x81, 0x80}
	if got := b.Bytes(); !bytes.Equal(got, want) {
		t.Errorf("Bytes() = % X, want % X", got, want)
	}

	back, err := FromBytes(want, 12)
	if err != nil {
		t.Fatalf("FromBytes() error = %v", err)
	}
	if !back.Equal(b) {
		t.Errorf("FromBytes() = %s, want %s", back, b)
	}
}

func TestFromBytes_MasksTail(t *testing.T) {
	b, err := FromBytes([]byte{0xFF}, 3)
	if err != nil {
		t.Fatalf("FromBytes() error = %v", err)
	}
	if got := b.Bytes(); got[0] != 0xE0 {
		t.Errorf("Bytes() = 0x%02X, want 0xE0", got[0])
	}
	if _, err := FromBytes([]byte{0xFF}, 9); !errors.Is(err, ErrInvalidLength) {
		t.Errorf("FromBytes() error = %v, want ErrInvalidLength", err)
	}
}

func TestBuffer_CopyRangeOverlap(t *testing.T) {
	b, _ := Parse("1101000000")
	b.CopyRange(2, b, 0, 4)
	if got := b.String(); got != "1111010000" {
		t.Errorf("String() = %s, want 1111010000", got)
	}
}

func TestFrame_AppendRejectsOverflow(t *testing.T) {
	f := NewFrame(10)
	first, _ := Parse("101")
	if err := f.Append(first); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	before := f.Bytes()
	tooBig := New(8)
	err := f.Append(tooBig)
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("Append() error = %v, want ErrCapacityExceeded", err)
	}
	if f.Len() != 3 {
		t.Errorf("Len() = %d, want 3", f.Len())
	}
	if !bytes.Equal(f.Bytes(), before) {
		t.Errorf("rejected append modified frame")
	}

	if err := f.AppendUint(0x7F, 7); err != nil {
		t.Fatalf("AppendUint() error = %v", err)
	}
	if f.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", f.Remaining())
	}
	if err := f.AppendUint(1, 1); !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("AppendUint() on full frame error = %v", err)
	}
}

func TestFrame_Rollback(t *testing.T) {
	f := NewFrame(16)
	f.AppendUint(0x3, 2)
	mark := f.Mark()
	f.AppendUint(0xFF, 8)
	f.Rollback(mark)

	if f.Len() != 2 {
		t.Errorf("Len() = %d, want 2", f.Len())
	}
	if got := f.Buffer().String(); got != "1100000000000000" {
		t.Errorf("buffer = %s after rollback", got)
	}
}

func TestFrame_DefaultCapacityBytes(t *testing.T) {
	f := NewFrame(DefaultFrameBits)
	if got := len(f.Bytes()); got != 70 {
		t.Errorf("len(Bytes()) = %d, want 70", got)
	}
}

func TestReader(t *testing.T) {
	f := NewFrame(16)
	f.AppendUint(5, 3)
	f.AppendUint(1, 1)
	f.AppendUint(0xAB, 8)

	r := NewFrameReader(f)
	if r.Remaining() != 12 {
		t.Fatalf("Remaining() = %d, want 12", r.Remaining())
	}
	v, err := r.ReadUint(3)
	if err != nil || v != 5 {
		t.Errorf("ReadUint(3) = %d, %v", v, err)
	}
	bit, err := r.ReadBool()
	if err != nil || !bit {
		t.Errorf("ReadBool() = %v, %v", bit, err)
	}
	sub, err := r.ReadBits(8)
	if err != nil {
		t.Fatalf("ReadBits() error = %v", err)
	}
	if sub.Uint(0, 8) != 0xAB {
		t.Errorf("ReadBits() = %s", sub)
	}
	if _, err := r.ReadUint(1); !errors.Is(err, ErrInsufficientBits) {
		t.Errorf("ReadUint() past end error = %v, want ErrInsufficientBits", err)
	}
}
