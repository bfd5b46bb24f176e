package shv

import (
	"bytes"
	"math"
	"testing"
)

// S1: CponRead("134") -> Int(134); ChainPackWrite(Int(134)) starts with
// tag byte 130 (0x82) followed by two-byte int-data with clear sign bit.
func TestChainPackWriteIntTagByte(t *testing.T) {
	v, err := ReadCpon([]byte("134"))
	if err != nil {
		t.Fatalf("ReadCpon() error = %v", err)
	}
	n, ok := v.AsInt()
	if !ok || n != 134 {
		t.Fatalf("ReadCpon(\"134\") = %v, want Int(134)", v)
	}

	data, err := WriteChainPack(NewInt(134))
	if err != nil {
		t.Fatalf("WriteChainPack() error = %v", err)
	}
	if len(data) != 3 {
		t.Fatalf("WriteChainPack(Int(134)) length = %d, want 3", len(data))
	}
	if data[0] != cpInt {
		t.Errorf("WriteChainPack(Int(134))[0] = 0x%02X, want 0x%02X", data[0], cpInt)
	}
	// Two-byte int-data: the top bits 10 mark the length, and the sign
	// bit is the highest payload bit, 0x20 of the first byte.
	if data[1]&0x20 != 0 {
		t.Errorf("WriteChainPack(Int(134)) sign bit set in %08b", data[1])
	}
}

func TestChainPackIntRoundTrip(t *testing.T) {
	tests := []int64{
		0, 1, -1, 63, 64, -64, 65, 127, 128, -128,
		1<<20 - 1, -(1 << 20), 1 << 27, -(1 << 40),
		math.MaxInt64, math.MinInt64,
	}
	for _, n := range tests {
		data, err := WriteChainPack(NewInt(n))
		if err != nil {
			t.Fatalf("WriteChainPack(Int(%d)) error = %v", n, err)
		}
		got, err := ReadChainPack(data)
		if err != nil {
			t.Fatalf("ReadChainPack() error = %v", err)
		}
		gotN, ok := got.AsInt()
		if !ok || gotN != n {
			t.Errorf("round trip Int(%d) = %v", n, got)
		}
	}
}

func TestChainPackUintRoundTrip(t *testing.T) {
	tests := []uint64{0, 1, 63, 64, 127, 128, 1 << 20, 1 << 40, math.MaxUint64}
	for _, n := range tests {
		data, err := WriteChainPack(NewUInt(n))
		if err != nil {
			t.Fatalf("WriteChainPack(UInt(%d)) error = %v", n, err)
		}
		got, err := ReadChainPack(data)
		if err != nil {
			t.Fatalf("ReadChainPack() error = %v", err)
		}
		gotN, ok := got.AsUInt()
		if !ok || gotN != n {
			t.Errorf("round trip UInt(%d) = %v", n, got)
		}
	}
}

// P2: ChainPack -> value -> ChainPack is byte-identical for any
// writer-produced input, including containers whose key order depends
// on the writer's own canonicalization.
func TestChainPackRoundTripByteIdentical(t *testing.T) {
	values := []Value{
		NewNull(),
		NewBool(true),
		NewBool(false),
		NewString("hello"),
		NewBlob([]byte{1, 2, 3, 0xFF}),
		NewDouble(3.14159),
		NewDecimal(123, -2),
		NewDecimal(-123, -1),
		NewList([]Value{NewInt(1), NewString("x"), NewNull()}),
		NewMap(map[string]Value{"foo": NewInt(1), "bar": NewInt(2), "baz": NewInt(3)}),
		NewIMap(map[int64]Value{5: NewString("e"), 1: NewString("a"), 3: NewString("c")}),
		NewInt(42).WithMeta(Meta{int64(1): NewInt(2), "tag": NewString("v")}),
	}
	for _, v := range values {
		first, err := WriteChainPack(v)
		if err != nil {
			t.Fatalf("WriteChainPack() error = %v", err)
		}
		decoded, err := ReadChainPack(first)
		if err != nil {
			t.Fatalf("ReadChainPack() error = %v", err)
		}
		second, err := WriteChainPack(decoded)
		if err != nil {
			t.Fatalf("re-WriteChainPack() error = %v", err)
		}
		if !bytes.Equal(first, second) {
			t.Errorf("round trip not byte-identical for %v:\n  first:  % X\n  second: % X", v.Type, first, second)
		}
	}
}

// P4: DateTime encode/decode preserves epoch-ms and offset for offsets
// within [-63,63] quarter-hours.
func TestChainPackDateTimeRoundTrip(t *testing.T) {
	tests := []DateTime{
		{EpochMs: SHVEpochMs, UtcOffsetMin: 0},
		{EpochMs: SHVEpochMs + 123456789, UtcOffsetMin: 0},
		{EpochMs: 1493836200000, UtcOffsetMin: 240},
		{EpochMs: 1493836200000, UtcOffsetMin: -210},
		{EpochMs: 1493836200123, UtcOffsetMin: 60},
	}
	for _, dt := range tests {
		data, err := WriteChainPack(NewDateTime(dt))
		if err != nil {
			t.Fatalf("WriteChainPack(DateTime) error = %v", err)
		}
		got, err := ReadChainPack(data)
		if err != nil {
			t.Fatalf("ReadChainPack() error = %v", err)
		}
		gotDt, ok := got.AsDateTime()
		if !ok || gotDt.EpochMs != dt.EpochMs || gotDt.UtcOffsetMin != dt.UtcOffsetMin {
			t.Errorf("round trip %+v = %+v", dt, gotDt)
		}
	}
}

func TestChainPackDateTimeOffsetOutOfRange(t *testing.T) {
	_, err := WriteChainPack(NewDateTime(DateTime{EpochMs: 0, UtcOffsetMin: 15 * 64}))
	if !IsInvalidValue(err) {
		t.Errorf("WriteChainPack() with out-of-range offset error = %v, want InvalidValueError", err)
	}
}

func TestSignificantBits(t *testing.T) {
	tests := []struct {
		num  uint64
		want int
	}{
		{0, 1}, {1, 1}, {2, 2}, {3, 2}, {4, 3}, {255, 8}, {256, 9}, {math.MaxUint64, 64},
	}
	for _, tt := range tests {
		if got := significantBits(tt.num); got != tt.want {
			t.Errorf("significantBits(%d) = %d, want %d", tt.num, got, tt.want)
		}
	}
}
