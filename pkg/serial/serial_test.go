// pkg/serial/serial_test.go - Unit tests for the point codec primitives
package serial

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func TestZigZag(t *testing.T) {
	tests := []struct {
		value   int64
		encoded uint64
	}{
		{0, 0},
		{-1, 1},
		{1, 2},
		{-2, 3},
		{2, 4},
		{math.MaxInt64, math.MaxUint64 - 1},
		{math.MinInt64, math.MaxUint64},
	}

	for _, tt := range tests {
		if got := EncodeZigZag(tt.value); got != tt.encoded {
			t.Errorf("EncodeZigZag(%d) = %d, want %d", tt.value, got, tt.encoded)
		}
		if got := DecodeZigZag(tt.encoded); got != tt.value {
			t.Errorf("DecodeZigZag(%d) = %d, want %d", tt.encoded, got, tt.value)
		}
	}
}

func TestByteSourceVarUint(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 1 << 20, math.MaxUint64}

	var buf []byte
	for _, v := range values {
		buf = binary.AppendUvarint(buf, v)
	}

	src := NewByteSource(buf)
	for _, want := range values {
		got, err := src.ReadVarUint()
		if err != nil {
			t.Fatalf("ReadVarUint() error = %v", err)
		}
		if got != want {
			t.Errorf("ReadVarUint() = %d, want %d", got, want)
		}
	}
	if src.Remaining() != 0 {
		t.Errorf("Remaining() = %d after reading all values", src.Remaining())
	}
}

func TestByteSourceTruncation(t *testing.T) {
	src := NewByteSource([]byte{0x80, 0x80})
	if _, err := src.ReadVarUint(); !errors.Is(err, ErrTruncated) {
		t.Errorf("ReadVarUint() on dangling continuation error = %v, want ErrTruncated", err)
	}

	src = NewByteSource([]byte{0x02, 'h'})
	if _, err := src.ReadString(); !errors.Is(err, ErrTruncated) {
		t.Errorf("ReadString() past end error = %v, want ErrTruncated", err)
	}

	src = NewByteSource([]byte{1, 2, 3})
	if err := src.Skip(4); !errors.Is(err, ErrTruncated) {
		t.Errorf("Skip(4) of 3 bytes error = %v, want ErrTruncated", err)
	}
}

func TestByteSourceString(t *testing.T) {
	buf := AppendString(nil, "main street")
	src := NewByteSource(buf)
	got, err := src.ReadString()
	if err != nil {
		t.Fatalf("ReadString() error = %v", err)
	}
	if got != "main street" {
		t.Errorf("ReadString() = %q", got)
	}
}

func TestBitSource(t *testing.T) {
	// 0xA5 = 1010 0101: reading 4+4 bits LSB first yields 0x5 then 0xA.
	src := NewByteSource([]byte{0xa5, 0xff})
	bits := NewBitSource(src)

	lo, err := bits.Read(4)
	if err != nil {
		t.Fatalf("Read(4) error = %v", err)
	}
	hi, err := bits.Read(4)
	if err != nil {
		t.Fatalf("Read(4) error = %v", err)
	}
	if lo != 0x5 || hi != 0xa {
		t.Errorf("Read(4)+Read(4) = %#x, %#x, want 0x5, 0xa", lo, hi)
	}

	// After a full byte the underlying source is positioned on the next
	// byte.
	if src.Pos() != 1 {
		t.Errorf("Pos() = %d after 8 bits, want 1", src.Pos())
	}
}

func TestBitSourceAlign(t *testing.T) {
	src := NewByteSource([]byte{0x03, 0x42})
	bits := NewBitSource(src)

	v, err := bits.Read(4)
	if err != nil {
		t.Fatalf("Read(4) error = %v", err)
	}
	if v != 0x3 {
		t.Errorf("Read(4) = %#x, want 0x3", v)
	}
	bits.Align()

	b, err := src.ReadByte()
	if err != nil {
		t.Fatalf("ReadByte() error = %v", err)
	}
	if b != 0x42 {
		t.Errorf("ReadByte() after Align() = %#x, want 0x42", b)
	}
}

func TestBitSourceStraddle(t *testing.T) {
	bits := NewBitSource(NewByteSource([]byte{0xff}))
	if _, err := bits.Read(4); err != nil {
		t.Fatalf("Read(4) error = %v", err)
	}
	if _, err := bits.Read(8); err == nil {
		t.Error("Read(8) straddling a byte boundary should fail")
	}
}

func pointsAlmostEqual(t *testing.T, got, want []orb.Point, tolerance float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d points, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i][0]-want[i][0]) > tolerance || math.Abs(got[i][1]-want[i][1]) > tolerance {
			t.Errorf("point %d = %v, want %v within %g", i, got[i], want[i], tolerance)
		}
	}
}

func TestPointRunRoundTrip(t *testing.T) {
	cp := NewCodingParams(30, orb.Point{0, 0})
	points := []orb.Point{
		{10.5, -20.25},
		{10.6, -20.3},
		{11.0, -19.9},
		{-170.0, 85.0},
	}

	buf := AppendPointRun(nil, points, cp)
	got, err := LoadPointRun(NewByteSource(buf), len(points), cp)
	if err != nil {
		t.Fatalf("LoadPointRun() error = %v", err)
	}

	// Two grid cells of slack per axis.
	tolerance := 2 * 360.0 / float64(uint64(1)<<30-1)
	pointsAlmostEqual(t, got, points, tolerance)
}

func TestOuterRunRoundTrip(t *testing.T) {
	cp := NewCodingParams(24, orb.Point{0, 0})
	cp.SetBasePoint(orb.Point{42.0, 42.0})
	points := []orb.Point{{42.1, 42.0}, {42.2, 41.9}, {42.4, 41.5}}

	buf := AppendOuterRun(nil, points, cp)
	got, err := LoadOuterRun(NewByteSource(buf), cp)
	if err != nil {
		t.Fatalf("LoadOuterRun() error = %v", err)
	}

	tolerance := 2 * 360.0 / float64(uint64(1)<<24-1)
	pointsAlmostEqual(t, got, points, tolerance)
}

func TestLoadPointRoundTrip(t *testing.T) {
	cp := NewCodingParams(30, orb.Point{0, 0})
	buf, _ := AppendPoint(nil, orb.Point{-5, 7}, cp)

	got, err := LoadPoint(NewByteSource(buf), cp)
	if err != nil {
		t.Fatalf("LoadPoint() error = %v", err)
	}
	tolerance := 2 * 360.0 / float64(uint64(1)<<30-1)
	pointsAlmostEqual(t, []orb.Point{got}, []orb.Point{{-5, 7}}, tolerance)
}
