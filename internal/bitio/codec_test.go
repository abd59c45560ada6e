package bitio

import "testing"

func TestSetClearReadBit(t *testing.T) {
	buf := make([]byte, 2)
	offset := 0
	if err := SetBit(buf, &offset); err != nil {
		t.Fatalf("SetBit: %v", err)
	}
	if err := ClearBit(buf, &offset); err != nil {
		t.Fatalf("ClearBit: %v", err)
	}
	if err := SetBit(buf, &offset); err != nil {
		t.Fatalf("SetBit: %v", err)
	}
	if offset != 3 {
		t.Fatalf("offset = %d, want 3", offset)
	}

	readOffset := 0
	bits := make([]bool, 3)
	for i := range bits {
		b, err := ReadBit(buf, &readOffset)
		if err != nil {
			t.Fatalf("ReadBit: %v", err)
		}
		bits[i] = b
	}
	if bits[0] != true || bits[1] != false || bits[2] != true {
		t.Errorf("got %v, want [true false true]", bits)
	}
}

func TestBitOverflow(t *testing.T) {
	buf := make([]byte, 1)
	offset := 7
	if err := SetBit(buf, &offset); err != nil {
		t.Fatalf("SetBit at last valid index: %v", err)
	}
	if err := SetBit(buf, &offset); err == nil {
		t.Fatal("expected overflow error writing past buffer capacity")
	}
}

func TestNibbletRoundTrip(t *testing.T) {
	buf := make([]byte, 512)
	for n := 0; n < (1 << NibbleSize); n++ {
		offset := 0
		if err := WriteNibblet(buf, n, &offset); err != nil {
			t.Fatalf("WriteNibblet(%d): %v", n, err)
		}
		readOffset := 0
		got, err := ReadNibblet(buf, &readOffset)
		if err != nil {
			t.Fatalf("ReadNibblet(%d): %v", n, err)
		}
		if got != n {
			t.Errorf("n=%d: got %d", n, got)
		}
		if readOffset != offset {
			t.Errorf("n=%d: write advanced %d bits, read advanced %d", n, offset, readOffset)
		}
	}
}

func TestNibbletRoundTripLargeValues(t *testing.T) {
	buf := make([]byte, 512)
	for _, n := range []int{0, 1, 15, 16, 63, 64, 4095} {
		offset := 0
		if err := WriteNibblet(buf, n, &offset); err != nil {
			t.Fatalf("WriteNibblet(%d): %v", n, err)
		}
		readOffset := 0
		got, err := ReadNibblet(buf, &readOffset)
		if err != nil {
			t.Fatalf("ReadNibblet(%d): %v", n, err)
		}
		if got != n {
			t.Errorf("n=%d: got %d", n, got)
		}
	}
}
