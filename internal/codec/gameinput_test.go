package codec

import "testing"

func input(frame int32, b byte) GameInput {
	return NewGameInput(frame, []byte{b})
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	baseline := input(-1, 0x00)
	pending := []GameInput{input(0, 0x01), input(1, 0x03), input(2, 0x03)}

	enc, err := Encode(pending, baseline)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var lastReceived GameInput
	lastReceived.Frame = -1

	var got []GameInput
	err = Decode(enc.StartFrame, enc.InputSize, enc.Bits[:], enc.NumBits, &lastReceived, func(gi GameInput) {
		got = append(got, gi)
	})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 emitted frames, got %d", len(got))
	}
	for i, gi := range got {
		want := pending[i]
		if gi.Frame != want.Frame || !gi.Equal(want) {
			t.Errorf("frame %d: got %+v, want %+v", i, gi, want)
		}
	}
	if lastReceived.Frame != 2 {
		t.Errorf("lastReceived.Frame = %d, want 2", lastReceived.Frame)
	}
}

func TestEncodeRequiresContiguousBaseline(t *testing.T) {
	baseline := input(5, 0x00)
	pending := []GameInput{input(10, 0x01)}
	if _, err := Encode(pending, baseline); err == nil {
		t.Fatal("expected error for non-contiguous baseline")
	}
}

func TestEncodeNoChangeStillTerminates(t *testing.T) {
	baseline := input(-1, 0x00)
	pending := []GameInput{input(0, 0x00)}
	enc, err := Encode(pending, baseline)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if enc.NumBits != 1 {
		t.Errorf("NumBits = %d, want 1 (single terminator bit)", enc.NumBits)
	}
}

func TestDecodeSkipsAlreadyDeliveredFrames(t *testing.T) {
	baseline := input(-1, 0x00)
	pending := []GameInput{input(0, 0x01), input(1, 0x02)}
	enc, err := Encode(pending, baseline)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	lastReceived := input(0, 0x01) // frame 0 already delivered

	var got []GameInput
	err = Decode(enc.StartFrame, enc.InputSize, enc.Bits[:], enc.NumBits, &lastReceived, func(gi GameInput) {
		got = append(got, gi)
	})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) != 1 || got[0].Frame != 1 {
		t.Fatalf("expected only frame 1 to be emitted, got %+v", got)
	}
}

func TestNibbletRoundTripViaIndexBits(t *testing.T) {
	// Exercise bit indices up to 63 (a full GameInputMaxBytes payload),
	// the practical range nibblets encode in this codec.
	baseline := input(-1, 0x00)
	var data [8]byte
	for i := range data {
		data[i] = 0xAA
	}
	cur := NewGameInput(0, data[:])
	enc, err := Encode([]GameInput{cur}, baseline)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var lastReceived GameInput
	lastReceived.Frame = -1
	var got GameInput
	err = Decode(enc.StartFrame, enc.InputSize, enc.Bits[:], enc.NumBits, &lastReceived, func(gi GameInput) {
		got = gi
	})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !got.Equal(cur) {
		t.Errorf("decoded %+v, want %+v", got, cur)
	}
}
