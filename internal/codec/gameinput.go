// Package codec implements the per-frame input delta compression
// described in spec.md §4.1: encoding a run of queued GameInputs as a
// bitstream of changed-button deltas against a rolling baseline, and
// decoding that bitstream back into a sequence of GameInput events.
//
// Ported from SteamProtocol::SendPendingOutput / SteamProtocol::OnInput
// in steam_proto.cpp.
package codec

import (
	"fmt"

	"peerproto-go/internal/bitio"
	"peerproto-go/internal/protoconst"
)

// GameInput is one frame's input: a frame number (-1 means
// uninitialized), a payload size in bytes, and a fixed-capacity bit
// payload. Equality is byte-wise over the payload prefix of Size.
type GameInput struct {
	Frame int32
	Size  int
	Bits  [protoconst.GameInputMaxBytes]byte
}

// NewGameInput builds a GameInput from frame number and raw bytes.
func NewGameInput(frame int32, data []byte) GameInput {
	gi := GameInput{Frame: frame, Size: len(data)}
	copy(gi.Bits[:], data)
	return gi
}

// Equal reports whether two inputs have the same Size and the same
// payload bytes over that size; inputs of different sizes are never
// equal.
func (g GameInput) Equal(other GameInput) bool {
	if g.Size != other.Size {
		return false
	}
	for i := 0; i < g.Size; i++ {
		if g.Bits[i] != other.Bits[i] {
			return false
		}
	}
	return true
}

// Value tests bit i (0-indexed from the start of the payload).
func (g GameInput) Value(i int) bool {
	return g.Bits[i/8]&(1<<uint(i%8)) != 0
}

// Set sets bit i to 1.
func (g *GameInput) Set(i int) {
	g.Bits[i/8] |= 1 << uint(i%8)
}

// Clear sets bit i to 0.
func (g *GameInput) Clear(i int) {
	g.Bits[i/8] &^= 1 << uint(i%8)
}

// Encoded is the result of compressing a run of pending outputs: the
// bit payload plus the header fields the Input message needs (§4.1).
type Encoded struct {
	StartFrame int32
	InputSize  int
	NumBits    int
	Bits       [protoconst.MaxCompressedBits / 8]byte
}

// Encode delta-compresses pending (oldest first) against baseline,
// which must be the receiver's last-acknowledged input: baseline.Frame
// must be -1, or baseline.Frame+1 must equal pending[0].Frame.
func Encode(pending []GameInput, baseline GameInput) (Encoded, error) {
	var enc Encoded
	if len(pending) == 0 {
		return enc, nil
	}
	if baseline.Frame != -1 && baseline.Frame+1 != pending[0].Frame {
		return enc, fmt.Errorf("codec: baseline frame %d does not precede start frame %d", baseline.Frame, pending[0].Frame)
	}

	enc.StartFrame = pending[0].Frame
	enc.InputSize = pending[0].Size

	offset := 0
	last := baseline
	for _, current := range pending {
		if !current.Equal(last) {
			for i := 0; i < current.Size*8; i++ {
				if current.Value(i) != last.Value(i) {
					if err := bitio.SetBit(enc.Bits[:], &offset); err != nil {
						return enc, fmt.Errorf("codec: encode overflow: %w", err)
					}
					if err := bitio.WriteBit(enc.Bits[:], current.Value(i), &offset); err != nil {
						return enc, fmt.Errorf("codec: encode overflow: %w", err)
					}
					if err := bitio.WriteNibblet(enc.Bits[:], i, &offset); err != nil {
						return enc, fmt.Errorf("codec: encode overflow: %w", err)
					}
				}
			}
		}
		if err := bitio.ClearBit(enc.Bits[:], &offset); err != nil {
			return enc, fmt.Errorf("codec: encode overflow: %w", err)
		}
		last = current
	}

	enc.NumBits = offset
	if enc.NumBits >= protoconst.MaxCompressedBits {
		return enc, fmt.Errorf("codec: encoded %d bits exceeds MaxCompressedBits", enc.NumBits)
	}
	return enc, nil
}

// Decode walks the bitstream produced by Encode, applying deltas to a
// scratch buffer seeded from lastReceived, and invokes emit once per
// newly-decoded frame in ascending order. lastReceived is mutated in
// place to track the decoder's rolling state, matching §4.1's decode
// semantics (frames already delivered are skipped; each frame no more
// than once).
func Decode(startFrame int32, inputSize int, bits []byte, numBits int, lastReceived *GameInput, emit func(GameInput)) error {
	if numBits == 0 {
		return nil
	}
	if lastReceived.Frame < 0 {
		lastReceived.Frame = startFrame - 1
		lastReceived.Size = inputSize
	}

	offset := 0
	currentFrame := startFrame
	for offset < numBits {
		useInputs := currentFrame == lastReceived.Frame+1

		for {
			set, err := bitio.ReadBit(bits, &offset)
			if err != nil {
				return fmt.Errorf("codec: decode overflow reading control bit: %w", err)
			}
			if !set {
				break
			}
			on, err := bitio.ReadBit(bits, &offset)
			if err != nil {
				return fmt.Errorf("codec: decode overflow reading value bit: %w", err)
			}
			button, err := bitio.ReadNibblet(bits, &offset)
			if err != nil {
				return fmt.Errorf("codec: decode overflow reading nibblet: %w", err)
			}
			if useInputs {
				if on {
					lastReceived.Set(button)
				} else {
					lastReceived.Clear(button)
				}
			}
		}

		if useInputs {
			lastReceived.Frame = currentFrame
			if emit != nil {
				emit(*lastReceived)
			}
		}
		currentFrame++
	}
	return nil
}
