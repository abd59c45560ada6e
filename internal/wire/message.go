// Package wire implements the on-the-wire message header and body
// variants of spec.md §3 and §6: a 5-byte header (magic, sequence
// number, type) followed by a type-tagged body, all little-endian.
//
// Grounded on nishisan-dev-n-backup/internal/protocol's magic-prefixed
// Read*/Write* frame pairs (sentinel errors, io.Reader/io.Writer style)
// and ventosilenzioso-go-raknet/source/protocol/raknet.go's
// RakNetPacket/DataPacket header+body layout.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"peerproto-go/internal/peerstatus"
	"peerproto-go/internal/protoconst"
)

// Type tags a message body (§3).
type Type uint8

const (
	TypeSyncRequest Type = iota + 1
	TypeSyncReply
	TypeInput
	TypeInputAck
	TypeQualityReport
	TypeQualityReply
	TypeKeepAlive
)

func (t Type) String() string {
	switch t {
	case TypeSyncRequest:
		return "sync-request"
	case TypeSyncReply:
		return "sync-reply"
	case TypeInput:
		return "input"
	case TypeInputAck:
		return "input-ack"
	case TypeQualityReport:
		return "quality-report"
	case TypeQualityReply:
		return "quality-reply"
	case TypeKeepAlive:
		return "keep-alive"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// HeaderSize is the fixed on-wire size of Header.
const HeaderSize = 5

// Header precedes every message body.
type Header struct {
	Magic    uint16
	Sequence uint16
	Type     Type
}

// ErrInvalidType is returned by Decode on an unrecognized type tag.
var ErrInvalidType = errors.New("wire: invalid message type")

// ErrTruncated is returned when a buffer is shorter than its declared
// contents require.
var ErrTruncated = errors.New("wire: truncated message")

// Body is implemented by each of the seven message payloads.
type Body interface {
	Type() Type
	encode(buf *bytes.Buffer)
	decode(buf *bytes.Reader) error
}

// Message is a header plus its tagged body.
type Message struct {
	Header Header
	Body   Body
}

// SyncRequest {random_request}.
type SyncRequest struct {
	RandomRequest uint32
}

func (SyncRequest) Type() Type { return TypeSyncRequest }
func (b SyncRequest) encode(buf *bytes.Buffer) {
	binary.Write(buf, binary.LittleEndian, b.RandomRequest)
}
func (b *SyncRequest) decode(r *bytes.Reader) error {
	return binary.Read(r, binary.LittleEndian, &b.RandomRequest)
}

// SyncReply {random_reply}.
type SyncReply struct {
	RandomReply uint32
}

func (SyncReply) Type() Type { return TypeSyncReply }
func (b SyncReply) encode(buf *bytes.Buffer) {
	binary.Write(buf, binary.LittleEndian, b.RandomReply)
}
func (b *SyncReply) decode(r *bytes.Reader) error {
	return binary.Read(r, binary.LittleEndian, &b.RandomReply)
}

// Input {start_frame, input_size, ack_frame, num_bits, bits[...],
// disconnect_requested, peer_connect_status[MAX_PLAYERS]}.
//
// Only the first NumBits bits of Bits are meaningful; on the wire we
// trim the trailing unused bytes rather than sending the full
// MaxCompressedBits/8 capacity every packet.
type Input struct {
	StartFrame          int32
	InputSize           uint8
	AckFrame            int32
	NumBits             uint16
	Bits                [protoconst.MaxCompressedBits / 8]byte
	DisconnectRequested bool
	PeerConnectStatus   peerstatus.Table
}

func (Input) Type() Type { return TypeInput }

func (b Input) encode(buf *bytes.Buffer) {
	binary.Write(buf, binary.LittleEndian, b.StartFrame)
	buf.WriteByte(b.InputSize)
	binary.Write(buf, binary.LittleEndian, b.AckFrame)
	binary.Write(buf, binary.LittleEndian, b.NumBits)
	nBytes := (int(b.NumBits) + 7) / 8
	buf.Write(b.Bits[:nBytes])
	if b.DisconnectRequested {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	for _, s := range b.PeerConnectStatus {
		if s.Disconnected {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		binary.Write(buf, binary.LittleEndian, s.LastFrame)
	}
}

func (b *Input) decode(r *bytes.Reader) error {
	if err := binary.Read(r, binary.LittleEndian, &b.StartFrame); err != nil {
		return err
	}
	sz, err := r.ReadByte()
	if err != nil {
		return err
	}
	b.InputSize = sz
	if err := binary.Read(r, binary.LittleEndian, &b.AckFrame); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &b.NumBits); err != nil {
		return err
	}
	if int(b.NumBits) > protoconst.MaxCompressedBits {
		return fmt.Errorf("wire: num_bits %d exceeds MaxCompressedBits: %w", b.NumBits, ErrTruncated)
	}
	nBytes := (int(b.NumBits) + 7) / 8
	if _, err := io.ReadFull(r, b.Bits[:nBytes]); err != nil {
		return fmt.Errorf("wire: reading input bits: %w", err)
	}
	disc, err := r.ReadByte()
	if err != nil {
		return err
	}
	b.DisconnectRequested = disc != 0
	for i := range b.PeerConnectStatus {
		discByte, err := r.ReadByte()
		if err != nil {
			return err
		}
		b.PeerConnectStatus[i].Disconnected = discByte != 0
		if err := binary.Read(r, binary.LittleEndian, &b.PeerConnectStatus[i].LastFrame); err != nil {
			return err
		}
	}
	return nil
}

// InputAck {ack_frame}.
type InputAck struct {
	AckFrame int32
}

func (InputAck) Type() Type { return TypeInputAck }
func (b InputAck) encode(buf *bytes.Buffer) {
	binary.Write(buf, binary.LittleEndian, b.AckFrame)
}
func (b *InputAck) decode(r *bytes.Reader) error {
	return binary.Read(r, binary.LittleEndian, &b.AckFrame)
}

// QualityReport {ping_timestamp, frame_advantage}.
type QualityReport struct {
	PingTimestamp  uint32
	FrameAdvantage int32
}

func (QualityReport) Type() Type { return TypeQualityReport }
func (b QualityReport) encode(buf *bytes.Buffer) {
	binary.Write(buf, binary.LittleEndian, b.PingTimestamp)
	binary.Write(buf, binary.LittleEndian, b.FrameAdvantage)
}
func (b *QualityReport) decode(r *bytes.Reader) error {
	if err := binary.Read(r, binary.LittleEndian, &b.PingTimestamp); err != nil {
		return err
	}
	return binary.Read(r, binary.LittleEndian, &b.FrameAdvantage)
}

// QualityReply {pong_timestamp}.
type QualityReply struct {
	PongTimestamp uint32
}

func (QualityReply) Type() Type { return TypeQualityReply }
func (b QualityReply) encode(buf *bytes.Buffer) {
	binary.Write(buf, binary.LittleEndian, b.PongTimestamp)
}
func (b *QualityReply) decode(r *bytes.Reader) error {
	return binary.Read(r, binary.LittleEndian, &b.PongTimestamp)
}

// KeepAlive {} — no fields.
type KeepAlive struct{}

func (KeepAlive) Type() Type              { return TypeKeepAlive }
func (KeepAlive) encode(buf *bytes.Buffer) {}
func (b *KeepAlive) decode(r *bytes.Reader) error { return nil }

// Encode serializes a Message to its wire bytes.
func Encode(msg Message) ([]byte, error) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, msg.Header.Magic)
	binary.Write(&buf, binary.LittleEndian, msg.Header.Sequence)
	buf.WriteByte(byte(msg.Header.Type))
	msg.Body.encode(&buf)
	return buf.Bytes(), nil
}

// Decode parses wire bytes into a Message.
func Decode(data []byte) (Message, error) {
	if len(data) < HeaderSize {
		return Message{}, fmt.Errorf("wire: header: %w", ErrTruncated)
	}
	r := bytes.NewReader(data)
	var hdr Header
	binary.Read(r, binary.LittleEndian, &hdr.Magic)
	binary.Read(r, binary.LittleEndian, &hdr.Sequence)
	typeByte, _ := r.ReadByte()
	hdr.Type = Type(typeByte)

	var body Body
	switch hdr.Type {
	case TypeSyncRequest:
		body = &SyncRequest{}
	case TypeSyncReply:
		body = &SyncReply{}
	case TypeInput:
		body = &Input{}
	case TypeInputAck:
		body = &InputAck{}
	case TypeQualityReport:
		body = &QualityReport{}
	case TypeQualityReply:
		body = &QualityReply{}
	case TypeKeepAlive:
		body = &KeepAlive{}
	default:
		return Message{}, fmt.Errorf("wire: type %d: %w", hdr.Type, ErrInvalidType)
	}
	if err := body.decode(r); err != nil {
		return Message{}, fmt.Errorf("wire: decoding %s body: %w", hdr.Type, err)
	}
	return Message{Header: hdr, Body: body}, nil
}
