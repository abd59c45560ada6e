package wire

import (
	"testing"

	"peerproto-go/internal/peerstatus"
)

func TestSyncRequestRoundTrip(t *testing.T) {
	msg := Message{
		Header: Header{Magic: 0x4217, Sequence: 1, Type: TypeSyncRequest},
		Body:   &SyncRequest{RandomRequest: 0xdeadbeef},
	}
	data, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Header != msg.Header {
		t.Errorf("header = %+v, want %+v", got.Header, msg.Header)
	}
	body, ok := got.Body.(*SyncRequest)
	if !ok {
		t.Fatalf("body type = %T, want *SyncRequest", got.Body)
	}
	if body.RandomRequest != 0xdeadbeef {
		t.Errorf("RandomRequest = %#x, want 0xdeadbeef", body.RandomRequest)
	}
}

func TestInputRoundTripTrimsUnusedBits(t *testing.T) {
	status := peerstatus.NewTable()
	status[1].Disconnected = true
	status[1].LastFrame = 42

	in := &Input{
		StartFrame:          100,
		InputSize:           1,
		AckFrame:            99,
		NumBits:             9,
		DisconnectRequested: true,
		PeerConnectStatus:   status,
	}
	in.Bits[0] = 0xff

	msg := Message{Header: Header{Magic: 0x4217, Sequence: 7, Type: TypeInput}, Body: in}
	data, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Header(5) + start_frame(4) + input_size(1) + ack_frame(4) +
	// num_bits(2) + ceil(9/8)=2 bits bytes + disconnect(1) + 4*(1+4)=20.
	wantLen := HeaderSize + 4 + 1 + 4 + 2 + 2 + 1 + 20
	if len(data) != wantLen {
		t.Errorf("encoded length = %d, want %d", len(data), wantLen)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	body, ok := got.Body.(*Input)
	if !ok {
		t.Fatalf("body type = %T, want *Input", got.Body)
	}
	if body.StartFrame != 100 || body.AckFrame != 99 || body.NumBits != 9 {
		t.Errorf("got %+v", body)
	}
	if !body.DisconnectRequested {
		t.Error("DisconnectRequested lost in round trip")
	}
	if lastFrame, connected := body.PeerConnectStatus.Get(1); lastFrame != 42 || connected {
		t.Errorf("PeerConnectStatus[1] = (%d, connected=%v), want (42, false)", lastFrame, connected)
	}
	if body.Bits[0] != 0xff {
		t.Errorf("Bits[0] = %#x, want 0xff", body.Bits[0])
	}
}

func TestKeepAliveRoundTrip(t *testing.T) {
	msg := Message{Header: Header{Magic: 0x4217, Sequence: 3, Type: TypeKeepAlive}, Body: &KeepAlive{}}
	data, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(data) != HeaderSize {
		t.Errorf("encoded length = %d, want %d (header only)", len(data), HeaderSize)
	}
	if _, err := Decode(data); err != nil {
		t.Fatalf("Decode: %v", err)
	}
}

func TestDecodeRejectsTruncatedHeader(t *testing.T) {
	if _, err := Decode([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error decoding a buffer shorter than the header")
	}
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	msg := Message{Header: Header{Magic: 0x4217, Sequence: 1, Type: TypeKeepAlive}, Body: &KeepAlive{}}
	data, _ := Encode(msg)
	data[4] = 0xff // stomp the type byte
	if _, err := Decode(data); err == nil {
		t.Fatal("expected error decoding an unknown type tag")
	}
}

func TestQualityReportReplyRoundTrip(t *testing.T) {
	report := Message{
		Header: Header{Magic: 0x4217, Sequence: 9, Type: TypeQualityReport},
		Body:   &QualityReport{PingTimestamp: 123456, FrameAdvantage: -3},
	}
	data, err := Encode(report)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	body := got.Body.(*QualityReport)
	if body.PingTimestamp != 123456 || body.FrameAdvantage != -3 {
		t.Errorf("got %+v", body)
	}

	reply := Message{
		Header: Header{Magic: 0x4217, Sequence: 10, Type: TypeQualityReply},
		Body:   &QualityReply{PongTimestamp: 654321},
	}
	data, err = Encode(reply)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err = Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	replyBody := got.Body.(*QualityReply)
	if replyBody.PongTimestamp != 654321 {
		t.Errorf("PongTimestamp = %d, want 654321", replyBody.PongTimestamp)
	}
}
