package endpoint

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	charmlog "github.com/charmbracelet/log"

	"peerproto-go/internal/codec"
	"peerproto-go/internal/metrics"
	"peerproto-go/internal/peerstatus"
	"peerproto-go/internal/protoconst"
	"peerproto-go/internal/sendqueue"
	"peerproto-go/internal/wire"
	"peerproto-go/pkg/logger"
)

// Phase is the endpoint's lifecycle state (§4.4), plus Latent for the
// window between Init and the first Synchronize call.
type Phase int

const (
	PhaseLatent Phase = iota
	PhaseSyncing
	PhaseRunning
	PhaseDisconnected
)

func (p Phase) String() string {
	switch p {
	case PhaseLatent:
		return "Latent"
	case PhaseSyncing:
		return "Syncing"
	case PhaseRunning:
		return "Running"
	case PhaseDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// Clock is a monotonically non-decreasing clock; satisfies
// transport.Clock and sendqueue.Clock by duck typing.
type Clock interface {
	Now() time.Time
}

// Rng supplies jitter draws and nonce generation; its method set is a
// strict superset of sendqueue.Rng so any Rng value can be passed
// wherever that narrower interface is expected.
type Rng interface {
	Float64() float64
	Uint32() uint32
}

// TimeSync is the frame-delay advisor contract (§6); satisfies
// transport.TimeSync by duck typing.
type TimeSync interface {
	AdvanceFrame(input int32, localAdvantage, remoteAdvantage int32)
	RecommendFrameWaitDuration(requireIdleInput bool) int32
}

// Config holds the per-endpoint shakeout and disconnect-policy
// settings, loaded once at construction (§3 "Shakeout config").
type Config struct {
	SendLatency           time.Duration
	OOPPercent            int
	DisconnectTimeout     time.Duration
	DisconnectNotifyStart time.Duration
}

// NetworkStats mirrors get_network_stats() (§4.6).
type NetworkStats struct {
	Ping               time.Duration
	SendQueueLen       int
	KbpsSent           float64
	RemoteFramesBehind int32
	LocalFramesBehind  int32
}

// errSyncReplyMismatch signals a SyncReply whose nonce did not match
// the pending challenge: dropped, not treated as a liveness signal,
// and retried by the tick driver (§9 open question resolution).
var errSyncReplyMismatch = errors.New("endpoint: sync reply nonce mismatch")

// Endpoint is one per-peer protocol instance. It is single-threaded
// cooperative: all mutation happens from Tick and OnMessage, called by
// a host-owned poll loop (§5). Not safe for concurrent use.
type Endpoint struct {
	clock    Clock
	rng      Rng
	sink     sendqueue.Sink
	queue    *sendqueue.Queue
	timesync TimeSync

	cfg Config

	bound        bool
	peerIdentity any
	localStatus  *peerstatus.Table
	queueID      int

	phase Phase

	magicNumber       uint16
	remoteMagicNumber uint16

	nextSendSeq uint16
	nextRecvSeq uint16

	lastSendTime             time.Time
	lastRecvTime             time.Time
	statsStartTime           time.Time
	lastInputPacketRecvTime  time.Time
	lastQualityReportTime    time.Time
	lastNetworkStatsInterval time.Time
	shutdownTimeout          time.Time

	roundtripsRemaining int
	randomChallenge     uint32

	packetsSent uint64
	bytesSent   uint64
	kbpsSent    float64

	roundTripTime        time.Duration
	localFrameAdvantage  int32
	remoteFrameAdvantage int32
	localFrameNumber     int32

	connected            bool
	disconnectNotifySent bool
	disconnectEventSent  bool

	pendingOutput     []codec.GameInput
	lastAckedInput    codec.GameInput
	lastReceivedInput codec.GameInput

	events eventQueue

	metrics *metrics.Collectors
	log     *charmlog.Logger
}

// New constructs an unbound endpoint. Call Init to bind it to a peer.
func New(sink sendqueue.Sink, clock Clock, rng Rng, timesync TimeSync, cfg Config) *Endpoint {
	e := &Endpoint{
		clock:    clock,
		rng:      rng,
		sink:     sink,
		timesync: timesync,
		cfg:      cfg,
	}
	e.queue = sendqueue.New(clock, rng, cfg.SendLatency, cfg.OOPPercent)
	e.lastAckedInput.Frame = -1
	e.lastReceivedInput.Frame = -1
	e.log = logger.With()
	return e
}

// SetMetrics wires a Prometheus collector bundle into the endpoint; the
// endpoint runs fine with no collector attached (Observe/Inc/Add calls
// are skipped when metrics is nil).
func (e *Endpoint) SetMetrics(m *metrics.Collectors) {
	e.metrics = m
}

// Init binds the endpoint to a peer identity and a non-owning
// reference to the host's local connect-status array (§3 lifecycle).
func (e *Endpoint) Init(peerIdentity any, localStatus *peerstatus.Table, queueID int) {
	e.peerIdentity = peerIdentity
	e.localStatus = localStatus
	e.queueID = queueID
	e.bound = true
	e.phase = PhaseLatent
	e.magicNumber = e.freshNonzeroMagic()
	e.log = logger.With("peer", peerIdentity, "queue", queueID)
}

func (e *Endpoint) queueIDLabel() string {
	return strconv.Itoa(e.queueID)
}

func (e *Endpoint) freshNonzeroMagic() uint16 {
	for {
		if v := uint16(e.rng.Uint32()); v != 0 {
			return v
		}
	}
}

// HandlesMsg reports whether this endpoint is bound to peerIdentity,
// matching the transport demux contract (§6).
func (e *Endpoint) HandlesMsg(peerIdentity any) bool {
	return e.bound && e.peerIdentity == peerIdentity
}

// Synchronize begins the handshake (§4.4).
func (e *Endpoint) Synchronize() {
	if !e.bound {
		return
	}
	e.phase = PhaseSyncing
	e.roundtripsRemaining = protoconst.NumSyncPackets
	e.sendNewSyncRequest()
}

func (e *Endpoint) sendNewSyncRequest() {
	e.randomChallenge = e.rng.Uint32()
	e.send(&wire.SyncRequest{RandomRequest: e.randomChallenge})
}

// Disconnect enters the Disconnected phase; idempotent (§5).
func (e *Endpoint) Disconnect() {
	if !e.bound {
		return
	}
	e.phase = PhaseDisconnected
	e.shutdownTimeout = e.clock.Now().Add(protoconst.ShutdownTimer)
}

func (e *Endpoint) unbind() {
	e.bound = false
	e.peerIdentity = nil
	e.localStatus = nil
	e.queue.Reset() // shutdown clears the queue and drops held messages without sending (§4.2)
}

// PollEvent returns the oldest queued event, matching poll_event()
// (§4.7).
func (e *Endpoint) PollEvent() (Event, bool) {
	return e.events.poll()
}

// SetLocalFrameNumber records the host's current simulation frame and
// recomputes local frame advantage (§4.6).
func (e *Endpoint) SetLocalFrameNumber(frame int32) {
	e.localFrameNumber = frame
	remoteFrame := e.lastReceivedInput.Frame + int32(e.roundTripTime.Milliseconds())*protoconst.AssumedFrameRateHz/1000
	e.localFrameAdvantage = remoteFrame - frame
}

// GetNetworkStats mirrors get_network_stats() (§4.6).
func (e *Endpoint) GetNetworkStats() NetworkStats {
	return NetworkStats{
		Ping:               e.roundTripTime,
		SendQueueLen:       len(e.pendingOutput),
		KbpsSent:           e.kbpsSent,
		RemoteFramesBehind: e.remoteFrameAdvantage,
		LocalFramesBehind:  e.localFrameAdvantage,
	}
}

// RecommendFrameDelay mirrors recommend_frame_delay() (§4.6): defers
// to the time-sync advisor with require_idle_input = false.
func (e *Endpoint) RecommendFrameDelay() int32 {
	return e.timesync.RecommendFrameWaitDuration(false)
}

// PeerConnectStatus reports the host-owned connect status of slot,
// matching the original's GetPeerConnectStatus accessor (a feature
// the distilled spec omitted; supplemented from steam_proto.cpp).
func (e *Endpoint) PeerConnectStatus(slot int) (lastFrame int32, connected bool) {
	if e.localStatus == nil {
		return -1, true
	}
	return e.localStatus.Get(slot)
}

// SendInput queues a local frame of input and attempts to transmit
// pending output immediately. This mirrors the original's SendInput
// (queue) calling straight into SendPendingOutput (transmit) rather
// than waiting for the next tick — a split the distilled spec's
// "Pending output" data model implies but does not narrate
// end-to-end; supplemented here from steam_proto.cpp.
func (e *Endpoint) SendInput(frame int32, data []byte) error {
	if !e.bound {
		return nil
	}
	gi := codec.NewGameInput(frame, data)
	if e.phase == PhaseRunning {
		e.timesync.AdvanceFrame(gi.Frame, e.localFrameAdvantage, e.remoteFrameAdvantage)
	}
	if n := len(e.pendingOutput); n > 0 {
		last := e.pendingOutput[n-1]
		if gi.Frame != last.Frame+1 {
			return fmt.Errorf("endpoint: input frame %d is not consecutive with pending tail %d", gi.Frame, last.Frame)
		}
	} else if e.lastAckedInput.Frame >= 0 && gi.Frame != e.lastAckedInput.Frame+1 {
		return fmt.Errorf("endpoint: input frame %d is not consecutive with last acked %d", gi.Frame, e.lastAckedInput.Frame)
	}
	e.pendingOutput = append(e.pendingOutput, gi)
	return e.sendPendingOutput()
}

func (e *Endpoint) sendPendingOutput() error {
	if len(e.pendingOutput) == 0 {
		return nil
	}
	enc, err := codec.Encode(e.pendingOutput, e.lastAckedInput)
	if err != nil {
		return fmt.Errorf("endpoint: encoding pending output: %w", err)
	}
	body := &wire.Input{
		StartFrame:          enc.StartFrame,
		InputSize:           uint8(enc.InputSize),
		AckFrame:            e.lastReceivedInput.Frame,
		NumBits:             uint16(enc.NumBits),
		Bits:                enc.Bits,
		DisconnectRequested: e.phase == PhaseDisconnected,
	}
	if e.localStatus != nil {
		body.PeerConnectStatus = *e.localStatus
	}
	return e.send(body)
}

// send stamps the outbound header, updates counters, and hands the
// framed bytes to the send pipeline (§4.2 steps 1-3).
func (e *Endpoint) send(body wire.Body) error {
	if !e.bound {
		return nil
	}
	hdr := wire.Header{Magic: e.magicNumber, Sequence: e.nextSendSeq, Type: body.Type()}
	e.nextSendSeq++

	data, err := wire.Encode(wire.Message{Header: hdr, Body: body})
	if err != nil {
		return fmt.Errorf("endpoint: encoding %s: %w", body.Type(), err)
	}
	e.packetsSent++
	e.bytesSent += uint64(len(data))
	e.lastSendTime = e.clock.Now()
	if e.metrics != nil {
		e.metrics.IncPacketsSent(e.queueIDLabel())
		e.metrics.AddBytesSent(e.queueIDLabel(), float64(len(data)))
	}
	e.log.Debug("send", "type", body.Type(), "seq", hdr.Sequence, "bytes", len(data))
	e.queue.Enqueue(e.peerIdentity, data)
	return e.queue.Drain(e.sink)
}

func (e *Endpoint) nowMillis() uint32 {
	return uint32(e.clock.Now().UnixMilli())
}

// OnMessage is the receive dispatcher entry point (§4.3): sequence and
// magic filtering, then type dispatch.
func (e *Endpoint) OnMessage(data []byte) error {
	if !e.bound {
		return nil
	}
	msg, err := wire.Decode(data)
	if err != nil {
		e.log.Warn("dropping malformed message", "err", err)
		return nil // malformed/invalid type: drop + log (§7)
	}

	isSync := msg.Header.Type == wire.TypeSyncRequest || msg.Header.Type == wire.TypeSyncReply
	if !isSync {
		if msg.Header.Magic != e.remoteMagicNumber {
			e.log.Warn("dropping message with bad magic", "type", msg.Header.Type)
			return nil // protocol mismatch: silent drop (§7)
		}
		skipped := msg.Header.Sequence - e.nextRecvSeq // unsigned wraparound distance
		if skipped > protoconst.MaxSeqDistance {
			e.log.Debug("dropping out-of-order message", "seq", msg.Header.Sequence, "expected", e.nextRecvSeq)
			return nil // out-of-order/behind: drop (§7)
		}
		e.nextRecvSeq = msg.Header.Sequence
	}

	var handlerErr error
	switch b := msg.Body.(type) {
	case *wire.SyncRequest:
		handlerErr = e.onSyncRequest(msg.Header, b)
	case *wire.SyncReply:
		handlerErr = e.onSyncReply(msg.Header, b)
	case *wire.Input:
		handlerErr = e.onInput(b)
	case *wire.InputAck:
		handlerErr = e.onInputAck(b)
	case *wire.QualityReport:
		handlerErr = e.onQualityReport(b)
	case *wire.QualityReply:
		handlerErr = e.onQualityReply(b)
	case *wire.KeepAlive:
		handlerErr = nil
	}

	if errors.Is(handlerErr, errSyncReplyMismatch) {
		return nil // sync mismatch: drop, continue retrying, no liveness credit
	}
	if handlerErr != nil {
		return handlerErr
	}

	e.lastRecvTime = e.clock.Now()
	if e.disconnectNotifySent && e.phase == PhaseRunning {
		e.events.push(Event{Kind: EventNetworkResumed})
		e.disconnectNotifySent = false
	}
	return nil
}

func (e *Endpoint) onSyncRequest(hdr wire.Header, b *wire.SyncRequest) error {
	if e.remoteMagicNumber != 0 && hdr.Magic != e.remoteMagicNumber {
		return nil
	}
	return e.send(&wire.SyncReply{RandomReply: b.RandomRequest})
}

func (e *Endpoint) onSyncReply(hdr wire.Header, b *wire.SyncReply) error {
	if e.phase != PhaseSyncing {
		return nil
	}
	if b.RandomReply != e.randomChallenge {
		return errSyncReplyMismatch
	}
	if !e.connected {
		e.events.push(Event{Kind: EventConnected})
		e.connected = true
	}
	e.roundtripsRemaining--
	if e.roundtripsRemaining == 0 {
		e.remoteMagicNumber = hdr.Magic
		e.lastReceivedInput.Frame = -1
		e.events.push(Event{Kind: EventSynchronized})
		e.phase = PhaseRunning
		return nil
	}
	e.events.push(Event{
		Kind:      EventSynchronizing,
		SyncTotal: protoconst.NumSyncPackets,
		SyncCount: protoconst.NumSyncPackets - e.roundtripsRemaining,
	})
	e.sendNewSyncRequest()
	return nil
}

func (e *Endpoint) onInput(b *wire.Input) error {
	if b.DisconnectRequested && e.phase != PhaseDisconnected && !e.disconnectEventSent {
		e.events.push(Event{Kind: EventDisconnected})
		e.disconnectEventSent = true
	}
	if e.localStatus != nil {
		e.localStatus.Merge(b.PeerConnectStatus)
	}

	err := codec.Decode(b.StartFrame, int(b.InputSize), b.Bits[:], int(b.NumBits), &e.lastReceivedInput, func(gi codec.GameInput) {
		e.events.push(Event{
			Kind: EventInput,
			Input: GameInputEvent{
				Frame: gi.Frame,
				Size:  gi.Size,
				Bits:  append([]byte(nil), gi.Bits[:gi.Size]...),
			},
		})
		e.lastInputPacketRecvTime = e.clock.Now()
	})
	if err != nil {
		return fmt.Errorf("endpoint: decoding input stream: %w", err)
	}

	e.pruneAcked(b.AckFrame)

	// Acks normally piggyback on our own outbound Input.ack_frame; with
	// nothing of our own queued to send, ack explicitly so the peer's
	// pending output still gets pruned promptly.
	if len(e.pendingOutput) == 0 {
		return e.send(&wire.InputAck{AckFrame: e.lastReceivedInput.Frame})
	}
	return nil
}

func (e *Endpoint) onInputAck(b *wire.InputAck) error {
	e.pruneAcked(b.AckFrame)
	return nil
}

func (e *Endpoint) pruneAcked(ackFrame int32) {
	for len(e.pendingOutput) > 0 && e.pendingOutput[0].Frame < ackFrame {
		e.lastAckedInput = e.pendingOutput[0]
		e.pendingOutput = e.pendingOutput[1:]
	}
}

func (e *Endpoint) onQualityReport(b *wire.QualityReport) error {
	e.remoteFrameAdvantage = b.FrameAdvantage
	return e.send(&wire.QualityReply{PongTimestamp: b.PingTimestamp})
}

func (e *Endpoint) onQualityReply(b *wire.QualityReply) error {
	now := e.nowMillis()
	e.roundTripTime = time.Duration(now-b.PongTimestamp) * time.Millisecond
	return nil
}

// Tick drives retransmits, keep-alives, quality/stats sampling, and
// disconnect checks (§4.4 "Tick driver"). Intended to be called at a
// cadence fine enough to honor KEEP_ALIVE_INTERVAL.
func (e *Endpoint) Tick() {
	if !e.bound {
		return
	}
	e.queue.Drain(e.sink)
	now := e.clock.Now()

	switch e.phase {
	case PhaseSyncing:
		e.tickSyncing(now)
	case PhaseRunning:
		e.tickRunning(now)
	case PhaseDisconnected:
		if !e.shutdownTimeout.IsZero() && now.After(e.shutdownTimeout) {
			e.unbind()
		}
	}
}

func (e *Endpoint) tickSyncing(now time.Time) {
	nextInterval := protoconst.SyncRetryInterval
	if e.roundtripsRemaining == protoconst.NumSyncPackets {
		nextInterval = protoconst.SyncFirstRetryInterval
	}
	if !e.lastSendTime.IsZero() && now.After(e.lastSendTime.Add(nextInterval)) {
		e.send(&wire.SyncRequest{RandomRequest: e.randomChallenge})
	}
}

func (e *Endpoint) tickRunning(now time.Time) {
	if e.lastInputPacketRecvTime.IsZero() || now.After(e.lastInputPacketRecvTime.Add(protoconst.RunningRetryInterval)) {
		e.sendPendingOutput()
		e.lastInputPacketRecvTime = now
	}
	if e.lastQualityReportTime.IsZero() || now.After(e.lastQualityReportTime.Add(protoconst.QualityReportInterval)) {
		e.send(&wire.QualityReport{PingTimestamp: e.nowMillis(), FrameAdvantage: e.localFrameAdvantage})
		e.lastQualityReportTime = now
	}
	if e.lastNetworkStatsInterval.IsZero() || now.After(e.lastNetworkStatsInterval.Add(protoconst.NetworkStatsInterval)) {
		e.sampleStats(now)
		e.lastNetworkStatsInterval = now
	}
	if e.lastSendTime.IsZero() || now.After(e.lastSendTime.Add(protoconst.KeepAliveInterval)) {
		e.send(&wire.KeepAlive{})
	}

	if e.cfg.DisconnectTimeout > 0 && e.cfg.DisconnectNotifyStart > 0 && !e.disconnectNotifySent &&
		now.After(e.lastRecvTime.Add(e.cfg.DisconnectNotifyStart)) {
		remaining := e.cfg.DisconnectTimeout - e.cfg.DisconnectNotifyStart
		e.events.push(Event{Kind: EventNetworkInterrupted, DisconnectTimeoutRemaining: int32(remaining.Milliseconds())})
		e.disconnectNotifySent = true
		e.log.Warn("network interrupted", "remaining", remaining)
	}
	if e.cfg.DisconnectTimeout > 0 && now.After(e.lastRecvTime.Add(e.cfg.DisconnectTimeout)) && !e.disconnectEventSent {
		e.events.push(Event{Kind: EventDisconnected})
		e.disconnectEventSent = true
		e.log.Error("peer disconnected: no traffic within timeout")
	}
}

func (e *Endpoint) sampleStats(now time.Time) {
	if e.statsStartTime.IsZero() {
		e.statsStartTime = now
		return
	}
	elapsedSec := now.Sub(e.statsStartTime).Seconds()
	if elapsedSec <= 0 {
		return
	}
	overhead := protoconst.SteamHeaderSize * e.packetsSent
	e.kbpsSent = float64(e.bytesSent+overhead) / elapsedSec / 1024

	if e.metrics != nil {
		e.metrics.Observe(metrics.Sample{
			QueueID:              e.queueIDLabel(),
			RoundTripMillis:      float64(e.roundTripTime.Milliseconds()),
			KbpsSent:             e.kbpsSent,
			LocalFrameAdvantage:  e.localFrameAdvantage,
			RemoteFrameAdvantage: e.remoteFrameAdvantage,
			SendQueueLen:         len(e.pendingOutput),
		})
	}
}

// Phase reports the current lifecycle phase, mainly for tests and
// diagnostics.
func (e *Endpoint) Phase() Phase { return e.phase }
