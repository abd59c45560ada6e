// Package transport defines the external interfaces an endpoint
// consumes (spec.md §6): the send/demux contract, the clock and
// config contracts, and the time-sync advisor contract. It also
// provides real (non-test) implementations of the small Clock/Rng
// interfaces that internal/sendqueue and internal/endpoint accept by
// duck typing.
//
// Grounded on ventosilenzioso-go-raknet/source/server/server.go's
// net.UDPConn listen/dispatch loop, generalized here to an interface
// so the same endpoint code drives both real UDP and the in-memory
// Transport used by demos and tests.
package transport

import (
	"math/rand"
	"time"
)

// Transport is the contract an endpoint consumes to hand off framed
// bytes to a bound peer (§6 "send_to").
type Transport interface {
	SendTo(peerIdentity any, data []byte) error
}

// Dispatcher is implemented by *endpoint.Endpoint; kept here as a
// narrow interface so pkg/transport does not import internal/endpoint.
// HandlesMsg lets a real socket-sharing transport demux an inbound
// datagram by sender identity among several endpoints (§4.3); Memory
// does not need it since each endpoint gets its own registry slot.
type Dispatcher interface {
	HandlesMsg(peerIdentity any) bool
	OnMessage(data []byte) error
}

// Clock is a monotonically non-decreasing millisecond clock (§6
// "now_ms"). Also satisfies internal/sendqueue.Clock by duck typing.
type Clock interface {
	Now() time.Time
}

// Rng is the randomness source for jitter/OOP draws and nonce
// generation. Also satisfies internal/sendqueue.Rng by duck typing.
type Rng interface {
	Float64() float64
	Uint32() uint32
}

// TimeSync is the frame-delay advisor contract (§6).
type TimeSync interface {
	AdvanceFrame(input int32, localAdvantage, remoteAdvantage int32)
	RecommendFrameWaitDuration(requireIdleInput bool) int32
}

// SystemClock backs Clock with time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// MathRand backs Rng with math/rand's global source.
type MathRand struct{}

func (MathRand) Float64() float64 { return rand.Float64() }
func (MathRand) Uint32() uint32   { return rand.Uint32() }

// timeSyncWindow bounds how many AdvanceFrame samples BasicTimeSync
// averages over when recommending a frame wait duration.
const timeSyncWindow = 8

// BasicTimeSync is a minimal TimeSync advisor: it recommends waiting
// the rolling average of recent local frame advantage samples, which
// is the standard rollback-netcode technique for nudging a locally
// fast peer back toward parity with its slowest remote.
type BasicTimeSync struct {
	samples []int32
}

// NewBasicTimeSync constructs an advisor with no history.
func NewBasicTimeSync() *BasicTimeSync {
	return &BasicTimeSync{}
}

// AdvanceFrame records one local-frame-advantage sample.
func (t *BasicTimeSync) AdvanceFrame(input int32, localAdvantage, remoteAdvantage int32) {
	t.samples = append(t.samples, localAdvantage)
	if len(t.samples) > timeSyncWindow {
		t.samples = t.samples[len(t.samples)-timeSyncWindow:]
	}
}

// RecommendFrameWaitDuration returns the rolling average of recorded
// frame advantage samples, clamped to non-negative. requireIdleInput
// is accepted to satisfy the contract; this advisor ignores it.
func (t *BasicTimeSync) RecommendFrameWaitDuration(requireIdleInput bool) int32 {
	if len(t.samples) == 0 {
		return 0
	}
	var sum int32
	for _, s := range t.samples {
		sum += s
	}
	avg := sum / int32(len(t.samples))
	if avg < 0 {
		return 0
	}
	return avg
}

// ConfigSource is the integer config lookup contract (§6
// "config_int"), keyed as "network.delay" and "oop.percent".
type ConfigSource interface {
	ConfigInt(key string) int
}
