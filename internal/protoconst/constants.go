// Package protoconst holds the fixed constants the wire format, codec,
// and endpoint timers share, collected in one place so none of them
// drift out of sync (spec.md §6 "Constants").
package protoconst

import "time"

const (
	// NumSyncPackets is the number of matched SyncRequest/SyncReply
	// round trips that make up a handshake.
	NumSyncPackets = 5

	// MaxPlayers bounds the peer-connect-status gossip table.
	MaxPlayers = 4

	// GameInputMaxBytes bounds the size of one frame's input payload.
	GameInputMaxBytes = 8

	// MaxCompressedBits bounds the Input message's bit-packed payload.
	MaxCompressedBits = 4096

	// MaxSeqDistance is the wraparound threshold past which an inbound
	// sequence number is considered "behind" rather than "ahead".
	MaxSeqDistance = 1 << 15

	// SteamHeaderSize is the placeholder per-packet transport overhead
	// used in the bandwidth accounting (§4.6).
	SteamHeaderSize = 28
)

const (
	SyncFirstRetryInterval = 500 * time.Millisecond
	SyncRetryInterval      = 2000 * time.Millisecond
	RunningRetryInterval   = 200 * time.Millisecond
	KeepAliveInterval      = 200 * time.Millisecond
	QualityReportInterval  = 1000 * time.Millisecond
	NetworkStatsInterval   = 1000 * time.Millisecond
	ShutdownTimer          = 5000 * time.Millisecond
)

// AssumedFrameRateHz is the 60 Hz assumption behind the frame-advantage
// estimate in §4.6.
const AssumedFrameRateHz = 60
