// Package peerstatus implements the per-remote-slot connect-status
// table gossiped inside every Input message (spec.md §3, §4.5): which
// peer slots are known to be disconnected, and the last frame each one
// reached. Both fields are monotone: LastFrame only rises, and
// Disconnected is sticky once set.
package peerstatus

import "peerproto-go/internal/protoconst"

// Status is one remote slot's connect status.
type Status struct {
	Disconnected bool
	LastFrame    int32
}

// Table is the fixed-size array gossiped in every Input message.
type Table [protoconst.MaxPlayers]Status

// NewTable returns a table with every slot's LastFrame seeded to -1,
// matching the original's peer_connect_status initialization.
func NewTable() Table {
	var t Table
	for i := range t {
		t[i].LastFrame = -1
	}
	return t
}

// Merge folds remote's gossip into t in place: Disconnected is
// OR'd (sticky), LastFrame takes the max (monotone non-decreasing).
//
// The original C++ additionally asserts remote[i].LastFrame >=
// t[i].LastFrame before this merge, which spec.md §9 flags as
// contradicting the max() merge that follows it; per that Open
// Question resolution, no such assertion is made here.
func (t *Table) Merge(remote Table) {
	for i := range t {
		t[i].Disconnected = t[i].Disconnected || remote[i].Disconnected
		if remote[i].LastFrame > t[i].LastFrame {
			t[i].LastFrame = remote[i].LastFrame
		}
	}
}

// Get returns the slot's last known frame and whether it is still
// connected, matching the original's GetPeerConnectStatus accessor.
func (t Table) Get(slot int) (lastFrame int32, connected bool) {
	s := t[slot]
	return s.LastFrame, !s.Disconnected
}
