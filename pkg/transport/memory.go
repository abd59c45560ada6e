package transport

import (
	"fmt"
	"sync"
)

// Memory is an in-process Transport: a direct address→endpoint
// registry with no network I/O. It stands in for the OS routing a
// real UDP transport relies on (delivering to the right socket by
// destination address) — the part of the demux HandlesMsg does not
// cover, since HandlesMsg only distinguishes among peers that already
// share one socket.
//
// Used by cmd/peerprotodemo and by internal/endpoint tests that want
// two live endpoints talking to each other without a socket.
//
// Grounded on ventosilenzioso-go-raknet/source/server/server.go's
// handleGamePacket, which looks up the destination player by address
// before applying a datagram.
type Memory struct {
	mu        sync.Mutex
	endpoints map[any]Dispatcher
}

// NewMemory constructs an empty in-process transport.
func NewMemory() *Memory {
	return &Memory{endpoints: make(map[any]Dispatcher)}
}

// Register makes ep reachable as the destination selfIdentity.
func (m *Memory) Register(selfIdentity any, ep Dispatcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.endpoints[selfIdentity] = ep
}

// Deregister removes the endpoint registered as selfIdentity.
func (m *Memory) Deregister(selfIdentity any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.endpoints, selfIdentity)
}

// SendTo delivers data to the endpoint registered as destIdentity.
func (m *Memory) SendTo(destIdentity any, data []byte) error {
	m.mu.Lock()
	target, ok := m.endpoints[destIdentity]
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("transport: no endpoint registered for destination %v", destIdentity)
	}
	return target.OnMessage(data)
}
