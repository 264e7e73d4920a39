package core

import "github.com/parleyhq/parley/internal/domain"

// Frame is a raw payload delivered over a signal connection.
type Frame []byte

// SessionID identifies one live connection for its whole lifetime.
type SessionID string

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Notifier is the outbound side of a transition: either a single
// connection or every connection currently joined to a room.
// Delivery is fire-and-forget; failures never fail the transition.
type Notifier interface {
	Unicast(sid SessionID, ev Event)
	Broadcast(roomID domain.RoomID, ev Event)
}
