package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/parleyhq/parley/internal/core"
	"github.com/parleyhq/parley/internal/domain"
)

type sessionEntry struct {
	Conn   core.SignalConnection
	Wallet domain.Wallet
	RoomID domain.RoomID
	Cancel context.CancelFunc
}

// Registry tracks every live connection and, once the connection has
// created or joined a room, the wallet and room it is bound to. It is the
// only place that answers "who left" on an ungraceful disconnect.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[core.SessionID]*sessionEntry)}
}

// Register records a fresh connection with no room binding yet.
func (r *Registry) Register(sid core.SessionID, conn core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{Conn: conn, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("registered session")
}

// BindRoom associates a connection with the room it created or joined.
// A connection is bound to at most one room at a time.
func (r *Registry) BindRoom(sid core.SessionID, roomID domain.RoomID, wallet domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[sid]
	if !ok {
		return domain.ErrNotInRoom
	}
	if entry.RoomID != "" {
		return domain.ErrAlreadyInRoom
	}
	entry.RoomID = roomID
	entry.Wallet = wallet
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(roomID)).Str("wallet", string(wallet)).Msg("bound room")
	return nil
}

// Lookup resolves the room and wallet a connection is bound to.
func (r *Registry) Lookup(sid core.SessionID) (domain.RoomID, domain.Wallet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sessions[sid]
	if !ok || entry.RoomID == "" {
		return "", "", false
	}
	return entry.RoomID, entry.Wallet, true
}

// Conn returns the transport endpoint of a registered connection.
func (r *Registry) Conn(sid core.SessionID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sessions[sid]
	if !ok {
		return nil, false
	}
	return entry.Conn, true
}

type memberSnap struct {
	SID  core.SessionID
	Conn core.SignalConnection
}

// MembersOfRoom snapshots every connection currently bound to a room.
func (r *Registry) MembersOfRoom(roomID domain.RoomID) []memberSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]memberSnap, 0, 2)
	for sid, e := range r.sessions {
		if e.RoomID == roomID {
			out = append(out, memberSnap{SID: sid, Conn: e.Conn})
		}
	}
	return out
}

// ClearRoom drops the room binding but keeps the connection registered,
// so the peer still receives error events after its room is gone.
func (r *Registry) ClearRoom(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.sessions[sid]; ok {
		entry.RoomID = ""
		entry.Wallet = ""
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("cleared room binding")
}

// Unbind forgets the connection entirely.
func (r *Registry) Unbind(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbound session")
}

// Cancel aborts the connection's pumps, if it is still registered.
func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	return true
}
