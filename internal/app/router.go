package app

import (
	"github.com/rs/zerolog/log"

	"github.com/parleyhq/parley/internal/core"
	"github.com/parleyhq/parley/internal/domain"
)

// Router fans transition outcomes out to connections. Delivery is
// fire-and-forget: a peer that cannot keep up or already disconnected is
// logged and skipped, never an error for the emitting side.
type Router struct {
	reg *Registry
}

func NewRouter(reg *Registry) *Router {
	return &Router{reg: reg}
}

func (r *Router) Unicast(sid core.SessionID, ev core.Event) {
	conn, ok := r.reg.Conn(sid)
	if !ok {
		log.Debug().Str("module", "app.router").Str("sid", string(sid)).Str("event", ev.EventType()).Msg("unicast to unknown session")
		return
	}
	r.send(conn, string(sid), ev)
}

func (r *Router) Broadcast(roomID domain.RoomID, ev core.Event) {
	for _, m := range r.reg.MembersOfRoom(roomID) {
		r.send(m.Conn, string(m.SID), ev)
	}
}

func (r *Router) send(conn core.SignalConnection, sid string, ev core.Event) {
	frame, err := core.EncodeEvent(ev)
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Str("event", ev.EventType()).Msg("encode event")
		return
	}
	if err := conn.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "app.router").Str("sid", sid).Str("event", ev.EventType()).Msg("dropped event")
	}
}
