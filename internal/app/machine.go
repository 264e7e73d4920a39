package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/parleyhq/parley/internal/core"
	"github.com/parleyhq/parley/internal/domain"
	"github.com/parleyhq/parley/internal/store"
)

// Machine is the authoritative room lifecycle logic. Every transition
// re-reads the current room document under a per-room lock, so a join and
// a concurrent owner disconnect can never both succeed.
type Machine struct {
	store  store.RoomStore
	reg    *Registry
	notify core.Notifier
	locks  *roomLocks
	now    func() time.Time
}

func NewMachine(st store.RoomStore, reg *Registry, notify core.Notifier) *Machine {
	return &Machine{
		store:  st,
		reg:    reg,
		notify: notify,
		locks:  newRoomLocks(),
		now:    time.Now,
	}
}

// CreateRoom opens a new room owned by wallet. The owner index in the
// store guarantees one live room per owner wallet.
func (m *Machine) CreateRoom(ctx context.Context, sid core.SessionID, wallet domain.Wallet, label string) error {
	if _, _, bound := m.reg.Lookup(sid); bound {
		return domain.ErrAlreadyInRoom
	}
	owner, err := domain.NewParty(wallet, m.now().Unix())
	if err != nil {
		return err
	}

	room, err := m.store.CreateRoom(ctx, owner, domain.TrimLabel(label))
	if err != nil {
		return mapStoreErr(err)
	}
	if err := m.reg.BindRoom(sid, room.ID, wallet); err != nil {
		// the connection raced away; do not leave an ownerless document
		if delErr := m.store.DeleteRoom(ctx, room.ID); delErr != nil && !errors.Is(delErr, store.ErrNotFound) {
			log.Error().Err(delErr).Str("module", "app.machine").Str("room", string(room.ID)).Msg("orphan room cleanup failed")
		}
		return err
	}

	log.Info().Str("module", "app.machine").Str("sid", string(sid)).Str("room", string(room.ID)).Str("wallet", string(wallet)).Msg("room created")
	m.notify.Unicast(sid, core.RoomCreated{RoomID: room.ID, Label: room.Label, Timestamp: owner.ConnectedAt})
	return nil
}

// JoinRoom fills the participant slot of an owned room.
func (m *Machine) JoinRoom(ctx context.Context, sid core.SessionID, wallet domain.Wallet, roomID domain.RoomID) error {
	if _, _, bound := m.reg.Lookup(sid); bound {
		return domain.ErrAlreadyInRoom
	}
	participant, err := domain.NewParty(wallet, m.now().Unix())
	if err != nil {
		return err
	}

	rl := m.locks.Acquire(roomID)
	defer m.locks.Release(roomID, rl)

	room, err := m.store.GetRoom(ctx, roomID)
	if err != nil {
		return mapStoreErr(err)
	}
	if room.IsOwner(wallet) {
		return domain.ErrSelfJoin
	}
	if room.Occupied() {
		return domain.ErrRoomFull
	}
	if err := m.store.SetParticipant(ctx, roomID, &participant); err != nil {
		return mapStoreErr(err)
	}
	if err := m.reg.BindRoom(sid, roomID, wallet); err != nil {
		if clrErr := m.store.SetParticipant(ctx, roomID, nil); clrErr != nil && !errors.Is(clrErr, store.ErrNotFound) {
			log.Error().Err(clrErr).Str("module", "app.machine").Str("room", string(roomID)).Msg("participant rollback failed")
		}
		return err
	}

	log.Info().Str("module", "app.machine").Str("sid", string(sid)).Str("room", string(roomID)).Str("wallet", string(wallet)).Msg("participant joined")
	m.notify.Broadcast(roomID, core.ParticipantJoined{RoomID: roomID, Wallet: wallet})
	m.notify.Unicast(sid, core.OwnerConnected{RoomID: roomID, Owner: room.Owner.Address})
	m.notify.Unicast(sid, core.RoomConnected{RoomID: roomID, Label: room.Label, Timestamp: participant.ConnectedAt})
	return nil
}

// SendMessage relays a chat message to the sender's current room.
// Nothing is persisted; the sender receives its own message back.
func (m *Machine) SendMessage(sid core.SessionID, wallet domain.Wallet, message string) error {
	roomID, bound, ok := m.reg.Lookup(sid)
	if !ok {
		return domain.ErrNotInRoom
	}
	if bound != wallet {
		return domain.ErrUnauthorized
	}
	m.notify.Broadcast(roomID, core.MessageSent{
		RoomID:    roomID,
		Wallet:    wallet,
		Message:   message,
		Timestamp: m.now().Unix(),
	})
	return nil
}

// ChangeAllowance flips the accepted flag of the party matching wallet,
// and never the other party's.
func (m *Machine) ChangeAllowance(ctx context.Context, wallet domain.Wallet, roomID domain.RoomID, approved bool) error {
	rl := m.locks.Acquire(roomID)
	defer m.locks.Release(roomID, rl)

	room, err := m.store.GetRoom(ctx, roomID)
	if err != nil {
		return mapStoreErr(err)
	}
	if !room.IsOwner(wallet) && !room.IsParticipant(wallet) {
		return domain.ErrUnauthorized
	}
	if err := m.store.SetAcceptance(ctx, roomID, wallet, approved); err != nil {
		return mapStoreErr(err)
	}

	log.Info().Str("module", "app.machine").Str("room", string(roomID)).Str("wallet", string(wallet)).Bool("approved", approved).Msg("allowance changed")
	m.notify.Broadcast(roomID, core.AllowanceChanged{RoomID: roomID, Wallet: wallet, Approved: approved})
	return nil
}

// LeaveRoom handles an explicit departure. Leaving twice, or leaving a
// room that already vanished, is a silent no-op since an explicit leave
// can race the same client's disconnect.
func (m *Machine) LeaveRoom(ctx context.Context, sid core.SessionID, wallet domain.Wallet, roomID domain.RoomID) error {
	return m.depart(ctx, sid, wallet, roomID)
}

// Disconnect resolves the acting wallet through the session binding and
// runs the same departure path as an explicit leave. A connection that
// never entered a room just gets unregistered.
func (m *Machine) Disconnect(ctx context.Context, sid core.SessionID) error {
	defer m.reg.Unbind(sid)
	roomID, wallet, ok := m.reg.Lookup(sid)
	if !ok {
		return nil
	}
	return m.depart(ctx, sid, wallet, roomID)
}

func (m *Machine) depart(ctx context.Context, sid core.SessionID, wallet domain.Wallet, roomID domain.RoomID) error {
	rl := m.locks.Acquire(roomID)
	defer m.locks.Release(roomID, rl)

	room, err := m.store.GetRoom(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		m.clearBinding(sid, roomID)
		return nil
	}
	if err != nil {
		return err
	}

	switch {
	case room.IsOwner(wallet):
		// owner departure destroys the room; the participant must treat
		// room_dropped as terminal
		m.clearBinding(sid, roomID)
		m.notify.Broadcast(roomID, core.RoomDropped{RoomID: roomID})
		if err := m.store.DeleteRoom(ctx, roomID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		for _, mem := range m.reg.MembersOfRoom(roomID) {
			m.reg.ClearRoom(mem.SID)
		}
		log.Info().Str("module", "app.machine").Str("room", string(roomID)).Str("wallet", string(wallet)).Msg("room dropped")

	case room.IsParticipant(wallet):
		if err := m.store.SetParticipant(ctx, roomID, nil); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		m.clearBinding(sid, roomID)
		m.notify.Broadcast(roomID, core.ParticipantLeft{RoomID: roomID, Wallet: wallet})
		log.Info().Str("module", "app.machine").Str("room", string(roomID)).Str("wallet", string(wallet)).Msg("participant left")

	default:
		// already-departed race: the wallet is no longer either party
		m.clearBinding(sid, roomID)
	}
	return nil
}

// clearBinding drops the session's room binding only if it still points
// at roomID; an explicit leave may name a room the connection never held.
func (m *Machine) clearBinding(sid core.SessionID, roomID domain.RoomID) {
	if bound, _, ok := m.reg.Lookup(sid); ok && bound == roomID {
		m.reg.ClearRoom(sid)
	}
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.ErrRoomNotFound
	case errors.Is(err, store.ErrDuplicateOwner):
		return domain.ErrDuplicateOwner
	case errors.Is(err, store.ErrNotMember):
		return domain.ErrUnauthorized
	default:
		return err
	}
}
