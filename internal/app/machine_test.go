package app_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/internal/app"
	"github.com/parleyhq/parley/internal/core"
	"github.com/parleyhq/parley/internal/domain"
	"github.com/parleyhq/parley/internal/store"
)

type nopConn struct{}

func (nopConn) TrySend(core.Frame) error { return nil }
func (nopConn) Close()                   {}

type recorded struct {
	Unicast bool
	SID     core.SessionID
	RoomID  domain.RoomID
	Event   core.Event
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recorded
}

func (n *recordingNotifier) Unicast(sid core.SessionID, ev core.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recorded{Unicast: true, SID: sid, Event: ev})
}

func (n *recordingNotifier) Broadcast(roomID domain.RoomID, ev core.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recorded{RoomID: roomID, Event: ev})
}

func (n *recordingNotifier) ofType(eventType string) []recorded {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []recorded
	for _, r := range n.events {
		if r.Event.EventType() == eventType {
			out = append(out, r)
		}
	}
	return out
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = nil
}

type fixture struct {
	st      *store.MemoryRoomStore
	reg     *app.Registry
	notify  *recordingNotifier
	machine *app.Machine
}

func newFixture() *fixture {
	st := store.NewMemoryRoomStore()
	reg := app.NewRegistry()
	notify := &recordingNotifier{}
	return &fixture{
		st:      st,
		reg:     reg,
		notify:  notify,
		machine: app.NewMachine(st, reg, notify),
	}
}

func (f *fixture) connect(sid core.SessionID) {
	f.reg.Register(sid, nopConn{}, nil)
}

// createRoom is a helper for tests that need an existing room.
func (f *fixture) createRoom(t *testing.T, sid core.SessionID, wallet domain.Wallet, label string) domain.RoomID {
	t.Helper()
	f.connect(sid)
	require.NoError(t, f.machine.CreateRoom(context.Background(), sid, wallet, label))
	roomID, _, ok := f.reg.Lookup(sid)
	require.True(t, ok)
	return roomID
}

func TestCreateRoom(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	roomID := f.createRoom(t, "s1", "0xA", "Demo")

	room, ok, err := f.st.FindRoomByOwner(ctx, "0xA")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, roomID, room.ID)
	assert.Equal(t, "Demo", room.Label)
	assert.Equal(t, domain.Wallet("0xA"), room.Owner.Address)
	assert.False(t, room.Owner.Accepted)
	assert.Greater(t, room.Owner.ConnectedAt, int64(0))
	assert.Nil(t, room.Participant)

	created := f.notify.ofType("room_created")
	require.Len(t, created, 1)
	assert.True(t, created[0].Unicast)
	assert.Equal(t, core.SessionID("s1"), created[0].SID)
	ev := created[0].Event.(core.RoomCreated)
	assert.Equal(t, roomID, ev.RoomID)
	assert.Equal(t, "Demo", ev.Label)
}

func TestCreateRoomDuplicateOwner(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	roomID := f.createRoom(t, "s1", "0xA", "first")

	f.connect("s2")
	err := f.machine.CreateRoom(ctx, "s2", "0xA", "second")
	assert.ErrorIs(t, err, domain.ErrDuplicateOwner)

	// the first room is unmodified
	room, err := f.st.GetRoom(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, "first", room.Label)
	assert.Equal(t, domain.Wallet("0xA"), room.Owner.Address)

	// the refused connection stays unbound
	_, _, ok := f.reg.Lookup("s2")
	assert.False(t, ok)
}

func TestCreateRoomWhileBound(t *testing.T) {
	f := newFixture()
	f.createRoom(t, "s1", "0xA", "Demo")

	err := f.machine.CreateRoom(context.Background(), "s1", "0xZ", "another")
	assert.ErrorIs(t, err, domain.ErrAlreadyInRoom)
}

func TestCreateRoomEmptyWallet(t *testing.T) {
	f := newFixture()
	f.connect("s1")

	err := f.machine.CreateRoom(context.Background(), "s1", "", "Demo")
	assert.ErrorIs(t, err, domain.ErrWalletEmpty)
}

func TestJoinRoomSelfJoin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	roomID := f.createRoom(t, "s1", "0xA", "Demo")

	f.connect("s2")
	err := f.machine.JoinRoom(ctx, "s2", "0xA", roomID)
	assert.ErrorIs(t, err, domain.ErrSelfJoin)

	room, err := f.st.GetRoom(ctx, roomID)
	require.NoError(t, err)
	assert.Nil(t, room.Participant)
}

func TestJoinRoomFull(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	roomID := f.createRoom(t, "s1", "0xA", "Demo")

	f.connect("s2")
	require.NoError(t, f.machine.JoinRoom(ctx, "s2", "0xB", roomID))

	f.connect("s3")
	err := f.machine.JoinRoom(ctx, "s3", "0xC", roomID)
	assert.ErrorIs(t, err, domain.ErrRoomFull)

	room, err := f.st.GetRoom(ctx, roomID)
	require.NoError(t, err)
	require.NotNil(t, room.Participant)
	assert.Equal(t, domain.Wallet("0xB"), room.Participant.Address)
}

func TestJoinRoomNotFound(t *testing.T) {
	f := newFixture()
	f.connect("s1")

	err := f.machine.JoinRoom(context.Background(), "s1", "0xB", "no-such-room")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestJoinRoomEvents(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	roomID := f.createRoom(t, "s1", "0xA", "Demo")
	f.notify.reset()

	f.connect("s2")
	require.NoError(t, f.machine.JoinRoom(ctx, "s2", "0xB", roomID))

	joined := f.notify.ofType("participant_joined")
	require.Len(t, joined, 1)
	assert.False(t, joined[0].Unicast)
	assert.Equal(t, roomID, joined[0].RoomID)
	assert.Equal(t, domain.Wallet("0xB"), joined[0].Event.(core.ParticipantJoined).Wallet)

	ownerInfo := f.notify.ofType("owner_connected")
	require.Len(t, ownerInfo, 1)
	assert.True(t, ownerInfo[0].Unicast)
	assert.Equal(t, core.SessionID("s2"), ownerInfo[0].SID)
	assert.Equal(t, domain.Wallet("0xA"), ownerInfo[0].Event.(core.OwnerConnected).Owner)

	roomInfo := f.notify.ofType("room_connected")
	require.Len(t, roomInfo, 1)
	assert.True(t, roomInfo[0].Unicast)
	assert.Equal(t, core.SessionID("s2"), roomInfo[0].SID)
	assert.Equal(t, "Demo", roomInfo[0].Event.(core.RoomConnected).Label)
}

func TestOwnerLeaveDropsRoom(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	roomID := f.createRoom(t, "s1", "0xA", "Demo")
	f.connect("s2")
	require.NoError(t, f.machine.JoinRoom(ctx, "s2", "0xB", roomID))
	f.notify.reset()

	require.NoError(t, f.machine.LeaveRoom(ctx, "s1", "0xA", roomID))

	_, err := f.st.GetRoom(ctx, roomID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, ok, err := f.st.FindRoomByOwner(ctx, "0xA")
	require.NoError(t, err)
	assert.False(t, ok)

	dropped := f.notify.ofType("room_dropped")
	require.Len(t, dropped, 1)
	assert.Equal(t, roomID, dropped[0].RoomID)

	// both bindings are gone; the orphaned participant must treat the
	// drop as terminal
	_, _, ok1 := f.reg.Lookup("s1")
	_, _, ok2 := f.reg.Lookup("s2")
	assert.False(t, ok1)
	assert.False(t, ok2)
}

func TestOwnerLeaveWithoutParticipant(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	roomID := f.createRoom(t, "s1", "0xA", "Demo")
	f.notify.reset()

	require.NoError(t, f.machine.LeaveRoom(ctx, "s1", "0xA", roomID))

	_, err := f.st.GetRoom(ctx, roomID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.Len(t, f.notify.ofType("room_dropped"), 1)
}

func TestOwnerDisconnectDropsRoom(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	roomID := f.createRoom(t, "s1", "0xA", "Demo")
	f.connect("s2")
	require.NoError(t, f.machine.JoinRoom(ctx, "s2", "0xB", roomID))
	f.notify.reset()

	require.NoError(t, f.machine.Disconnect(ctx, "s1"))

	_, err := f.st.GetRoom(ctx, roomID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.Len(t, f.notify.ofType("room_dropped"), 1)

	// the owner's session is fully unregistered
	_, ok := f.reg.Conn("s1")
	assert.False(t, ok)
}

func TestParticipantLeaveKeepsRoom(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	roomID := f.createRoom(t, "s1", "0xA", "Demo")
	f.connect("s2")
	require.NoError(t, f.machine.JoinRoom(ctx, "s2", "0xB", roomID))
	f.notify.reset()

	require.NoError(t, f.machine.LeaveRoom(ctx, "s2", "0xB", roomID))

	room, err := f.st.GetRoom(ctx, roomID)
	require.NoError(t, err)
	assert.Nil(t, room.Participant)
	assert.Equal(t, domain.Wallet("0xA"), room.Owner.Address)

	left := f.notify.ofType("participant_left")
	require.Len(t, left, 1)
	assert.Equal(t, domain.Wallet("0xB"), left[0].Event.(core.ParticipantLeft).Wallet)
	assert.Empty(t, f.notify.ofType("room_dropped"))

	// the room stays joinable
	f.connect("s3")
	require.NoError(t, f.machine.JoinRoom(ctx, "s3", "0xC", roomID))
}

func TestLeaveIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	roomID := f.createRoom(t, "s1", "0xA", "Demo")
	f.connect("s2")
	require.NoError(t, f.machine.JoinRoom(ctx, "s2", "0xB", roomID))

	require.NoError(t, f.machine.LeaveRoom(ctx, "s2", "0xB", roomID))
	f.notify.reset()

	// a leave racing a disconnect replays the same departure; it must be
	// a silent no-op, not an error
	require.NoError(t, f.machine.LeaveRoom(ctx, "s2", "0xB", roomID))
	assert.Empty(t, f.notify.events)

	require.NoError(t, f.machine.Disconnect(ctx, "s2"))
	assert.Empty(t, f.notify.events)

	room, err := f.st.GetRoom(ctx, roomID)
	require.NoError(t, err)
	assert.Nil(t, room.Participant)
}

func TestLeaveVanishedRoom(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	roomID := f.createRoom(t, "s1", "0xA", "Demo")
	require.NoError(t, f.st.DeleteRoom(ctx, roomID))
	f.notify.reset()

	require.NoError(t, f.machine.LeaveRoom(ctx, "s1", "0xA", roomID))
	assert.Empty(t, f.notify.events)
}

func TestChangeAllowance(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	roomID := f.createRoom(t, "s1", "0xA", "Demo")
	f.connect("s2")
	require.NoError(t, f.machine.JoinRoom(ctx, "s2", "0xB", roomID))
	f.notify.reset()

	require.NoError(t, f.machine.ChangeAllowance(ctx, "0xA", roomID, true))
	room, err := f.st.GetRoom(ctx, roomID)
	require.NoError(t, err)
	assert.True(t, room.Owner.Accepted)
	assert.False(t, room.Participant.Accepted)

	require.NoError(t, f.machine.ChangeAllowance(ctx, "0xB", roomID, true))
	room, err = f.st.GetRoom(ctx, roomID)
	require.NoError(t, err)
	assert.True(t, room.Owner.Accepted)
	assert.True(t, room.Participant.Accepted)

	changed := f.notify.ofType("allowance_changed")
	require.Len(t, changed, 2)
	assert.Equal(t, domain.Wallet("0xA"), changed[0].Event.(core.AllowanceChanged).Wallet)
	assert.Equal(t, domain.Wallet("0xB"), changed[1].Event.(core.AllowanceChanged).Wallet)
}

func TestChangeAllowanceUnauthorized(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	roomID := f.createRoom(t, "s1", "0xA", "Demo")
	f.notify.reset()

	err := f.machine.ChangeAllowance(ctx, "0xEVE", roomID, true)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	room, getErr := f.st.GetRoom(ctx, roomID)
	require.NoError(t, getErr)
	assert.False(t, room.Owner.Accepted)
	assert.Empty(t, f.notify.ofType("allowance_changed"))
}

func TestSendMessage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	roomID := f.createRoom(t, "s1", "0xA", "Demo")
	f.connect("s2")
	require.NoError(t, f.machine.JoinRoom(ctx, "s2", "0xB", roomID))
	f.notify.reset()

	require.NoError(t, f.machine.SendMessage("s2", "0xB", "hello"))

	sent := f.notify.ofType("message_sent")
	require.Len(t, sent, 1)
	assert.Equal(t, roomID, sent[0].RoomID)
	ev := sent[0].Event.(core.MessageSent)
	assert.Equal(t, domain.Wallet("0xB"), ev.Wallet)
	assert.Equal(t, "hello", ev.Message)
	assert.Greater(t, ev.Timestamp, int64(0))
}

func TestSendMessageWithoutRoom(t *testing.T) {
	f := newFixture()
	f.connect("s1")

	err := f.machine.SendMessage("s1", "0xA", "hello")
	assert.ErrorIs(t, err, domain.ErrNotInRoom)
}

func TestSendMessageWalletMismatch(t *testing.T) {
	f := newFixture()
	f.createRoom(t, "s1", "0xA", "Demo")

	err := f.machine.SendMessage("s1", "0xB", "hello")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

// TestLifecycleScenario runs the full create -> join -> allowance -> drop
// sequence end to end.
func TestLifecycleScenario(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	roomID := f.createRoom(t, "s1", "0xA", "Demo")

	f.connect("s2")
	require.NoError(t, f.machine.JoinRoom(ctx, "s2", "0xB", roomID))
	joined := f.notify.ofType("participant_joined")
	require.Len(t, joined, 1)
	assert.Equal(t, domain.Wallet("0xB"), joined[0].Event.(core.ParticipantJoined).Wallet)

	require.NoError(t, f.machine.ChangeAllowance(ctx, "0xA", roomID, true))
	room, err := f.st.GetRoom(ctx, roomID)
	require.NoError(t, err)
	assert.True(t, room.Owner.Accepted)

	require.NoError(t, f.machine.LeaveRoom(ctx, "s1", "0xA", roomID))
	_, err = f.st.GetRoom(ctx, roomID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.Len(t, f.notify.ofType("room_dropped"), 1)
}
