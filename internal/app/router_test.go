package app_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/internal/app"
	"github.com/parleyhq/parley/internal/core"
)

type captureConn struct {
	frames []core.Frame
	fail   bool
}

func (c *captureConn) TrySend(f core.Frame) error {
	if c.fail {
		return errors.New("send buffer full")
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *captureConn) Close() {}

func TestRouterUnicast(t *testing.T) {
	reg := app.NewRegistry()
	conn := &captureConn{}
	reg.Register("s1", conn, nil)

	router := app.NewRouter(reg)
	router.Unicast("s1", core.RoomDropped{RoomID: "r1"})

	require.Len(t, conn.frames, 1)
	var msg map[string]any
	require.NoError(t, json.Unmarshal(conn.frames[0], &msg))
	assert.Equal(t, "room_dropped", msg["type"])
	assert.Equal(t, "r1", msg["room_id"])
}

func TestRouterUnicastUnknownSession(t *testing.T) {
	router := app.NewRouter(app.NewRegistry())
	// must not panic; delivery is fire-and-forget
	router.Unicast("ghost", core.Pong{})
}

func TestRouterBroadcast(t *testing.T) {
	reg := app.NewRegistry()
	c1, c2, c3 := &captureConn{}, &captureConn{}, &captureConn{}
	reg.Register("s1", c1, nil)
	reg.Register("s2", c2, nil)
	reg.Register("s3", c3, nil)
	require.NoError(t, reg.BindRoom("s1", "r1", "0xA"))
	require.NoError(t, reg.BindRoom("s2", "r1", "0xB"))
	require.NoError(t, reg.BindRoom("s3", "r2", "0xC"))

	router := app.NewRouter(reg)
	router.Broadcast("r1", core.ParticipantJoined{RoomID: "r1", Wallet: "0xB"})

	assert.Len(t, c1.frames, 1)
	assert.Len(t, c2.frames, 1)
	assert.Empty(t, c3.frames, "other rooms never see the event")
}

func TestRouterBroadcastDroppedPeer(t *testing.T) {
	reg := app.NewRegistry()
	healthy, stuck := &captureConn{}, &captureConn{fail: true}
	reg.Register("s1", healthy, nil)
	reg.Register("s2", stuck, nil)
	require.NoError(t, reg.BindRoom("s1", "r1", "0xA"))
	require.NoError(t, reg.BindRoom("s2", "r1", "0xB"))

	router := app.NewRouter(reg)
	router.Broadcast("r1", core.RoomDropped{RoomID: "r1"})

	// the stuck peer is skipped, the healthy one still gets the event
	assert.Len(t, healthy.frames, 1)
}
