package signal

import "github.com/parleyhq/parley/internal/core"

func (ctl *Controller) handlePing(c *wsConn) {
	ctl.sendEvent(c, core.Pong{})
}
