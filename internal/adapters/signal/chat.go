package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/parleyhq/parley/internal/core"
	"github.com/parleyhq/parley/internal/domain"
)

func (ctl *Controller) handleSendMessage(sid core.SessionID, c *wsConn, data []byte) {
	var p struct {
		Type    string `json:"type"`
		Wallet  string `json:"user_wallet"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad message payload")
		ctl.sendEvent(c, core.ErrorEvent{Message: "bad payload"})
		return
	}
	if !ctl.Limiter.Allow(domain.Wallet(p.Wallet)) {
		log.Warn().Str("module", "signal").Str("wallet", p.Wallet).Msg("message rate limit hit")
		ctl.sendEvent(c, core.ErrorEvent{Message: "too many messages, slow down"})
		return
	}

	if err := ctl.Machine.SendMessage(sid, domain.Wallet(p.Wallet), p.Message); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("message refused")
		ctl.sendEvent(c, core.ErrorEvent{Message: err.Error()})
	}
}
