package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/parleyhq/parley/internal/core"
	"github.com/parleyhq/parley/internal/domain"
)

func (ctl *Controller) handleChangeAllowance(ctx context.Context, c *wsConn, data []byte) {
	var p struct {
		Type       string `json:"type"`
		Wallet     string `json:"user_wallet"`
		RoomID     string `json:"room_id"`
		IsApproved bool   `json:"is_approved"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad allowance payload")
		ctl.sendEvent(c, core.ErrorEvent{Message: "bad payload"})
		return
	}

	log.Info().Str("module", "signal").Str("room_id", p.RoomID).Str("wallet", p.Wallet).Bool("approved", p.IsApproved).Msg("change allowance")
	if err := ctl.Machine.ChangeAllowance(ctx, domain.Wallet(p.Wallet), domain.RoomID(p.RoomID), p.IsApproved); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("room_id", p.RoomID).Msg("allowance refused")
		ctl.sendEvent(c, core.ErrorEvent{Message: err.Error()})
	}
}
