package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/parleyhq/parley/internal/core"
	"github.com/parleyhq/parley/internal/domain"
)

func (ctl *Controller) handleCreateRoom(ctx context.Context, sid core.SessionID, c *wsConn, data []byte) {
	var p struct {
		Type      string `json:"type"`
		Wallet    string `json:"user_wallet"`
		RoomLabel string `json:"room_label"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad create payload")
		ctl.sendEvent(c, core.ConnectErrorEvent{Message: "bad payload"})
		return
	}

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("wallet", p.Wallet).Msg("create room")
	if err := ctl.Machine.CreateRoom(ctx, sid, domain.Wallet(p.Wallet), p.RoomLabel); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("create room refused")
		ctl.sendEvent(c, core.ConnectErrorEvent{Message: err.Error()})
	}
}

func (ctl *Controller) handleJoinRoom(ctx context.Context, sid core.SessionID, c *wsConn, data []byte) {
	var p struct {
		Type   string `json:"type"`
		Wallet string `json:"user_wallet"`
		RoomID string `json:"room_id"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendEvent(c, core.ConnectErrorEvent{Message: "bad payload"})
		return
	}

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room_id", p.RoomID).Str("wallet", p.Wallet).Msg("join room")
	if err := ctl.Machine.JoinRoom(ctx, sid, domain.Wallet(p.Wallet), domain.RoomID(p.RoomID)); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("room_id", p.RoomID).Msg("join room refused")
		ctl.sendEvent(c, core.ConnectErrorEvent{Message: err.Error()})
	}
}

func (ctl *Controller) handleLeaveRoom(ctx context.Context, sid core.SessionID, c *wsConn, data []byte) {
	var p struct {
		Type   string `json:"type"`
		Wallet string `json:"user_wallet"`
		RoomID string `json:"room_id"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad leave payload")
		ctl.sendEvent(c, core.ErrorEvent{Message: "bad payload"})
		return
	}

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room_id", p.RoomID).Str("wallet", p.Wallet).Msg("leave room")
	if err := ctl.Machine.LeaveRoom(ctx, sid, domain.Wallet(p.Wallet), domain.RoomID(p.RoomID)); err != nil {
		// only store failures end up here; "already gone" is a no-op
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("room_id", p.RoomID).Msg("leave room failed")
		ctl.sendEvent(c, core.ErrorEvent{Message: err.Error()})
	}
}
