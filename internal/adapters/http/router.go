// Package http wires the gin router: the websocket signal endpoint plus a
// couple of read-only lobby lookups over the room store.
package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/parleyhq/parley/internal/adapters/signal"
	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/domain"
	"github.com/parleyhq/parley/internal/store"
)

func SetupRouter(ctx context.Context, cfg *config.Config, ctl *signal.Controller, st store.RoomStore) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Msg("ws signal endpoint hit")
		ctl.HandleSignal(ctx, c)
	})

	api.GET("/rooms/:id", func(c *gin.Context) {
		room, err := st.GetRoom(c.Request.Context(), domain.RoomID(c.Param("id")))
		if err != nil {
			writeStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, room)
	})

	api.GET("/rooms", func(c *gin.Context) {
		owner := c.Query("owner")
		if owner == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "owner query parameter required"})
			return
		}
		room, ok, err := st.FindRoomByOwner(c.Request.Context(), domain.Wallet(owner))
		if err != nil {
			writeStoreError(c, err)
			return
		}
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no room for owner"})
			return
		}
		c.JSON(http.StatusOK, room)
	})

	return r
}

func writeStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
	case errors.Is(err, store.ErrUnavailable):
		log.Error().Err(err).Str("module", "adapters.http").Msg("store unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
	default:
		log.Error().Err(err).Str("module", "adapters.http").Msg("room lookup")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
