// Package store persists room documents. Each room is an independent
// aggregate, so every write is a single atomic document operation.
package store

import (
	"context"
	"errors"

	"github.com/parleyhq/parley/internal/domain"
)

var (
	// ErrNotFound means the room document no longer exists, e.g. the
	// owner left while another request was in flight.
	ErrNotFound = errors.New("store: room not found")
	// ErrDuplicateOwner means the wallet already owns a live room.
	ErrDuplicateOwner = errors.New("store: owner already has a room")
	// ErrNotMember means the wallet matches neither party of the room.
	ErrNotMember = errors.New("store: wallet is not a room member")
	// ErrUnavailable wraps backend failures; callers match with errors.Is.
	ErrUnavailable = errors.New("store: backend unavailable")
)

// RoomStore is the persistence boundary of the relay.
type RoomStore interface {
	// CreateRoom allocates an id and writes a new room document owned by
	// owner. Fails with ErrDuplicateOwner when the wallet already owns a
	// live room.
	CreateRoom(ctx context.Context, owner domain.Party, label string) (domain.Room, error)
	GetRoom(ctx context.Context, id domain.RoomID) (domain.Room, error)
	// FindRoomByOwner returns the room owned by wallet, if any.
	FindRoomByOwner(ctx context.Context, owner domain.Wallet) (domain.Room, bool, error)
	// SetParticipant replaces the participant slot; nil clears it.
	SetParticipant(ctx context.Context, id domain.RoomID, p *domain.Party) error
	// SetAcceptance flips the accepted flag of the party whose address is
	// wallet, and only that party's.
	SetAcceptance(ctx context.Context, id domain.RoomID, wallet domain.Wallet, accepted bool) error
	DeleteRoom(ctx context.Context, id domain.RoomID) error
}
