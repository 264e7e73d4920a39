// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"unicode/utf8"
)

const (
	MaxWalletLen = 64
	MaxLabelLen  = 36
)

var (
	ErrWalletEmpty   = errors.New("wallet address empty")
	ErrWalletTooLong = errors.New("wallet address too long")
)

type (
	Wallet string
	RoomID string
)

// Party is one side of a room: the wallet that occupies the slot, its
// allowance flag and the unix time it connected.
type Party struct {
	Address     Wallet `json:"address"`
	Accepted    bool   `json:"accepted"`
	ConnectedAt int64  `json:"connected"`
}

// NewParty validates the wallet and stamps the connection time.
// A fresh party always starts with Accepted=false.
func NewParty(address Wallet, connectedAt int64) (Party, error) {
	if len(address) == 0 {
		return Party{}, ErrWalletEmpty
	}
	if len(address) > MaxWalletLen {
		return Party{}, ErrWalletTooLong
	}
	return Party{Address: address, ConnectedAt: connectedAt}, nil
}

// Room pairs an owner with at most one participant. The document field
// names (server/client) match the persisted room documents.
type Room struct {
	ID          RoomID `json:"id"`
	Label       string `json:"label"`
	Owner       Party  `json:"server"`
	Participant *Party `json:"client,omitempty"`
}

// Occupied reports whether the second slot is taken.
func (r *Room) Occupied() bool { return r.Participant != nil }

// IsOwner reports whether w created the room.
func (r *Room) IsOwner(w Wallet) bool { return r.Owner.Address == w }

// IsParticipant reports whether w is the currently joined second party.
func (r *Room) IsParticipant(w Wallet) bool {
	return r.Participant != nil && r.Participant.Address == w
}

// TrimLabel caps a free-text room label at MaxLabelLen runes. Cutting on
// a rune boundary keeps the label valid UTF-8 for the wire.
func TrimLabel(label string) string {
	if utf8.RuneCountInString(label) <= MaxLabelLen {
		return label
	}
	runes := []rune(label)
	return string(runes[:MaxLabelLen])
}
