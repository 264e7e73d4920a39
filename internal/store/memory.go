package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/parleyhq/parley/internal/domain"
)

// MemoryRoomStore is a map-backed RoomStore for tests and single-process
// dev runs without redis.
type MemoryRoomStore struct {
	mu      sync.RWMutex
	rooms   map[domain.RoomID]domain.Room
	byOwner map[domain.Wallet]domain.RoomID
}

func NewMemoryRoomStore() *MemoryRoomStore {
	return &MemoryRoomStore{
		rooms:   make(map[domain.RoomID]domain.Room),
		byOwner: make(map[domain.Wallet]domain.RoomID),
	}
}

func (s *MemoryRoomStore) CreateRoom(_ context.Context, owner domain.Party, label string) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byOwner[owner.Address]; ok {
		return domain.Room{}, ErrDuplicateOwner
	}
	room := domain.Room{
		ID:    domain.RoomID(uuid.NewString()),
		Label: label,
		Owner: owner,
	}
	s.rooms[room.ID] = room
	s.byOwner[owner.Address] = room.ID
	return room, nil
}

func (s *MemoryRoomStore) GetRoom(_ context.Context, id domain.RoomID) (domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return domain.Room{}, ErrNotFound
	}
	return clone(room), nil
}

func (s *MemoryRoomStore) FindRoomByOwner(_ context.Context, owner domain.Wallet) (domain.Room, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byOwner[owner]
	if !ok {
		return domain.Room{}, false, nil
	}
	room, ok := s.rooms[id]
	if !ok {
		return domain.Room{}, false, nil
	}
	return clone(room), true, nil
}

func (s *MemoryRoomStore) SetParticipant(_ context.Context, id domain.RoomID, p *domain.Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return ErrNotFound
	}
	if p != nil {
		cp := *p
		room.Participant = &cp
	} else {
		room.Participant = nil
	}
	s.rooms[id] = room
	return nil
}

func (s *MemoryRoomStore) SetAcceptance(_ context.Context, id domain.RoomID, wallet domain.Wallet, accepted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return ErrNotFound
	}
	switch {
	case room.IsOwner(wallet):
		room.Owner.Accepted = accepted
	case room.IsParticipant(wallet):
		cp := *room.Participant
		cp.Accepted = accepted
		room.Participant = &cp
	default:
		return ErrNotMember
	}
	s.rooms[id] = room
	return nil
}

func (s *MemoryRoomStore) DeleteRoom(_ context.Context, id domain.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.rooms, id)
	delete(s.byOwner, room.Owner.Address)
	return nil
}

// clone detaches the participant pointer so callers never share state
// with the map.
func clone(room domain.Room) domain.Room {
	if room.Participant != nil {
		cp := *room.Participant
		room.Participant = &cp
	}
	return room
}
