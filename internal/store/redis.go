package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/parleyhq/parley/internal/domain"
)

// RedisRoomStore keeps one JSON document per room plus an owner index key
// whose existence enforces the one-room-per-owner invariant.
type RedisRoomStore struct {
	rdb *redis.Client
}

func NewRedisRoomStore(rdb *redis.Client) *RedisRoomStore {
	return &RedisRoomStore{rdb: rdb}
}

func roomKey(id domain.RoomID) string { return fmt.Sprintf("rooms:%s", id) }
func ownerKey(w domain.Wallet) string { return fmt.Sprintf("owners:%s", w) }

// deleteRoomScript drops the room document and its owner index in one
// atomic step so a crash cannot leave a dangling index entry.
const deleteRoomScript = `
	local raw = redis.call('GET', KEYS[1])
	if not raw then
		return 0
	end
	local room = cjson.decode(raw)
	redis.call('DEL', KEYS[1])
	if room['server'] and room['server']['address'] then
		redis.call('DEL', 'owners:' .. room['server']['address'])
	end
	return 1
`

func (s *RedisRoomStore) CreateRoom(ctx context.Context, owner domain.Party, label string) (domain.Room, error) {
	room := domain.Room{
		ID:    domain.RoomID(uuid.NewString()),
		Label: label,
		Owner: owner,
	}
	b, err := json.Marshal(room)
	if err != nil {
		return domain.Room{}, err
	}

	ok, err := s.rdb.SetNX(ctx, ownerKey(owner.Address), string(room.ID), 0).Result()
	if err != nil {
		return domain.Room{}, unavailable(err)
	}
	if !ok {
		return domain.Room{}, ErrDuplicateOwner
	}
	if err := s.rdb.Set(ctx, roomKey(room.ID), b, 0).Err(); err != nil {
		// roll the owner index back so the wallet is not locked out
		if delErr := s.rdb.Del(ctx, ownerKey(owner.Address)).Err(); delErr != nil {
			log.Error().Err(delErr).Str("module", "store.redis").Str("owner", string(owner.Address)).Msg("owner index rollback failed")
		}
		return domain.Room{}, unavailable(err)
	}
	return room, nil
}

func (s *RedisRoomStore) GetRoom(ctx context.Context, id domain.RoomID) (domain.Room, error) {
	raw, err := s.rdb.Get(ctx, roomKey(id)).Bytes()
	if err == redis.Nil {
		return domain.Room{}, ErrNotFound
	}
	if err != nil {
		return domain.Room{}, unavailable(err)
	}
	var room domain.Room
	if err := json.Unmarshal(raw, &room); err != nil {
		return domain.Room{}, fmt.Errorf("store: corrupt room document %s: %w", id, err)
	}
	return room, nil
}

func (s *RedisRoomStore) FindRoomByOwner(ctx context.Context, owner domain.Wallet) (domain.Room, bool, error) {
	id, err := s.rdb.Get(ctx, ownerKey(owner)).Result()
	if err == redis.Nil {
		return domain.Room{}, false, nil
	}
	if err != nil {
		return domain.Room{}, false, unavailable(err)
	}
	room, err := s.GetRoom(ctx, domain.RoomID(id))
	if errors.Is(err, ErrNotFound) {
		// dangling index entry; treat as no room
		return domain.Room{}, false, nil
	}
	if err != nil {
		return domain.Room{}, false, err
	}
	return room, true, nil
}

func (s *RedisRoomStore) SetParticipant(ctx context.Context, id domain.RoomID, p *domain.Party) error {
	return s.update(ctx, id, func(room *domain.Room) error {
		room.Participant = p
		return nil
	})
}

func (s *RedisRoomStore) SetAcceptance(ctx context.Context, id domain.RoomID, wallet domain.Wallet, accepted bool) error {
	return s.update(ctx, id, func(room *domain.Room) error {
		switch {
		case room.IsOwner(wallet):
			room.Owner.Accepted = accepted
		case room.IsParticipant(wallet):
			room.Participant.Accepted = accepted
		default:
			return ErrNotMember
		}
		return nil
	})
}

func (s *RedisRoomStore) DeleteRoom(ctx context.Context, id domain.RoomID) error {
	n, err := s.rdb.Eval(ctx, deleteRoomScript, []string{roomKey(id)}).Int()
	if err != nil {
		return unavailable(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// update is a read-modify-write of one room document. Callers serialize
// per room, so the two steps cannot interleave for the same id.
func (s *RedisRoomStore) update(ctx context.Context, id domain.RoomID, mutate func(*domain.Room) error) error {
	room, err := s.GetRoom(ctx, id)
	if err != nil {
		return err
	}
	if err := mutate(&room); err != nil {
		return err
	}
	b, err := json.Marshal(room)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, roomKey(id), b, 0).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
