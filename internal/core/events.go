package core

import (
	"encoding/json"

	"github.com/parleyhq/parley/internal/domain"
)

// Event is anything the relay pushes to clients. EventType becomes the
// "type" field of the wire envelope.
type Event interface {
	EventType() string
}

type RoomCreated struct {
	RoomID    domain.RoomID `json:"room_id"`
	Label     string        `json:"label"`
	Timestamp int64         `json:"timestamp"`
}

func (RoomCreated) EventType() string { return "room_created" }

// RoomConnected carries room metadata to a joiner so it does not need a
// second round trip after user_join_room.
type RoomConnected struct {
	RoomID    domain.RoomID `json:"room_id"`
	Label     string        `json:"label"`
	Timestamp int64         `json:"timestamp"`
}

func (RoomConnected) EventType() string { return "room_connected" }

type OwnerConnected struct {
	RoomID domain.RoomID `json:"room_id"`
	Owner  domain.Wallet `json:"owner"`
}

func (OwnerConnected) EventType() string { return "owner_connected" }

type ParticipantJoined struct {
	RoomID domain.RoomID `json:"room_id"`
	Wallet domain.Wallet `json:"wallet"`
}

func (ParticipantJoined) EventType() string { return "participant_joined" }

type MessageSent struct {
	RoomID    domain.RoomID `json:"room_id"`
	Wallet    domain.Wallet `json:"wallet"`
	Message   string        `json:"message"`
	Timestamp int64         `json:"timestamp"`
}

func (MessageSent) EventType() string { return "message_sent" }

type AllowanceChanged struct {
	RoomID   domain.RoomID `json:"room_id"`
	Wallet   domain.Wallet `json:"wallet"`
	Approved bool          `json:"approved"`
}

func (AllowanceChanged) EventType() string { return "allowance_changed" }

type ParticipantLeft struct {
	RoomID domain.RoomID `json:"room_id"`
	Wallet domain.Wallet `json:"wallet"`
}

func (ParticipantLeft) EventType() string { return "participant_left" }

// RoomDropped is terminal: the owner departed and the room document is gone.
type RoomDropped struct {
	RoomID domain.RoomID `json:"room_id"`
}

func (RoomDropped) EventType() string { return "room_dropped" }

// ErrorEvent reports an in-room operation failure to the requester.
type ErrorEvent struct {
	Message string `json:"message"`
}

func (ErrorEvent) EventType() string { return "errors" }

// ConnectErrorEvent reports a connection-phase (create/join) failure.
type ConnectErrorEvent struct {
	Message string `json:"message"`
}

func (ConnectErrorEvent) EventType() string { return "errors_connect" }

type Pong struct{}

func (Pong) EventType() string { return "pong" }

// EncodeEvent renders an event as a wire frame with the envelope type
// spliced in front of the event's own fields.
func EncodeEvent(ev Event) (Frame, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	head, err := json.Marshal(struct {
		Type string `json:"type"`
	}{ev.EventType()})
	if err != nil {
		return nil, err
	}
	if len(body) <= 2 { // event with no fields of its own
		return head, nil
	}
	out := append(head[:len(head)-1], ',')
	out = append(out, body[1:]...)
	return out, nil
}
