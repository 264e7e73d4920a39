package domain

import "errors"

// Transition error kinds. The create/join messages are client-facing and
// shown to users verbatim, so keep them stable.
var (
	ErrDuplicateOwner = errors.New("a user can create only one room")
	ErrSelfJoin       = errors.New("the user is already registered as the room owner")
	ErrRoomFull       = errors.New("the room is already filled")
	ErrRoomNotFound   = errors.New("room not found")
	ErrUnauthorized   = errors.New("wallet is not a member of the room")
	ErrAlreadyInRoom  = errors.New("connection is already bound to a room")
	ErrNotInRoom      = errors.New("connection is not in a room")
)
