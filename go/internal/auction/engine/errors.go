package engine

import "errors"

// Error taxonomy returned synchronously to callers. None of these
// terminate the room's actor.
var (
	ErrValidation         = errors.New("invalid input")
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrStaleBid           = errors.New("bid is no longer the highest")
	ErrInsufficientBudget = errors.New("insufficient team budget")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNoActiveBid        = errors.New("no active bid")
	ErrRoomPaused         = errors.New("room is paused")
	ErrRoomClosed         = errors.New("room is closed")
	ErrUnknownTeam        = errors.New("unknown team")
	ErrUnknownPlayer      = errors.New("unknown player")
)
