package engine

import (
	"github.com/google/uuid"

	"github.com/clanhall/auctiond/go/internal/models"
)

// Principal is the authenticated caller of a room command.
type Principal struct {
	UserID uuid.UUID
	Role   models.UserRole
}

// IsAdmin reports whether the principal holds the ADMIN role.
func (p Principal) IsAdmin() bool {
	return p.Role == models.UserRoleAdmin
}

type cmdKind int

const (
	cmdSelectPlayer cmdKind = iota
	cmdPlaceBid
	cmdPause
	cmdResume
	cmdConfirm
	cmdCancel
	cmdForceAssign
	cmdSetCaptain
	cmdEnd
	cmdTimerExpired
)

// command is the tagged union dispatched into the room actor. Every
// state-mutating operation, timer expiry included, arrives as one of
// these so ordering inside a room is always well-defined.
type command struct {
	kind      cmdKind
	principal Principal
	playerID  uuid.UUID
	teamID    uuid.UUID
	userID    uuid.UUID
	amount    int
	gen       int
	reply     chan cmdResult
}

type cmdResult struct {
	bid *models.Bid
	err error
}
