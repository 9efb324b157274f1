package models

import (
	"time"

	"github.com/google/uuid"
)

// PlayerStatus defines where a player sits in the auction lifecycle.
type PlayerStatus string

const (
	PlayerStatusPool      PlayerStatus = "POOL"
	PlayerStatusInAuction PlayerStatus = "IN_AUCTION"
	PlayerStatusSold      PlayerStatus = "SOLD"
	PlayerStatusUnsold    PlayerStatus = "UNSOLD"
)

// Player represents a draftable clan member. Once SOLD or UNSOLD the
// outcome fields are immutable for the auction's lifetime.
type Player struct {
	ID            uuid.UUID    `json:"id"`
	RoomID        uuid.UUID    `json:"room_id"`
	Name          string       `json:"name"`
	Role          string       `json:"role"` // in-game role, e.g. 'TANK', 'SUPPORT'
	Tier          string       `json:"tier"`
	Status        PlayerStatus `json:"status"`
	WinningTeamID *uuid.UUID   `json:"winning_team_id,omitempty"`
	WinningAmount *int         `json:"winning_amount,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}
