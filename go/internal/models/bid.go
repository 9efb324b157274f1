package models

import (
	"time"

	"github.com/google/uuid"
)

// Bid is one validated, accepted bid in a player round. Bids are
// append-only; Sequence is monotonic per (room, player) round.
type Bid struct {
	ID       uuid.UUID `json:"id"`
	RoomID   uuid.UUID `json:"room_id"`
	PlayerID uuid.UUID `json:"player_id"`
	TeamID   uuid.UUID `json:"team_id"`
	Amount   int       `json:"amount"`
	Sequence int       `json:"sequence"`
	PlacedAt time.Time `json:"placed_at"`
}
