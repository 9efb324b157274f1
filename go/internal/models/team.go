package models

import (
	"time"

	"github.com/google/uuid"
)

// Team represents a drafting team inside one auction room.
// Invariant: StartingPoints - CommittedPoints >= 0 at all times.
type Team struct {
	ID              uuid.UUID   `json:"id"`
	RoomID          uuid.UUID   `json:"room_id"`
	Name            string      `json:"name"`
	CaptainID       *uuid.UUID  `json:"captain_id,omitempty"`
	StartingPoints  int         `json:"starting_points"`
	CommittedPoints int         `json:"committed_points"`
	Members         []uuid.UUID `json:"members,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

// RemainingPoints returns the budget still available to the team.
func (t *Team) RemainingPoints() int {
	return t.StartingPoints - t.CommittedPoints
}
