package models

import (
	"time"

	"github.com/google/uuid"
)

// RoomStatus defines the status of an auction room.
type RoomStatus string

const (
	RoomStatusWaiting RoomStatus = "WAITING"
	RoomStatusBidding RoomStatus = "BIDDING"
	RoomStatusPaused  RoomStatus = "PAUSED"
	RoomStatusSold    RoomStatus = "SOLD"
	RoomStatusUnsold  RoomStatus = "UNSOLD"
	RoomStatusEnded   RoomStatus = "ENDED"
)

// RoomSettings holds JSONB configuration for auction rooms.
type RoomSettings struct {
	TurnTimeLimitSec    int   `json:"turn_time_limit_sec"`
	MinBidIncrement     int   `json:"min_bid_increment"`
	StartingPoints      int   `json:"starting_points"`
	SuggestedIncrements []int `json:"suggested_increments,omitempty"`
}

// BidRef identifies the current highest bid of a round.
type BidRef struct {
	TeamID uuid.UUID `json:"team_id"`
	Amount int       `json:"amount"`
}

// AuctionRoom represents a single drafting session. It is exclusively
// owned and mutated by the engine's room actor.
type AuctionRoom struct {
	ID              uuid.UUID    `json:"id"`
	Title           string       `json:"title"`
	Status          RoomStatus   `json:"status"`
	CurrentPlayerID *uuid.UUID   `json:"current_player_id,omitempty"`
	CurrentBid      *BidRef      `json:"current_bid,omitempty"`
	TeamCount       int          `json:"team_count"`
	MaxParticipants int          `json:"max_participants"`
	Settings        RoomSettings `json:"settings"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}
