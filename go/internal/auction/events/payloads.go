package events

import (
	"encoding/json"
	"time"
)

// Event payload types that are shared between the engine, outbox and
// gateway packages

// PlayerSelectedPayload is the payload for a PlayerSelected event
type PlayerSelectedPayload struct {
	PlayerID         string    `json:"player_id"`
	PlayerName       string    `json:"player_name"`
	Role             string    `json:"role"`
	Tier             string    `json:"tier"`
	StartedAt        time.Time `json:"started_at"`
	TimeoutAt        time.Time `json:"timeout_at"`
	TurnTimeLimitSec int       `json:"turn_time_limit_sec"`
}

// BidPlacedPayload is the payload for a BidPlaced event
type BidPlacedPayload struct {
	BidID       string    `json:"bid_id"`
	PlayerID    string    `json:"player_id"`
	TeamID      string    `json:"team_id"`
	TeamName    string    `json:"team_name"`
	Amount      int       `json:"amount"`
	BidSequence int       `json:"bid_sequence"`
	PlacedAt    time.Time `json:"placed_at"`
	TimeoutAt   time.Time `json:"timeout_at"`
}

// AuctionPausedPayload is the payload for an AuctionPaused event
type AuctionPausedPayload struct {
	PausedAt     time.Time `json:"paused_at"`
	RemainingSec int       `json:"remaining_sec"`
	Reason       string    `json:"reason,omitempty"`
}

// AuctionResumedPayload is the payload for an AuctionResumed event
type AuctionResumedPayload struct {
	ResumedAt    time.Time `json:"resumed_at"`
	TimeoutAt    time.Time `json:"timeout_at"`
	RemainingSec int       `json:"remaining_sec"`
}

// PlayerSoldPayload is the payload for a PlayerSold event
type PlayerSoldPayload struct {
	PlayerID            string    `json:"player_id"`
	TeamID              string    `json:"team_id"`
	Amount              int       `json:"amount"`
	SoldAt              time.Time `json:"sold_at"`
	TeamRemainingPoints int       `json:"team_remaining_points"`
}

// PlayerUnsoldPayload is the payload for a PlayerUnsold event
type PlayerUnsoldPayload struct {
	PlayerID string    `json:"player_id"`
	UnsoldAt time.Time `json:"unsold_at"`
	Reason   string    `json:"reason,omitempty"`
}

// AuctionEndedPayload is the payload for an AuctionEnded event
type AuctionEndedPayload struct {
	EndedAt     time.Time `json:"ended_at"`
	SoldCount   int       `json:"sold_count"`
	UnsoldCount int       `json:"unsold_count"`
}

// ForceAssignedPayload is the payload for a ForceAssigned event
type ForceAssignedPayload struct {
	PlayerID   string    `json:"player_id"`
	TeamID     string    `json:"team_id"`
	Price      int       `json:"price"`
	AssignedBy string    `json:"assigned_by"`
	AssignedAt time.Time `json:"assigned_at"`
}

// CaptainAssignedPayload is the payload for a CaptainAssigned event
type CaptainAssignedPayload struct {
	TeamID     string    `json:"team_id"`
	UserID     string    `json:"user_id"`
	AssignedAt time.Time `json:"assigned_at"`
}

// IntegrityAlertPayload flags a round that was forced to UNSOLD because
// an invariant that should be impossible to violate failed at
// resolution time. Raised for operator review, never silent.
type IntegrityAlertPayload struct {
	PlayerID string    `json:"player_id"`
	Detail   string    `json:"detail"`
	RaisedAt time.Time `json:"raised_at"`
}

// ParsePayload parses event data into the appropriate payload struct
func ParsePayload(event *AuctionEvent) (interface{}, error) {
	switch event.Type {
	case EventTypePlayerSelected:
		var payload PlayerSelectedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeBidPlaced:
		var payload BidPlacedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeAuctionPaused:
		var payload AuctionPausedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeAuctionResumed:
		var payload AuctionResumedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypePlayerSold:
		var payload PlayerSoldPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypePlayerUnsold:
		var payload PlayerUnsoldPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeAuctionEnded:
		var payload AuctionEndedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeForceAssigned:
		var payload ForceAssignedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeCaptainAssigned:
		var payload CaptainAssignedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeIntegrityAlert:
		var payload IntegrityAlertPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, nil // Unknown event type
	}
}
