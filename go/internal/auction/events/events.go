package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of auction room event
type EventType string

const (
	EventTypePlayerSelected  EventType = "PlayerSelected"
	EventTypeBidPlaced       EventType = "BidPlaced"
	EventTypeAuctionPaused   EventType = "AuctionPaused"
	EventTypeAuctionResumed  EventType = "AuctionResumed"
	EventTypePlayerSold      EventType = "PlayerSold"
	EventTypePlayerUnsold    EventType = "PlayerUnsold"
	EventTypeAuctionEnded    EventType = "AuctionEnded"
	EventTypeForceAssigned   EventType = "ForceAssigned"
	EventTypeCaptainAssigned EventType = "CaptainAssigned"
	EventTypeIntegrityAlert  EventType = "IntegrityAlert"
)

// AuctionEvent is the envelope broadcast for every committed room
// mutation. Sequence is monotonically increasing per room so that
// reconnecting clients can request replay from their last known value.
type AuctionEvent struct {
	ID         uuid.UUID       `json:"id"`
	RoomID     uuid.UUID       `json:"room_id"`
	Sequence   int64           `json:"sequence"`
	Type       EventType       `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	ServerTime time.Time       `json:"server_time"`
}

// New builds an envelope around a payload struct.
func New(roomID uuid.UUID, seq int64, typ EventType, payload any, serverTime time.Time) (AuctionEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return AuctionEvent{}, fmt.Errorf("failed to marshal %s payload: %w", typ, err)
	}
	return AuctionEvent{
		ID:         uuid.New(),
		RoomID:     roomID,
		Sequence:   seq,
		Type:       typ,
		Payload:    data,
		ServerTime: serverTime,
	}, nil
}
