package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OutboxEvent represents an outbox event for the application layer
type OutboxEvent struct {
	ID        uuid.UUID       `json:"id"`
	RoomID    uuid.UUID       `json:"room_id"`
	EventType string          `json:"event_type"`
	Sequence  int64           `json:"sequence"`
	Payload   json.RawMessage `json:"payload"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at,omitempty"`
}

// EventMetadata is the metadata column content. created_at stamps the
// insert; ServerTime preserves the engine's commit timestamp so replay
// reproduces the original event envelope.
type EventMetadata struct {
	ServerTime time.Time `json:"server_time"`
}

// EventServerTime returns the commit timestamp carried in metadata,
// falling back to the insert time for rows written without it.
func (e OutboxEvent) EventServerTime() time.Time {
	if len(e.Metadata) > 0 {
		var meta EventMetadata
		if err := json.Unmarshal(e.Metadata, &meta); err == nil && !meta.ServerTime.IsZero() {
			return meta.ServerTime
		}
	}
	return e.CreatedAt
}
