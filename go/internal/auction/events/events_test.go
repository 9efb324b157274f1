package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewStampsEnvelope(t *testing.T) {
	roomID := uuid.New()
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	ev, err := New(roomID, 7, EventTypeBidPlaced, BidPlacedPayload{
		BidID:    uuid.NewString(),
		PlayerID: uuid.NewString(),
		TeamID:   uuid.NewString(),
		Amount:   300,
		PlacedAt: now,
	}, now)
	if err != nil {
		t.Fatalf("new event: %v", err)
	}

	if ev.RoomID != roomID || ev.Sequence != 7 || ev.Type != EventTypeBidPlaced {
		t.Fatalf("envelope not stamped: %+v", ev)
	}
	if ev.ID == uuid.Nil {
		t.Fatal("event ID not assigned")
	}

	payload, err := ParsePayload(&ev)
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	bp, ok := payload.(BidPlacedPayload)
	if !ok {
		t.Fatalf("payload type = %T", payload)
	}
	if bp.Amount != 300 || !bp.PlacedAt.Equal(now) {
		t.Fatalf("payload round trip diverged: %+v", bp)
	}
}

func TestParsePayloadUnknownType(t *testing.T) {
	ev := AuctionEvent{Type: EventType("SomethingElse"), Payload: []byte(`{}`)}
	payload, err := ParsePayload(&ev)
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if payload != nil {
		t.Fatalf("payload = %v, want nil for unknown type", payload)
	}
}

func TestParsePayloadRejectsMalformedJSON(t *testing.T) {
	ev := AuctionEvent{Type: EventTypePlayerSold, Payload: []byte(`{`)}
	if _, err := ParsePayload(&ev); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
