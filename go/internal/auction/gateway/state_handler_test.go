package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/clanhall/auctiond/go/internal/auction/events"
)

type fakeStateProvider struct {
	state  *RoomStateResponse
	rooms  []RoomSummary
	events []events.AuctionEvent
	err    error

	lastRoomID uuid.UUID
	lastSince  int64
}

func (p *fakeStateProvider) GetRoomState(ctx context.Context, roomID uuid.UUID) (*RoomStateResponse, error) {
	p.lastRoomID = roomID
	if p.err != nil {
		return nil, p.err
	}
	return p.state, nil
}

func (p *fakeStateProvider) GetActiveRooms(ctx context.Context) ([]RoomSummary, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.rooms, nil
}

func (p *fakeStateProvider) RoomEventsSince(ctx context.Context, roomID uuid.UUID, since int64) ([]events.AuctionEvent, error) {
	p.lastRoomID = roomID
	p.lastSince = since
	if p.err != nil {
		return nil, p.err
	}
	return p.events, nil
}

func TestHandleGetRoomState(t *testing.T) {
	roomID := uuid.New()
	provider := &fakeStateProvider{state: &RoomStateResponse{
		RoomID: roomID.String(),
		Title:  "Season 12 Draft",
		Status: "BIDDING",
	}}
	h := NewStateHandler(provider)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/rooms/%s/state", roomID), nil)
	rec := httptest.NewRecorder()
	h.HandleGetRoomState(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if provider.lastRoomID != roomID {
		t.Fatal("room ID not extracted from path")
	}
	var resp RoomStateResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Title != "Season 12 Draft" || resp.Status != "BIDDING" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestHandleGetRoomStateErrors(t *testing.T) {
	cases := []struct {
		name     string
		path     string
		provider *fakeStateProvider
		want     int
	}{
		{
			name:     "invalid room id",
			path:     "/api/rooms/not-a-uuid/state",
			provider: &fakeStateProvider{},
			want:     http.StatusBadRequest,
		},
		{
			name:     "provider failure",
			path:     fmt.Sprintf("/api/rooms/%s/state", uuid.New()),
			provider: &fakeStateProvider{err: errors.New("room not found")},
			want:     http.StatusNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewStateHandler(tc.provider)
			rec := httptest.NewRecorder()
			h.HandleGetRoomState(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestHandleGetRoomEventsReplay(t *testing.T) {
	roomID := uuid.New()
	provider := &fakeStateProvider{events: []events.AuctionEvent{
		{ID: uuid.New(), RoomID: roomID, Sequence: 4, Type: events.EventTypeBidPlaced, Payload: []byte(`{}`)},
		{ID: uuid.New(), RoomID: roomID, Sequence: 5, Type: events.EventTypePlayerSold, Payload: []byte(`{}`)},
	}}
	h := NewStateHandler(provider)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/rooms/%s/events?since=3", roomID), nil)
	rec := httptest.NewRecorder()
	h.HandleGetRoomEvents(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if provider.lastSince != 3 {
		t.Fatalf("since = %d, want 3", provider.lastSince)
	}
	var resp []events.AuctionEvent
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 2 || resp[0].Sequence != 4 || resp[1].Sequence != 5 {
		t.Fatalf("unexpected replay: %+v", resp)
	}
}

func TestHandleGetRoomEventsDefaultsAndValidation(t *testing.T) {
	roomID := uuid.New()
	provider := &fakeStateProvider{}
	h := NewStateHandler(provider)

	// No since parameter defaults to the full log.
	rec := httptest.NewRecorder()
	h.HandleGetRoomEvents(rec, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/rooms/%s/events", roomID), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if provider.lastSince != 0 {
		t.Fatalf("since = %d, want 0", provider.lastSince)
	}
	// An empty log still serializes as an array, not null.
	if body := rec.Body.String(); body != "[]\n" {
		t.Fatalf("body = %q, want empty array", body)
	}

	rec = httptest.NewRecorder()
	h.HandleGetRoomEvents(rec, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/rooms/%s/events?since=-1", roomID), nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for negative since", rec.Code)
	}
}

func TestHandleGetActiveRooms(t *testing.T) {
	provider := &fakeStateProvider{rooms: []RoomSummary{
		{RoomID: uuid.NewString(), Title: "Draft A", Status: "WAITING"},
		{RoomID: uuid.NewString(), Title: "Draft B", Status: "BIDDING"},
	}}
	h := NewStateHandler(provider)

	rec := httptest.NewRecorder()
	h.HandleGetActiveRooms(rec, httptest.NewRequest(http.MethodGet, "/api/rooms/active", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp []RoomSummary
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("rooms = %d, want 2", len(resp))
	}
}
