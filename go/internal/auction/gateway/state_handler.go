package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/clanhall/auctiond/go/internal/auction/events"
	"github.com/clanhall/auctiond/go/internal/models"
)

// StateProvider interface defines methods for retrieving room state
type StateProvider interface {
	GetRoomState(ctx context.Context, roomID uuid.UUID) (*RoomStateResponse, error)
	GetActiveRooms(ctx context.Context) ([]RoomSummary, error)
	RoomEventsSince(ctx context.Context, roomID uuid.UUID, since int64) ([]events.AuctionEvent, error)
}

// RoomStateResponse represents the complete public state of a room
type RoomStateResponse struct {
	RoomID        string              `json:"room_id"`
	Title         string              `json:"title"`
	Status        string              `json:"status"`
	CurrentPlayer *CurrentPlayerInfo  `json:"current_player,omitempty"`
	HighBid       *HighBidInfo        `json:"high_bid,omitempty"`
	RoundBids     []RoundBidInfo      `json:"round_bids,omitempty"`
	Teams         []TeamInfo          `json:"teams"`
	Players       []PoolPlayerInfo    `json:"players"`
	PoolRemaining int                 `json:"pool_remaining"`
	NextUp        []string            `json:"next_up,omitempty"`
	LastSequence  int64               `json:"last_sequence"`
	TimeoutAt     *time.Time          `json:"timeout_at,omitempty"`
	TimerPaused   bool                `json:"timer_paused"`
	TimeRemaining *int                `json:"time_remaining_sec,omitempty"`
	ServerTime    time.Time           `json:"server_time"`
	Settings      models.RoomSettings `json:"settings"`
}

// CurrentPlayerInfo represents the player currently on the block
type CurrentPlayerInfo struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Tier     string `json:"tier"`
}

// HighBidInfo represents the standing high bid of the round
type HighBidInfo struct {
	TeamID string `json:"team_id"`
	Amount int    `json:"amount"`
}

// RoundBidInfo represents one accepted bid of the current round
type RoundBidInfo struct {
	BidID    string    `json:"bid_id"`
	TeamID   string    `json:"team_id"`
	Amount   int       `json:"amount"`
	Sequence int       `json:"sequence"`
	PlacedAt time.Time `json:"placed_at"`
}

// PoolPlayerInfo represents one player of the room's full pool
type PoolPlayerInfo struct {
	PlayerID      string  `json:"player_id"`
	Name          string  `json:"name"`
	Role          string  `json:"role"`
	Tier          string  `json:"tier"`
	Status        string  `json:"status"`
	WinningTeamID *string `json:"winning_team_id,omitempty"`
	WinningAmount *int    `json:"winning_amount,omitempty"`
}

// TeamInfo represents a team's public budget state
type TeamInfo struct {
	TeamID          string  `json:"team_id"`
	Name            string  `json:"name"`
	CaptainID       *string `json:"captain_id,omitempty"`
	StartingPoints  int     `json:"starting_points"`
	CommittedPoints int     `json:"committed_points"`
	RemainingPoints int     `json:"remaining_points"`
}

// RoomSummary represents a summary of a live room
type RoomSummary struct {
	RoomID        string    `json:"room_id"`
	Title         string    `json:"title"`
	Status        string    `json:"status"`
	TeamCount     int       `json:"team_count"`
	PoolRemaining int       `json:"pool_remaining"`
	LastSequence  int64     `json:"last_sequence"`
	CreatedAt     time.Time `json:"created_at"`
}

// StateHandler handles HTTP requests for room state and replay
type StateHandler struct {
	stateProvider StateProvider
}

// NewStateHandler creates a new state handler
func NewStateHandler(provider StateProvider) *StateHandler {
	return &StateHandler{
		stateProvider: provider,
	}
}

// HandleGetRoomState handles GET /api/rooms/{id}/state
func (h *StateHandler) HandleGetRoomState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	roomID, ok := roomIDFromPath(w, r.URL.Path, "/state")
	if !ok {
		return
	}

	state, err := h.stateProvider.GetRoomState(r.Context(), roomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID.String()).Msg("failed to get room state")
		http.Error(w, "Failed to get room state", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(state); err != nil {
		log.Error().Err(err).Msg("failed to encode room state response")
	}
}

// HandleGetRoomEvents handles GET /api/rooms/{id}/events?since=N. The
// response is the ordered event slice with sequence > since, which is
// exactly what a reconnecting client applies before going live.
func (h *StateHandler) HandleGetRoomEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	roomID, ok := roomIDFromPath(w, r.URL.Path, "/events")
	if !ok {
		return
	}

	var since int64
	if s := r.URL.Query().Get("since"); s != "" {
		var err error
		since, err = strconv.ParseInt(s, 10, 64)
		if err != nil || since < 0 {
			http.Error(w, "Invalid since parameter", http.StatusBadRequest)
			return
		}
	}

	evts, err := h.stateProvider.RoomEventsSince(r.Context(), roomID, since)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID.String()).Msg("failed to get room events")
		http.Error(w, "Failed to get room events", http.StatusInternalServerError)
		return
	}
	if evts == nil {
		evts = []events.AuctionEvent{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(evts); err != nil {
		log.Error().Err(err).Msg("failed to encode room events response")
	}
}

// HandleGetActiveRooms handles GET /api/rooms/active
func (h *StateHandler) HandleGetActiveRooms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rooms, err := h.stateProvider.GetActiveRooms(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to get active rooms")
		http.Error(w, "Failed to get active rooms", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rooms); err != nil {
		log.Error().Err(err).Msg("failed to encode active rooms response")
	}
}

// RegisterStateRoutes registers state-related HTTP routes. The /state
// and /events room routes share the /api/rooms/ prefix with the command
// surface, which dispatches GET requests here.
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/rooms/active", h.HandleGetActiveRooms)
}

// roomIDFromPath extracts a room ID from paths like /api/rooms/{id}/state
func roomIDFromPath(w http.ResponseWriter, path, suffix string) (uuid.UUID, bool) {
	const prefix = "/api/rooms/"
	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		http.Error(w, "Room ID is required", http.StatusBadRequest)
		return uuid.Nil, false
	}

	idStr := strings.TrimSuffix(strings.TrimPrefix(path, prefix), suffix)
	roomID, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "Invalid room ID format", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return roomID, true
}
