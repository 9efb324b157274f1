package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/clanhall/auctiond/go/internal/auction/admin"
	"github.com/clanhall/auctiond/go/internal/auction/engine"
	"github.com/clanhall/auctiond/go/internal/models"
)

// StateRoutes serves the read-side room endpoints that share the
// /api/rooms/ prefix with the command routes.
type StateRoutes interface {
	HandleGetRoomState(w http.ResponseWriter, r *http.Request)
	HandleGetRoomEvents(w http.ResponseWriter, r *http.Request)
}

// Handler exposes the auction command surface over HTTP JSON. Every
// route resolves the caller into a Principal and dispatches through the
// admin gateway; the engine enforces who may do what.
type Handler struct {
	gateway *admin.Gateway
	state   StateRoutes
}

// NewHandler creates a new command handler. state may be nil when the
// read-side endpoints are served elsewhere.
func NewHandler(gateway *admin.Gateway, state StateRoutes) *Handler {
	return &Handler{gateway: gateway, state: state}
}

// RegisterRoutes registers the command routes with an HTTP mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/auctions", h.handleCreateAuction)
	mux.HandleFunc("/api/rooms/", h.handleRoomCommand)
	log.Info().Msg("auction command routes registered")
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type createAuctionResponse struct {
	RoomID string `json:"room_id"`
}

type selectPlayerRequest struct {
	PlayerID uuid.UUID `json:"player_id"`
}

type placeBidRequest struct {
	TeamID uuid.UUID `json:"team_id"`
	Amount int       `json:"amount"`
}

type forceAssignRequest struct {
	PlayerID uuid.UUID `json:"player_id"`
	TeamID   uuid.UUID `json:"team_id"`
	Price    int       `json:"price"`
}

type setCaptainRequest struct {
	TeamID uuid.UUID `json:"team_id"`
	UserID uuid.UUID `json:"user_id"`
}

func (h *Handler) handleCreateAuction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	principal, ok := principalFromRequest(w, r)
	if !ok {
		return
	}

	var req engine.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "VALIDATION")
		return
	}

	room, err := h.gateway.CreateAuction(principal, req)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(createAuctionResponse{RoomID: room.ID().String()}); err != nil {
		log.Error().Err(err).Msg("failed to encode create auction response")
	}
}

// handleRoomCommand dispatches POST /api/rooms/{id}/{command}. GET
// requests for the shared prefix go to the state routes.
func (h *Handler) handleRoomCommand(w http.ResponseWriter, r *http.Request) {
	if h.state != nil && r.Method == http.MethodGet {
		switch {
		case strings.HasSuffix(r.URL.Path, "/state"):
			h.state.HandleGetRoomState(w, r)
			return
		case strings.HasSuffix(r.URL.Path, "/events"):
			h.state.HandleGetRoomEvents(w, r)
			return
		}
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	roomID, command, ok := parseCommandPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	principal, pok := principalFromRequest(w, r)
	if !pok {
		return
	}

	switch command {
	case "select-player":
		var req selectPlayerRequest
		if !decodeBody(w, r, &req) {
			return
		}
		h.respond(w, nil, h.gateway.SelectPlayer(principal, roomID, req.PlayerID))

	case "bid":
		var req placeBidRequest
		if !decodeBody(w, r, &req) {
			return
		}
		bid, err := h.gateway.PlaceBid(principal, roomID, req.TeamID, req.Amount)
		h.respond(w, bid, err)

	case "pause":
		h.respond(w, nil, h.gateway.Pause(principal, roomID))

	case "resume":
		h.respond(w, nil, h.gateway.Resume(principal, roomID))

	case "confirm":
		h.respond(w, nil, h.gateway.Confirm(principal, roomID))

	case "cancel":
		h.respond(w, nil, h.gateway.Cancel(principal, roomID))

	case "force-assign":
		var req forceAssignRequest
		if !decodeBody(w, r, &req) {
			return
		}
		h.respond(w, nil, h.gateway.ForceAssign(principal, roomID, req.PlayerID, req.TeamID, req.Price))

	case "set-captain":
		var req setCaptainRequest
		if !decodeBody(w, r, &req) {
			return
		}
		h.respond(w, nil, h.gateway.SetCaptain(principal, roomID, req.TeamID, req.UserID))

	case "end":
		h.respond(w, nil, h.gateway.EndAuction(principal, roomID))

	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) respond(w http.ResponseWriter, body any, err error) {
	if err != nil {
		writeEngineError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if body == nil {
		body = map[string]string{"status": "ok"}
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode command response")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "VALIDATION")
		return false
	}
	return true
}

// principalFromRequest resolves caller identity from headers. This is
// the trusted-proxy model: the community app in front terminates auth
// and forwards identity.
func principalFromRequest(w http.ResponseWriter, r *http.Request) (engine.Principal, bool) {
	userIDStr := r.Header.Get("X-User-ID")
	if userIDStr == "" {
		writeError(w, http.StatusUnauthorized, "X-User-ID header required", "UNAUTHORIZED")
		return engine.Principal{}, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid X-User-ID header", "UNAUTHORIZED")
		return engine.Principal{}, false
	}

	role := models.UserRole(strings.ToUpper(r.Header.Get("X-User-Role")))
	switch role {
	case models.UserRoleAdmin, models.UserRoleCaptain, models.UserRoleMember:
	default:
		role = models.UserRoleMember
	}

	return engine.Principal{UserID: userID, Role: role}, true
}

// parseCommandPath splits /api/rooms/{id}/{command}
func parseCommandPath(path string) (uuid.UUID, string, bool) {
	const prefix = "/api/rooms/"
	if !strings.HasPrefix(path, prefix) {
		return uuid.Nil, "", false
	}
	parts := strings.Split(strings.TrimPrefix(path, prefix), "/")
	if len(parts) != 2 {
		return uuid.Nil, "", false
	}
	roomID, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, "", false
	}
	return roomID, parts[1], true
}

func writeEngineError(w http.ResponseWriter, err error) {
	var (
		status = http.StatusInternalServerError
		code   = "INTERNAL"
	)

	switch {
	case errors.Is(err, engine.ErrValidation):
		status, code = http.StatusBadRequest, "VALIDATION"
	case errors.Is(err, engine.ErrUnauthorized):
		status, code = http.StatusForbidden, "UNAUTHORIZED"
	case errors.Is(err, admin.ErrRoomNotFound),
		errors.Is(err, engine.ErrUnknownTeam),
		errors.Is(err, engine.ErrUnknownPlayer):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, engine.ErrStaleBid):
		status, code = http.StatusConflict, "STALE_BID"
	case errors.Is(err, engine.ErrInsufficientBudget):
		status, code = http.StatusConflict, "INSUFFICIENT_BUDGET"
	case errors.Is(err, engine.ErrInvalidTransition):
		status, code = http.StatusConflict, "INVALID_TRANSITION"
	case errors.Is(err, engine.ErrNoActiveBid):
		status, code = http.StatusConflict, "NO_ACTIVE_BID"
	case errors.Is(err, engine.ErrRoomPaused):
		status, code = http.StatusConflict, "ROOM_PAUSED"
	case errors.Is(err, engine.ErrRoomClosed):
		status, code = http.StatusConflict, "ROOM_CLOSED"
	}

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("command failed")
	}
	writeError(w, status, err.Error(), code)
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: message, Code: code}); err != nil {
		log.Error().Err(err).Msg("failed to encode error response")
	}
}
