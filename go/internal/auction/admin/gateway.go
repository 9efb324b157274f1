package admin

import (
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/clanhall/auctiond/go/internal/auction/engine"
	"github.com/clanhall/auctiond/go/internal/models"
)

// ErrRoomNotFound is returned when a command targets an unknown room.
var ErrRoomNotFound = errors.New("room not found")

// RoomManager defines what the gateway needs from the engine
type RoomManager interface {
	CreateRoom(req engine.CreateRoomRequest) (*engine.Room, error)
	GetRoom(id uuid.UUID) (*engine.Room, bool)
}

// Gateway is the single entry point for privileged auction operations.
// It authorizes the caller and dispatches into the room actor; the ad
// hoc per-button handlers of the old client collapse into this one
// contract.
type Gateway struct {
	manager RoomManager
}

// NewGateway creates an admin command gateway.
func NewGateway(manager RoomManager) *Gateway {
	return &Gateway{manager: manager}
}

func (g *Gateway) requireAdmin(p engine.Principal, op string) error {
	if p.IsAdmin() {
		return nil
	}
	log.Warn().
		Str("user_id", p.UserID.String()).
		Str("role", string(p.Role)).
		Str("op", op).
		Msg("admin command rejected")
	return engine.ErrUnauthorized
}

func (g *Gateway) room(roomID uuid.UUID) (*engine.Room, error) {
	r, ok := g.manager.GetRoom(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// CreateAuction creates a new room in WAITING status.
func (g *Gateway) CreateAuction(p engine.Principal, req engine.CreateRoomRequest) (*engine.Room, error) {
	if err := g.requireAdmin(p, "create-auction"); err != nil {
		return nil, err
	}
	return g.manager.CreateRoom(req)
}

// SelectPlayer nominates a pool player for bidding.
func (g *Gateway) SelectPlayer(p engine.Principal, roomID, playerID uuid.UUID) error {
	if err := g.requireAdmin(p, "select-player"); err != nil {
		return err
	}
	r, err := g.room(roomID)
	if err != nil {
		return err
	}
	return r.SelectPlayer(p, playerID)
}

// PlaceBid forwards a bid into the room. Authorization (captain of the
// team, or admin) happens inside the room's serialization point where
// the captaincy state lives.
func (g *Gateway) PlaceBid(p engine.Principal, roomID, teamID uuid.UUID, amount int) (*models.Bid, error) {
	r, err := g.room(roomID)
	if err != nil {
		return nil, err
	}
	return r.PlaceBid(p, teamID, amount)
}

// Pause suspends the current round, freezing the remaining time.
func (g *Gateway) Pause(p engine.Principal, roomID uuid.UUID) error {
	if err := g.requireAdmin(p, "pause"); err != nil {
		return err
	}
	r, err := g.room(roomID)
	if err != nil {
		return err
	}
	return r.Pause(p)
}

// Resume restarts a paused round from its frozen remaining time.
func (g *Gateway) Resume(p engine.Principal, roomID uuid.UUID) error {
	if err := g.requireAdmin(p, "resume"); err != nil {
		return err
	}
	r, err := g.room(roomID)
	if err != nil {
		return err
	}
	return r.Resume(p)
}

// Confirm resolves the current round SOLD to the highest bidder.
func (g *Gateway) Confirm(p engine.Principal, roomID uuid.UUID) error {
	if err := g.requireAdmin(p, "confirm"); err != nil {
		return err
	}
	r, err := g.room(roomID)
	if err != nil {
		return err
	}
	return r.Confirm(p)
}

// Cancel resolves the current round UNSOLD.
func (g *Gateway) Cancel(p engine.Principal, roomID uuid.UUID) error {
	if err := g.requireAdmin(p, "cancel"); err != nil {
		return err
	}
	r, err := g.room(roomID)
	if err != nil {
		return err
	}
	return r.Cancel(p)
}

// ForceAssign sells a pool player to a team at price without a bidding
// round, for manual corrections.
func (g *Gateway) ForceAssign(p engine.Principal, roomID, playerID, teamID uuid.UUID, price int) error {
	if err := g.requireAdmin(p, "force-assign"); err != nil {
		return err
	}
	r, err := g.room(roomID)
	if err != nil {
		return err
	}
	return r.ForceAssign(p, playerID, teamID, price)
}

// SetCaptain assigns the user allowed to bid on a team's behalf.
func (g *Gateway) SetCaptain(p engine.Principal, roomID, teamID, userID uuid.UUID) error {
	if err := g.requireAdmin(p, "set-captain"); err != nil {
		return err
	}
	r, err := g.room(roomID)
	if err != nil {
		return err
	}
	return r.SetCaptain(p, teamID, userID)
}

// EndAuction terminates the room explicitly.
func (g *Gateway) EndAuction(p engine.Principal, roomID uuid.UUID) error {
	if err := g.requireAdmin(p, "end-auction"); err != nil {
		return err
	}
	r, err := g.room(roomID)
	if err != nil {
		return err
	}
	return r.End(p)
}
