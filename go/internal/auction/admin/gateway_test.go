package admin

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/clanhall/auctiond/go/internal/auction/engine"
	"github.com/clanhall/auctiond/go/internal/models"
)

type fakeManager struct {
	rooms     map[uuid.UUID]*engine.Room
	createErr error
	created   []engine.CreateRoomRequest
}

func (m *fakeManager) CreateRoom(req engine.CreateRoomRequest) (*engine.Room, error) {
	m.created = append(m.created, req)
	if m.createErr != nil {
		return nil, m.createErr
	}
	room := engine.NewRoom(models.AuctionRoom{
		ID:     uuid.New(),
		Title:  req.Title,
		Status: models.RoomStatusWaiting,
		Settings: models.RoomSettings{
			TurnTimeLimitSec: req.TurnTimeLimitSec,
			MinBidIncrement:  req.MinBidIncrement,
			StartingPoints:   req.StartingPoints,
		},
	}, nil, nil, engine.RoomConfig{Clock: clockwork.NewFakeClock()})
	if m.rooms == nil {
		m.rooms = map[uuid.UUID]*engine.Room{}
	}
	m.rooms[room.ID()] = room
	return room, nil
}

func (m *fakeManager) GetRoom(id uuid.UUID) (*engine.Room, bool) {
	r, ok := m.rooms[id]
	return r, ok
}

func adminPrincipal() engine.Principal {
	return engine.Principal{UserID: uuid.New(), Role: models.UserRoleAdmin}
}

func memberPrincipal() engine.Principal {
	return engine.Principal{UserID: uuid.New(), Role: models.UserRoleMember}
}

func TestAdminOnlyCommandsRejectNonAdmins(t *testing.T) {
	g := NewGateway(&fakeManager{})
	member := memberPrincipal()
	roomID := uuid.New()

	ops := []struct {
		name string
		call func() error
	}{
		{"create", func() error {
			_, err := g.CreateAuction(member, engine.CreateRoomRequest{})
			return err
		}},
		{"select player", func() error { return g.SelectPlayer(member, roomID, uuid.New()) }},
		{"pause", func() error { return g.Pause(member, roomID) }},
		{"resume", func() error { return g.Resume(member, roomID) }},
		{"confirm", func() error { return g.Confirm(member, roomID) }},
		{"cancel", func() error { return g.Cancel(member, roomID) }},
		{"force assign", func() error { return g.ForceAssign(member, roomID, uuid.New(), uuid.New(), 100) }},
		{"set captain", func() error { return g.SetCaptain(member, roomID, uuid.New(), uuid.New()) }},
		{"end", func() error { return g.EndAuction(member, roomID) }},
	}

	for _, op := range ops {
		t.Run(op.name, func(t *testing.T) {
			if err := op.call(); !errors.Is(err, engine.ErrUnauthorized) {
				t.Fatalf("err = %v, want ErrUnauthorized", err)
			}
		})
	}
}

func TestCommandsOnUnknownRoomReturnNotFound(t *testing.T) {
	g := NewGateway(&fakeManager{})
	admin := adminPrincipal()
	roomID := uuid.New()

	ops := []struct {
		name string
		call func() error
	}{
		{"select player", func() error { return g.SelectPlayer(admin, roomID, uuid.New()) }},
		{"place bid", func() error {
			_, err := g.PlaceBid(memberPrincipal(), roomID, uuid.New(), 100)
			return err
		}},
		{"pause", func() error { return g.Pause(admin, roomID) }},
		{"end", func() error { return g.EndAuction(admin, roomID) }},
	}

	for _, op := range ops {
		t.Run(op.name, func(t *testing.T) {
			if err := op.call(); !errors.Is(err, ErrRoomNotFound) {
				t.Fatalf("err = %v, want ErrRoomNotFound", err)
			}
		})
	}
}

func TestCreateAuctionForwardsRequest(t *testing.T) {
	m := &fakeManager{}
	g := NewGateway(m)

	req := engine.CreateRoomRequest{Title: "Season 12 Draft", StartingPoints: 1000}
	room, err := g.CreateAuction(adminPrincipal(), req)
	if err != nil {
		t.Fatalf("create auction: %v", err)
	}
	defer room.Close()

	if len(m.created) != 1 || m.created[0].Title != req.Title {
		t.Fatal("request not forwarded to the manager")
	}
}

func TestPlaceBidSkipsAdminGate(t *testing.T) {
	m := &fakeManager{}
	g := NewGateway(m)

	room, err := g.CreateAuction(adminPrincipal(), engine.CreateRoomRequest{Title: "Draft"})
	if err != nil {
		t.Fatalf("create auction: %v", err)
	}
	defer room.Close()

	// Captains are not admins; the gateway must not reject them before
	// the room can check captaincy. The room rejects for its own reason
	// here because no round is active.
	_, err = g.PlaceBid(memberPrincipal(), room.ID(), uuid.New(), 100)
	if errors.Is(err, engine.ErrUnauthorized) {
		t.Fatalf("bid gated on admin: %v", err)
	}
	if !errors.Is(err, engine.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition from the room", err)
	}
}
