package engine

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/clanhall/auctiond/go/internal/auction/events"
	"github.com/clanhall/auctiond/go/internal/models"
)

func validCreateRequest() CreateRoomRequest {
	return CreateRoomRequest{
		Title:            "Season 12 Draft",
		StartingPoints:   1000,
		TurnTimeLimitSec: 30,
		MinBidIncrement:  100,
		MaxParticipants:  50,
		TeamCount:        2,
		Players: []PlayerSeed{
			{Name: "Alpha", Role: "TANK", Tier: "S"},
			{Name: "Bravo", Role: "DPS", Tier: "A"},
		},
	}
}

func TestCreateRoomValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(req *CreateRoomRequest)
	}{
		{"empty title", func(r *CreateRoomRequest) { r.Title = "  " }},
		{"zero starting points", func(r *CreateRoomRequest) { r.StartingPoints = 0 }},
		{"zero turn limit", func(r *CreateRoomRequest) { r.TurnTimeLimitSec = 0 }},
		{"zero increment", func(r *CreateRoomRequest) { r.MinBidIncrement = 0 }},
		{"single team", func(r *CreateRoomRequest) { r.TeamCount = 1 }},
		{"participants below teams", func(r *CreateRoomRequest) { r.MaxParticipants = 1 }},
		{"team names mismatch", func(r *CreateRoomRequest) { r.TeamNames = []string{"Only"} }},
		{"empty pool", func(r *CreateRoomRequest) { r.Players = nil }},
	}

	m := NewManager(clockwork.NewFakeClock(), nil, nil)
	defer m.Close()

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validCreateRequest()
			tc.mutate(&req)
			if _, err := m.CreateRoom(req); !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestCreateRoomSeedsAggregate(t *testing.T) {
	m := NewManager(clockwork.NewFakeClock(), nil, nil)
	defer m.Close()

	req := validCreateRequest()
	req.TeamNames = []string{"Crimson", "Azure"}
	room, err := m.CreateRoom(req)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	snap := room.Snapshot()
	if snap.Room.Status != models.RoomStatusWaiting {
		t.Fatalf("status = %s, want WAITING", snap.Room.Status)
	}
	if len(snap.Teams) != 2 {
		t.Fatalf("teams = %d, want 2", len(snap.Teams))
	}
	names := map[string]bool{}
	for _, team := range snap.Teams {
		names[team.Name] = true
		if team.StartingPoints != 1000 || team.CommittedPoints != 0 {
			t.Fatalf("unexpected team budget: %+v", team)
		}
	}
	if !names["Crimson"] || !names["Azure"] {
		t.Fatal("team names not applied")
	}
	if snap.PoolRemaining != 2 || len(snap.Players) != 2 {
		t.Fatalf("pool = %d/%d, want 2/2", snap.PoolRemaining, len(snap.Players))
	}
	for _, pl := range snap.Players {
		if pl.Status != models.PlayerStatusPool {
			t.Fatalf("player status = %s, want POOL", pl.Status)
		}
	}

	got, ok := m.GetRoom(room.ID())
	if !ok || got != room {
		t.Fatal("room not registered with manager")
	}
}

func TestCloseRoomStopsActor(t *testing.T) {
	m := NewManager(clockwork.NewFakeClock(), nil, nil)
	defer m.Close()

	room, err := m.CreateRoom(validCreateRequest())
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	m.CloseRoom(room.ID())

	if _, ok := m.GetRoom(room.ID()); ok {
		t.Fatal("closed room still registered")
	}
	admin := Principal{UserID: uuid.New(), Role: models.UserRoleAdmin}
	if err := room.End(admin); !errors.Is(err, ErrRoomClosed) {
		t.Fatalf("err = %v, want ErrRoomClosed", err)
	}
}

func mustPayload(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return raw
}

func TestRestoreRoomRebuildsInFlightRound(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC))
	sink := &captureSink{}
	m := NewManager(clock, sink, nil)
	defer m.Close()

	roomID := uuid.New()
	teamA := uuid.New()
	teamB := uuid.New()
	soldPlayer := uuid.New()
	livePlayer := uuid.New()
	captainA := uuid.New()
	captainB := uuid.New()
	soldAmount := 300
	now := clock.Now()

	room := models.AuctionRoom{
		ID:              roomID,
		Title:           "Season 12 Draft",
		Status:          models.RoomStatusBidding,
		CurrentPlayerID: &livePlayer,
		TeamCount:       2,
		MaxParticipants: 50,
		Settings: models.RoomSettings{
			TurnTimeLimitSec: 30,
			MinBidIncrement:  100,
			StartingPoints:   1000,
		},
	}
	teams := []models.Team{
		{ID: teamA, RoomID: roomID, Name: "Crimson", CaptainID: &captainA, StartingPoints: 1000, CommittedPoints: 300},
		{ID: teamB, RoomID: roomID, Name: "Azure", CaptainID: &captainB, StartingPoints: 1000},
	}
	players := []models.Player{
		{ID: soldPlayer, RoomID: roomID, Name: "Alpha", Status: models.PlayerStatusSold, WinningTeamID: &teamA, WinningAmount: &soldAmount},
		{ID: livePlayer, RoomID: roomID, Name: "Bravo", Status: models.PlayerStatusPool},
	}

	bidID := uuid.New()
	elog := []events.AuctionEvent{
		{
			ID: uuid.New(), RoomID: roomID, Sequence: 5, Type: events.EventTypeBidPlaced,
			Payload: mustPayload(t, events.BidPlacedPayload{
				BidID:       bidID.String(),
				PlayerID:    livePlayer.String(),
				TeamID:      teamB.String(),
				TeamName:    "Azure",
				Amount:      200,
				BidSequence: 1,
				PlacedAt:    now.Add(-10 * time.Second),
				TimeoutAt:   now.Add(20 * time.Second),
			}),
			ServerTime: now.Add(-10 * time.Second),
		},
	}

	deadline := now.Add(20 * time.Second)
	r := m.RestoreRoom(room, teams, players, elog, RoundState{
		RoomID:          roomID,
		Status:          models.RoomStatusBidding,
		CurrentPlayerID: &livePlayer,
		Round:           2,
		LastSequence:    5,
		Deadline:        &deadline,
	})

	snap := r.Snapshot()
	if snap.Room.Status != models.RoomStatusBidding {
		t.Fatalf("status = %s, want BIDDING", snap.Room.Status)
	}
	if snap.Room.CurrentBid == nil || snap.Room.CurrentBid.Amount != 200 || snap.Room.CurrentBid.TeamID != teamB {
		t.Fatal("standing bid not rebuilt from the event log")
	}
	if snap.TimeoutAt == nil || !snap.TimeoutAt.Equal(deadline) {
		t.Fatalf("timeout = %v, want %v", snap.TimeoutAt, deadline)
	}
	if snap.LastSequence != 5 {
		t.Fatalf("last sequence = %d, want 5", snap.LastSequence)
	}

	// A raise below the rebuilt standing bid plus increment is stale.
	capB := Principal{UserID: captainB, Role: models.UserRoleCaptain}
	if _, err := r.PlaceBid(capB, teamB, 250); !errors.Is(err, ErrStaleBid) {
		t.Fatalf("err = %v, want ErrStaleBid against rebuilt bid", err)
	}
	bid, err := r.PlaceBid(capB, teamB, 300)
	if err != nil {
		t.Fatalf("raise after restore: %v", err)
	}
	if bid.Sequence != 2 {
		t.Fatalf("bid sequence = %d, want 2 continuing the round", bid.Sequence)
	}

	// New events continue the persisted sequence without gaps.
	published := sink.all()
	if len(published) == 0 || published[len(published)-1].Sequence != 6 {
		t.Fatal("event sequence did not continue from persisted value")
	}

	// The replayed sale keeps its debit: confirming the same player
	// again cannot double-charge, and the budget reflects history.
	admin := Principal{UserID: uuid.New(), Role: models.UserRoleAdmin}
	if err := r.Confirm(admin); err != nil {
		t.Fatalf("confirm after restore: %v", err)
	}
	for _, team := range r.Snapshot().Teams {
		switch team.ID {
		case teamA:
			if team.CommittedPoints != 300 {
				t.Fatalf("team A committed = %d, want 300", team.CommittedPoints)
			}
		case teamB:
			if team.CommittedPoints != 300 {
				t.Fatalf("team B committed = %d, want 300", team.CommittedPoints)
			}
		}
	}
}

func TestRestoreRoomExpiredDeadlineResolvesRound(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC))
	m := NewManager(clock, nil, nil)
	defer m.Close()

	roomID := uuid.New()
	livePlayer := uuid.New()
	room := models.AuctionRoom{
		ID:              roomID,
		Title:           "Season 12 Draft",
		Status:          models.RoomStatusBidding,
		CurrentPlayerID: &livePlayer,
		TeamCount:       2,
		MaxParticipants: 50,
		Settings: models.RoomSettings{
			TurnTimeLimitSec: 30,
			MinBidIncrement:  100,
			StartingPoints:   1000,
		},
	}
	teams := []models.Team{
		{ID: uuid.New(), RoomID: roomID, Name: "Crimson", StartingPoints: 1000},
		{ID: uuid.New(), RoomID: roomID, Name: "Azure", StartingPoints: 1000},
	}
	players := []models.Player{
		{ID: livePlayer, RoomID: roomID, Name: "Bravo", Status: models.PlayerStatusPool},
		{ID: uuid.New(), RoomID: roomID, Name: "Charlie", Status: models.PlayerStatusPool},
	}

	// Deadline already passed while the process was down.
	deadline := clock.Now().Add(-10 * time.Second)
	r := m.RestoreRoom(room, teams, players, nil, RoundState{
		RoomID:          roomID,
		Status:          models.RoomStatusBidding,
		CurrentPlayerID: &livePlayer,
		Round:           1,
		Deadline:        &deadline,
	})

	clock.Advance(time.Millisecond)
	waitFor(t, func() bool { return r.Snapshot().Room.Status == models.RoomStatusWaiting })

	snap := r.Snapshot()
	for _, pl := range snap.Players {
		if pl.ID == livePlayer && pl.Status != models.PlayerStatusUnsold {
			t.Fatalf("player status = %s, want UNSOLD", pl.Status)
		}
	}
}
