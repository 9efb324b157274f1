package gateway

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/clanhall/auctiond/go/internal/auction/engine"
	"github.com/clanhall/auctiond/go/internal/auction/events"
	"github.com/clanhall/auctiond/go/internal/auction/outbox"
)

// EngineStateProvider implements StateProvider against the live room
// manager, falling back to the durable outbox log for replay when the
// requested history has already left the in-memory window.
type EngineStateProvider struct {
	manager   *engine.Manager
	outboxApp *outbox.App
}

// NewEngineStateProvider creates a new engine-backed state provider
func NewEngineStateProvider(manager *engine.Manager, outboxApp *outbox.App) *EngineStateProvider {
	return &EngineStateProvider{
		manager:   manager,
		outboxApp: outboxApp,
	}
}

// GetRoomState retrieves the complete state of an auction room
func (p *EngineStateProvider) GetRoomState(ctx context.Context, roomID uuid.UUID) (*RoomStateResponse, error) {
	room, ok := p.manager.GetRoom(roomID)
	if !ok {
		return nil, fmt.Errorf("room %s not found", roomID)
	}

	snap := room.Snapshot()
	if snap == nil {
		return nil, fmt.Errorf("room %s has no published state", roomID)
	}

	response := &RoomStateResponse{
		RoomID:        snap.Room.ID.String(),
		Title:         snap.Room.Title,
		Status:        string(snap.Room.Status),
		Teams:         make([]TeamInfo, 0, len(snap.Teams)),
		PoolRemaining: snap.PoolRemaining,
		NextUp:        snap.NextUp,
		LastSequence:  snap.LastSequence,
		TimeoutAt:     snap.TimeoutAt,
		TimerPaused:   snap.TimerPaused,
		ServerTime:    snap.ServerTime,
		Settings:      snap.Room.Settings,
	}

	remaining := snap.CalculateTimeRemaining(snap.ServerTime)
	response.TimeRemaining = &remaining

	for i := range snap.Teams {
		t := &snap.Teams[i]
		info := TeamInfo{
			TeamID:          t.ID.String(),
			Name:            t.Name,
			StartingPoints:  t.StartingPoints,
			CommittedPoints: t.CommittedPoints,
			RemainingPoints: t.RemainingPoints(),
		}
		if t.CaptainID != nil {
			id := t.CaptainID.String()
			info.CaptainID = &id
		}
		response.Teams = append(response.Teams, info)
	}

	for i := range snap.Players {
		p := &snap.Players[i]
		info := PoolPlayerInfo{
			PlayerID: p.ID.String(),
			Name:     p.Name,
			Role:     p.Role,
			Tier:     p.Tier,
			Status:   string(p.Status),
		}
		if p.WinningTeamID != nil {
			id := p.WinningTeamID.String()
			info.WinningTeamID = &id
		}
		if p.WinningAmount != nil {
			amount := *p.WinningAmount
			info.WinningAmount = &amount
		}
		response.Players = append(response.Players, info)
	}

	if snap.CurrentPlayer != nil {
		response.CurrentPlayer = &CurrentPlayerInfo{
			PlayerID: snap.CurrentPlayer.ID.String(),
			Name:     snap.CurrentPlayer.Name,
			Role:     snap.CurrentPlayer.Role,
			Tier:     snap.CurrentPlayer.Tier,
		}
	}
	if snap.Room.CurrentBid != nil {
		response.HighBid = &HighBidInfo{
			TeamID: snap.Room.CurrentBid.TeamID.String(),
			Amount: snap.Room.CurrentBid.Amount,
		}
	}
	for i := range snap.RoundBids {
		b := &snap.RoundBids[i]
		response.RoundBids = append(response.RoundBids, RoundBidInfo{
			BidID:    b.ID.String(),
			TeamID:   b.TeamID.String(),
			Amount:   b.Amount,
			Sequence: b.Sequence,
			PlacedAt: b.PlacedAt,
		})
	}

	return response, nil
}

// GetActiveRooms retrieves summaries of all live rooms
func (p *EngineStateProvider) GetActiveRooms(ctx context.Context) ([]RoomSummary, error) {
	rooms := p.manager.Rooms()
	summaries := make([]RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		snap := room.Snapshot()
		if snap == nil {
			continue
		}
		summaries = append(summaries, RoomSummary{
			RoomID:        snap.Room.ID.String(),
			Title:         snap.Room.Title,
			Status:        string(snap.Room.Status),
			TeamCount:     snap.Room.TeamCount,
			PoolRemaining: snap.PoolRemaining,
			LastSequence:  snap.LastSequence,
			CreatedAt:     snap.Room.CreatedAt,
		})
	}
	return summaries, nil
}

// RoomEventsSince serves ordered replay for reconnecting clients. Live
// rooms answer from their in-memory log; otherwise the durable outbox
// log is consulted.
func (p *EngineStateProvider) RoomEventsSince(ctx context.Context, roomID uuid.UUID, since int64) ([]events.AuctionEvent, error) {
	if room, ok := p.manager.GetRoom(roomID); ok {
		return room.EventsSince(since), nil
	}

	rows, err := p.outboxApp.RoomEventsSince(ctx, roomID, since, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch persisted room events: %w", err)
	}

	out := make([]events.AuctionEvent, 0, len(rows))
	for _, row := range rows {
		out = append(out, events.AuctionEvent{
			ID:         row.ID,
			RoomID:     row.RoomID,
			Sequence:   row.Sequence,
			Type:       events.EventType(row.EventType),
			Payload:    row.Payload,
			ServerTime: row.EventServerTime(),
		})
	}
	return out, nil
}
