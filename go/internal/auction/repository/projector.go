package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/clanhall/auctiond/go/internal/auction/events"
	"github.com/clanhall/auctiond/go/internal/models"
)

// Projector applies committed room events to the durable tables. It
// implements engine.EventSink: the room hands events over without
// blocking and a single goroutine applies them in commit order, so the
// tables converge on the live state without touching the bidding path.
type Projector struct {
	repo *Repository
	ch   chan events.AuctionEvent
}

// NewProjector creates a projector with the given buffer size.
func NewProjector(repo *Repository, buffer int) *Projector {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Projector{
		repo: repo,
		ch:   make(chan events.AuctionEvent, buffer),
	}
}

// Publish implements engine.EventSink. It never blocks the caller.
func (p *Projector) Publish(event events.AuctionEvent) {
	select {
	case p.ch <- event:
	default:
		log.Warn().
			Str("room_id", event.RoomID.String()).
			Int64("sequence", event.Sequence).
			Msg("projector buffer full, dropping event")
	}
}

// Run applies events until ctx is done.
func (p *Projector) Run(ctx context.Context) {
	log.Info().Msg("projector started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("projector shutting down")
			return
		case ev := <-p.ch:
			if err := p.apply(ctx, ev); err != nil {
				log.Error().
					Err(err).
					Str("room_id", ev.RoomID.String()).
					Str("event_type", string(ev.Type)).
					Int64("sequence", ev.Sequence).
					Msg("failed to project event")
			}
		}
	}
}

func (p *Projector) apply(ctx context.Context, ev events.AuctionEvent) error {
	applyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	payload, err := events.ParsePayload(&ev)
	if err != nil {
		return err
	}

	switch pl := payload.(type) {
	case events.PlayerSelectedPayload:
		playerID, err := uuid.Parse(pl.PlayerID)
		if err != nil {
			return err
		}
		if err := p.repo.UpdatePlayerStatus(applyCtx, playerID, models.PlayerStatusInAuction); err != nil {
			return err
		}
		return p.repo.UpdateRoomState(applyCtx, models.AuctionRoom{
			ID:              ev.RoomID,
			Status:          models.RoomStatusBidding,
			CurrentPlayerID: &playerID,
			UpdatedAt:       ev.ServerTime,
		})

	case events.BidPlacedPayload:
		bidID, err := uuid.Parse(pl.BidID)
		if err != nil {
			return err
		}
		playerID, err := uuid.Parse(pl.PlayerID)
		if err != nil {
			return err
		}
		teamID, err := uuid.Parse(pl.TeamID)
		if err != nil {
			return err
		}
		if err := p.repo.InsertBid(applyCtx, models.Bid{
			ID:       bidID,
			RoomID:   ev.RoomID,
			PlayerID: playerID,
			TeamID:   teamID,
			Amount:   pl.Amount,
			Sequence: pl.BidSequence,
			PlacedAt: pl.PlacedAt,
		}); err != nil {
			return err
		}
		return p.repo.UpdateRoomState(applyCtx, models.AuctionRoom{
			ID:              ev.RoomID,
			Status:          models.RoomStatusBidding,
			CurrentPlayerID: &playerID,
			CurrentBid:      &models.BidRef{TeamID: teamID, Amount: pl.Amount},
			UpdatedAt:       ev.ServerTime,
		})

	case events.AuctionPausedPayload:
		return p.updateRoomStatus(applyCtx, ev.RoomID, models.RoomStatusPaused, ev.ServerTime)

	case events.AuctionResumedPayload:
		return p.updateRoomStatus(applyCtx, ev.RoomID, models.RoomStatusBidding, ev.ServerTime)

	case events.PlayerSoldPayload:
		playerID, err := uuid.Parse(pl.PlayerID)
		if err != nil {
			return err
		}
		teamID, err := uuid.Parse(pl.TeamID)
		if err != nil {
			return err
		}
		if err := p.recordSold(applyCtx, playerID, teamID, pl.Amount, pl.TeamRemainingPoints); err != nil {
			return err
		}
		return p.clearRoomRound(applyCtx, ev.RoomID, ev.ServerTime)

	case events.PlayerUnsoldPayload:
		playerID, err := uuid.Parse(pl.PlayerID)
		if err != nil {
			return err
		}
		if err := p.repo.RecordPlayerUnsold(applyCtx, playerID); err != nil {
			return err
		}
		return p.clearRoomRound(applyCtx, ev.RoomID, ev.ServerTime)

	case events.AuctionEndedPayload:
		return p.updateRoomStatus(applyCtx, ev.RoomID, models.RoomStatusEnded, ev.ServerTime)

	case events.ForceAssignedPayload:
		playerID, err := uuid.Parse(pl.PlayerID)
		if err != nil {
			return err
		}
		teamID, err := uuid.Parse(pl.TeamID)
		if err != nil {
			return err
		}
		if err := p.forceAssign(applyCtx, playerID, teamID, pl.Price); err != nil {
			return err
		}
		return p.clearRoomRound(applyCtx, ev.RoomID, ev.ServerTime)

	case events.CaptainAssignedPayload:
		teamID, err := uuid.Parse(pl.TeamID)
		if err != nil {
			return err
		}
		userID, err := uuid.Parse(pl.UserID)
		if err != nil {
			return err
		}
		return p.repo.SetTeamCaptain(applyCtx, teamID, userID)

	case events.IntegrityAlertPayload:
		log.Error().
			Str("room_id", ev.RoomID.String()).
			Str("player_id", pl.PlayerID).
			Str("detail", pl.Detail).
			Msg("integrity alert raised")
		return nil

	default:
		log.Warn().
			Str("event_type", string(ev.Type)).
			Msg("projector skipping unknown event type")
		return nil
	}
}

func (p *Projector) updateRoomStatus(ctx context.Context, roomID uuid.UUID, status models.RoomStatus, at time.Time) error {
	const q = `UPDATE auction_rooms SET status = $2, updated_at = $3 WHERE id = $1`
	if status == models.RoomStatusEnded {
		if _, err := p.repo.pool.Exec(ctx,
			`UPDATE auction_rooms SET status = $2, current_player_id = NULL, current_bid = NULL, updated_at = $3 WHERE id = $1`,
			roomID, string(status), at,
		); err != nil {
			return err
		}
		return nil
	}
	_, err := p.repo.pool.Exec(ctx, q, roomID, string(status), at)
	return err
}

// clearRoomRound resets the room to WAITING after an outcome. If the
// auction ended instead, the following AuctionEnded event overrides it.
func (p *Projector) clearRoomRound(ctx context.Context, roomID uuid.UUID, at time.Time) error {
	const q = `
		UPDATE auction_rooms
		SET status = $2, current_player_id = NULL, current_bid = NULL, updated_at = $3
		WHERE id = $1 AND status != $4`
	_, err := p.repo.pool.Exec(ctx, q, roomID, string(models.RoomStatusWaiting), at, string(models.RoomStatusEnded))
	return err
}

// recordSold derives the committed total from the remaining points the
// engine reported at resolution, keeping the projection idempotent.
func (p *Projector) recordSold(ctx context.Context, playerID, teamID uuid.UUID, amount, teamRemaining int) error {
	const q = `
		WITH sold AS (
			UPDATE auction_players
			SET status = 'SOLD', winning_team_id = $2, winning_amount = $3
			WHERE id = $1
		)
		UPDATE auction_teams
		SET committed_points = starting_points - $4
		WHERE id = $2`
	_, err := p.repo.pool.Exec(ctx, q, playerID, teamID, amount, teamRemaining)
	return err
}

// forceAssign records an admin assignment. The debit is derived from
// the recorded winning amounts so replays cannot double charge.
func (p *Projector) forceAssign(ctx context.Context, playerID, teamID uuid.UUID, price int) error {
	const q = `
		WITH assigned AS (
			UPDATE auction_players
			SET status = 'SOLD', winning_team_id = $2, winning_amount = $3
			WHERE id = $1
		)
		UPDATE auction_teams t
		SET committed_points = (
			SELECT COALESCE(SUM(p.winning_amount), 0)
			FROM auction_players p
			WHERE p.winning_team_id = t.id AND p.id != $1
		) + $3
		WHERE t.id = $2`
	_, err := p.repo.pool.Exec(ctx, q, playerID, teamID, price)
	return err
}
