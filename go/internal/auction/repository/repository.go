package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clanhall/auctiond/go/internal/auction/engine"
	"github.com/clanhall/auctiond/go/internal/models"
	"github.com/clanhall/auctiond/go/internal/sqlutil"
)

var ErrNotFound = errors.New("not found")

// Repository persists auction rooms, teams, players and bids. The live
// engine remains authoritative while a room runs; these tables are the
// durable projection used for recovery and history.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateRoomAggregate inserts a room with its teams and player pool in
// one transaction.
func (r *Repository) CreateRoomAggregate(ctx context.Context, room models.AuctionRoom, teams []models.Team, players []models.Player) error {
	return sqlutil.RunTx(ctx, r.pool, func(tx pgx.Tx) error {
		settings, err := json.Marshal(room.Settings)
		if err != nil {
			return fmt.Errorf("failed to marshal room settings: %w", err)
		}

		const roomQ = `
			INSERT INTO auction_rooms (id, title, status, team_count, max_participants, settings, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
		if _, err := tx.Exec(ctx, roomQ,
			room.ID, room.Title, string(room.Status), room.TeamCount,
			room.MaxParticipants, settings, room.CreatedAt, room.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert room: %w", err)
		}

		const teamQ = `
			INSERT INTO auction_teams (id, room_id, name, starting_points, committed_points, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`
		for _, t := range teams {
			if _, err := tx.Exec(ctx, teamQ,
				t.ID, t.RoomID, t.Name, t.StartingPoints, t.CommittedPoints, t.CreatedAt,
			); err != nil {
				return fmt.Errorf("failed to insert team %s: %w", t.Name, err)
			}
		}

		const playerQ = `
			INSERT INTO auction_players (id, room_id, name, role, tier, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`
		for _, p := range players {
			if _, err := tx.Exec(ctx, playerQ,
				p.ID, p.RoomID, p.Name, p.Role, p.Tier, string(p.Status), p.CreatedAt,
			); err != nil {
				return fmt.Errorf("failed to insert player %s: %w", p.Name, err)
			}
		}

		return nil
	})
}

// GetRoom fetches one room row.
func (r *Repository) GetRoom(ctx context.Context, id uuid.UUID) (*models.AuctionRoom, error) {
	const q = `
		SELECT id, title, status, current_player_id, current_bid, team_count, max_participants, settings, created_at, updated_at
		FROM auction_rooms
		WHERE id = $1`
	row := r.pool.QueryRow(ctx, q, id)
	room, err := scanRoom(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("room %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return room, nil
}

// ListRoomsByStatus returns rooms in any of the given statuses,
// newest first.
func (r *Repository) ListRoomsByStatus(ctx context.Context, statuses ...models.RoomStatus) ([]models.AuctionRoom, error) {
	vals := make([]string, len(statuses))
	for i, s := range statuses {
		vals[i] = string(s)
	}

	const q = `
		SELECT id, title, status, current_player_id, current_bid, team_count, max_participants, settings, created_at, updated_at
		FROM auction_rooms
		WHERE status = ANY($1)
		ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, vals)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	var out []models.AuctionRoom
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room row: %w", err)
		}
		out = append(out, *room)
	}
	return out, rows.Err()
}

// UpdateRoomState persists the room's status, current player and
// standing high bid.
func (r *Repository) UpdateRoomState(ctx context.Context, room models.AuctionRoom) error {
	var currentBid []byte
	if room.CurrentBid != nil {
		var err error
		currentBid, err = json.Marshal(room.CurrentBid)
		if err != nil {
			return fmt.Errorf("failed to marshal current bid: %w", err)
		}
	}

	const q = `
		UPDATE auction_rooms
		SET status = $2, current_player_id = $3, current_bid = $4, updated_at = $5
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q,
		room.ID, string(room.Status), sqlutil.ToNullUUID(room.CurrentPlayerID), currentBid, room.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update room state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("room %s: %w", room.ID, ErrNotFound)
	}
	return nil
}

// GetTeamsByRoom returns the room's teams in creation order.
func (r *Repository) GetTeamsByRoom(ctx context.Context, roomID uuid.UUID) ([]models.Team, error) {
	const q = `
		SELECT id, room_id, name, captain_id, starting_points, committed_points, created_at
		FROM auction_teams
		WHERE room_id = $1
		ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, q, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []models.Team
	for rows.Next() {
		var (
			t       models.Team
			captain uuid.NullUUID
		)
		if err := rows.Scan(&t.ID, &t.RoomID, &t.Name, &captain, &t.StartingPoints, &t.CommittedPoints, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team row: %w", err)
		}
		t.CaptainID = sqlutil.FromNullUUID(captain)
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// SetTeamCaptain stamps the captain user on a team.
func (r *Repository) SetTeamCaptain(ctx context.Context, teamID, userID uuid.UUID) error {
	const q = `UPDATE auction_teams SET captain_id = $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, teamID, userID)
	if err != nil {
		return fmt.Errorf("failed to set team captain: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("team %s: %w", teamID, ErrNotFound)
	}
	return nil
}

// UpdateTeamCommitted sets a team's committed points total.
func (r *Repository) UpdateTeamCommitted(ctx context.Context, teamID uuid.UUID, committed int) error {
	const q = `UPDATE auction_teams SET committed_points = $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, teamID, committed)
	if err != nil {
		return fmt.Errorf("failed to update team committed points: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("team %s: %w", teamID, ErrNotFound)
	}
	return nil
}

// GetPlayersByRoom returns the room's full player list in insertion
// order, which is also the auction's selection order.
func (r *Repository) GetPlayersByRoom(ctx context.Context, roomID uuid.UUID) ([]models.Player, error) {
	const q = `
		SELECT id, room_id, name, role, tier, status, winning_team_id, winning_amount, created_at
		FROM auction_players
		WHERE room_id = $1
		ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, q, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		var (
			p      models.Player
			team   uuid.NullUUID
			amount sql.NullInt32
		)
		if err := rows.Scan(&p.ID, &p.RoomID, &p.Name, &p.Role, &p.Tier, &p.Status, &team, &amount, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		p.WinningTeamID = sqlutil.FromNullUUID(team)
		p.WinningAmount = sqlutil.FromSqlInt32(amount)
		players = append(players, p)
	}
	return players, rows.Err()
}

// UpdatePlayerStatus moves a player between lifecycle states without an
// outcome, e.g. POOL -> IN_AUCTION.
func (r *Repository) UpdatePlayerStatus(ctx context.Context, playerID uuid.UUID, status models.PlayerStatus) error {
	const q = `UPDATE auction_players SET status = $2, winning_team_id = NULL, winning_amount = NULL WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, playerID, string(status))
	if err != nil {
		return fmt.Errorf("failed to update player status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	return nil
}

// RecordPlayerSold writes the SOLD outcome and the winning team's new
// committed total in one transaction.
func (r *Repository) RecordPlayerSold(ctx context.Context, playerID, teamID uuid.UUID, amount, teamCommitted int) error {
	return sqlutil.RunTx(ctx, r.pool, func(tx pgx.Tx) error {
		const playerQ = `
			UPDATE auction_players
			SET status = $2, winning_team_id = $3, winning_amount = $4
			WHERE id = $1`
		if _, err := tx.Exec(ctx, playerQ, playerID, string(models.PlayerStatusSold), teamID, amount); err != nil {
			return fmt.Errorf("failed to record sold player: %w", err)
		}

		const teamQ = `UPDATE auction_teams SET committed_points = $2 WHERE id = $1`
		if _, err := tx.Exec(ctx, teamQ, teamID, teamCommitted); err != nil {
			return fmt.Errorf("failed to update winning team budget: %w", err)
		}
		return nil
	})
}

// RecordPlayerUnsold writes the UNSOLD outcome.
func (r *Repository) RecordPlayerUnsold(ctx context.Context, playerID uuid.UUID) error {
	const q = `
		UPDATE auction_players
		SET status = $2, winning_team_id = NULL, winning_amount = NULL
		WHERE id = $1`
	if _, err := r.pool.Exec(ctx, q, playerID, string(models.PlayerStatusUnsold)); err != nil {
		return fmt.Errorf("failed to record unsold player: %w", err)
	}
	return nil
}

// InsertBid appends one accepted bid to the history.
func (r *Repository) InsertBid(ctx context.Context, bid models.Bid) error {
	const q = `
		INSERT INTO auction_bids (id, room_id, player_id, team_id, amount, sequence, placed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`
	if _, err := r.pool.Exec(ctx, q,
		bid.ID, bid.RoomID, bid.PlayerID, bid.TeamID, bid.Amount, bid.Sequence, bid.PlacedAt,
	); err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}
	return nil
}

// GetBidsForPlayer returns the accepted bids of one player's round in
// placement order.
func (r *Repository) GetBidsForPlayer(ctx context.Context, roomID, playerID uuid.UUID) ([]models.Bid, error) {
	const q = `
		SELECT id, room_id, player_id, team_id, amount, sequence, placed_at
		FROM auction_bids
		WHERE room_id = $1 AND player_id = $2
		ORDER BY sequence`
	rows, err := r.pool.Query(ctx, q, roomID, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	defer rows.Close()

	var bids []models.Bid
	for rows.Next() {
		var b models.Bid
		if err := rows.Scan(&b.ID, &b.RoomID, &b.PlayerID, &b.TeamID, &b.Amount, &b.Sequence, &b.PlacedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bid row: %w", err)
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

// SaveRoundState implements engine.RoundStateStore. Upserts so the
// latest commit always wins; the sequence guard keeps a delayed older
// write from clobbering a newer durable state.
func (r *Repository) SaveRoundState(ctx context.Context, state engine.RoundState) error {
	const q = `
		INSERT INTO auction_round_state (room_id, status, current_player_id, round, last_sequence, deadline, paused, remaining_sec, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (room_id) DO UPDATE SET
			status = EXCLUDED.status,
			current_player_id = EXCLUDED.current_player_id,
			round = EXCLUDED.round,
			last_sequence = EXCLUDED.last_sequence,
			deadline = EXCLUDED.deadline,
			paused = EXCLUDED.paused,
			remaining_sec = EXCLUDED.remaining_sec,
			updated_at = now()
		WHERE auction_round_state.last_sequence <= EXCLUDED.last_sequence`
	if _, err := r.pool.Exec(ctx, q,
		state.RoomID, string(state.Status), sqlutil.ToNullUUID(state.CurrentPlayerID),
		state.Round, state.LastSequence, sqlutil.ToSqlTime(state.Deadline),
		state.Paused, state.RemainingSec,
	); err != nil {
		return fmt.Errorf("failed to save round state: %w", err)
	}
	return nil
}

// LoadRoundState fetches the persisted round state for recovery. A
// missing row yields a zero state, not an error: rooms created before
// their first commit have nothing to restore.
func (r *Repository) LoadRoundState(ctx context.Context, roomID uuid.UUID) (engine.RoundState, error) {
	const q = `
		SELECT room_id, status, current_player_id, round, last_sequence, deadline, paused, remaining_sec
		FROM auction_round_state
		WHERE room_id = $1`

	var (
		state    engine.RoundState
		status   string
		playerID uuid.NullUUID
		deadline sql.NullTime
	)
	err := r.pool.QueryRow(ctx, q, roomID).Scan(
		&state.RoomID, &status, &playerID, &state.Round,
		&state.LastSequence, &deadline, &state.Paused, &state.RemainingSec,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return engine.RoundState{RoomID: roomID}, nil
		}
		return engine.RoundState{}, fmt.Errorf("failed to load round state: %w", err)
	}
	state.Status = models.RoomStatus(status)
	state.CurrentPlayerID = sqlutil.FromNullUUID(playerID)
	state.Deadline = sqlutil.FromSqlTime(deadline)
	return state, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (*models.AuctionRoom, error) {
	var (
		room       models.AuctionRoom
		status     string
		playerID   uuid.NullUUID
		currentBid []byte
		settings   []byte
	)
	if err := row.Scan(
		&room.ID, &room.Title, &status, &playerID, &currentBid,
		&room.TeamCount, &room.MaxParticipants, &settings,
		&room.CreatedAt, &room.UpdatedAt,
	); err != nil {
		return nil, err
	}

	room.Status = models.RoomStatus(status)
	room.CurrentPlayerID = sqlutil.FromNullUUID(playerID)
	if len(currentBid) > 0 {
		var ref models.BidRef
		if err := json.Unmarshal(currentBid, &ref); err != nil {
			return nil, fmt.Errorf("failed to unmarshal current bid: %w", err)
		}
		room.CurrentBid = &ref
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &room.Settings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal room settings: %w", err)
		}
	}
	return &room, nil
}
