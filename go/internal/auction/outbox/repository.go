package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/clanhall/auctiond/go/internal/auction/outbox/worker"
)

// Repository persists outbox rows in the auction_outbox table. A
// trigger on insert emits NOTIFY auction_outbox_events with the row id;
// the listener picks it up and relays to the message bus.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertEvent appends one committed room event to the outbox.
func (r *Repository) InsertEvent(ctx context.Context, ev OutboxEvent) error {
	var metadata pqtype.NullRawMessage
	if len(ev.Metadata) > 0 {
		metadata = pqtype.NullRawMessage{RawMessage: ev.Metadata, Valid: true}
	}

	const q = `
		INSERT INTO auction_outbox (id, room_id, event_type, sequence, payload, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, q, ev.ID, ev.RoomID, ev.EventType, ev.Sequence, []byte(ev.Payload), metadata)
	if err != nil {
		return fmt.Errorf("failed to insert %s outbox event: %w", ev.EventType, err)
	}
	return nil
}

// FetchUnsentOutbox returns up to limit unsent events, oldest first.
func (r *Repository) FetchUnsentOutbox(ctx context.Context, limit int32) ([]worker.OutboxEvent, error) {
	const q = `
		SELECT id, room_id, event_type, sequence, payload, created_at
		FROM auction_outbox
		WHERE sent_at IS NULL
		ORDER BY created_at
		LIMIT $1`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var events []worker.OutboxEvent
	for rows.Next() {
		var ev worker.OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.RoomID, &ev.EventType, &ev.Sequence, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox row: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// MarkOutboxSent stamps the event as delivered to the bus.
func (r *Repository) MarkOutboxSent(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE auction_outbox SET sent_at = now() WHERE id = $1 AND sent_at IS NULL`
	if _, err := r.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("failed to mark outbox event as sent: %w", err)
	}
	return nil
}

// FetchOutboxByID returns one unsent event by id.
func (r *Repository) FetchOutboxByID(ctx context.Context, id uuid.UUID) (*worker.OutboxEvent, error) {
	const q = `
		SELECT id, room_id, event_type, sequence, payload, created_at
		FROM auction_outbox
		WHERE id = $1 AND sent_at IS NULL`
	var ev worker.OutboxEvent
	err := r.db.QueryRowContext(ctx, q, id).Scan(&ev.ID, &ev.RoomID, &ev.EventType, &ev.Sequence, &ev.Payload, &ev.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("outbox event not found or already sent")
		}
		return nil, fmt.Errorf("failed to fetch outbox event by ID: %w", err)
	}
	return &ev, nil
}

// FetchRoomEventsSince serves durable replay: committed events for a
// room with sequence greater than the caller's last known value.
func (r *Repository) FetchRoomEventsSince(ctx context.Context, roomID uuid.UUID, seq int64, limit int32) ([]OutboxEvent, error) {
	const q = `
		SELECT id, room_id, event_type, sequence, payload, metadata, created_at, sent_at
		FROM auction_outbox
		WHERE room_id = $1 AND sequence > $2
		ORDER BY sequence
		LIMIT $3`
	rows, err := r.db.QueryContext(ctx, q, roomID, seq, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch room events: %w", err)
	}
	defer rows.Close()

	var events []OutboxEvent
	for rows.Next() {
		var (
			ev       OutboxEvent
			payload  []byte
			metadata pqtype.NullRawMessage
			sentAt   sql.NullTime
		)
		if err := rows.Scan(&ev.ID, &ev.RoomID, &ev.EventType, &ev.Sequence, &payload, &metadata, &ev.CreatedAt, &sentAt); err != nil {
			return nil, fmt.Errorf("failed to scan room event row: %w", err)
		}
		ev.Payload = json.RawMessage(payload)
		if metadata.Valid {
			ev.Metadata = json.RawMessage(metadata.RawMessage)
		}
		if sentAt.Valid {
			t := sentAt.Time
			ev.SentAt = &t
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
