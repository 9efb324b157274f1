package outbox

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/clanhall/auctiond/go/internal/auction/outbox/worker"
)

// OutboxRepository defines what the app layer needs from the repository
type OutboxRepository interface {
	InsertEvent(ctx context.Context, ev OutboxEvent) error
	FetchUnsentOutbox(ctx context.Context, limit int32) ([]worker.OutboxEvent, error)
	MarkOutboxSent(ctx context.Context, id uuid.UUID) error
	FetchOutboxByID(ctx context.Context, id uuid.UUID) (*worker.OutboxEvent, error)
	FetchRoomEventsSince(ctx context.Context, roomID uuid.UUID, seq int64, limit int32) ([]OutboxEvent, error)
}

// App handles outbox business logic
type App struct {
	repo OutboxRepository
}

// NewApp creates a new outbox App
func NewApp(repo OutboxRepository) *App {
	return &App{repo: repo}
}

// InsertAuctionEvent appends a committed room event to the outbox.
func (a *App) InsertAuctionEvent(ctx context.Context, ev OutboxEvent) error {
	if len(ev.Payload) == 0 {
		return fmt.Errorf("invalid %s payload: event payload cannot be empty", ev.EventType)
	}

	if err := a.repo.InsertEvent(ctx, ev); err != nil {
		return fmt.Errorf("failed to insert %s event: %w", ev.EventType, err)
	}

	log.Debug().
		Str("room_id", ev.RoomID.String()).
		Str("event_type", ev.EventType).
		Int64("sequence", ev.Sequence).
		Msg("outbox event inserted")
	return nil
}

// FetchUnsentEvents fetches unsent outbox events
func (a *App) FetchUnsentEvents(ctx context.Context, limit int32) ([]worker.OutboxEvent, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than 0")
	}

	events, err := a.repo.FetchUnsentOutbox(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent events: %w", err)
	}

	if len(events) > 0 {
		log.Debug().
			Int("count", len(events)).
			Msg("fetched unsent outbox events")
	}
	return events, nil
}

// MarkEventSent marks an outbox event as sent
func (a *App) MarkEventSent(ctx context.Context, eventID uuid.UUID) error {
	if err := a.repo.MarkOutboxSent(ctx, eventID); err != nil {
		return fmt.Errorf("failed to mark event as sent: %w", err)
	}
	return nil
}

// RoomEventsSince serves durable replay from the persisted event log.
func (a *App) RoomEventsSince(ctx context.Context, roomID uuid.UUID, seq int64, limit int32) ([]OutboxEvent, error) {
	if limit <= 0 {
		limit = 500
	}
	events, err := a.repo.FetchRoomEventsSince(ctx, roomID, seq, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch room events since %d: %w", seq, err)
	}
	return events, nil
}

// CollectRoomEvents pages through a room's full durable log until
// exhausted. Restore paths use this so a long auction is never
// truncated at one batch.
func (a *App) CollectRoomEvents(ctx context.Context, roomID uuid.UUID, batch int32) ([]OutboxEvent, error) {
	if batch <= 0 {
		batch = 500
	}

	var out []OutboxEvent
	since := int64(0)
	for {
		rows, err := a.repo.FetchRoomEventsSince(ctx, roomID, since, batch)
		if err != nil {
			return nil, fmt.Errorf("failed to collect room events after %d: %w", since, err)
		}
		out = append(out, rows...)
		if int32(len(rows)) < batch {
			return out, nil
		}
		since = rows[len(rows)-1].Sequence
	}
}

// ProcessUnsentEvents processes all unsent events in batches
func (a *App) ProcessUnsentEvents(ctx context.Context, batchSize int32, processor func(event worker.OutboxEvent) error) error {
	events, err := a.FetchUnsentEvents(ctx, batchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch unsent events: %w", err)
	}

	processedCount := 0
	errorCount := 0

	for _, event := range events {
		if err := processor(event); err != nil {
			log.Error().
				Err(err).
				Str("event_id", event.ID.String()).
				Str("event_type", event.EventType).
				Msg("failed to process event")
			errorCount++
			continue
		}

		if err := a.MarkEventSent(ctx, event.ID); err != nil {
			log.Error().
				Err(err).
				Str("event_id", event.ID.String()).
				Msg("failed to mark event as sent after processing")
			errorCount++
			continue
		}

		processedCount++
	}

	if processedCount > 0 || errorCount > 0 {
		log.Info().
			Int("processed", processedCount).
			Int("errors", errorCount).
			Int("total", len(events)).
			Msg("processed unsent events batch")
	}
	return nil
}
