package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clanhall/auctiond/go/internal/auction/events"
)

// Sink decouples event delivery from the commit path: the room actor
// hands a committed event over without blocking, and a drain goroutine
// writes it to the outbox with retry. A full buffer spills the insert
// to its own goroutine instead of dropping the event, so the durable
// log never develops sequence gaps.
type Sink struct {
	app    *App
	ch     chan events.AuctionEvent
	maxTry int
	retry  time.Duration
}

// NewSink creates a sink with the given buffer size.
func NewSink(app *App, buffer int) *Sink {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Sink{
		app:    app,
		ch:     make(chan events.AuctionEvent, buffer),
		maxTry: 5,
		retry:  200 * time.Millisecond,
	}
}

// Publish implements engine.EventSink. It never blocks the caller and
// never loses the event: on overflow the insert runs on a spilled
// goroutine. Row order does not matter to the outbox, replay orders by
// (room_id, sequence).
func (s *Sink) Publish(event events.AuctionEvent) {
	select {
	case s.ch <- event:
	default:
		log.Warn().
			Str("room_id", event.RoomID.String()).
			Int64("sequence", event.Sequence).
			Msg("outbox sink buffer full, spilling insert to its own goroutine")
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			s.insertWithRetry(ctx, event)
		}()
	}
}

// Run drains committed events into the outbox until ctx is done.
func (s *Sink) Run(ctx context.Context) {
	log.Info().Msg("outbox sink started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("outbox sink shutting down")
			return
		case ev := <-s.ch:
			s.insertWithRetry(ctx, ev)
		}
	}
}

func (s *Sink) insertWithRetry(ctx context.Context, ev events.AuctionEvent) {
	meta, _ := json.Marshal(EventMetadata{ServerTime: ev.ServerTime})
	row := OutboxEvent{
		ID:        ev.ID,
		RoomID:    ev.RoomID,
		EventType: string(ev.Type),
		Sequence:  ev.Sequence,
		Payload:   ev.Payload,
		Metadata:  meta,
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxTry; attempt++ {
		if attempt > 0 {
			delay := s.retry * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}
		if lastErr = s.app.InsertAuctionEvent(ctx, row); lastErr == nil {
			return
		}
	}

	log.Error().
		Err(lastErr).
		Str("room_id", ev.RoomID.String()).
		Int64("sequence", ev.Sequence).
		Msg("failed to insert outbox event after retries")
}
