package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clanhall/auctiond/go/internal/auction/events"
	"github.com/clanhall/auctiond/go/internal/auction/outbox/worker"
)

type fakeRepo struct {
	mu        sync.Mutex
	inserted  []OutboxEvent
	unsent    []worker.OutboxEvent
	sent      []uuid.UUID
	insertErr error
	markErr   error
}

func (r *fakeRepo) InsertEvent(ctx context.Context, ev OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, ev)
	return nil
}

func (r *fakeRepo) FetchUnsentOutbox(ctx context.Context, limit int32) ([]worker.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if int32(len(r.unsent)) > limit {
		return r.unsent[:limit], nil
	}
	return r.unsent, nil
}

func (r *fakeRepo) MarkOutboxSent(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.markErr != nil {
		return r.markErr
	}
	r.sent = append(r.sent, id)
	return nil
}

func (r *fakeRepo) FetchOutboxByID(ctx context.Context, id uuid.UUID) (*worker.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.unsent {
		if r.unsent[i].ID == id {
			return &r.unsent[i], nil
		}
	}
	return nil, errors.New("not found")
}

func (r *fakeRepo) FetchRoomEventsSince(ctx context.Context, roomID uuid.UUID, seq int64, limit int32) ([]OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []OutboxEvent
	for _, ev := range r.inserted {
		if ev.RoomID == roomID && ev.Sequence > seq {
			out = append(out, ev)
		}
		if limit > 0 && int32(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeRepo) insertedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inserted)
}

func TestInsertAuctionEventRejectsEmptyPayload(t *testing.T) {
	app := NewApp(&fakeRepo{})

	err := app.InsertAuctionEvent(context.Background(), OutboxEvent{
		ID:        uuid.New(),
		RoomID:    uuid.New(),
		EventType: "BidPlaced",
	})
	if err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestProcessUnsentEventsMarksOnlySuccesses(t *testing.T) {
	good := worker.OutboxEvent{ID: uuid.New(), RoomID: uuid.New(), EventType: "BidPlaced", Payload: []byte(`{}`)}
	bad := worker.OutboxEvent{ID: uuid.New(), RoomID: uuid.New(), EventType: "PlayerSold", Payload: []byte(`{}`)}
	repo := &fakeRepo{unsent: []worker.OutboxEvent{good, bad}}
	app := NewApp(repo)

	err := app.ProcessUnsentEvents(context.Background(), 100, func(ev worker.OutboxEvent) error {
		if ev.ID == bad.ID {
			return errors.New("publish failed")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("process unsent: %v", err)
	}

	if len(repo.sent) != 1 || repo.sent[0] != good.ID {
		t.Fatalf("sent = %v, want only %s", repo.sent, good.ID)
	}
}

func TestRoomEventsSinceFiltersBySequence(t *testing.T) {
	repo := &fakeRepo{}
	app := NewApp(repo)
	roomID := uuid.New()

	for seq := int64(1); seq <= 5; seq++ {
		err := app.InsertAuctionEvent(context.Background(), OutboxEvent{
			ID:       uuid.New(),
			RoomID:   roomID,
			Sequence: seq,
			Payload:  []byte(`{}`),
		})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	got, err := app.RoomEventsSince(context.Background(), roomID, 3, 0)
	if err != nil {
		t.Fatalf("room events since: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("events = %d, want 2", len(got))
	}
	for _, ev := range got {
		if ev.Sequence <= 3 {
			t.Fatalf("replay included seq %d", ev.Sequence)
		}
	}
}

func TestSinkDrainsCommittedEvents(t *testing.T) {
	repo := &fakeRepo{}
	sink := NewSink(NewApp(repo), 16)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sink.Run(ctx)

	ev, err := events.New(uuid.New(), 1, events.EventTypeBidPlaced, events.BidPlacedPayload{Amount: 100}, time.Now())
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	sink.Publish(ev)

	deadline := time.Now().Add(2 * time.Second)
	for repo.insertedCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("event never drained into the outbox")
		}
		time.Sleep(time.Millisecond)
	}

	repo.mu.Lock()
	row := repo.inserted[0]
	repo.mu.Unlock()
	if row.ID != ev.ID || row.EventType != string(events.EventTypeBidPlaced) || row.Sequence != 1 {
		t.Fatalf("unexpected outbox row: %+v", row)
	}
}

func TestCollectRoomEventsPagesUntilExhausted(t *testing.T) {
	repo := &fakeRepo{}
	app := NewApp(repo)
	roomID := uuid.New()

	for seq := int64(1); seq <= 25; seq++ {
		err := app.InsertAuctionEvent(context.Background(), OutboxEvent{
			ID:       uuid.New(),
			RoomID:   roomID,
			Sequence: seq,
			Payload:  []byte(`{}`),
		})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	got, err := app.CollectRoomEvents(context.Background(), roomID, 10)
	if err != nil {
		t.Fatalf("collect room events: %v", err)
	}
	if len(got) != 25 {
		t.Fatalf("events = %d, want 25; log truncated at one batch", len(got))
	}
	for i, ev := range got {
		if ev.Sequence != int64(i+1) {
			t.Fatalf("event %d has seq %d, want %d", i, ev.Sequence, i+1)
		}
	}
}

func TestSinkOverflowStillReachesOutbox(t *testing.T) {
	repo := &fakeRepo{}
	sink := NewSink(NewApp(repo), 1)

	var published []events.AuctionEvent
	for seq := int64(1); seq <= 3; seq++ {
		ev, err := events.New(uuid.New(), seq, events.EventTypeBidPlaced, events.BidPlacedPayload{Amount: int(seq * 100)}, time.Now())
		if err != nil {
			t.Fatalf("new event: %v", err)
		}
		published = append(published, ev)
	}

	// The drain loop is not running: the first publish fills the
	// buffer, the rest must spill to their own inserts instead of
	// being dropped.
	for _, ev := range published {
		sink.Publish(ev)
	}

	deadline := time.Now().Add(2 * time.Second)
	for repo.insertedCount() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("spilled inserts = %d, want 2", repo.insertedCount())
		}
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sink.Run(ctx)

	deadline = time.Now().Add(2 * time.Second)
	for repo.insertedCount() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("inserted = %d, want all 3", repo.insertedCount())
		}
		time.Sleep(time.Millisecond)
	}

	seen := make(map[int64]bool)
	repo.mu.Lock()
	for _, row := range repo.inserted {
		seen[row.Sequence] = true
	}
	repo.mu.Unlock()
	for seq := int64(1); seq <= 3; seq++ {
		if !seen[seq] {
			t.Fatalf("sequence %d missing from the durable log", seq)
		}
	}
}

func TestOutboxRowCarriesCommitTimestamp(t *testing.T) {
	repo := &fakeRepo{}
	sink := NewSink(NewApp(repo), 16)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sink.Run(ctx)

	committed := time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)
	ev, err := events.New(uuid.New(), 1, events.EventTypePlayerSold, events.PlayerSoldPayload{Amount: 400}, committed)
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	sink.Publish(ev)

	deadline := time.Now().Add(2 * time.Second)
	for repo.insertedCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("event never drained into the outbox")
		}
		time.Sleep(time.Millisecond)
	}

	repo.mu.Lock()
	row := repo.inserted[0]
	repo.mu.Unlock()
	if got := row.EventServerTime(); !got.Equal(committed) {
		t.Fatalf("metadata server time = %v, want %v", got, committed)
	}

	// Rows written without metadata fall back to the insert time.
	bare := OutboxEvent{CreatedAt: time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)}
	if got := bare.EventServerTime(); !got.Equal(bare.CreatedAt) {
		t.Fatalf("fallback server time = %v, want %v", got, bare.CreatedAt)
	}
}

func TestSinkRetriesTransientInsertFailure(t *testing.T) {
	repo := &fakeRepo{insertErr: errors.New("connection reset")}
	app := NewApp(repo)
	sink := NewSink(app, 16)
	sink.retry = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sink.Run(ctx)

	ev, err := events.New(uuid.New(), 1, events.EventTypePlayerSold, events.PlayerSoldPayload{Amount: 100}, time.Now())
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	sink.Publish(ev)

	// Let a couple of failed attempts happen, then heal the repo.
	time.Sleep(5 * time.Millisecond)
	repo.mu.Lock()
	repo.insertErr = nil
	repo.mu.Unlock()

	deadline := time.Now().Add(2 * time.Second)
	for repo.insertedCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("insert never succeeded after repo recovered")
		}
		time.Sleep(time.Millisecond)
	}
}
