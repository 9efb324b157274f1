package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clanhall/auctiond/go/internal/models"
)

func TestBidLedgerSequencesWithinRound(t *testing.T) {
	roomID := uuid.New()
	playerID := uuid.New()
	teamID := uuid.New()
	now := time.Now()

	l := NewBidLedger(roomID)
	l.BeginRound(playerID)

	if l.Highest() != nil || l.HighestAmount() != 0 {
		t.Fatal("fresh round should have no highest bid")
	}

	first := l.Append(teamID, 100, now)
	second := l.Append(teamID, 200, now)

	if first.Sequence != 1 || second.Sequence != 2 {
		t.Fatalf("sequences = %d, %d, want 1, 2", first.Sequence, second.Sequence)
	}
	if first.RoomID != roomID || first.PlayerID != playerID {
		t.Fatal("bid not stamped with room and player")
	}
	if l.HighestAmount() != 200 {
		t.Fatalf("highest = %d, want 200", l.HighestAmount())
	}
}

func TestBeginRoundResetsHistoryAndSequence(t *testing.T) {
	l := NewBidLedger(uuid.New())
	l.BeginRound(uuid.New())
	l.Append(uuid.New(), 100, time.Now())
	l.Append(uuid.New(), 200, time.Now())

	l.BeginRound(uuid.New())
	if len(l.History()) != 0 {
		t.Fatal("history leaked into new round")
	}
	bid := l.Append(uuid.New(), 100, time.Now())
	if bid.Sequence != 1 {
		t.Fatalf("sequence = %d, want 1 in new round", bid.Sequence)
	}
}

func TestRestoreContinuesSequence(t *testing.T) {
	roomID := uuid.New()
	playerID := uuid.New()
	l := NewBidLedger(roomID)
	l.BeginRound(playerID)

	l.Restore(models.Bid{
		ID:       uuid.New(),
		RoomID:   roomID,
		PlayerID: playerID,
		TeamID:   uuid.New(),
		Amount:   300,
		Sequence: 3,
		PlacedAt: time.Now(),
	})

	if l.HighestAmount() != 300 {
		t.Fatalf("highest = %d, want 300 after restore", l.HighestAmount())
	}
	next := l.Append(uuid.New(), 400, time.Now())
	if next.Sequence != 4 {
		t.Fatalf("sequence = %d, want 4 after restored seq 3", next.Sequence)
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	l := NewBidLedger(uuid.New())
	l.BeginRound(uuid.New())
	l.Append(uuid.New(), 100, time.Now())

	h := l.History()
	h[0].Amount = 999
	if l.HighestAmount() != 100 {
		t.Fatal("mutating history copy leaked into ledger")
	}
}
