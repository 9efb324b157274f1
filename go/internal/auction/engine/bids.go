package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/clanhall/auctiond/go/internal/models"
)

// BidLedger is the append-only validated bid history for the player
// currently up for auction. Validation happens in the room actor; the
// ledger only records accepted bids and hands out the current highest.
type BidLedger struct {
	roomID   uuid.UUID
	playerID uuid.UUID
	bids     []models.Bid
	seq      int
}

// NewBidLedger creates an empty ledger.
func NewBidLedger(roomID uuid.UUID) *BidLedger {
	return &BidLedger{roomID: roomID}
}

// BeginRound resets the ledger for a new player round.
func (b *BidLedger) BeginRound(playerID uuid.UUID) {
	b.playerID = playerID
	b.bids = b.bids[:0]
	b.seq = 0
}

// Highest returns the current highest bid, or nil before any bid.
// Accepted amounts are strictly increasing so the last append wins.
func (b *BidLedger) Highest() *models.Bid {
	if len(b.bids) == 0 {
		return nil
	}
	return &b.bids[len(b.bids)-1]
}

// HighestAmount returns the current highest amount, zero before any bid.
func (b *BidLedger) HighestAmount() int {
	if h := b.Highest(); h != nil {
		return h.Amount
	}
	return 0
}

// Append records an accepted bid and returns it with its sequence.
func (b *BidLedger) Append(teamID uuid.UUID, amount int, placedAt time.Time) models.Bid {
	b.seq++
	bid := models.Bid{
		ID:       uuid.New(),
		RoomID:   b.roomID,
		PlayerID: b.playerID,
		TeamID:   teamID,
		Amount:   amount,
		Sequence: b.seq,
		PlacedAt: placedAt,
	}
	b.bids = append(b.bids, bid)
	return bid
}

// Restore reinstates a historical accepted bid during rebuild.
func (b *BidLedger) Restore(bid models.Bid) {
	b.bids = append(b.bids, bid)
	if bid.Sequence > b.seq {
		b.seq = bid.Sequence
	}
}

// History returns a copy of the round's accepted bids in order.
func (b *BidLedger) History() []models.Bid {
	out := make([]models.Bid, len(b.bids))
	copy(out, b.bids)
	return out
}
