package engine

import (
	"time"

	"github.com/clanhall/auctiond/go/internal/models"
)

// Snapshot is the latest committed room state, published after every
// handled command. Readers never enter the actor.
type Snapshot struct {
	Room          models.AuctionRoom `json:"room"`
	Teams         []models.Team      `json:"teams"`
	Players       []models.Player    `json:"players"`
	CurrentPlayer *models.Player     `json:"current_player,omitempty"`
	RoundBids     []models.Bid       `json:"round_bids,omitempty"`
	PoolRemaining int                `json:"pool_remaining"`
	NextUp        []string           `json:"next_up,omitempty"`
	LastSequence  int64              `json:"last_sequence"`
	TimeoutAt     *time.Time         `json:"timeout_at,omitempty"`
	TimerPaused   bool               `json:"timer_paused"`
	RemainingSec  int                `json:"remaining_sec"`
	ServerTime    time.Time          `json:"server_time"`
}

// CalculateTimeRemaining returns the countdown left relative to the
// given server time. Pause snapshots report the frozen value.
func (s *Snapshot) CalculateTimeRemaining(serverTime time.Time) int {
	if s.TimerPaused {
		return s.RemainingSec
	}
	if s.TimeoutAt == nil {
		return 0
	}
	remaining := int(s.TimeoutAt.Sub(serverTime).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Snapshot returns the latest committed snapshot.
func (r *Room) Snapshot() *Snapshot {
	return r.snap.Load()
}

// publishSnapshot runs on the actor goroutine after each commit.
func (r *Room) publishSnapshot() {
	now := r.clock.Now()

	room := r.state
	if r.state.CurrentBid != nil {
		cb := *r.state.CurrentBid
		room.CurrentBid = &cb
	}
	if r.state.CurrentPlayerID != nil {
		id := *r.state.CurrentPlayerID
		room.CurrentPlayerID = &id
	}

	snap := &Snapshot{
		Room:          room,
		Teams:         r.budget.Teams(),
		Players:       r.pool.Players(),
		PoolRemaining: r.pool.Remaining(),
		LastSequence:  r.seq,
		TimeoutAt:     r.timer.Deadline(),
		TimerPaused:   r.timer.Paused(),
		RemainingSec:  int(r.timer.Remaining(now).Seconds()),
		ServerTime:    now,
	}
	for _, id := range r.pool.NextUp() {
		snap.NextUp = append(snap.NextUp, id.String())
	}
	if r.state.CurrentPlayerID != nil {
		if pl, ok := r.pool.Get(*r.state.CurrentPlayerID); ok {
			cp := *pl
			snap.CurrentPlayer = &cp
		}
		snap.RoundBids = r.bids.History()
	}
	r.snap.Store(snap)
}
