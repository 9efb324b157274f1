package engine

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) clockwork.Timer
}

// TurnTimer drives auto-resolution of a bidding round. Expiry never
// mutates room state directly: the fire callback injects a synthetic
// command into the room actor's queue, tagged with the schedule
// generation so stale fires are discarded. Every schedule bumps the
// generation; a fire whose callback already ran when a bid reset the
// countdown carries the old generation and is thrown away.
//
// State derives solely from (deadline, paused, remaining) and can be
// reconstructed after a process restart without losing the round.
type TurnTimer struct {
	clock Clock
	limit time.Duration
	fire  func(gen int)

	timer     clockwork.Timer
	deadline  time.Time
	paused    bool
	remaining time.Duration
	round     int
	gen       int
}

// NewTurnTimer creates a stopped timer. fire is invoked from a separate
// goroutine when the countdown expires.
func NewTurnTimer(clock Clock, limit time.Duration, fire func(gen int)) *TurnTimer {
	return &TurnTimer{clock: clock, limit: limit, fire: fire}
}

// StartRound begins a fresh full-length countdown for a new round.
func (t *TurnTimer) StartRound(round int) {
	t.round = round
	t.paused = false
	t.remaining = 0
	t.schedule(t.limit)
}

// ResetFull restarts the countdown from the full limit. Every accepted
// bid resets deadline = now + limit.
func (t *TurnTimer) ResetFull() {
	t.schedule(t.limit)
}

// Pause freezes the remaining time, not just the wall clock.
func (t *TurnTimer) Pause() {
	if t.paused {
		return
	}
	rem := t.deadline.Sub(t.clock.Now())
	if rem < 0 {
		rem = 0
	}
	t.remaining = rem
	t.paused = true
	t.stopTimer()
}

// Resume restarts the countdown from the frozen remaining value, never
// from a full reset, so pause/resume cannot manufacture extra time.
func (t *TurnTimer) Resume() {
	if !t.paused {
		return
	}
	t.paused = false
	t.schedule(t.remaining)
	t.remaining = 0
}

// Stop halts the countdown between rounds.
func (t *TurnTimer) Stop() {
	t.paused = false
	t.remaining = 0
	t.stopTimer()
}

// Restore reconstructs timer state from persisted values after a
// restart. A live deadline re-arms the countdown for the given round.
func (t *TurnTimer) Restore(round int, deadline *time.Time, paused bool, remaining time.Duration) {
	t.round = round
	if paused {
		t.paused = true
		t.remaining = remaining
		return
	}
	if deadline == nil {
		return
	}
	t.paused = false
	rem := deadline.Sub(t.clock.Now())
	if rem < 0 {
		rem = 0
	}
	t.schedule(rem)
}

// Deadline returns the wall-clock expiry, or nil when paused/stopped.
func (t *TurnTimer) Deadline() *time.Time {
	if t.paused || t.timer == nil {
		return nil
	}
	d := t.deadline
	return &d
}

// Paused reports whether the countdown is frozen.
func (t *TurnTimer) Paused() bool {
	return t.paused
}

// Remaining returns the countdown left as of now.
func (t *TurnTimer) Remaining(now time.Time) time.Duration {
	if t.paused {
		return t.remaining
	}
	if t.timer == nil {
		return 0
	}
	rem := t.deadline.Sub(now)
	if rem < 0 {
		rem = 0
	}
	return rem
}

// Round returns the current round number.
func (t *TurnTimer) Round() int {
	return t.round
}

// Generation returns the current schedule generation. Only a fire
// tagged with this value is live; anything older was superseded by a
// reset, pause or new round.
func (t *TurnTimer) Generation() int {
	return t.gen
}

func (t *TurnTimer) schedule(d time.Duration) {
	t.stopTimer()
	t.gen++
	t.deadline = t.clock.Now().Add(d)
	gen := t.gen
	t.timer = t.clock.AfterFunc(d, func() {
		t.fire(gen)
	})
}

func (t *TurnTimer) stopTimer() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
