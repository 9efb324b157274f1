package engine

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

type fireRecorder struct {
	ch chan int
}

func newFireRecorder() *fireRecorder {
	return &fireRecorder{ch: make(chan int, 16)}
}

func (f *fireRecorder) fire(gen int) {
	f.ch <- gen
}

func (f *fireRecorder) expect(t *testing.T, gen int) {
	t.Helper()
	select {
	case got := <-f.ch:
		if got != gen {
			t.Fatalf("fired generation %d, want %d", got, gen)
		}
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}

func (f *fireRecorder) expectNone(t *testing.T) {
	t.Helper()
	select {
	case got := <-f.ch:
		t.Fatalf("unexpected fire for generation %d", got)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestTurnTimerFiresAtLimit(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := newFireRecorder()
	timer := NewTurnTimer(clock, 30*time.Second, rec.fire)

	timer.StartRound(1)
	if timer.Deadline() == nil {
		t.Fatal("no deadline after start")
	}

	clock.Advance(29 * time.Second)
	rec.expectNone(t)
	clock.Advance(time.Second)
	rec.expect(t, timer.Generation())
}

func TestResetFullExtendsDeadline(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := newFireRecorder()
	timer := NewTurnTimer(clock, 30*time.Second, rec.fire)

	timer.StartRound(1)
	clock.Advance(20 * time.Second)
	timer.ResetFull()

	want := clock.Now().Add(30 * time.Second)
	if d := timer.Deadline(); d == nil || !d.Equal(want) {
		t.Fatalf("deadline = %v, want %v", d, want)
	}

	clock.Advance(29 * time.Second)
	rec.expectNone(t)
	clock.Advance(time.Second)
	rec.expect(t, timer.Generation())
}

func TestResetFullSupersedesEarlierGeneration(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := newFireRecorder()
	timer := NewTurnTimer(clock, 30*time.Second, rec.fire)

	timer.StartRound(1)
	stale := timer.Generation()
	timer.ResetFull()

	if timer.Generation() == stale {
		t.Fatal("reset kept the old generation; an in-flight fire would pass the staleness guard")
	}
	clock.Advance(30 * time.Second)
	rec.expect(t, timer.Generation())
}

func TestPauseFreezesRemaining(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := newFireRecorder()
	timer := NewTurnTimer(clock, 30*time.Second, rec.fire)

	timer.StartRound(1)
	clock.Advance(10 * time.Second)
	timer.Pause()

	if !timer.Paused() {
		t.Fatal("not paused")
	}
	if timer.Deadline() != nil {
		t.Fatal("paused timer reported a deadline")
	}
	if got := timer.Remaining(clock.Now()); got != 20*time.Second {
		t.Fatalf("remaining = %v, want 20s", got)
	}

	clock.Advance(time.Hour)
	rec.expectNone(t)
	if got := timer.Remaining(clock.Now()); got != 20*time.Second {
		t.Fatalf("remaining drifted while paused: %v", got)
	}
}

func TestResumeUsesFrozenRemainingNotFullLimit(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := newFireRecorder()
	timer := NewTurnTimer(clock, 30*time.Second, rec.fire)

	timer.StartRound(1)
	clock.Advance(25 * time.Second)
	timer.Pause()
	clock.Advance(time.Hour)
	timer.Resume()

	want := clock.Now().Add(5 * time.Second)
	if d := timer.Deadline(); d == nil || !d.Equal(want) {
		t.Fatalf("deadline = %v, want %v", d, want)
	}
	clock.Advance(5 * time.Second)
	rec.expect(t, timer.Generation())
}

func TestStopPreventsFire(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := newFireRecorder()
	timer := NewTurnTimer(clock, 30*time.Second, rec.fire)

	timer.StartRound(1)
	timer.Stop()
	if timer.Deadline() != nil {
		t.Fatal("stopped timer reported a deadline")
	}

	clock.Advance(time.Minute)
	rec.expectNone(t)
}

func TestFireCarriesScheduleGeneration(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := newFireRecorder()
	timer := NewTurnTimer(clock, 30*time.Second, rec.fire)

	timer.StartRound(1)
	stale := timer.Generation()
	timer.Stop()
	timer.StartRound(2)

	if timer.Generation() == stale {
		t.Fatal("new round kept the old generation")
	}
	clock.Advance(30 * time.Second)
	rec.expect(t, timer.Generation())
	rec.expectNone(t)
}

func TestRestoreRearmsLiveDeadline(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := newFireRecorder()
	timer := NewTurnTimer(clock, 30*time.Second, rec.fire)

	deadline := clock.Now().Add(12 * time.Second)
	timer.Restore(4, &deadline, false, 0)

	if timer.Round() != 4 {
		t.Fatalf("round = %d, want 4", timer.Round())
	}
	clock.Advance(12 * time.Second)
	rec.expect(t, timer.Generation())
}

func TestRestorePausedKeepsFrozenRemaining(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := newFireRecorder()
	timer := NewTurnTimer(clock, 30*time.Second, rec.fire)

	timer.Restore(2, nil, true, 17*time.Second)

	if !timer.Paused() {
		t.Fatal("not paused after restore")
	}
	if got := timer.Remaining(clock.Now()); got != 17*time.Second {
		t.Fatalf("remaining = %v, want 17s", got)
	}

	timer.Resume()
	clock.Advance(17 * time.Second)
	rec.expect(t, timer.Generation())
}

func TestRestoreElapsedDeadlineFiresImmediately(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := newFireRecorder()
	timer := NewTurnTimer(clock, 30*time.Second, rec.fire)

	deadline := clock.Now().Add(-5 * time.Second)
	timer.Restore(3, &deadline, false, 0)

	clock.Advance(time.Millisecond)
	rec.expect(t, timer.Generation())
}
