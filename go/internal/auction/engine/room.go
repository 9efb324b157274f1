package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/clanhall/auctiond/go/internal/auction/events"
	"github.com/clanhall/auctiond/go/internal/models"
)

// EventSink receives committed events for delivery. The room commits a
// mutation to its in-memory log before handing the event over, and
// Publish must not block: delivery retries belong to the sink, never to
// the bidding path.
type EventSink interface {
	Publish(event events.AuctionEvent)
}

// RoundStateStore persists the recoverable round state (deadline,
// paused flag, remaining snapshot) after each commit. Writes happen off
// the actor goroutine, serialized in commit order by a single drain
// loop per room so an older state can never land after a newer one.
type RoundStateStore interface {
	SaveRoundState(ctx context.Context, state RoundState) error
}

// RoundState is the minimal persisted state needed to reconstruct a
// round after a process restart.
type RoundState struct {
	RoomID          uuid.UUID
	Status          models.RoomStatus
	CurrentPlayerID *uuid.UUID
	Round           int
	LastSequence    int64
	Deadline        *time.Time
	Paused          bool
	RemainingSec    int
}

// RoomConfig wires a room's collaborators.
type RoomConfig struct {
	Clock Clock
	Sink  EventSink
	Store RoundStateStore // optional
}

// Room is the authoritative per-session auction state machine. All
// mutating calls pass through a single actor goroutine; reads are
// served from the latest committed snapshot without entering it.
type Room struct {
	id    uuid.UUID
	state models.AuctionRoom

	pool   *Pool
	budget *BudgetLedger
	bids   *BidLedger
	timer  *TurnTimer

	soldCount   int
	unsoldCount int

	seq   int64
	logMu sync.RWMutex
	elog  []events.AuctionEvent

	snap atomic.Pointer[Snapshot]

	cmdCh   chan command
	stateCh chan RoundState
	done    chan struct{}
	once    sync.Once

	clock Clock
	sink  EventSink
	store RoundStateStore
}

// NewRoom builds a room actor and starts its goroutine.
func NewRoom(room models.AuctionRoom, teams []models.Team, players []models.Player, cfg RoomConfig) *Room {
	r := &Room{
		id:      room.ID,
		state:   room,
		pool:    NewPool(players),
		budget:  NewBudgetLedger(teams),
		bids:    NewBidLedger(room.ID),
		cmdCh:   make(chan command, 64),
		stateCh: make(chan RoundState, 1),
		done:    make(chan struct{}),
		clock:   cfg.Clock,
		sink:    cfg.Sink,
		store:   cfg.Store,
	}
	limit := time.Duration(room.Settings.TurnTimeLimitSec) * time.Second
	r.timer = NewTurnTimer(cfg.Clock, limit, r.onTimerFire)
	r.publishSnapshot()
	go r.run()
	if r.store != nil {
		go r.persistLoop()
	}
	return r
}

// ID returns the room identifier.
func (r *Room) ID() uuid.UUID {
	return r.id
}

// Close stops the actor. Pending callers get ErrRoomClosed.
func (r *Room) Close() {
	r.once.Do(func() { close(r.done) })
}

// SelectPlayer puts a pool player up for auction and starts the turn
// timer. Requires status WAITING.
func (r *Room) SelectPlayer(p Principal, playerID uuid.UUID) error {
	return r.do(command{kind: cmdSelectPlayer, principal: p, playerID: playerID}).err
}

// PlaceBid validates and appends a bid for the player currently up for
// auction. The caller must be the team's captain or an admin.
func (r *Room) PlaceBid(p Principal, teamID uuid.UUID, amount int) (*models.Bid, error) {
	res := r.do(command{kind: cmdPlaceBid, principal: p, teamID: teamID, amount: amount})
	return res.bid, res.err
}

// Pause freezes the current round, retaining all prior bid history.
func (r *Room) Pause(p Principal) error {
	return r.do(command{kind: cmdPause, principal: p}).err
}

// Resume restarts the frozen countdown.
func (r *Room) Resume(p Principal) error {
	return r.do(command{kind: cmdResume, principal: p}).err
}

// Confirm resolves the round SOLD to the current highest bidder.
func (r *Room) Confirm(p Principal) error {
	return r.do(command{kind: cmdConfirm, principal: p}).err
}

// Cancel resolves the round UNSOLD regardless of bids.
func (r *Room) Cancel(p Principal) error {
	return r.do(command{kind: cmdCancel, principal: p}).err
}

// ForceAssign bypasses bidding entirely: budget-checked sale of a pool
// player at price. Admin only.
func (r *Room) ForceAssign(p Principal, playerID, teamID uuid.UUID, price int) error {
	return r.do(command{kind: cmdForceAssign, principal: p, playerID: playerID, teamID: teamID, amount: price}).err
}

// SetCaptain assigns the user authorized to bid for a team. Admin only.
func (r *Room) SetCaptain(p Principal, teamID, userID uuid.UUID) error {
	return r.do(command{kind: cmdSetCaptain, principal: p, teamID: teamID, userID: userID}).err
}

// End terminates the auction explicitly. An active round resolves
// UNSOLD first. Admin only.
func (r *Room) End(p Principal) error {
	return r.do(command{kind: cmdEnd, principal: p}).err
}

func (r *Room) do(cmd command) cmdResult {
	cmd.reply = make(chan cmdResult, 1)
	select {
	case r.cmdCh <- cmd:
	case <-r.done:
		return cmdResult{err: ErrRoomClosed}
	}
	select {
	case res := <-cmd.reply:
		return res
	case <-r.done:
		return cmdResult{err: ErrRoomClosed}
	}
}

// onTimerFire runs on the timer goroutine and injects a synthetic
// expiry command into the same queue as external commands, so ordering
// between "bid arrives" and "timer fires" is first-committed-wins. The
// generation tag lets the actor discard a fire that was already in
// flight when a bid reset the countdown.
func (r *Room) onTimerFire(gen int) {
	select {
	case r.cmdCh <- command{kind: cmdTimerExpired, gen: gen}:
	case <-r.done:
	}
}

func (r *Room) run() {
	for {
		select {
		case cmd := <-r.cmdCh:
			res := r.handle(cmd)
			if cmd.reply != nil {
				cmd.reply <- res
			}
		case <-r.done:
			r.timer.Stop()
			return
		}
	}
}

func (r *Room) handle(cmd command) cmdResult {
	var res cmdResult
	switch cmd.kind {
	case cmdSelectPlayer:
		res.err = r.handleSelectPlayer(cmd)
	case cmdPlaceBid:
		res.bid, res.err = r.handlePlaceBid(cmd)
	case cmdPause:
		res.err = r.handlePause(cmd)
	case cmdResume:
		res.err = r.handleResume(cmd)
	case cmdConfirm:
		res.err = r.handleConfirm(cmd)
	case cmdCancel:
		res.err = r.handleCancel(cmd)
	case cmdForceAssign:
		res.err = r.handleForceAssign(cmd)
	case cmdSetCaptain:
		res.err = r.handleSetCaptain(cmd)
	case cmdEnd:
		res.err = r.handleEnd(cmd)
	case cmdTimerExpired:
		r.handleTimerExpired(cmd.gen)
	default:
		res.err = fmt.Errorf("%w: unknown command", ErrValidation)
	}

	r.publishSnapshot()
	r.persistRoundState()
	return res
}

func (r *Room) handleSelectPlayer(cmd command) error {
	if !cmd.principal.IsAdmin() {
		return ErrUnauthorized
	}
	if r.state.Status != models.RoomStatusWaiting {
		return ErrInvalidTransition
	}
	player, ok := r.pool.Take(cmd.playerID)
	if !ok {
		return ErrInvalidTransition
	}

	player.Status = models.PlayerStatusInAuction
	r.state.Status = models.RoomStatusBidding
	r.state.CurrentPlayerID = &player.ID
	r.state.CurrentBid = nil
	r.bids.BeginRound(player.ID)
	r.timer.StartRound(r.timer.Round() + 1)

	now := r.clock.Now()
	r.emit(events.EventTypePlayerSelected, events.PlayerSelectedPayload{
		PlayerID:         player.ID.String(),
		PlayerName:       player.Name,
		Role:             player.Role,
		Tier:             player.Tier,
		StartedAt:        now,
		TimeoutAt:        *r.timer.Deadline(),
		TurnTimeLimitSec: r.state.Settings.TurnTimeLimitSec,
	})

	log.Info().
		Str("room_id", r.id.String()).
		Str("player_id", player.ID.String()).
		Int("round", r.timer.Round()).
		Msg("player up for auction")
	return nil
}

func (r *Room) handlePlaceBid(cmd command) (*models.Bid, error) {
	switch r.state.Status {
	case models.RoomStatusBidding:
	case models.RoomStatusPaused:
		return nil, ErrRoomPaused
	default:
		return nil, ErrInvalidTransition
	}

	team, ok := r.budget.Team(cmd.teamID)
	if !ok {
		return nil, ErrUnknownTeam
	}
	if !cmd.principal.IsAdmin() && !r.budget.IsCaptain(cmd.teamID, cmd.principal.UserID) {
		return nil, ErrUnauthorized
	}
	if cmd.amount <= 0 {
		return nil, fmt.Errorf("%w: bid amount must be positive", ErrValidation)
	}

	// Re-validated against the committed highest inside the actor: a
	// bid serialized after a higher one is stale, not silently accepted.
	minAccept := r.bids.HighestAmount() + r.state.Settings.MinBidIncrement
	if cmd.amount < minAccept {
		return nil, ErrStaleBid
	}
	if err := r.budget.Reserve(cmd.teamID, cmd.amount); err != nil {
		return nil, err
	}

	now := r.clock.Now()
	bid := r.bids.Append(cmd.teamID, cmd.amount, now)
	r.state.CurrentBid = &models.BidRef{TeamID: cmd.teamID, Amount: cmd.amount}
	r.timer.ResetFull()

	r.emit(events.EventTypeBidPlaced, events.BidPlacedPayload{
		BidID:       bid.ID.String(),
		PlayerID:    bid.PlayerID.String(),
		TeamID:      bid.TeamID.String(),
		TeamName:    team.Name,
		Amount:      bid.Amount,
		BidSequence: bid.Sequence,
		PlacedAt:    now,
		TimeoutAt:   *r.timer.Deadline(),
	})

	log.Debug().
		Str("room_id", r.id.String()).
		Str("team_id", cmd.teamID.String()).
		Int("amount", cmd.amount).
		Int("bid_sequence", bid.Sequence).
		Msg("bid accepted")
	return &bid, nil
}

func (r *Room) handlePause(cmd command) error {
	if !cmd.principal.IsAdmin() {
		return ErrUnauthorized
	}
	if r.state.Status != models.RoomStatusBidding {
		return ErrInvalidTransition
	}

	r.timer.Pause()
	r.state.Status = models.RoomStatusPaused

	now := r.clock.Now()
	r.emit(events.EventTypeAuctionPaused, events.AuctionPausedPayload{
		PausedAt:     now,
		RemainingSec: int(r.timer.Remaining(now).Seconds()),
	})
	return nil
}

func (r *Room) handleResume(cmd command) error {
	if !cmd.principal.IsAdmin() {
		return ErrUnauthorized
	}
	if r.state.Status != models.RoomStatusPaused {
		return ErrInvalidTransition
	}

	r.timer.Resume()
	r.state.Status = models.RoomStatusBidding

	now := r.clock.Now()
	r.emit(events.EventTypeAuctionResumed, events.AuctionResumedPayload{
		ResumedAt:    now,
		TimeoutAt:    *r.timer.Deadline(),
		RemainingSec: int(r.timer.Remaining(now).Seconds()),
	})
	return nil
}

func (r *Room) handleConfirm(cmd command) error {
	if !cmd.principal.IsAdmin() {
		return ErrUnauthorized
	}
	switch r.state.Status {
	case models.RoomStatusBidding:
	case models.RoomStatusPaused:
		return ErrRoomPaused
	default:
		return ErrInvalidTransition
	}
	if r.state.CurrentBid == nil {
		return ErrNoActiveBid
	}
	r.resolveSold()
	return nil
}

func (r *Room) handleCancel(cmd command) error {
	if !cmd.principal.IsAdmin() {
		return ErrUnauthorized
	}
	switch r.state.Status {
	case models.RoomStatusBidding:
	case models.RoomStatusPaused:
		return ErrRoomPaused
	default:
		return ErrInvalidTransition
	}
	r.resolveUnsold("cancelled by admin")
	return nil
}

// handleTimerExpired drives auto-resolution. A fire from a superseded
// schedule generation is discarded: it raced into the queue before a
// bid, pause or new round replaced the countdown it belonged to.
func (r *Room) handleTimerExpired(gen int) {
	if r.state.Status != models.RoomStatusBidding || gen != r.timer.Generation() {
		return
	}
	log.Info().
		Str("room_id", r.id.String()).
		Int("round", r.timer.Round()).
		Bool("has_bid", r.state.CurrentBid != nil).
		Msg("turn timer expired")

	if r.state.CurrentBid != nil {
		r.resolveSold()
	} else {
		r.resolveUnsold("timer expired with no bids")
	}
}

func (r *Room) handleForceAssign(cmd command) error {
	if !cmd.principal.IsAdmin() {
		return ErrUnauthorized
	}
	if r.state.Status == models.RoomStatusEnded {
		return ErrInvalidTransition
	}
	if cmd.amount < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	if _, ok := r.budget.Team(cmd.teamID); !ok {
		return ErrUnknownTeam
	}
	player, ok := r.pool.Take(cmd.playerID)
	if !ok {
		return ErrInvalidTransition
	}

	if err := r.budget.ApplyDebit(cmd.teamID, cmd.playerID, cmd.amount); err != nil {
		r.pool.PutBack(player.ID)
		return err
	}

	now := r.clock.Now()
	player.Status = models.PlayerStatusSold
	player.WinningTeamID = &cmd.teamID
	player.WinningAmount = &cmd.amount
	r.soldCount++

	r.emit(events.EventTypeForceAssigned, events.ForceAssignedPayload{
		PlayerID:   player.ID.String(),
		TeamID:     cmd.teamID.String(),
		Price:      cmd.amount,
		AssignedBy: cmd.principal.UserID.String(),
		AssignedAt: now,
	})

	log.Info().
		Str("room_id", r.id.String()).
		Str("player_id", player.ID.String()).
		Str("team_id", cmd.teamID.String()).
		Int("price", cmd.amount).
		Msg("player force-assigned")

	if r.state.Status == models.RoomStatusWaiting && r.pool.Remaining() == 0 {
		r.endAuction()
	}
	return nil
}

func (r *Room) handleSetCaptain(cmd command) error {
	if !cmd.principal.IsAdmin() {
		return ErrUnauthorized
	}
	if r.state.Status == models.RoomStatusEnded {
		return ErrInvalidTransition
	}
	if err := r.budget.SetCaptain(cmd.teamID, cmd.userID); err != nil {
		return err
	}
	r.emit(events.EventTypeCaptainAssigned, events.CaptainAssignedPayload{
		TeamID:     cmd.teamID.String(),
		UserID:     cmd.userID.String(),
		AssignedAt: r.clock.Now(),
	})
	return nil
}

func (r *Room) handleEnd(cmd command) error {
	if !cmd.principal.IsAdmin() {
		return ErrUnauthorized
	}
	switch r.state.Status {
	case models.RoomStatusEnded:
		return ErrInvalidTransition
	case models.RoomStatusBidding, models.RoomStatusPaused:
		r.markUnsold("auction ended by admin")
	}
	r.endAuction()
	return nil
}

// resolveSold commits the sale to the highest bidder. A budget check
// that should be impossible to fail forces the round UNSOLD and raises
// an IntegrityAlert for operator review instead of proceeding silently.
func (r *Room) resolveSold() {
	bid := r.state.CurrentBid
	playerID := *r.state.CurrentPlayerID

	if err := r.budget.ApplyDebit(bid.TeamID, playerID, bid.Amount); err != nil {
		log.Error().
			Err(err).
			Str("room_id", r.id.String()).
			Str("player_id", playerID.String()).
			Str("team_id", bid.TeamID.String()).
			Msg("debit failed at resolution; forcing unsold")
		r.emit(events.EventTypeIntegrityAlert, events.IntegrityAlertPayload{
			PlayerID: playerID.String(),
			Detail:   fmt.Sprintf("debit of %d for team %s failed: %v", bid.Amount, bid.TeamID, err),
			RaisedAt: r.clock.Now(),
		})
		r.markUnsold("budget integrity failure")
		r.autoAdvance()
		return
	}

	player, _ := r.pool.Get(playerID)
	now := r.clock.Now()
	player.Status = models.PlayerStatusSold
	player.WinningTeamID = &bid.TeamID
	winning := bid.Amount
	player.WinningAmount = &winning
	r.soldCount++
	r.state.Status = models.RoomStatusSold

	team, _ := r.budget.Team(bid.TeamID)
	r.emit(events.EventTypePlayerSold, events.PlayerSoldPayload{
		PlayerID:            playerID.String(),
		TeamID:              bid.TeamID.String(),
		Amount:              bid.Amount,
		SoldAt:              now,
		TeamRemainingPoints: team.RemainingPoints(),
	})

	log.Info().
		Str("room_id", r.id.String()).
		Str("player_id", playerID.String()).
		Str("team_id", bid.TeamID.String()).
		Int("amount", bid.Amount).
		Msg("player sold")

	r.autoAdvance()
}

func (r *Room) resolveUnsold(reason string) {
	r.markUnsold(reason)
	r.autoAdvance()
}

func (r *Room) markUnsold(reason string) {
	playerID := *r.state.CurrentPlayerID
	player, _ := r.pool.Get(playerID)
	player.Status = models.PlayerStatusUnsold
	r.unsoldCount++
	r.state.Status = models.RoomStatusUnsold

	r.emit(events.EventTypePlayerUnsold, events.PlayerUnsoldPayload{
		PlayerID: playerID.String(),
		UnsoldAt: r.clock.Now(),
		Reason:   reason,
	})

	log.Info().
		Str("room_id", r.id.String()).
		Str("player_id", playerID.String()).
		Str("reason", reason).
		Msg("player unsold")
}

// autoAdvance returns the room to WAITING between players, or ends the
// auction when the pool is exhausted.
func (r *Room) autoAdvance() {
	r.timer.Stop()
	r.state.CurrentPlayerID = nil
	r.state.CurrentBid = nil
	if r.pool.Remaining() > 0 {
		r.state.Status = models.RoomStatusWaiting
		return
	}
	r.endAuction()
}

func (r *Room) endAuction() {
	r.timer.Stop()
	r.state.CurrentPlayerID = nil
	r.state.CurrentBid = nil
	r.state.Status = models.RoomStatusEnded

	r.emit(events.EventTypeAuctionEnded, events.AuctionEndedPayload{
		EndedAt:     r.clock.Now(),
		SoldCount:   r.soldCount,
		UnsoldCount: r.unsoldCount,
	})

	log.Info().
		Str("room_id", r.id.String()).
		Int("sold", r.soldCount).
		Int("unsold", r.unsoldCount).
		Msg("auction ended")
}

// emit commits the event to the room's replayable log, then queues it
// for delivery. Delivery failures are the sink's problem; the commit
// has already happened.
func (r *Room) emit(typ events.EventType, payload any) {
	r.seq++
	ev, err := events.New(r.id, r.seq, typ, payload, r.clock.Now())
	if err != nil {
		log.Error().Err(err).Str("room_id", r.id.String()).Msg("failed to build event")
		return
	}

	r.logMu.Lock()
	r.elog = append(r.elog, ev)
	r.logMu.Unlock()

	if r.sink != nil {
		r.sink.Publish(ev)
	}
}

// EventsSince returns committed events with sequence greater than seq,
// for replay by reconnecting or late-joining clients.
func (r *Room) EventsSince(seq int64) []events.AuctionEvent {
	r.logMu.RLock()
	defer r.logMu.RUnlock()

	idx := len(r.elog)
	for i, ev := range r.elog {
		if ev.Sequence > seq {
			idx = i
			break
		}
	}
	out := make([]events.AuctionEvent, len(r.elog)-idx)
	copy(out, r.elog[idx:])
	return out
}

// replayRoundBids rebuilds the in-flight round's bid ledger and current
// bid from committed BidPlaced events.
func (r *Room) replayRoundBids(playerID uuid.UUID, elog []events.AuctionEvent) {
	for i := range elog {
		ev := elog[i]
		if ev.Type != events.EventTypeBidPlaced {
			continue
		}
		payload, err := events.ParsePayload(&ev)
		if err != nil {
			log.Error().Err(err).Str("room_id", r.id.String()).Msg("failed to parse bid event during replay")
			continue
		}
		bp, ok := payload.(events.BidPlacedPayload)
		if !ok || bp.PlayerID != playerID.String() {
			continue
		}
		bidID, err := uuid.Parse(bp.BidID)
		if err != nil {
			continue
		}
		teamID, err := uuid.Parse(bp.TeamID)
		if err != nil {
			continue
		}
		r.bids.Restore(models.Bid{
			ID:       bidID,
			RoomID:   r.id,
			PlayerID: playerID,
			TeamID:   teamID,
			Amount:   bp.Amount,
			Sequence: bp.BidSequence,
			PlacedAt: bp.PlacedAt,
		})
		r.state.CurrentBid = &models.BidRef{TeamID: teamID, Amount: bp.Amount}
	}
}

// persistRoundState queues the post-commit state for the drain loop.
// Only the latest state matters for recovery: a still-queued older
// state is replaced, never written after a newer one.
func (r *Room) persistRoundState() {
	if r.store == nil {
		return
	}
	now := r.clock.Now()
	st := RoundState{
		RoomID:          r.id,
		Status:          r.state.Status,
		CurrentPlayerID: r.state.CurrentPlayerID,
		Round:           r.timer.Round(),
		LastSequence:    r.seq,
		Deadline:        r.timer.Deadline(),
		Paused:          r.timer.Paused(),
		RemainingSec:    int(r.timer.Remaining(now).Seconds()),
	}
	for {
		select {
		case r.stateCh <- st:
			return
		default:
		}
		select {
		case <-r.stateCh:
		default:
		}
	}
}

// persistLoop writes queued round states sequentially until the room
// closes. A single writer keeps the upserts in commit order.
func (r *Room) persistLoop() {
	for {
		select {
		case <-r.done:
			return
		case st := <-r.stateCh:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := r.store.SaveRoundState(ctx, st)
			cancel()
			if err != nil {
				log.Error().Err(err).Str("room_id", st.RoomID.String()).Msg("failed to persist round state")
			}
		}
	}
}
