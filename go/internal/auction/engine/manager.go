package engine

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/clanhall/auctiond/go/internal/auction/events"
	"github.com/clanhall/auctiond/go/internal/models"
)

// Manager owns the live room actors. Rooms run fully in parallel;
// serialization exists only inside each room.
type Manager struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]*Room

	clock Clock
	sink  EventSink
	store RoundStateStore
}

// NewManager creates a room manager. sink and store are shared by all
// rooms; events carry their room ID.
func NewManager(clock Clock, sink EventSink, store RoundStateStore) *Manager {
	return &Manager{
		rooms: make(map[uuid.UUID]*Room),
		clock: clock,
		sink:  sink,
		store: store,
	}
}

// PlayerSeed describes one draftable player at room creation.
type PlayerSeed struct {
	Name string `json:"name"`
	Role string `json:"role"`
	Tier string `json:"tier"`
}

// CreateRoomRequest carries the admin's create-auction command.
type CreateRoomRequest struct {
	Title               string       `json:"title"`
	StartingPoints      int          `json:"starting_points"`
	TurnTimeLimitSec    int          `json:"turn_time_limit_sec"`
	MinBidIncrement     int          `json:"min_bid_increment"`
	SuggestedIncrements []int        `json:"suggested_increments,omitempty"`
	MaxParticipants     int          `json:"max_participants"`
	TeamCount           int          `json:"team_count"`
	TeamNames           []string     `json:"team_names,omitempty"`
	Players             []PlayerSeed `json:"players"`
}

func (req *CreateRoomRequest) validate() error {
	if strings.TrimSpace(req.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if req.StartingPoints <= 0 {
		return fmt.Errorf("%w: starting points must be positive", ErrValidation)
	}
	if req.TurnTimeLimitSec <= 0 {
		return fmt.Errorf("%w: turn time limit must be positive", ErrValidation)
	}
	if req.MinBidIncrement <= 0 {
		return fmt.Errorf("%w: min bid increment must be positive", ErrValidation)
	}
	if req.TeamCount < 2 {
		return fmt.Errorf("%w: at least two teams required", ErrValidation)
	}
	if req.MaxParticipants < req.TeamCount {
		return fmt.Errorf("%w: max participants below team count", ErrValidation)
	}
	if len(req.TeamNames) > 0 && len(req.TeamNames) != req.TeamCount {
		return fmt.Errorf("%w: team names must match team count", ErrValidation)
	}
	if len(req.Players) == 0 {
		return fmt.Errorf("%w: player pool is empty", ErrValidation)
	}
	return nil
}

// CreateRoom builds and starts a room in WAITING status.
func (m *Manager) CreateRoom(req CreateRoomRequest) (*Room, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	now := m.clock.Now()
	room := models.AuctionRoom{
		ID:              uuid.New(),
		Title:           req.Title,
		Status:          models.RoomStatusWaiting,
		TeamCount:       req.TeamCount,
		MaxParticipants: req.MaxParticipants,
		Settings: models.RoomSettings{
			TurnTimeLimitSec:    req.TurnTimeLimitSec,
			MinBidIncrement:     req.MinBidIncrement,
			StartingPoints:      req.StartingPoints,
			SuggestedIncrements: req.SuggestedIncrements,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	teams := make([]models.Team, req.TeamCount)
	for i := range teams {
		name := fmt.Sprintf("Team %d", i+1)
		if len(req.TeamNames) > 0 {
			name = req.TeamNames[i]
		}
		teams[i] = models.Team{
			ID:             uuid.New(),
			RoomID:         room.ID,
			Name:           name,
			StartingPoints: req.StartingPoints,
			CreatedAt:      now,
		}
	}

	players := make([]models.Player, len(req.Players))
	for i, seed := range req.Players {
		players[i] = models.Player{
			ID:        uuid.New(),
			RoomID:    room.ID,
			Name:      seed.Name,
			Role:      seed.Role,
			Tier:      seed.Tier,
			Status:    models.PlayerStatusPool,
			CreatedAt: now,
		}
	}

	r := NewRoom(room, teams, players, RoomConfig{Clock: m.clock, Sink: m.sink, Store: m.store})

	m.mu.Lock()
	m.rooms[room.ID] = r
	m.mu.Unlock()

	log.Info().
		Str("room_id", room.ID.String()).
		Str("title", room.Title).
		Int("teams", req.TeamCount).
		Int("players", len(players)).
		Msg("auction room created")
	return r, nil
}

// RestoreRoom rebuilds a live actor from persisted state after a
// restart. The event log replays the in-flight round's bids and the
// round state re-arms the timer from its stored deadline or frozen
// remaining value.
func (m *Manager) RestoreRoom(room models.AuctionRoom, teams []models.Team, players []models.Player, elog []events.AuctionEvent, rs RoundState) *Room {
	r := &Room{
		id:      room.ID,
		state:   room,
		pool:    NewPool(players),
		budget:  NewBudgetLedger(teams),
		bids:    NewBidLedger(room.ID),
		cmdCh:   make(chan command, 64),
		stateCh: make(chan RoundState, 1),
		done:    make(chan struct{}),
		clock:   m.clock,
		sink:    m.sink,
		store:   m.store,
	}
	limit := time.Duration(room.Settings.TurnTimeLimitSec) * time.Second
	r.timer = NewTurnTimer(m.clock, limit, r.onTimerFire)

	for i := range players {
		pl := players[i]
		switch pl.Status {
		case models.PlayerStatusSold:
			r.soldCount++
			if pl.WinningTeamID != nil && pl.WinningAmount != nil {
				r.budget.RestoreDebit(*pl.WinningTeamID, pl.ID, *pl.WinningAmount)
			}
		case models.PlayerStatusUnsold:
			r.unsoldCount++
		}
	}

	r.elog = append(r.elog, elog...)
	r.seq = rs.LastSequence
	if len(elog) > 0 && elog[len(elog)-1].Sequence > r.seq {
		r.seq = elog[len(elog)-1].Sequence
	}

	if room.CurrentPlayerID != nil {
		r.bids.BeginRound(*room.CurrentPlayerID)
		r.replayRoundBids(*room.CurrentPlayerID, elog)
	}
	r.timer.Restore(rs.Round, rs.Deadline, rs.Paused, time.Duration(rs.RemainingSec)*time.Second)

	r.publishSnapshot()
	go r.run()
	if r.store != nil {
		go r.persistLoop()
	}

	m.mu.Lock()
	m.rooms[room.ID] = r
	m.mu.Unlock()

	log.Info().
		Str("room_id", room.ID.String()).
		Str("status", string(room.Status)).
		Int64("sequence", r.seq).
		Msg("auction room restored")
	return r
}

// GetRoom returns the live room actor, if any.
func (m *Manager) GetRoom(id uuid.UUID) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// Rooms returns all live rooms.
func (m *Manager) Rooms() []*Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	return out
}

// CloseRoom stops a room's actor and forgets it.
func (m *Manager) CloseRoom(id uuid.UUID) {
	m.mu.Lock()
	r, ok := m.rooms[id]
	delete(m.rooms, id)
	m.mu.Unlock()
	if ok {
		r.Close()
	}
}

// Close stops every room actor.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.rooms {
		r.Close()
		delete(m.rooms, id)
	}
}
