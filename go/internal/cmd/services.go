package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/clanhall/auctiond/go/internal/auction/admin"
	"github.com/clanhall/auctiond/go/internal/auction/engine"
	"github.com/clanhall/auctiond/go/internal/auction/events"
	"github.com/clanhall/auctiond/go/internal/auction/gateway"
	"github.com/clanhall/auctiond/go/internal/auction/httpapi"
	"github.com/clanhall/auctiond/go/internal/auction/outbox"
	"github.com/clanhall/auctiond/go/internal/auction/outbox/worker"
	"github.com/clanhall/auctiond/go/internal/auction/repository"
	"github.com/clanhall/auctiond/go/internal/models"
)

type Services struct {
	Repo      *repository.Repository
	Projector *repository.Projector
	OutboxApp *outbox.App
	Sink      *outbox.Sink
	Listener  *outbox.Listener
	Publisher *worker.JetStreamPublisher
	Manager   *engine.Manager
	Admin     *admin.Gateway
	API       *httpapi.Handler
	Gateway   *gateway.Service
}

// fanoutSink hands each committed event to every downstream sink. Both
// sinks buffer internally, so Publish stays non-blocking.
type fanoutSink []engine.EventSink

func (f fanoutSink) Publish(event events.AuctionEvent) {
	for _, s := range f {
		s.Publish(event)
	}
}

// persistingManager wraps the engine manager so newly created rooms are
// written through to the repository before the caller sees them.
type persistingManager struct {
	manager *engine.Manager
	repo    *repository.Repository
}

func (m *persistingManager) CreateRoom(req engine.CreateRoomRequest) (*engine.Room, error) {
	room, err := m.manager.CreateRoom(req)
	if err != nil {
		return nil, err
	}

	snap := room.Snapshot()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.repo.CreateRoomAggregate(ctx, snap.Room, snap.Teams, snap.Players); err != nil {
		m.manager.CloseRoom(room.ID())
		return nil, fmt.Errorf("failed to persist new room: %w", err)
	}
	return room, nil
}

func (m *persistingManager) GetRoom(id uuid.UUID) (*engine.Room, bool) {
	return m.manager.GetRoom(id)
}

func setupServices(cfg *Config, pool *pgxpool.Pool, db *sql.DB, dsn string) (*Services, error) {
	repo := repository.NewRepository(pool)
	projector := repository.NewProjector(repo, 1024)

	outboxRepo := outbox.NewRepository(db)
	outboxApp := outbox.NewApp(outboxRepo)
	sink := outbox.NewSink(outboxApp, cfg.Outbox.SinkBuffer)

	manager := engine.NewManager(clockwork.NewRealClock(), fanoutSink{sink, projector}, repo)

	jsCfg := worker.DefaultJetStreamConfig()
	if cfg.NATS.URL != "" {
		jsCfg.URL = cfg.NATS.URL
	}
	publisher, err := worker.NewJetStreamPublisher(jsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream publisher: %w", err)
	}

	ltCfg := outbox.DefaultListenerConfig()
	ltCfg.DatabaseURL = dsn
	ltCfg.FallbackInterval = cfg.fallbackInterval()
	if cfg.Outbox.NotifyChannel != "" {
		ltCfg.NotifyChannel = cfg.Outbox.NotifyChannel
	}
	listener, err := outbox.NewListener(outboxApp, publisher, ltCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create outbox listener: %w", err)
	}

	gwCfg := gateway.DefaultConfig()
	if cfg.NATS.URL != "" {
		gwCfg.JetStreamConfig.URL = cfg.NATS.URL
	}
	provider := gateway.NewEngineStateProvider(manager, outboxApp)
	gw, err := gateway.NewService(gwCfg, provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway service: %w", err)
	}

	adminGateway := admin.NewGateway(&persistingManager{manager: manager, repo: repo})
	api := httpapi.NewHandler(adminGateway, gw.StateRoutes())

	return &Services{
		Repo:      repo,
		Projector: projector,
		OutboxApp: outboxApp,
		Sink:      sink,
		Listener:  listener,
		Publisher: publisher,
		Manager:   manager,
		Admin:     adminGateway,
		API:       api,
		Gateway:   gw,
	}, nil
}

// restoreRooms rebuilds live actors for every room that was running when
// the process last stopped.
func restoreRooms(ctx context.Context, s *Services) error {
	rooms, err := s.Repo.ListRoomsByStatus(ctx,
		models.RoomStatusWaiting,
		models.RoomStatusBidding,
		models.RoomStatusPaused,
		models.RoomStatusSold,
		models.RoomStatusUnsold,
	)
	if err != nil {
		return fmt.Errorf("failed to list restorable rooms: %w", err)
	}

	for i := range rooms {
		room := rooms[i]

		teams, err := s.Repo.GetTeamsByRoom(ctx, room.ID)
		if err != nil {
			return fmt.Errorf("failed to load teams for room %s: %w", room.ID, err)
		}
		players, err := s.Repo.GetPlayersByRoom(ctx, room.ID)
		if err != nil {
			return fmt.Errorf("failed to load players for room %s: %w", room.ID, err)
		}
		roundState, err := s.Repo.LoadRoundState(ctx, room.ID)
		if err != nil {
			return fmt.Errorf("failed to load round state for room %s: %w", room.ID, err)
		}

		rows, err := s.OutboxApp.CollectRoomEvents(ctx, room.ID, 1000)
		if err != nil {
			return fmt.Errorf("failed to load event log for room %s: %w", room.ID, err)
		}
		elog := make([]events.AuctionEvent, 0, len(rows))
		for _, row := range rows {
			elog = append(elog, events.AuctionEvent{
				ID:         row.ID,
				RoomID:     row.RoomID,
				Sequence:   row.Sequence,
				Type:       events.EventType(row.EventType),
				Payload:    row.Payload,
				ServerTime: row.EventServerTime(),
			})
		}

		s.Manager.RestoreRoom(room, teams, players, elog, roundState)
	}

	if len(rooms) > 0 {
		log.Info().Int("rooms", len(rooms)).Msg("restored auction rooms")
	}
	return nil
}
