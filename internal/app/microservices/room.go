package microservices

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/Temutjin2k/room-compass/config"
	"github.com/Temutjin2k/room-compass/internal/adapter/cloudinary"
	"github.com/Temutjin2k/room-compass/internal/adapter/declination"
	"github.com/Temutjin2k/room-compass/internal/adapter/http/handler"
	"github.com/Temutjin2k/room-compass/internal/adapter/http/server"
	repo "github.com/Temutjin2k/room-compass/internal/adapter/postgres"
	rabbitAdapter "github.com/Temutjin2k/room-compass/internal/adapter/rabbit"
	"github.com/Temutjin2k/room-compass/internal/domain/models"
	"github.com/Temutjin2k/room-compass/internal/service/auth"
	"github.com/Temutjin2k/room-compass/internal/service/compass"
	"github.com/Temutjin2k/room-compass/internal/service/live"
	"github.com/Temutjin2k/room-compass/internal/service/room"
	"github.com/Temutjin2k/room-compass/internal/service/tracker"
	"github.com/Temutjin2k/room-compass/pkg/eventbus"
	"github.com/Temutjin2k/room-compass/pkg/logger"
	"github.com/Temutjin2k/room-compass/pkg/postgres"
	"github.com/Temutjin2k/room-compass/pkg/rabbit"
	"github.com/Temutjin2k/room-compass/pkg/trm"
	ws "github.com/Temutjin2k/room-compass/pkg/wsHub"
	"github.com/redis/go-redis/v9"
)

type RoomService struct {
	postgresDB *postgres.PostgreDB
	rabbit     *rabbit.RabbitMQ
	redis      *redis.Client
	bus        *eventbus.Bus[models.ChangeEvent]
	broker     *rabbitAdapter.LocationBroker
	hub        *ws.ConnectionHub
	httpServer *server.API

	// ctx of live sessions, cancelled on shutdown
	sessionCtx    context.Context
	cancelSession context.CancelFunc

	cfg config.Config
	log logger.Logger
}

// pingFunc adapts a health probe to handler.Pinger.
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func NewRoom(ctx context.Context, cfg config.Config, log logger.Logger) (*RoomService, error) {
	s := &RoomService{
		bus: eventbus.New[models.ChangeEvent](),
		cfg: cfg,
		log: log,
	}
	checks := map[string]handler.Pinger{}

	postgresDB, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		log.Error(ctx, "Failed to setup database", err)
		return nil, err
	}
	s.postgresDB = postgresDB
	checks["postgres"] = postgresDB.Pool

	if cfg.RabbitMQ.Enabled {
		s.rabbit, err = rabbit.New(ctx, cfg.RabbitMQ.GetDSN(), log)
		if err != nil {
			log.Error(ctx, "Failed to connect to RabbitMQ", err)
			s.close(ctx)
			return nil, err
		}
		checks["rabbitmq"] = pingFunc(func(ctx context.Context) error {
			if s.rabbit.IsConnectionClosed() {
				return errors.New("connection closed")
			}
			return nil
		})
	} else {
		log.Warn(ctx, "RabbitMQ disabled, change events stay in this instance")
	}

	s.broker = rabbitAdapter.NewLocationBroker(s.rabbit, s.bus, rabbitAdapter.LocationBrokerConfig{
		PublishAttempts: cfg.RabbitMQ.PublishAttempts,
		RetryInterval:   cfg.RabbitMQ.RetryInterval,
	}, log)
	if err := s.broker.Setup(); err != nil {
		log.Error(ctx, "Failed to setup location exchange", err)
		s.close(ctx)
		return nil, err
	}

	remote := declination.NewClient(cfg.Declination.BaseURL, cfg.Declination.APIKey, cfg.Declination.Timeout)
	if cfg.Redis.Enabled {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := s.redis.Ping(ctx).Err(); err != nil {
			log.Warn(ctx, "redis is not reachable, declination lookups go remote until it is", "error", err.Error())
		}
		checks["redis"] = pingFunc(func(ctx context.Context) error {
			return s.redis.Ping(ctx).Err()
		})
	}
	declinationProvider := declination.NewCachedProvider(s.redis, remote, cfg.Declination.CacheTTL, cfg.Declination.Grid, log)

	var icons room.IconStore
	if cfg.Cloudinary.Enabled() {
		store, err := cloudinary.NewIconStore(cloudinary.Config{
			CloudName: cfg.Cloudinary.CloudName,
			APIKey:    cfg.Cloudinary.APIKey,
			APISecret: cfg.Cloudinary.APISecret,
			Folder:    cfg.Cloudinary.Folder,
		})
		if err != nil {
			log.Error(ctx, "Failed to setup cloudinary", err)
			s.close(ctx)
			return nil, err
		}
		icons = store
	} else {
		log.Warn(ctx, "cloudinary is not configured, icon uploads are disabled")
	}

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.SessionTokenTTL)

	rooms := room.NewService(
		room.Config{
			CodeAttempts: cfg.Room.CodeAttempts,
			MaxIconBytes: cfg.Room.MaxIconBytes,
		},
		repo.NewUserRepo(postgresDB.Pool),
		repo.NewRoomRepo(postgresDB.Pool),
		tokens,
		icons,
		s.broker,
		trm.New(postgresDB.Pool),
		log,
	)

	manager := live.NewManager(liveConfig(cfg), rooms, s.broker, declinationProvider, log)

	s.sessionCtx, s.cancelSession = context.WithCancel(context.WithoutCancel(ctx))
	s.hub = ws.NewConnHub(log)

	s.httpServer, err = server.New(cfg, server.Deps{
		Rooms:   rooms,
		Live:    manager,
		Tokens:  tokens,
		Session: handler.NewSession(s.sessionCtx, manager, s.hub, log),
		Checks:  checks,
	}, log)
	if err != nil {
		log.Error(ctx, "Failed to setup http server", err)
		s.close(ctx)
		return nil, err
	}

	return s, nil
}

func liveConfig(cfg config.Config) live.Config {
	return live.Config{
		Tracker: tracker.Config{
			Threshold:       cfg.Tracker.Threshold,
			Interval:        cfg.Tracker.Interval,
			DebounceWait:    cfg.Tracker.DebounceWait,
			DebounceMaxWait: cfg.Tracker.DebounceMaxWait,
			RetryInitial:    cfg.Tracker.RetryInitial,
			RetryMaxElapsed: cfg.Tracker.RetryMaxElapsed,
			RetryAttempts:   uint64(max(cfg.Tracker.RetryAttempts, 0)),
		},
		Compass: compass.Config{
			SmoothingWeight:    cfg.Compass.SmoothingWeight,
			MaxEventsPerSecond: cfg.Compass.MaxEventsPerSecond,
			Burst:              cfg.Compass.Burst,
			DeclinationRefresh: cfg.Compass.DeclinationRefresh,
		},
		ClientsWait:    cfg.Tracker.ClientsWait,
		ClientsMaxWait: cfg.Tracker.ClientsMaxWait,
	}
}

func (s *RoomService) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	consumeCtx, stopConsume := context.WithCancel(ctx)
	defer stopConsume()
	go func() {
		if err := s.broker.Consume(consumeCtx); err != nil {
			s.log.Error(ctx, "location consumer stopped", err)
		}
	}()

	s.httpServer.Run(ctx, errCh)
	defer func() {
		s.close(ctx)
		s.log.Info(ctx, "room service closed")
	}()

	// Waiting signal
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	s.log.Info(ctx, "Room service has been started")

	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		s.log.Info(ctx, "shuting down application", "signal", sig.String())
		return nil
	}
}

func (s *RoomService) close(ctx context.Context) {
	if s.cancelSession != nil {
		s.cancelSession()
	}
	if s.hub != nil {
		s.hub.Close()
	}

	if s.httpServer != nil {
		if err := s.httpServer.Stop(ctx); err != nil {
			s.log.Warn(ctx, "Failed to gracefully close http server", "error", err.Error())
		}
	}

	if s.bus != nil {
		s.bus.Close()
	}

	if s.rabbit != nil {
		if err := s.rabbit.Close(ctx); err != nil {
			s.log.Warn(ctx, "Failed to close RabbitMQ connection", "error", err.Error())
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.log.Warn(ctx, "Failed to close redis client", "error", err.Error())
		}
	}

	if s.postgresDB != nil {
		s.postgresDB.Close()
	}
}
