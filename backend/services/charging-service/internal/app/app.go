package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libredis "github.com/AmanYize/ev-charge/backend/libs/redis"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/backend"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/config"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/db"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/directory"
	httpserver "github.com/AmanYize/ev-charge/backend/services/charging-service/internal/http"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/http/handlers"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/http/middleware"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/kvstore"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/metrics"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/repository"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/service"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/session"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/ws"
)

const redisNamespace = "charging"

// App wires charging-service dependencies.
type App struct {
	server      *httpserver.Server
	service     *service.ChargingService
	streams     *ws.Manager
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs the application graph. Without a Postgres DSN the station
// directory and history live in memory; without a Redis address so does the
// wallet store.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	metrics.Init()
	a := &App{logger: logger}

	var (
		dir     directory.Directory
		history repository.HistoryRepository
	)
	if cfg.Database.DSN != "" {
		sqlDB, err := db.NewPostgres(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		a.db = sqlDB
		if err := db.Migrate(ctx, sqlDB); err != nil {
			a.Close()
			return nil, err
		}
		pg := directory.NewPostgres(sqlDB)
		if cfg.Database.SeedDemo {
			for _, station := range directory.DemoStations() {
				if err := pg.Upsert(ctx, station); err != nil {
					a.Close()
					return nil, fmt.Errorf("seed station %s: %w", station.ID, err)
				}
			}
		}
		dir = pg
		history = repository.NewPostgresHistory(sqlDB)
	} else {
		logger.Warn("no database configured, using in-memory directory and history")
		dir = directory.NewMemory(directory.DemoStations()...)
		history = repository.NewMemoryHistory()
	}

	if cfg.Directory.CacheSize > 0 {
		cached, err := directory.NewCached(dir, cfg.Directory.CacheSize, cfg.Directory.CacheTTL)
		if err != nil {
			a.Close()
			return nil, err
		}
		dir = cached
	}

	var store kvstore.Store
	if cfg.Redis.Addr != "" {
		redisClient, err := libredis.NewClient(ctx, libredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redisClient = redisClient
		store = kvstore.NewRedis(redisClient, redisNamespace, cfg.RedisTTL())
	} else {
		logger.Warn("no redis configured, wallets are kept in memory")
		store = kvstore.NewMemory()
	}

	sessionBackend := backend.NewSimulated(cfg.Backend.Latency, logger.Named("backend"))

	a.service = service.NewChargingService(dir, sessionBackend, history, store, service.Options{
		Session: session.Config{
			AccrualRateKWhPerSecond: cfg.Charging.AccrualRateKWhPerSecond,
			TickInterval:            cfg.Charging.TickInterval,
			FallbackPricePerKWh:     cfg.Charging.FallbackPricePerKWh,
		},
		DefaultBalance: cfg.Charging.DefaultBalance,
	}, logger.Named("charging"))

	var checks []handlers.HealthCheck
	if a.db != nil {
		checks = append(checks, handlers.HealthCheck{Name: "postgres", Ping: a.db.PingContext})
	}
	if a.redisClient != nil {
		client := a.redisClient
		checks = append(checks, handlers.HealthCheck{Name: "redis", Ping: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}})
	}

	a.streams = ws.NewManager()
	routes := httpserver.RouterDeps{
		Stations:      handlers.NewStationsHandlers(dir, logger),
		Charging:      handlers.NewChargingHandlers(a.service, ws.NewServer(a.streams, 0, cfg.HTTP.AllowedOrigins, logger), logger),
		Backend:       handlers.NewBackendHandlers(sessionBackend, logger),
		HealthHandler: handlers.NewHealthHandler(checks...),
		Metrics:       metrics.Handler(),
	}

	router := httpserver.NewRouter(routes, middleware.AuthMiddleware(cfg.JWT.Secret), middleware.RequestLogger(logger))
	a.server = httpserver.NewServer(cfg.HTTPAddress(), router, logger)
	return a, nil
}

// Run starts HTTP server.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close cancels live sessions and releases resources.
func (a *App) Close() {
	if a.service != nil {
		a.service.Close()
	}
	if a.streams != nil {
		a.streams.CloseAll()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
