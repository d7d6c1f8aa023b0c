package app

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	appconfig "github.com/AmanYize/ev-charge/backend/services/auth-service/internal/config"
	"github.com/AmanYize/ev-charge/backend/services/auth-service/internal/db"
	httpserver "github.com/AmanYize/ev-charge/backend/services/auth-service/internal/http"
	"github.com/AmanYize/ev-charge/backend/services/auth-service/internal/http/handlers"
	"github.com/AmanYize/ev-charge/backend/services/auth-service/internal/password"
	"github.com/AmanYize/ev-charge/backend/services/auth-service/internal/repository"
	"github.com/AmanYize/ev-charge/backend/services/auth-service/internal/service"
)

// App wires dependencies for the auth service.
type App struct {
	server *httpserver.Server
	db     *sql.DB
	logger *zap.Logger
}

// New builds application graph.
func New(ctx context.Context, cfg *appconfig.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := db.NewPostgres(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}

	userRepo := repository.NewUserRepository(sqlDB)
	hasher := password.NewBcryptHasher(cfg.BcryptCost)
	tokenSvc := service.NewTokenService(cfg.JWT.Secret, cfg.JWTExpiration(), cfg.RefreshExpiration())
	authSvc := service.NewAuthService(userRepo, hasher, tokenSvc, logger)

	routes := httpserver.Routes{
		Signup:  handlers.NewSignupHandler(authSvc),
		Signin:  handlers.NewSigninHandler(authSvc),
		Refresh: handlers.NewRefreshHandler(authSvc),
		Health:  handlers.NewHealthHandler(handlers.HealthCheck{Name: "postgres", Ping: sqlDB.PingContext}),
	}

	var limiter *httpserver.RateLimiter
	if cfg.Signin.PerMinute > 0 {
		limiter = httpserver.NewRateLimiter(cfg.Signin.PerMinute, cfg.Signin.Burst, 10*time.Minute)
	}

	router := httpserver.NewRouter(routes, limiter)
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	return &App{
		server: server,
		db:     sqlDB,
		logger: logger,
	}, nil
}

// Run starts serving HTTP traffic until context cancellation.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases acquired resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
}
