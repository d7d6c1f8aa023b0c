package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	libdb "github.com/AmanYize/ev-charge/backend/libs/db"
	"github.com/AmanYize/ev-charge/backend/libs/logging"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/backend"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/directory"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/handshake"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/kiosk"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/kvstore"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/notice"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/scanner"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/session"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/wallet"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := kiosk.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger("kiosk")
	if err != nil {
		panic(err)
	}
	defer logger.Sync() // best-effort flush

	sqlDB, err := libdb.NewSQLiteDB(cfg.Storage.Path)
	if err != nil {
		logger.Fatal("failed to open local storage", zap.Error(err))
	}
	defer sqlDB.Close()

	store, err := kvstore.NewSQLite(ctx, sqlDB)
	if err != nil {
		logger.Fatal("failed to prepare local storage", zap.Error(err))
	}

	w, err := wallet.Open(ctx, store, kvstore.KeyWallet, cfg.Charging.DefaultBalance, logger)
	if err != nil {
		logger.Fatal("failed to load wallet", zap.Error(err))
	}

	sessionBackend, err := newBackend(ctx, cfg, store, logger)
	if err != nil {
		logger.Fatal("failed to prepare session backend", zap.Error(err))
	}

	dir := directory.NewMemory(directory.DemoStations()...)
	camera := scanner.NewDirCamera(cfg.Camera.FramesDir, cfg.Camera.FrameInterval)
	qr := scanner.New(camera, scanner.NewZXingDecoder(cfg.Camera.TryHarder), scanner.Config{
		Facing: scanner.Facing(cfg.Camera.Facing),
	}, logger.Named("scanner"))

	hs := handshake.New(qr, dir, func(attempt int, err error) {
		n := notice.Describe(err)
		logger.Info(n.Message, zap.Int("attempt", attempt), zap.String("action", string(n.Action)))
	}, logger.Named("handshake"))

	k := &kiosk.Kiosk{
		Handshake: hs,
		Directory: dir,
		Backend:   sessionBackend,
		Wallet:    w,
		Session: session.Config{
			AccrualRateKWhPerSecond: cfg.Charging.AccrualRateKWhPerSecond,
			TickInterval:            cfg.Charging.TickInterval,
			FallbackPricePerKWh:     cfg.Charging.FallbackPricePerKWh,
		},
		Expect:    handshake.Expectation{SiteID: cfg.Expect.SiteID, GunID: cfg.Expect.GunID},
		ChargeFor: cfg.Charging.ChargeFor,
		Logger:    logger.Named("session"),
	}

	logger.Info("waiting for QR code", zap.String("frames_dir", cfg.Camera.FramesDir))
	res, err := k.Run(ctx)
	switch {
	case err == nil:
		logger.Info("charging finished",
			zap.Float64("energy_kwh", res.Snapshot.Session.EnergyKWh),
			zap.Float64("cost", res.Snapshot.Session.Cost),
			zap.Float64("balance", res.Snapshot.Balance),
		)
	case errors.Is(err, context.Canceled):
		logger.Info("cancelled")
	default:
		logger.Error("charging failed", zap.Error(err))
		os.Exit(1)
	}
}

func newBackend(ctx context.Context, cfg *kiosk.Config, store kvstore.Store, logger *zap.Logger) (backend.SessionBackend, error) {
	if !cfg.UsesRemote() {
		return backend.NewSimulated(0, logger.Named("backend")), nil
	}

	client := backend.NewDefaultHTTPClient(cfg.Remote.Timeout)
	auth := backend.NewAuthClient(cfg.Remote.AuthURL, client, store, logger.Named("auth"))
	if _, err := auth.Token(ctx); errors.Is(err, backend.ErrUnauthorized) {
		if cfg.Remote.PhoneNumber == "" {
			return nil, errors.New("kiosk: no stored credentials and no phone number configured")
		}
		if err := auth.Signin(ctx, cfg.Remote.PhoneNumber, cfg.Remote.Password); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	return backend.NewHTTPBackend(cfg.Remote.APIURL, client, auth), nil
}
