// Package main initializes and starts the HorosCase API server, setting up
// configuration, logging, storage, services, handlers and TLS.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/HorosCase/internal/catalog"
	"github.com/atinyakov/HorosCase/internal/config"
	"github.com/atinyakov/HorosCase/internal/db"
	"github.com/atinyakov/HorosCase/internal/draw"
	"github.com/atinyakov/HorosCase/internal/logger"
	"github.com/atinyakov/HorosCase/internal/repository"
	"github.com/atinyakov/HorosCase/internal/repository/memstore"
	"github.com/atinyakov/HorosCase/internal/server/handler/http"
	"github.com/atinyakov/HorosCase/internal/service"
	"github.com/atinyakov/HorosCase/internal/session"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const shutdownTimeout = 10 * time.Second

// authStore backs registration, sessions and the expiry cleaner.
type authStore interface {
	service.AuthRepository
	session.RevocationStore
	db.Purger
}

// dataStore backs balances, inventory, ledger and counters.
type dataStore interface {
	service.InventoryRepository
	service.WalletRepository
	service.StatsRepository
	http.Pinger
}

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, options, log.Log); err != nil {
		log.Log.Fatal("server stopped", zap.Error(err))
	}
}

func openStores(ctx context.Context, options *config.Options, log *zap.Logger) (authStore, dataStore, func() error, error) {
	if options.DatabaseDSN == "" {
		log.Warn("no database configured, using in-memory store")
		store := memstore.New()
		return store, store, func() error { return nil }, nil
	}

	conn, err := db.InitPostgres(ctx, options.DatabaseDSN, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return repository.NewPostgresAuthRepository(conn), repository.NewPostgresLedgerRepository(conn), conn.Close, nil
}

func run(ctx context.Context, options *config.Options, log *zap.Logger) error {
	cat, err := catalog.Load(options.CatalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	authRepo, data, closeStore, err := openStores(ctx, options, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() { _ = closeStore() }()

	sessions := session.NewManager([]byte(options.JWTSecret), time.Duration(options.TokenTTL), authRepo)

	// Initialize business-logic services.
	authService := service.NewAuthService(authRepo, sessions, service.LogCodeSender{Log: log}, service.AuthOptions{
		CodeTTL:        time.Duration(options.CodeTTL),
		InitialBalance: options.InitialBalanceCents,
		AdminEmails:    options.AdminEmails,
	}, log)
	caseService := service.NewCaseService(cat, data, draw.NewLockedSource(draw.NewSource()), log)

	// Build the router with middleware and routes.
	router := http.NewRouter(http.Handlers{
		Auth:      &http.AuthHandler{AuthService: authService, Log: log},
		Cases:     &http.CaseHandler{CaseService: caseService, Log: log},
		Inventory: &http.InventoryHandler{InventoryService: service.NewInventoryService(data, log), Log: log},
		Wallet:    &http.WalletHandler{WalletService: service.NewWalletService(data, log), Log: log},
		Admin:     &http.AdminHandler{AdminService: service.NewAdminService(data, cat), Log: log},
		Health:    &http.HealthHandler{Store: data, Log: log},
	}, authService, authService, log)

	server := &nethttp.Server{
		Addr:              options.Address,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if options.TLSEnabled() {
		server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server",
			zap.String("addr", options.Address),
			zap.Bool("tls", options.TLSEnabled()),
			zap.Int("cases", len(cat.List(""))),
		)
		var err error
		if options.TLSEnabled() {
			err = server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, nethttp.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return db.RunExpiredCleaner(gctx, authRepo, time.Duration(options.CleanupInterval), log)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
