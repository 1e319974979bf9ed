package main

import (
	"alumconnect/internal/api"
	"alumconnect/internal/auth"
	"alumconnect/internal/commands"
	"alumconnect/internal/community"
	"alumconnect/internal/config"
	"alumconnect/internal/connections"
	"alumconnect/internal/http"
	"alumconnect/internal/models"
	"alumconnect/internal/outbox"
	"alumconnect/internal/presence"
	"alumconnect/internal/storage"
	"alumconnect/internal/ws"
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("alumconnect", flag.ContinueOnError)
	addProfile := fs.String("add-profile", "", "Name of a directory profile to create through the admin API of a running server")
	email := fs.String("email", "", "Email of the profile created with -add-profile")
	role := fs.String("role", string(models.RoleStudent), "Role of the profile created with -add-profile (student, alumni, admin)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*addProfile != "")
	if err != nil {
		return err
	}

	log := cfg.NewLogger()
	slog.SetDefault(log)

	if *addProfile != "" {
		return commands.AddProfile(api.AddProfileRequest{
			Name:  *addProfile,
			Email: *email,
			Role:  models.Role(*role),
		}, cfg)
	}

	bbStorage, err := storage.NewBboltStorage(cfg.DBFile)
	if err != nil {
		return err
	}
	defer func() { _ = bbStorage.Close() }()

	authService, err := auth.NewAuthService(ctx, auth.Config{
		Secret:      cfg.AuthSecret,
		TokenExpiry: cfg.TokenExpiry,
	}, bbStorage)
	if err != nil {
		return err
	}

	persister := outbox.New(outbox.Config{
		RetryBase:    cfg.OutboxRetryBase,
		RetryMax:     cfg.OutboxRetryMax,
		StoreTimeout: cfg.StoreTimeout,
	}, bbStorage, bbStorage, log)

	registry := presence.NewRegistry(cfg.Channels)
	hub := ws.NewHub(ws.HubConfig{
		StrictChannels: cfg.StrictChannels,
		SendBuffer:     cfg.SendBuffer,
	}, presence.NewTable(), registry, persister, log)

	apiHandlers := api.New(
		api.Config{HistoryLimit: cfg.HistoryLimit},
		authService,
		hub,
		bbStorage,
		bbStorage,
		connections.NewService(connections.Config{AllowRetryAfterReject: cfg.AllowRetryAfterReject}, bbStorage),
		community.NewService(bbStorage),
	)

	apiServer := http.NewAPIServer(apiHandlers, ws.NewServer(hub, cfg.AllowedOrigins, log), cfg.AllowedOrigins, cfg.APIAddr)
	adminServer := http.NewAdminServer(api.NewAdminHandler(authService, hub), cfg.AdminAddr)

	g, gCtx := errgroup.WithContext(ctx)

	// Outbox worker
	g.Go(func() error {
		return persister.Run(gCtx)
	})

	g.Go(adminServer.Start)
	g.Go(apiServer.Start)

	// Wait for context cancellation (signal)
	g.Go(func() error {
		<-gCtx.Done()
		log.Info("shutting down servers")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		hub.KickAll()
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			log.Error("admin server shutdown error", "error", err)
		}
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			log.Error("API server shutdown error", "error", err)
		}
		return nil
	})

	return g.Wait()
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, flag.ErrHelp) {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}
