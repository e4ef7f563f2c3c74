package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/GyroZepelix/mithril-content/internal/audit"
	"github.com/GyroZepelix/mithril-content/internal/auth"
	"github.com/GyroZepelix/mithril-content/internal/config"
	"github.com/GyroZepelix/mithril-content/internal/contents"
	"github.com/GyroZepelix/mithril-content/internal/database"
	"github.com/GyroZepelix/mithril-content/internal/document"
	"github.com/GyroZepelix/mithril-content/internal/entries"
	"github.com/GyroZepelix/mithril-content/internal/files"
	"github.com/GyroZepelix/mithril-content/internal/schema"
	"github.com/GyroZepelix/mithril-content/internal/sections"
	"github.com/GyroZepelix/mithril-content/internal/server"
	"github.com/GyroZepelix/mithril-content/internal/translations"
	"github.com/GyroZepelix/mithril-content/internal/unique"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(config.Load())
	},
}

func serve(cfg *config.Config) error {
	slog.Info("starting mithril-content",
		"port", cfg.Port,
		"file_service", cfg.FileServiceURL,
		"auth", cfg.ServiceTokenSecret != "",
		"dev_mode", cfg.DevMode,
	)

	db, err := connect(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("database connected")

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("migrations applied")

	changes := audit.NewService(audit.NewRepository(db))
	changes.Start()

	deps, err := buildDependencies(cfg, db, changes)
	if err != nil {
		return err
	}

	srv := server.New(cfg.Port, server.NewRouter(deps))

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", srv.Addr())
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-quit:
		slog.Info("received shutdown signal", "signal", sig.String())
	case serveErr = <-errCh:
		if serveErr != nil {
			slog.Error("server error", "error", serveErr)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	slog.Info("shutting down server (30s timeout)...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	changes.Shutdown(shutdownCtx)

	slog.Info("mithril-content stopped")
	return serveErr
}

// buildDependencies wires repositories, services and handlers.
func buildDependencies(cfg *config.Config, db *database.DB, changes *audit.Service) (server.Dependencies, error) {
	checker := unique.NewChecker(unique.NewPostgresLookup(db))
	fileClient := files.NewClient(cfg.FileServiceURL, cfg.FileServiceTimeout)

	contentsSvc, err := contents.NewService(&contents.Params{
		Store:     contents.NewRepository(db),
		Validator: schema.NewValidator(checker),
		Changes:   changes,
	})
	if err != nil {
		return server.Dependencies{}, err
	}

	entriesRepo := entries.NewRepository(db)
	docValidator := document.NewValidator(checker)
	resolver := document.NewResolver(fileClient, entriesRepo)

	entriesSvc, err := entries.NewService(&entries.Params{
		Store:     entriesRepo,
		Contents:  contentsSvc,
		Validator: docValidator,
		Resolver:  resolver,
		Changes:   changes,
	})
	if err != nil {
		return server.Dependencies{}, err
	}

	sectionsSvc, err := sections.NewService(&sections.Params{
		Store:     sections.NewRepository(db),
		Contents:  contentsSvc,
		Validator: docValidator,
		Resolver:  resolver,
		Changes:   changes,
	})
	if err != nil {
		return server.Dependencies{}, err
	}

	translationsSvc, err := translations.NewService(&translations.Params{
		Store:    translations.NewRepository(db),
		Contents: contentsSvc,
		Changes:  changes,
	})
	if err != nil {
		return server.Dependencies{}, err
	}

	deps := server.Dependencies{
		DB:           db,
		Contents:     contents.NewHandler(contentsSvc),
		Entries:      entries.NewHandler(entriesSvc),
		Sections:     sections.NewHandler(sectionsSvc),
		Translations: translations.NewHandler(translationsSvc),
		Changes:      audit.NewHandler(changes),
		DevMode:      cfg.DevMode,
		CORSOrigins:  cfg.CORSOrigins,
	}
	if cfg.ServiceTokenSecret != "" {
		deps.AuthMiddleware = auth.Middleware(cfg.ServiceTokenSecret)
	} else {
		slog.Warn("MITHRIL_SERVICE_TOKEN_SECRET not set, API is unauthenticated")
	}
	return deps, nil
}
