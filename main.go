package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sgtbyhqi/genz-planner-app/internal/config"
	"github.com/sgtbyhqi/genz-planner-app/internal/database"
	"github.com/sgtbyhqi/genz-planner-app/internal/identity"
	"github.com/sgtbyhqi/genz-planner-app/internal/repository"
	"github.com/sgtbyhqi/genz-planner-app/internal/server"
	"github.com/sgtbyhqi/genz-planner-app/internal/store"
	"github.com/sgtbyhqi/genz-planner-app/internal/workspace"
)

func main() {
	cfg, err := config.Load()
	setupLogging(cfg.LogLevel)
	if err != nil {
		slog.Error("loading config", "error", err)
		if errors.Is(err, config.ErrMissingCredential) {
			serveUnavailable(cfg.Port, err)
		}
		os.Exit(1)
	}

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		slog.Error("opening database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	documents, err := openStore(ctx, cfg, db)
	if err != nil {
		slog.Error("opening document store", "error", err)
		os.Exit(1)
	}
	defer documents.Close()

	authenticator, err := identity.NewAuthenticator(ctx, cfg, repository.NewIdentityRepository(db))
	if err != nil {
		slog.Error("creating authenticator", "error", err)
		os.Exit(1)
	}

	registry := workspace.NewRegistry(workspace.Dependencies{
		Store:                  documents,
		AppID:                  cfg.AppID,
		ReflectionStatusWindow: cfg.ReflectionStatusWindow,
	})
	defer registry.Close()

	go runIdleSweeper(registry, cfg.WorkspaceIdleTimeout)

	srv := server.New(cfg, registry, authenticator)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogging(level string) {
	var slogLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})))
}

func openStore(ctx context.Context, cfg config.Config, db *sql.DB) (store.Store, error) {
	if cfg.StoreBackend == config.BackendFirestore {
		slog.Info("using firestore document store", "project", cfg.StoreProjectID, "app_id", cfg.AppID)
		return store.NewFirestoreStore(ctx, store.FirestoreConfig{
			ProjectID:       cfg.StoreProjectID,
			APIKey:          cfg.StoreAPIKey,
			CredentialsFile: cfg.StoreCredentialsFile,
		})
	}
	slog.Info("using local document store", "path", cfg.DatabasePath, "app_id", cfg.AppID)
	return store.NewSQLiteStore(db), nil
}

// serveUnavailable keeps the process up to show the configuration error
// instead of crashing.
func serveUnavailable(port string, cause error) {
	message := "The planner is not configured: " + cause.Error() + ". Fix the deployment settings and reload."
	if err := server.NewUnavailable(port, message).Start(); err != nil {
		slog.Error("server error", "error", err)
	}
}

func runIdleSweeper(registry *workspace.Registry, idle time.Duration) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		<-ticker.C
		if evicted := registry.Sweep(time.Now(), idle); evicted > 0 {
			slog.Info("evicted idle workspaces", "count", evicted, "remaining", registry.Len())
		}
	}
}
