package main

import (
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sketchroom/backend/internal/api"
	"github.com/sketchroom/backend/internal/config"
	"github.com/sketchroom/backend/internal/db"
	"github.com/sketchroom/backend/internal/room"
	"github.com/sketchroom/backend/internal/snapshot"
	"github.com/sketchroom/backend/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	store, err := db.New(cfg.Archive.DBPath)
	if err != nil {
		slog.Error("failed to initialize snapshot archive", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	registry := room.NewRegistry()
	hub := ws.NewHub(registry)
	go hub.Run()

	snapshots := snapshot.New(store, registry, snapshot.Config{
		Interval: cfg.Archive.SnapshotInterval,
		Keep:     cfg.Archive.SnapshotKeep,
	})
	snapshots.Start()

	apiHandler := api.New(hub, store, snapshots)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWs(hub, w, r)
	})
	mux.HandleFunc("/health", apiHandler.HealthHandler)
	mux.HandleFunc("/api/stats", apiHandler.StatsHandler)
	mux.HandleFunc("/api/rooms", apiHandler.RoomsRouter)
	mux.HandleFunc("/api/rooms/", apiHandler.RoomsRouter)
	mux.HandleFunc("/api/snapshots", apiHandler.SnapshotsRouter)
	mux.HandleFunc("/api/snapshots/", apiHandler.SnapshotsRouter)

	handler := corsMiddleware(mux)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		slog.Info("shutting down server")
		snapshots.Stop()
		store.Close()
		os.Exit(0)
	}()

	slog.Info("sketchroom server starting",
		"port", cfg.Server.Port,
		"archive", cfg.Archive.DBPath,
	)
	slog.Info("endpoints",
		"websocket", "/ws?username={name}",
		"health", "GET /health",
		"stats", "GET /api/stats",
		"rooms", "GET /api/rooms",
		"snapshots", "GET/POST /api/snapshots",
	)

	if err := http.ListenAndServe(":"+cfg.Server.Port, handler); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
