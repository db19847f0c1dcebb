package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeshare/internal/config"
	"codeshare/internal/model"
	"codeshare/internal/runner"
	"codeshare/internal/store"
	"codeshare/internal/transport/rest"
	"codeshare/internal/transport/ws"
)

func main() {
	log.Println("started")

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	log.Printf("Config:")
	log.Printf("  Session TTL:    %s", cfg.Session.TTL())
	log.Printf("  Sweep interval: %s", cfg.Session.SweepInterval())
	log.Printf("  Debounce:       %s", cfg.Sync.Debounce())

	defaultLanguage := model.Language(cfg.Session.DefaultLanguage)
	if !defaultLanguage.Valid() {
		log.Printf("Warning: unknown default language %q, using %q", defaultLanguage, model.DefaultLanguage)
		defaultLanguage = model.DefaultLanguage
	}

	// Session store and TTL sweeper
	st := store.NewStore(cfg.Session.DefaultCode, defaultLanguage)
	sweeper := store.NewSweeper(st, cfg.Session.TTL(), cfg.Session.SweepInterval())
	sweeper.Start()
	defer sweeper.Stop()

	// WebSocket hub
	hub := ws.NewHub(st)
	log.Println("WebSocket hub started")

	container := &rest.Container{
		Store:    st,
		Hub:      hub,
		Executor: runner.NewLocal(),
	}
	router := rest.NewRouter(container)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on %s", cfg.Addr())
		log.Println("Endpoints:")
		log.Println("  POST /sessions")
		log.Println("  GET  /sessions/stats")
		log.Println("  GET  /sessions/{id}")
		log.Println("  POST /sessions/{id}/execute")
		log.Println("  WS   /ws")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}
	hub.Stop()

	log.Println("Server exited")
}
