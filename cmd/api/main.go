package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"rvmdesk/api/internal/app"
	"rvmdesk/api/internal/config"
	"rvmdesk/api/internal/metrics"
	"rvmdesk/api/internal/roles"
	"rvmdesk/api/internal/search"
	"rvmdesk/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	dataStore := store.NewPostgresStore(db)

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliAPIKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pgfts)
	if meiliClient != nil && meiliClient.Healthy() {
		dossiers, decisions, tasks, err := pgfts.LoadAllRecords(ctx)
		if err != nil {
			log.Printf("WARNING: search reindex skipped: %v", err)
		} else {
			searchService.ReindexAll(dossiers, decisions, tasks)
		}
	}

	var roleResolver interface {
		Resolve(ctx context.Context, userID string) ([]string, error)
		Invalidate(ctx context.Context, userID string) error
	}
	if strings.TrimSpace(cfg.RedisURL) != "" {
		cache, err := roles.NewRedisCache(cfg.RedisURL, dataStore, cfg.RoleCacheTTL)
		if err != nil {
			log.Printf("WARNING: redis unavailable, resolving roles per request: %v", err)
			roleResolver = roles.NewDirectResolver(dataStore)
		} else {
			log.Printf("Using Redis role cache (TTL %s)", cfg.RoleCacheTTL)
			defer cache.Close()
			roleResolver = cache
		}
	} else {
		roleResolver = roles.NewDirectResolver(dataStore)
	}

	m := metrics.New()
	service := app.New(cfg, dataStore, roleResolver, searchService, m)

	httpServer := app.NewHTTPServer(service, m, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("RVM Desk API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
