package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/smart-inventory/internal/adapter/handler"
	"github.com/rl1809/smart-inventory/internal/adapter/storage"
	"github.com/rl1809/smart-inventory/internal/config"
	"github.com/rl1809/smart-inventory/internal/core/service"
	"github.com/rl1809/smart-inventory/internal/port"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer cleanup()
	log.Printf("storage backend: %s", cfg.Storage)

	hub := handler.NewHub()
	inventory := service.NewInventoryService(store, hub)
	hub.Bind(inventory)

	if err := inventory.Load(ctx); err != nil {
		log.Fatalf("load inventory state: %v", err)
	}

	go hub.Run()

	sweeper := service.NewSweeper(inventory, cfg.SweepInterval.Std())
	go sweeper.Run(ctx)
	log.Printf("staleness sweeper running every %s", cfg.SweepInterval.Std())

	mux := http.NewServeMux()
	mux.HandleFunc("/health", hub.HealthCheck)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		handler.ServeWS(hub, w, r)
	})

	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: mux,
	}

	go func() {
		log.Printf("server listening on %s", cfg.Listen)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Println("HTTP server stopped")

	cancel()
	hub.Stop()
	log.Println("hub stopped")
}

func openStore(ctx context.Context, cfg config.Config) (port.RecordStore, func(), error) {
	switch cfg.Storage {
	case config.StorageRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, nil, err
		}
		log.Printf("connected to redis at %s", cfg.RedisAddr)
		return storage.NewRedisStore(rdb), func() { rdb.Close() }, nil
	default:
		fs, err := storage.NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	}
}
