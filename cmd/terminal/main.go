package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/gorilla/websocket"

	"github.com/rl1809/smart-inventory/internal/adapter/handler"
	"github.com/rl1809/smart-inventory/internal/adapter/storage"
	"github.com/rl1809/smart-inventory/internal/config"
	"github.com/rl1809/smart-inventory/internal/core/service"
	"github.com/rl1809/smart-inventory/internal/port"
)

const redialDelay = 5 * time.Second

// The terminal is the client side of the system: a local-first record store
// that mirrors the server's inventory into the remote tabular store through
// an asynchronous, retrying sync queue.
func main() {
	configPath := flag.String("config", "", "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.NewFileStore(filepath.Join(cfg.DataDir, "terminal"))
	if err != nil {
		log.Fatalf("open local store: %v", err)
	}

	var mirror port.Mirror
	if cfg.Mirror.DSN != "" {
		db, err := sql.Open("mysql", cfg.Mirror.DSN)
		if err != nil {
			log.Fatalf("open mirror: %v", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Fatalf("ping mirror: %v", err)
		}
		m, err := storage.NewMySQLMirror(ctx, db, cfg.Mirror.Table)
		if err != nil {
			log.Fatalf("init mirror connector: %v", err)
		}
		mirror = m
		log.Printf("remote mirror connected (table %q)", cfg.Mirror.Table)
	} else {
		log.Println("no mirror configured, running local-only")
	}

	syncer := service.NewSyncService(store, mirror, service.SyncConfig{
		PushDebounce: cfg.Sync.PushDebounce.Std(),
		PushInterval: cfg.Sync.PushInterval.Std(),
	})
	if err := syncer.Load(ctx); err != nil {
		log.Fatalf("load local state: %v", err)
	}

	// Initial load: the mirror is ground truth, force full agreement.
	if mirror != nil {
		if _, err := syncer.Reconcile(ctx, true); err != nil {
			log.Printf("full reconcile failed, keeping local view: %v", err)
		} else {
			log.Printf("full reconcile done: %d record(s)", len(syncer.Records()))
		}
	}

	go syncer.Run(ctx)

	go func() {
		for {
			if err := runConnection(ctx, cfg.ServerURL, syncer); err != nil {
				log.Printf("server connection: %v (retrying in %s)", err, redialDelay)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(redialDelay):
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	cancel()

	// Flush whatever is still queued before exiting.
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	syncer.ProcessQueue(flushCtx)
	log.Println("sync queue flushed")
}

// runConnection dials the server, seeds it with the local record set and then
// folds every broadcast back into the local store.
func runConnection(ctx context.Context, url string, syncer *service.SyncService) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("connected to server at %s", url)

	if records := syncer.Records(); len(records) > 0 {
		seed := handler.Message{Type: handler.MsgManualReplace, Records: records}
		if err := conn.WriteJSON(seed); err != nil {
			return err
		}
		log.Printf("seeded server with %d record(s)", len(records))
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg handler.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("malformed server message: %v", err)
			continue
		}

		switch msg.Type {
		case handler.MsgSnapshot, handler.MsgRecords:
			if err := syncer.ApplyBroadcast(ctx, msg.Records); err != nil {
				log.Printf("apply broadcast: %v", err)
			}
		case handler.MsgDetectorStatus:
			if msg.DetectorConnected != nil {
				log.Printf("detector online: %v", *msg.DetectorConnected)
			}
		}
	}
}
