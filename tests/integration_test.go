package tests

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/smart-inventory/internal/adapter/storage"
	"github.com/rl1809/smart-inventory/internal/core/domain"
	"github.com/rl1809/smart-inventory/internal/core/service"
)

const mirrorTable = "sheet_mirror"

func openMySQL(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/inventory?parseTime=true"
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	return db
}

func openRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return rdb
}

func TestIntegration_MirrorPushAndReconcile(t *testing.T) {
	db := openMySQL(t)
	defer db.Close()
	ctx := context.Background()

	// Aliased headers on purpose: item_id/item_name/qty instead of the
	// canonical identity/name/quantity.
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+mirrorTable+` (
			item_id VARCHAR(64) PRIMARY KEY,
			item_name VARCHAR(255),
			qty INT
		)`)
	if err != nil {
		t.Fatalf("create mirror table: %v", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM `+mirrorTable); err != nil {
		t.Fatalf("clean mirror table: %v", err)
	}

	mirror, err := storage.NewMySQLMirror(ctx, db, mirrorTable)
	if err != nil {
		t.Fatalf("init mirror: %v", err)
	}

	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	syncer := service.NewSyncService(store, mirror, service.SyncConfig{
		PushDebounce: time.Hour, PushInterval: time.Hour,
	})

	// Local edits push out through the queue.
	syncer.UpdateItem(ctx, domain.InventoryRecord{Identity: "soda", Name: "soda", Quantity: 3})
	syncer.UpdateItem(ctx, domain.InventoryRecord{Identity: "chips", Name: "chips", Quantity: 1})
	syncer.ProcessQueue(ctx)

	var qty int
	if err := db.QueryRowContext(ctx, `SELECT qty FROM `+mirrorTable+` WHERE item_id = ?`, "soda").Scan(&qty); err != nil {
		t.Fatalf("read pushed row: %v", err)
	}
	if qty != 3 {
		t.Errorf("expected soda qty 3 in mirror, got %d", qty)
	}

	// Deletes propagate too.
	syncer.DeleteItem(ctx, "chips")
	syncer.ProcessQueue(ctx)
	var count int
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+mirrorTable+` WHERE item_id = ?`, "chips").Scan(&count)
	if count != 0 {
		t.Errorf("expected chips deleted from mirror, found %d row(s)", count)
	}

	// A row edited directly in the mirror wins a full sync.
	if _, err := db.ExecContext(ctx, `INSERT INTO `+mirrorTable+` (item_id, item_name, qty) VALUES (?, ?, ?)`,
		"water", "water", 9); err != nil {
		t.Fatalf("seed remote row: %v", err)
	}
	if _, err := syncer.Reconcile(ctx, true); err != nil {
		t.Fatalf("full reconcile: %v", err)
	}

	records := syncer.Records()
	if len(records) != 2 {
		t.Fatalf("expected {soda, water} locally, got %+v", records)
	}
	if records[1].Identity != "water" || records[1].Quantity != 9 {
		t.Errorf("expected water:9 pulled from mirror, got %+v", records[1])
	}

	db.ExecContext(ctx, `DELETE FROM `+mirrorTable)
}

func TestIntegration_RedisStorePersistence(t *testing.T) {
	rdb := openRedis(t)
	defer rdb.Close()
	ctx := context.Background()

	rdb.Del(ctx, "inventory:records", "inventory:history")
	store := storage.NewRedisStore(rdb)

	records := map[string]domain.InventoryRecord{
		"soda": {Identity: "soda", Name: "soda", Quantity: 2, Source: domain.SourceScan, LastUpdated: time.Now().UTC()},
	}
	if err := store.SaveRecords(ctx, records); err != nil {
		t.Fatalf("save records: %v", err)
	}

	loaded, err := store.LoadRecords(ctx)
	if err != nil {
		t.Fatalf("load records: %v", err)
	}
	if loaded["soda"].Quantity != 2 {
		t.Errorf("expected soda qty 2, got %+v", loaded["soda"])
	}

	history := make([]domain.HistoryEntry, domain.HistoryCap+10)
	for i := range history {
		history[i] = domain.HistoryEntry{ID: int64(i), Action: domain.HistoryDetect, Item: "x"}
	}
	if err := store.SaveHistory(ctx, history); err != nil {
		t.Fatalf("save history: %v", err)
	}
	loadedHistory, err := store.LoadHistory(ctx)
	if err != nil {
		t.Fatalf("load history: %v", err)
	}
	if len(loadedHistory) != domain.HistoryCap {
		t.Errorf("expected ledger capped at %d, got %d", domain.HistoryCap, len(loadedHistory))
	}

	rdb.Del(ctx, "inventory:records", "inventory:history")
}
