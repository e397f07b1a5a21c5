package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/smart-inventory/internal/core/domain"
)

const (
	recordsKey = "inventory:records"
	historyKey = "inventory:history"
)

// RedisStore persists the record set and ledger as JSON blobs in Redis.
// Alternative to the file store for deployments where the server host has no
// durable disk.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) LoadRecords(ctx context.Context) (map[string]domain.InventoryRecord, error) {
	data, err := r.client.Get(ctx, recordsKey).Bytes()
	if err == redis.Nil {
		return make(map[string]domain.InventoryRecord), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", recordsKey, err)
	}

	var records map[string]domain.InventoryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", recordsKey, err)
	}
	return records, nil
}

func (r *RedisStore) SaveRecords(ctx context.Context, records map[string]domain.InventoryRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	if err := r.client.Set(ctx, recordsKey, data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", recordsKey, err)
	}
	return nil
}

func (r *RedisStore) LoadHistory(ctx context.Context) ([]domain.HistoryEntry, error) {
	data, err := r.client.Get(ctx, historyKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", historyKey, err)
	}

	var history []domain.HistoryEntry
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("decode %s: %w", historyKey, err)
	}
	return history, nil
}

func (r *RedisStore) SaveHistory(ctx context.Context, history []domain.HistoryEntry) error {
	if len(history) > domain.HistoryCap {
		history = history[:domain.HistoryCap]
	}
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := r.client.Set(ctx, historyKey, data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", historyKey, err)
	}
	return nil
}
