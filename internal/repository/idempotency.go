package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/models"
)

const idempotencyKeyPrefix = "idempotency:orders:"

// Idempotency record states.
const (
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusFailed     = "FAILED"
)

// IdempotencyRecord is what is stored under an Idempotency-Key. A FAILED record may be
// claimed again so the client can retry.
type IdempotencyRecord struct {
	Key       string              `json:"key"`
	Status    string              `json:"status"`
	Result    *models.OrderResult `json:"result,omitempty"`
	Note      string              `json:"note,omitempty"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// RedisIdempotencyStore implements IdempotencyStore with SETNX.
type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.LoggerV2
}

func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration, logger *logging.LoggerV2) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *RedisIdempotencyStore) Begin(ctx context.Context, key string) (*IdempotencyRecord, bool, error) {
	rec := &IdempotencyRecord{Key: key, Status: StatusInProgress, UpdatedAt: time.Now()}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, false, err
	}

	created, err := s.client.SetNX(ctx, idempotencyKeyPrefix+key, data, s.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if created {
		return rec, true, nil
	}

	existing, err := s.get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if existing == nil || existing.Status == StatusFailed {
		// Previous attempt failed or the key expired in between: claim it again.
		if err := s.client.Set(ctx, idempotencyKeyPrefix+key, data, s.ttl).Err(); err != nil {
			return nil, false, err
		}
		return rec, true, nil
	}

	s.logger.Debug("Idempotency key already claimed", logging.Fields{
		"key":    key,
		"status": existing.Status,
	})
	return existing, false, nil
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, key string, result *models.OrderResult) error {
	return s.put(ctx, &IdempotencyRecord{Key: key, Status: StatusDone, Result: result, UpdatedAt: time.Now()})
}

func (s *RedisIdempotencyStore) Fail(ctx context.Context, key, note string) error {
	return s.put(ctx, &IdempotencyRecord{Key: key, Status: StatusFailed, Note: note, UpdatedAt: time.Now()})
}

func (s *RedisIdempotencyStore) put(ctx context.Context, rec *IdempotencyRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, idempotencyKeyPrefix+rec.Key, data, s.ttl).Err(); err != nil {
		s.logger.Error("Idempotency write failed", logging.Fields{
			"key":    rec.Key,
			"status": rec.Status,
			"error":  err.Error(),
		})
		return err
	}
	return nil
}

func (s *RedisIdempotencyStore) get(ctx context.Context, key string) (*IdempotencyRecord, error) {
	data, err := s.client.Get(ctx, idempotencyKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec IdempotencyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
