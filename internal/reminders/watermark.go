package reminders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultWatermarkTTL bounds how long a fired band is remembered
const DefaultWatermarkTTL = 48 * time.Hour

// Watermark remembers which (task, band, target time) combinations already fired.
// Claim returns true only for the first caller.
type Watermark interface {
	Claim(ctx context.Context, taskID uuid.UUID, band Band, target time.Time) (bool, error)
}

func watermarkKey(taskID uuid.UUID, band Band, target time.Time) string {
	// the target is part of the key so moving a due date re-arms the bands
	return fmt.Sprintf("reminder:%s:%s:%d", taskID, band, target.Unix())
}

// RedisWatermark shares fired bands across processes with SET NX
type RedisWatermark struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisWatermark creates a Redis-backed watermark
func NewRedisWatermark(rdb *redis.Client, ttl time.Duration) *RedisWatermark {
	if ttl <= 0 {
		ttl = DefaultWatermarkTTL
	}
	return &RedisWatermark{rdb: rdb, ttl: ttl}
}

// Claim records the band; an unreachable Redis lets the reminder through
func (w *RedisWatermark) Claim(ctx context.Context, taskID uuid.UUID, band Band, target time.Time) (bool, error) {
	ok, err := w.rdb.SetNX(ctx, watermarkKey(taskID, band, target), 1, w.ttl).Result()
	if err != nil {
		return true, fmt.Errorf("failed to claim reminder watermark: %w", err)
	}
	return ok, nil
}

// MemoryWatermark keeps fired bands in process memory
type MemoryWatermark struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryWatermark creates an in-memory watermark
func NewMemoryWatermark(ttl time.Duration) *MemoryWatermark {
	if ttl <= 0 {
		ttl = DefaultWatermarkTTL
	}
	return &MemoryWatermark{entries: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

// Claim records the band if it has not fired within the TTL
func (w *MemoryWatermark) Claim(_ context.Context, taskID uuid.UUID, band Band, target time.Time) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	for k, exp := range w.entries {
		if now.After(exp) {
			delete(w.entries, k)
		}
	}

	key := watermarkKey(taskID, band, target)
	if _, ok := w.entries[key]; ok {
		return false, nil
	}
	w.entries[key] = now.Add(w.ttl)
	return true, nil
}

// Len returns the number of remembered bands
func (w *MemoryWatermark) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}
