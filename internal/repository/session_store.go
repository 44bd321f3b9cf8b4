package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/proctor"
)

// SessionStore keeps one in-progress session per device in Redis.
type SessionStore struct {
	rdb   *redis.Client
	grace time.Duration
	now   func() time.Time
}

// NewSessionStore creates a SessionStore. Slots expire grace after the
// session's end time so an abandoned tab does not leak keys.
func NewSessionStore(rdb *redis.Client, grace time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, grace: grace, now: time.Now}
}

// Slot returns the session repository of deviceID.
func (s *SessionStore) Slot(deviceID string) proctor.SessionRepository {
	return &deviceSlot{store: s, key: config.CacheKey.DeviceSessionKey(deviceID)}
}

// Occupied reports whether deviceID holds a persisted session.
func (s *SessionStore) Occupied(ctx context.Context, deviceID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, config.CacheKey.DeviceSessionKey(deviceID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type deviceSlot struct {
	store *SessionStore
	key   string
}

func (d *deviceSlot) Save(ctx context.Context, snap *proctor.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ttl := proctor.Remaining(d.store.now(), snap.EndTime) + d.store.grace
	if ttl < time.Second {
		ttl = time.Second
	}
	return d.store.rdb.Set(ctx, d.key, data, ttl).Err()
}

func (d *deviceSlot) Load(ctx context.Context) (*proctor.Snapshot, error) {
	data, err := d.store.rdb.Get(ctx, d.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap proctor.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		// A corrupt slot cannot be resumed; drop it like an empty one.
		_ = d.store.rdb.Del(ctx, d.key).Err()
		return nil, nil
	}
	return &snap, nil
}

func (d *deviceSlot) Clear(ctx context.Context) error {
	return d.store.rdb.Del(ctx, d.key).Err()
}
