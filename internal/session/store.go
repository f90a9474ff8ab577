// internal/session/store.go
//
// Session store contract and the Redis implementation.
//
// Context
// -------
// A session is a Redis hash under `session:<id>`:
//
//	subject    user id the session was issued to
//	role       "customer" or "admin"
//	tenant_id  storefront the user logged into (may be empty)
//
// Expiry is Redis' job (EXPIRE set at write time), so Lookup never sees a
// stale record.  Only the identity resolver reads sessions; login flows
// write them through Put.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no session exists for an id.
var ErrNotFound = errors.New("session not found")

// Record is the server-side half of a session.
type Record struct {
	Subject  string
	Role     string
	TenantID string
}

// Store resolves session ids to records.
type Store interface {
	Lookup(ctx context.Context, id string) (Record, error)
}

// hashClient is the subset of *redis.Client the store needs.
type hashClient interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)
}

// RedisStore keeps sessions in Redis hashes.
type RedisStore struct {
	rdb hashClient
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps an existing client (shared with other callers).
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Dial opens a client for addr and checks it with PING.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func key(id string) string { return "session:" + id }

// Lookup returns the record for id or ErrNotFound.
func (s *RedisStore) Lookup(ctx context.Context, id string) (Record, error) {
	m, err := s.rdb.HGetAll(ctx, key(id)).Result()
	if err != nil {
		return Record{}, err
	}
	if len(m) == 0 || m["subject"] == "" {
		return Record{}, ErrNotFound
	}
	return Record{
		Subject:  m["subject"],
		Role:     m["role"],
		TenantID: m["tenant_id"],
	}, nil
}

// Put writes rec under id with the given lifetime.  The hash and its
// expiry go out in one MULTI/EXEC, so a session never lands without a TTL.
func (s *RedisStore) Put(ctx context.Context, id string, rec Record, ttl time.Duration) error {
	k := key(id)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k,
			"subject", rec.Subject,
			"role", rec.Role,
			"tenant_id", rec.TenantID,
		)
		pipe.Expire(ctx, k, ttl)
		return nil
	})
	return err
}

// Delete removes the session.  Missing ids are not an error.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, key(id)).Err()
}
