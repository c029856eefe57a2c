package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps the most recently observed budget.
// Load returns nil, nil when nothing is known.
type Store interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, state State) error
}

// MemoryStore holds the budget for the lifetime of one process.
type MemoryStore struct {
	mu    sync.Mutex
	state *State
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the stored state.
func (m *MemoryStore) Load(_ context.Context) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == nil {
		return nil, nil
	}
	s := *m.state
	return &s, nil
}

// Save replaces the stored state.
func (m *MemoryStore) Save(_ context.Context, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = &state
	return nil
}

// Redis hash fields for the shared budget.
const (
	fieldLimit      = "limit"
	fieldRemaining  = "remaining"
	fieldReset      = "reset"
	fieldLastUpdate = "last_update"
)

// RedisStore shares the budget between report jobs running against the same
// organization. The key expires once the window has reset, so no state
// survives past the window it describes.
type RedisStore struct {
	redis *redis.Client
	key   string
}

// NewRedisStore creates a store under "idp:rate_limit:<scope>".
// scope is usually the organization host.
func NewRedisStore(redisClient *redis.Client, scope string) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis: redisClient,
		key:   "idp:rate_limit:" + scope,
	}
}

// Key returns the Redis key holding the budget.
func (r *RedisStore) Key() string {
	return r.key
}

// Load reads the shared budget.
func (r *RedisStore) Load(ctx context.Context) (*State, error) {
	fields, err := r.redis.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	remaining, err := strconv.Atoi(fields[fieldRemaining])
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", fieldRemaining, err)
	}
	reset, err := strconv.ParseInt(fields[fieldReset], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", fieldReset, err)
	}
	limit, _ := strconv.Atoi(fields[fieldLimit])

	var lastUpdate time.Time
	if raw := fields[fieldLastUpdate]; raw != "" {
		if err := lastUpdate.UnmarshalText([]byte(raw)); err != nil {
			return nil, fmt.Errorf("parse %s: %w", fieldLastUpdate, err)
		}
	}

	return &State{
		Limit:      limit,
		Remaining:  remaining,
		ResetAt:    time.Unix(reset, 0),
		LastUpdate: lastUpdate,
	}, nil
}

// Save writes the budget and sets its expiry to the resume time.
// A state whose window already ended deletes the key instead.
func (r *RedisStore) Save(ctx context.Context, state State) error {
	ttl := state.ResumeAt().Sub(state.LastUpdate)
	if ttl <= 0 {
		if err := r.redis.Del(ctx, r.key).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
		return nil
	}

	lastUpdate, err := state.LastUpdate.MarshalText()
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	pipe := r.redis.TxPipeline()
	pipe.HSet(ctx, r.key,
		fieldLimit, state.Limit,
		fieldRemaining, state.Remaining,
		fieldReset, state.ResetAt.Unix(),
		fieldLastUpdate, string(lastUpdate),
	)
	pipe.PExpire(ctx, r.key, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	return nil
}
