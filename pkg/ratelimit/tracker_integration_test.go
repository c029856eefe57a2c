//go:build integration

package ratelimit

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestTracker_Integration_ObserveAndLoad(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	store := NewRedisStore(redisClient, "integration.okta.com")
	tracker := NewTracker(store, logger)
	ctx := context.Background()

	reset := time.Now().Add(30 * time.Second).Unix()
	headers := http.Header{}
	headers.Set(HeaderRemaining, "42")
	headers.Set(HeaderReset, strconv.FormatInt(reset, 10))

	if _, err := tracker.Observe(ctx, headers); err != nil {
		t.Fatalf("Observe() error = %v", err)
	}

	state, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if state == nil || state.Remaining != 42 {
		t.Fatalf("Load() = %+v, want remaining 42", state)
	}

	ttl, err := redisClient.PTTL(ctx, store.Key()).Result()
	if err != nil {
		t.Fatalf("PTTL error = %v", err)
	}
	if ttl <= 0 || ttl > 32*time.Second {
		t.Errorf("TTL = %v, want within the rate limit window", ttl)
	}

	// Healthy budget: Wait returns at once.
	start := time.Now()
	if err := tracker.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Wait() blocked on a healthy budget")
	}
}

func TestTracker_Integration_CancelledWait(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	tracker := NewTracker(NewRedisStore(redisClient, "integration.okta.com"), logger)

	headers := http.Header{}
	headers.Set(HeaderRemaining, "0")
	headers.Set(HeaderReset, strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10))

	if _, err := tracker.Observe(context.Background(), headers); err != nil {
		t.Fatalf("Observe() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := tracker.Wait(ctx); err == nil {
		t.Fatal("expected Wait() to fail when the context times out")
	}
}
