package cli

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Sternrassler/idp-reports/pkg/client"
	"github.com/Sternrassler/idp-reports/pkg/config"
	"github.com/Sternrassler/idp-reports/pkg/directory"
	"github.com/Sternrassler/idp-reports/pkg/logging"
	"github.com/Sternrassler/idp-reports/pkg/pagination"
	"github.com/Sternrassler/idp-reports/pkg/ratelimit"
	"github.com/Sternrassler/idp-reports/pkg/report"
	"github.com/redis/go-redis/v9"
)

// Connect builds the directory service from cfg. With REDIS_URL set the
// rate budget is shared through Redis with other jobs against the same
// organization.
func Connect(ctx context.Context, cfg *config.Config, policy pagination.ErrorPolicy) (report.Directory, func() error, error) {
	logger := logging.NewLogger("idp-report")

	store, closeStore, err := newBudgetStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	clientCfg := client.DefaultConfig(cfg.OrgURL, cfg.APIKey)
	clientCfg.Tracker = ratelimit.NewTracker(store, logger)

	c, err := client.New(clientCfg)
	if err != nil {
		closeQuietly(closeStore)
		return nil, nil, fmt.Errorf("create client: %w", err)
	}

	svc := directory.NewService(c, directory.Options{
		PageLimit: cfg.Reports.PageLimit,
		OnError:   policy,
	})
	return svc, closeStore, nil
}

func newBudgetStore(ctx context.Context, cfg *config.Config) (ratelimit.Store, func() error, error) {
	if cfg.RedisURL == "" {
		return ratelimit.NewMemoryStore(), nil, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", config.EnvRedisURL, err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}

	scope := cfg.OrgURL
	if u, err := url.Parse(cfg.OrgURL); err == nil && u.Host != "" {
		scope = u.Host
	}
	return ratelimit.NewRedisStore(rdb, scope), rdb.Close, nil
}
