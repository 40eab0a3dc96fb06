package main

import (
	"context"
	"fmt"

	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/auth"
	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/api/handler"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/database"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/memstore"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/redisstore"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/restclient"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/retry"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/config"
)

// backend bundles the stores the use cases run on
type backend struct {
	uow         persistence.UnitOfWork
	senderLock  persistence.SenderLock
	submissions persistence.SubmissionStore
	revocations auth.RevocationStore
	checks      map[string]handler.HealthCheck
	closers     []func() error
}

func (b *backend) close(logger coreport.Logger) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			logger.Warn("Failed to close backend resource", map[string]any{"error": err.Error()})
		}
	}
}

// openBackend connects the configured ledger store and, when enabled, redis
func openBackend(ctx context.Context, cfg *config.Config, tp coreport.TimeProvider, logger coreport.Logger) (*backend, error) {
	b := &backend{checks: make(map[string]handler.HealthCheck)}

	if err := b.openStore(ctx, cfg, tp, logger); err != nil {
		b.close(logger)
		return nil, err
	}

	if cfg.Redis.Enabled {
		client, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		}, logger)
		if err != nil {
			b.close(logger)
			return nil, err
		}
		b.closers = append(b.closers, client.Close)
		b.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }

		b.submissions = redisstore.NewSubmissionStore(client, cfg.Redis.KeyPrefix, tp, logger)
		b.senderLock = redisstore.NewSenderLock(client, cfg.Redis.KeyPrefix, logger)
		b.revocations = redisstore.NewRevocationStore(client, cfg.Redis.KeyPrefix, tp)
		return b, nil
	}

	b.submissions = memstore.NewSubmissionStore(tp)
	b.revocations = memstore.NewRevocationStore(tp)
	if b.senderLock == nil {
		b.senderLock = memstore.NewSenderLock(tp)
	}
	return b, nil
}

func (b *backend) openStore(ctx context.Context, cfg *config.Config, tp coreport.TimeProvider, logger coreport.Logger) error {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		store := memstore.NewStore(entity.DefaultBanks(), tp, logger)
		b.uow = memstore.NewUnitOfWork(store)
		b.checks["store"] = func(context.Context) error { return nil }

	case config.BackendREST:
		client, err := restclient.NewClient(restclient.Config{
			BaseURL: cfg.Store.BaseURL,
			Timeout: cfg.Store.Timeout,
			Retry: retry.Config{
				MaxAttempts:   cfg.Store.RetryAttempts,
				RetryInterval: cfg.Store.RetryInterval,
				MaxInterval:   8 * cfg.Store.RetryInterval,
				JitterFactor:  0.2,
			},
		}, logger)
		if err != nil {
			return err
		}
		store := restclient.NewStore(client, tp, logger)
		if err := store.Ping(ctx); err != nil {
			logger.Warn("Remote store not reachable at startup", map[string]any{
				"base_url": cfg.Store.BaseURL,
				"error":    err.Error(),
			})
		} else if cfg.Store.SeedBanks {
			if err := store.Directory().EnsureBanks(ctx, entity.DefaultBanks()); err != nil {
				logger.Warn("Failed to seed banks in remote store", map[string]any{"error": err.Error()})
			}
		}
		b.uow = restclient.NewUnitOfWork(store)
		b.checks["store"] = store.Ping

	case config.BackendPostgres:
		manager := database.NewManager(database.CreateConfigFromViperConfig(cfg), logger, tp)
		if _, err := manager.Connect(ctx); err != nil {
			return err
		}
		b.closers = append(b.closers, manager.Close)

		if err := manager.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		b.uow = manager.CreateUnitOfWork()
		if cfg.Store.SeedBanks {
			if err := b.uow.GetDirectoryRepository(ctx).EnsureBanks(ctx, entity.DefaultBanks()); err != nil {
				return fmt.Errorf("failed to seed banks: %w", err)
			}
		}
		b.senderLock = manager.CreateSenderLock()
		b.checks["store"] = manager.Ping
		b.checks["db_pool"] = manager.CheckPool

	default:
		return fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
	return nil
}
