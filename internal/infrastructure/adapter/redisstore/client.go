// Package redisstore shares payment submissions, sender locks and revoked
// sessions between API instances through redis.
package redisstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
)

const defaultPrefix = "mwallet"

// Config holds the redis connection settings
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// Connect opens a client and checks the server answers
func Connect(ctx context.Context, config Config, logger coreport.Logger) (*redis.Client, error) {
	if strings.TrimSpace(config.Addr) == "" {
		return nil, fmt.Errorf("redis address is empty")
	}

	var options *redis.Options
	if strings.HasPrefix(config.Addr, "redis://") || strings.HasPrefix(config.Addr, "rediss://") {
		parsed, err := redis.ParseURL(config.Addr)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		options = parsed
	} else {
		options = &redis.Options{
			Addr:     config.Addr,
			Password: config.Password,
			DB:       config.DB,
		}
	}

	client := redis.NewClient(options)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logger.Info("Redis connected", map[string]any{
		"addr": options.Addr,
		"db":   options.DB,
	})
	return client, nil
}

// keys builds namespaced keys
type keys struct {
	prefix string
}

func newKeys(prefix string) keys {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = defaultPrefix
	}
	return keys{prefix: prefix}
}

func (k keys) submission(id string) string { return k.prefix + ":submission:" + id }
func (k keys) senderLock(id string) string { return k.prefix + ":lock:" + id }
func (k keys) revoked(id string) string    { return k.prefix + ":revoked:" + id }
