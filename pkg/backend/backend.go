// Package backend opens the document store and device store a config asks for.
package backend

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tableflip.dev/daynotes/pkg/config"
	"tableflip.dev/daynotes/pkg/docstore"
	"tableflip.dev/daynotes/pkg/kv"
	"tableflip.dev/daynotes/pkg/timeutil"
)

// Directories under the configured path.
const (
	DocsDir = "docs"
)

// KeyAuthSecret holds the generated token secret when none is configured.
const KeyAuthSecret = "authSecret"

// Backend is an open pair of stores.
type Backend struct {
	Name string
	Docs docstore.Store
	KV   kv.Store

	closers []func() error
}

// Option configures Open.
type Option func(*options)

type options struct {
	clock  timeutil.Clock
	logger *zap.Logger
	client *redis.Client
}

// WithClock sets the clock server timestamps come from.
func WithClock(c timeutil.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the logger handed to the stores.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRedisClient uses client for the redis backend instead of dialing
// cfg.Redis.URL. The client is not closed with the Backend.
func WithRedisClient(client *redis.Client) Option {
	return func(o *options) { o.client = client }
}

// Open opens the backend named by cfg.Backend.
func Open(cfg *config.File, opts ...Option) (*Backend, error) {
	o := options{clock: timeutil.System, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	dopts := []docstore.Option{docstore.WithClock(o.clock), docstore.WithLogger(o.logger)}

	b := &Backend{Name: cfg.Backend}
	switch cfg.Backend {
	case config.BackendMemory:
		b.Docs = docstore.NewMemory(dopts...)
		b.KV = kv.NewMemory()

	case config.BackendDisk:
		docs, err := docstore.OpenDisk(filepath.Join(cfg.BasePath(), DocsDir), dopts...)
		if err != nil {
			return nil, err
		}
		local, err := kv.OpenDisk(cfg.BasePath())
		if err != nil {
			_ = docs.Close()
			return nil, err
		}
		b.Docs, b.KV = docs, local

	case config.BackendRedis:
		client := o.client
		if client == nil {
			ropts, err := redis.ParseURL(cfg.Redis.URL)
			if err != nil {
				return nil, fmt.Errorf("backend: parse redis url: %w", err)
			}
			client = redis.NewClient(ropts)
			b.closers = append(b.closers, client.Close)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Ping(ctx).Err(); err != nil {
				_ = client.Close()
				return nil, fmt.Errorf("backend: connect to redis: %w", err)
			}
		}
		b.Docs = docstore.NewRedis(client, cfg.Redis.Prefix, dopts...)
		b.KV = kv.NewRedis(client, cfg.Redis.Prefix, cfg.Device)

	default:
		return nil, fmt.Errorf("backend: unknown backend %q", cfg.Backend)
	}

	o.logger.Debug("backend opened", zap.String("backend", cfg.Backend), zap.String("path", cfg.BasePath()))
	return b, nil
}

// Close closes the document store and then anything the backend dialed.
func (b *Backend) Close() error {
	errs := []error{b.Docs.Close()}
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	return errors.Join(errs...)
}

// Secret returns configured, or else the device's generated token secret,
// creating it on first use.
func (b *Backend) Secret(ctx context.Context, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	secret, ok, err := b.KV.GetItem(ctx, KeyAuthSecret)
	if err != nil {
		return "", fmt.Errorf("backend: read token secret: %w", err)
	}
	if ok && secret != "" {
		return secret, nil
	}
	secret = uuid.NewString() + uuid.NewString()
	if err := b.KV.SetItem(ctx, KeyAuthSecret, secret); err != nil {
		return "", fmt.Errorf("backend: store token secret: %w", err)
	}
	return secret, nil
}
