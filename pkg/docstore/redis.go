package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces every key the redis store touches.
const DefaultRedisPrefix = "daynotes:"

// OpenRedis connects to the redis server at url and returns a Store on it.
// The connection is closed with the Store.
func OpenRedis(url, prefix string, opts ...Option) (Store, error) {
	ropts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("docstore: parse redis url: %w", err)
	}
	client := redis.NewClient(ropts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("docstore: connect to redis: %w", err)
	}
	s := newRedis(client, prefix, opts)
	s.b.(*redisBackend).owned = true
	return s, nil
}

// NewRedis returns a Store on an existing client. Each collection is one hash
// of id to JSON; writes publish on a per-collection channel that
// subscriptions listen to, and batches run in MULTI/EXEC.
func NewRedis(client *redis.Client, prefix string, opts ...Option) Store {
	return newRedis(client, prefix, opts)
}

func newRedis(client *redis.Client, prefix string, opts []Option) *store {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return newStore(&redisBackend{rdb: client, prefix: prefix}, resolveOptions(opts))
}

type redisBackend struct {
	rdb    *redis.Client
	prefix string
	owned  bool
}

func (b *redisBackend) docsKey(collection string) string {
	return b.prefix + "docs:" + collection
}

func (b *redisBackend) changesChannel(collection string) string {
	return b.prefix + "changes:" + collection
}

func (b *redisBackend) readAll(ctx context.Context, collection string) (map[string][]byte, error) {
	vals, err := b.rdb.HGetAll(ctx, b.docsKey(collection)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(vals))
	for id, v := range vals {
		out[id] = []byte(v)
	}
	return out, nil
}

func (b *redisBackend) read(ctx context.Context, collection, id string) ([]byte, error) {
	v, err := b.rdb.HGet(ctx, b.docsKey(collection), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return v, err
}

func (b *redisBackend) write(ctx context.Context, collection, id string, data []byte) error {
	_, err := b.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, b.docsKey(collection), id, data)
		p.Publish(ctx, b.changesChannel(collection), id)
		return nil
	})
	return err
}

func (b *redisBackend) erase(ctx context.Context, keys []docKey) error {
	_, err := b.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		touched := make(map[string]struct{})
		for _, k := range keys {
			p.HDel(ctx, b.docsKey(k.collection), k.id)
			touched[k.collection] = struct{}{}
		}
		for collection := range touched {
			p.Publish(ctx, b.changesChannel(collection), "")
		}
		return nil
	})
	return err
}

func (b *redisBackend) watch(ctx context.Context, collection string) (<-chan struct{}, error) {
	ps := b.rdb.Subscribe(ctx, b.changesChannel(collection))
	// Wait for the subscription to be confirmed so no publish between here
	// and the first snapshot is lost.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	out := make(chan struct{}, 1)
	msgs := ps.Channel()
	go func() {
		defer close(out)
		defer ps.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}

func (b *redisBackend) close() error {
	if b.owned {
		return b.rdb.Close()
	}
	return nil
}
