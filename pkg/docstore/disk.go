package docstore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/peterbourgon/diskv/v3"
	"go.uber.org/zap"
)

// OpenDisk returns a Store persisted under basePath with diskv. Every
// collection is one directory named by the base64 of its path and every
// document one JSON file in it. Other processes writing the same basePath are
// picked up by subscriptions through filesystem notifications.
func OpenDisk(basePath string, opts ...Option) (Store, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, errors.New("docstore: base path required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("docstore: ensure base path: %w", err)
	}
	o := resolveOptions(opts)
	return newStore(&diskBackend{
		d: diskv.New(diskv.Options{
			BasePath:          basePath,
			TempDir:           filepath.Join(basePath, tempDir),
			AdvancedTransform: keyToPathTransform,
			InverseTransform:  pathToKeyTransform,
			// No read cache: other processes write the same tree.
			CacheSizeMax: 0,
		}),
		basePath: basePath,
		logger:   o.logger.Named("docstore.disk"),
	}, o), nil
}

const (
	tempDir      = ".tmp"
	keySeparator = "."
)

type diskBackend struct {
	d        *diskv.Diskv
	basePath string
	logger   *zap.Logger

	// mu makes a batch erase appear atomic to readers in this process and
	// serializes its rollback.
	mu sync.RWMutex
}

func (b *diskBackend) readAll(ctx context.Context, collection string) (map[string][]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string][]byte)
	dir := filepath.Join(b.basePath, toCollection(collection))
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return out, nil
	}

	prefix := toCollection(collection) + keySeparator
	for key := range b.d.KeysPrefix(prefix, ctx.Done()) {
		data, err := b.d.Read(key)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		out[keyToPathTransform(key).FileName] = data
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *diskBackend) read(_ context.Context, collection, id string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, err := b.d.Read(toKey(collection, id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (b *diskBackend) write(_ context.Context, collection, id string, data []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.d.Write(toKey(collection, id), data)
}

// erase removes keys as one unit within this process. Erases are separate
// file removals, so a crash midway leaves the keys not yet reached on disk.
func (b *diskBackend) erase(_ context.Context, keys []docKey) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Snapshot every document first so a failed erase can be rolled back.
	saved := make(map[string][]byte, len(keys))
	for _, k := range keys {
		key := toKey(k.collection, k.id)
		data, err := b.d.Read(key)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
		saved[key] = data
	}

	erased := make([]string, 0, len(saved))
	for key := range saved {
		if err := b.d.Erase(key); err != nil && !errors.Is(err, fs.ErrNotExist) {
			for _, done := range erased {
				if rerr := b.d.Write(done, saved[done]); rerr != nil {
					b.logger.Error("batch rollback failed", zap.String("key", done), zap.Error(rerr))
				}
			}
			return err
		}
		erased = append(erased, key)
	}
	return nil
}

func (b *diskBackend) close() error { return nil }

func keyToPathTransform(s string) *diskv.PathKey {
	i := strings.LastIndex(s, keySeparator)
	if i < 0 {
		return &diskv.PathKey{FileName: s}
	}
	return &diskv.PathKey{
		Path:     []string{s[:i]},
		FileName: s[i+1:],
	}
}

func pathToKeyTransform(pathKey *diskv.PathKey) string {
	if len(pathKey.Path) == 0 {
		return pathKey.FileName
	}
	return strings.Join(pathKey.Path, "") + keySeparator + pathKey.FileName
}

// toKey makes `collection.id`.
func toKey(collection, id string) string {
	return toCollection(collection) + keySeparator + id
}

func toCollection(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}
