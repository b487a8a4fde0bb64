package kv

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/peterbourgon/diskv/v3"
)

// Dir is the directory under a base path the disk store keeps its files in.
const Dir = "kv"

// Disk is a Store with one file per key under a base path.
type Disk struct {
	d *diskv.Diskv
}

var _ Store = (*Disk)(nil)

// OpenDisk opens a Disk store in basePath/kv.
func OpenDisk(basePath string) (*Disk, error) {
	dir := filepath.Join(basePath, Dir)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("kv: ensure %s: %w", dir, err)
	}
	return &Disk{d: diskv.New(diskv.Options{
		BasePath:     dir,
		TempDir:      filepath.Join(dir, ".tmp"),
		Transform:    func(string) []string { return nil },
		CacheSizeMax: 64 * 1024,
		FilePerm:     0o600,
		PathPerm:     0o700,
	})}, nil
}

func (s *Disk) GetItem(_ context.Context, key string) (string, bool, error) {
	if err := checkKey(key); err != nil {
		return "", false, err
	}
	v, err := s.d.Read(key)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv: read %s: %w", key, err)
	}
	return string(v), true, nil
}

func (s *Disk) SetItem(_ context.Context, key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := s.d.Write(key, []byte(value)); err != nil {
		return fmt.Errorf("kv: write %s: %w", key, err)
	}
	return nil
}

func (s *Disk) RemoveItem(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := s.d.Erase(key); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("kv: erase %s: %w", key, err)
	}
	return nil
}
