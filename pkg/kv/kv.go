// Package kv is the device-local string store the session cache and the
// rollover checkpoint live in.
package kv

import (
	"context"
	"errors"
	"strings"
)

// Keys used by this module.
const (
	KeyUserData       = "userData"
	KeyLastDailyReset = "lastDailyReset"
)

// ErrInvalidKey is returned for keys a backend cannot store.
var ErrInvalidKey = errors.New("kv: invalid key")

// Store is a get/set/remove map of strings. GetItem reports a missing key with
// a false second result, not an error. Removing a missing key is not an error.
type Store interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" || strings.ContainsAny(key, "/\\") {
		return ErrInvalidKey
	}
	return nil
}
