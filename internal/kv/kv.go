package kv

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("kv: key not found")

// Store is the keyed ephemeral state used across the chat core: widget
// sessions, typing flags, throttle windows, assignment cursors and message
// sequence counters. The production implementation is Redis; tests use the
// in-memory store with a fake clock.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// Incr atomically increments the integer at key (missing = 0) and
	// returns the new value.
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}
