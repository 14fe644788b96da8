// Package ephemeral defines the short-lived key/value store used for buffering,
// grouping and scheduling locks. Every key carries a TTL.
package ephemeral

import (
	"context"
	"errors"
	"time"
)

var ErrWrongType = errors.New("ephemeral: operation against a key holding the wrong kind of value")

type Entry struct {
	Key   string
	Value []byte
}

type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX writes value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	ScanPrefix(ctx context.Context, prefix string) ([]Entry, error)

	// Append pushes value onto the list at key and resets the list TTL in one atomic step.
	Append(ctx context.Context, key string, value string, ttl time.Duration) (int64, error)
	// Drain returns the list at key and removes it in one atomic step.
	Drain(ctx context.Context, key string) ([]string, error)

	Ping(ctx context.Context) error
	Close() error
}
