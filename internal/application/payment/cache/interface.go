// Package cache defines the short-lived state store port used by payment
// sessions.
package cache

import (
	"context"
	"time"
)

// StateStore keeps opaque payloads under a key with a TTL. ConsumeState is a
// one-shot read: it deletes the key atomically on retrieval.
type StateStore interface {
	StoreState(ctx context.Context, key, value string, ttl time.Duration) error
	// GetState returns "" with no error when the key is absent or expired.
	GetState(ctx context.Context, key string) (string, error)
	// ConsumeState reads and deletes in one step. Absent keys return "".
	ConsumeState(ctx context.Context, key string) (string, error)
	DeleteState(ctx context.Context, key string) error
}
