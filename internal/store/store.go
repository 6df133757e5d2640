package store

import (
	"context"
	"errors"
)

// Keys used by the ledger.
const (
	KeyTasks   = "tasks"
	KeyHistory = "taskHistory"
)

var ErrNotFound = errors.New("key not found")

// Store is the key-value contract the ledger persists through.
// Get returns ErrNotFound when the key has never been written.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// BatchStore is implemented by backends that can write several keys
// atomically.
type BatchStore interface {
	Store
	SetMany(ctx context.Context, values map[string]string) error
}
