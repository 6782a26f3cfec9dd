// Package session provides the session scoped key-value storage used for pending action tokens.
package session

import (
	"context"
	"errors"
)

// ErrNotFound indicates a key does not exist in the store.
var ErrNotFound = errors.New("session key not found")

// Store is a keyed store. GetDel must read and delete atomically so that a
// value can be consumed at most once.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	GetDel(ctx context.Context, key string) ([]byte, error)
}

// IsNotFound checks if an error indicates a missing key.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Scope returns a view of store restricted to one browser session. Keys of
// different sessions never collide.
func Scope(store Store, sessionID string) Store {
	return &scoped{store: store, prefix: "session:" + sessionID + ":"}
}

type scoped struct {
	store  Store
	prefix string
}

func (s *scoped) Get(ctx context.Context, key string) ([]byte, error) {
	return s.store.Get(ctx, s.prefix+key)
}

func (s *scoped) Set(ctx context.Context, key string, value []byte) error {
	return s.store.Set(ctx, s.prefix+key, value)
}

func (s *scoped) Delete(ctx context.Context, key string) error {
	return s.store.Delete(ctx, s.prefix+key)
}

func (s *scoped) GetDel(ctx context.Context, key string) ([]byte, error) {
	return s.store.GetDel(ctx, s.prefix+key)
}
