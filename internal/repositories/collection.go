package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	apperrors "github.com/hades874/Super-CMS-sub001/internal/errors"
	"github.com/hades874/Super-CMS-sub001/internal/store"
)

// Entity is a stored item identified by a string id.
type Entity[T any] interface {
	GetID() string
	WithID(id string) T
}

// Collection is a named list of entities persisted as one JSON array under
// a fixed store key. Mutations are serialized per collection and notify
// the key's subscribers after the write.
type Collection[T Entity[T]] struct {
	store  *store.Store
	key    string
	logger *slog.Logger
	mu     sync.Mutex
}

func NewCollection[T Entity[T]](s *store.Store, key string, logger *slog.Logger) *Collection[T] {
	return &Collection[T]{
		store:  s,
		key:    key,
		logger: logger,
	}
}

func (c *Collection[T]) Key() string { return c.key }

// All returns every item in stored order. Unreadable data yields an empty list.
func (c *Collection[T]) All(ctx context.Context) []T {
	return store.Read(ctx, c.store, c.key, []T{})
}

func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	for _, item := range c.All(ctx) {
		if item.GetID() == id {
			return item, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%s %s: %w", c.key, id, apperrors.ErrNotFound)
}

// AddMany inserts the items whose id is not present yet and returns them.
// Items without an id get a fresh one; duplicates are dropped silently.
func (c *Collection[T]) AddMany(ctx context.Context, items []T) ([]T, error) {
	var added []T
	err := c.mutate(ctx, func(current []T) ([]T, bool) {
		seen := make(map[string]struct{}, len(current)+len(items))
		for _, item := range current {
			seen[item.GetID()] = struct{}{}
		}

		for _, item := range items {
			if item.GetID() == "" {
				item = item.WithID(uuid.NewString())
			}
			if _, dup := seen[item.GetID()]; dup {
				continue
			}
			seen[item.GetID()] = struct{}{}
			added = append(added, item)
		}
		return append(current, added...), len(added) > 0
	})
	if err != nil {
		return nil, err
	}

	if dropped := len(items) - len(added); dropped > 0 {
		c.logger.Info("Dropped duplicate items", "collection", c.key, "dropped", dropped)
	}
	return added, nil
}

// UpdateOne replaces the entry with the same id. A missing id is a no-op
// reported as false.
func (c *Collection[T]) UpdateOne(ctx context.Context, item T) (bool, error) {
	n, err := c.UpdateMany(ctx, []T{item})
	return n > 0, err
}

// UpdateMany replaces every entry whose id matches one of items and
// returns how many were replaced.
func (c *Collection[T]) UpdateMany(ctx context.Context, items []T) (int, error) {
	byID := make(map[string]T, len(items))
	for _, item := range items {
		byID[item.GetID()] = item
	}

	updated := 0
	err := c.mutate(ctx, func(current []T) ([]T, bool) {
		for i, existing := range current {
			if replacement, ok := byID[existing.GetID()]; ok {
				current[i] = replacement
				updated++
			}
		}
		return current, updated > 0
	})
	return updated, err
}

func (c *Collection[T]) DeleteOne(ctx context.Context, id string) (bool, error) {
	n, err := c.DeleteMany(ctx, []string{id})
	return n > 0, err
}

// DeleteMany filters out the entries with the given ids and returns how
// many were removed.
func (c *Collection[T]) DeleteMany(ctx context.Context, ids []string) (int, error) {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	removed := 0
	err := c.mutate(ctx, func(current []T) ([]T, bool) {
		kept := current[:0]
		for _, item := range current {
			if _, ok := drop[item.GetID()]; ok {
				removed++
				continue
			}
			kept = append(kept, item)
		}
		return kept, removed > 0
	})
	return removed, err
}

// Replace overwrites the whole collection.
func (c *Collection[T]) Replace(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	return c.mutate(ctx, func([]T) ([]T, bool) { return items, true })
}

// Mutate applies fn to the current items and writes the result when fn
// reports a change.
func (c *Collection[T]) Mutate(ctx context.Context, fn func(current []T) ([]T, bool)) error {
	return c.mutate(ctx, fn)
}

func (c *Collection[T]) Subscribe(fn func()) (unsubscribe func()) {
	return c.store.Subscribe(c.key, fn)
}

func (c *Collection[T]) mutate(ctx context.Context, fn func(current []T) ([]T, bool)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, changed := fn(c.All(ctx))
	if !changed {
		return nil
	}
	if err := store.Write(ctx, c.store, c.key, next); err != nil {
		return fmt.Errorf("failed to save %s: %w", c.key, err)
	}
	return nil
}
