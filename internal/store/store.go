package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	apperrors "github.com/hades874/Super-CMS-sub001/internal/errors"
)

// Backend is the raw key/value storage behind a Store. Get returns
// apperrors.ErrNotFound for a key that was never written.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// ChangeHandler receives the key that changed and the id of the Store that
// wrote it.
type ChangeHandler func(key, origin string)

// Broadcaster is implemented by backends that can be shared by several
// Store instances and tell each of them about writes made by the others.
type Broadcaster interface {
	Broadcast(ctx context.Context, key, origin string) error
	// Watch delivers changes to fn until ctx is cancelled.
	Watch(ctx context.Context, fn ChangeHandler) error
}

// Store is a keyed container with change notification. Every write
// notifies the local subscribers of that key synchronously, and is
// broadcast to other stores sharing the backend when it supports that.
// Concurrent writers to the same key are last-writer-wins.
type Store struct {
	backend Backend
	id      string
	logger  *slog.Logger

	mu      sync.RWMutex
	subs    map[string]map[uint64]func()
	nextSub uint64

	cancel context.CancelFunc
}

// New creates a store over backend. When the backend is a Broadcaster the
// store starts watching it for writes made elsewhere; call Close to stop.
func New(backend Backend, logger *slog.Logger) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		backend: backend,
		id:      uuid.NewString(),
		logger:  logger,
		subs:    make(map[string]map[uint64]func()),
		cancel:  cancel,
	}

	if b, ok := backend.(Broadcaster); ok {
		if err := b.Watch(ctx, s.onRemoteChange); err != nil {
			logger.Warn("Failed to watch store backend, remote changes will not be observed",
				"store_id", s.id,
				"error", err)
		}
	}
	return s
}

// ID identifies this store as the origin of its broadcasts.
func (s *Store) ID() string { return s.id }

func (s *Store) Close() {
	s.cancel()
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	return s.backend.Get(ctx, key)
}

// Set writes value under key. A backend failure is logged and returned
// wrapped in ErrStorageUnavailable; subscribers are not notified then.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.backend.Set(ctx, key, value); err != nil {
		s.logger.Warn("Failed to write store key", "key", key, "error", err)
		return fmt.Errorf("write %q: %w: %w", key, apperrors.ErrStorageUnavailable, err)
	}
	s.changed(ctx, key)
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to delete store key", "key", key, "error", err)
		return fmt.Errorf("delete %q: %w: %w", key, apperrors.ErrStorageUnavailable, err)
	}
	s.changed(ctx, key)
	return nil
}

// Subscribe registers fn to run after every change of key. The returned
// function removes the subscription.
func (s *Store) Subscribe(key string, fn func()) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSub++
	id := s.nextSub
	if s.subs[key] == nil {
		s.subs[key] = make(map[uint64]func())
	}
	s.subs[key][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs[key], id)
			if len(s.subs[key]) == 0 {
				delete(s.subs, key)
			}
		})
	}
}

func (s *Store) changed(ctx context.Context, key string) {
	s.notify(key)

	if b, ok := s.backend.(Broadcaster); ok {
		if err := b.Broadcast(ctx, key, s.id); err != nil {
			s.logger.Warn("Failed to broadcast store change", "key", key, "error", err)
		}
	}
}

func (s *Store) onRemoteChange(key, origin string) {
	if origin == s.id {
		return
	}
	s.notify(key)
}

// notify runs the subscribers outside the lock so they may read or
// subscribe again.
func (s *Store) notify(key string) {
	s.mu.RLock()
	fns := make([]func(), 0, len(s.subs[key]))
	for _, fn := range s.subs[key] {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

// Read decodes the JSON value stored under key. A missing key yields
// fallback silently; an unreadable or undecodable value yields fallback
// and a warning.
func Read[T any](ctx context.Context, s *Store, key string, fallback T) T {
	raw, err := s.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Warn("Failed to read store key, using fallback", "key", key, "error", err)
		}
		return fallback
	}

	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		s.logger.Warn("Failed to parse stored value, using fallback", "key", key, "error", err)
		return fallback
	}
	return value
}

// Write encodes value as JSON and stores it under key.
func Write[T any](ctx context.Context, s *Store, key string, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("Failed to encode store value", "key", key, "error", err)
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}

// WithBroadcaster pairs a storage-only backend with a separate change
// channel, e.g. a database table with Redis pub/sub.
func WithBroadcaster(backend Backend, b Broadcaster) Backend {
	return &broadcastingBackend{Backend: backend, Broadcaster: b}
}

type broadcastingBackend struct {
	Backend
	Broadcaster
}
