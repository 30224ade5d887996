// Package identity provides the anonymous per-device client identifier used to
// de-duplicate likes. It is a best-effort signal, not authentication.
package identity

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/techagentng/findmenow/localstore"
)

// StorageKey is where the identifier is persisted.
const StorageKey = "fm_client_id"

// Helper produces the client identifier once and reuses it afterwards.
type Helper struct {
	storage  localstore.Storage
	generate func() (string, error)
	now      func() time.Time

	once sync.Once
	id   string
	err  error
}

type Option func(*Helper)

// WithGenerator replaces the secure generator.
func WithGenerator(fn func() (string, error)) Option {
	return func(h *Helper) { h.generate = fn }
}

func WithClock(now func() time.Time) Option {
	return func(h *Helper) { h.now = now }
}

func New(storage localstore.Storage, opts ...Option) *Helper {
	h := &Helper{
		storage:  storage,
		generate: secureID,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func secureID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ID returns the stored identifier, creating and persisting one on first use.
// A failed first attempt is remembered; build a new Helper to retry.
func (h *Helper) ID(ctx context.Context) (string, error) {
	h.once.Do(func() {
		h.id, h.err = h.load(ctx)
	})
	return h.id, h.err
}

func (h *Helper) load(ctx context.Context) (string, error) {
	if id, ok, err := h.storage.Get(ctx, StorageKey); err != nil {
		return "", fmt.Errorf("read client id: %w", err)
	} else if ok && id != "" {
		return id, nil
	}

	id, err := h.generate()
	if err != nil || id == "" {
		id = h.fallbackID()
	}
	if err := h.storage.Set(ctx, StorageKey, id); err != nil {
		return "", fmt.Errorf("persist client id: %w", err)
	}
	return id, nil
}

// fallbackID is a timestamp plus random suffix, for when no secure generator is available.
func (h *Helper) fallbackID() string {
	return fmt.Sprintf("%d_%d", h.now().UnixMilli(), rand.Int63n(1e9))
}
