package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Entity is a record that can be written back to the server as a P.
type Entity[P any] interface {
	RecordID() uuid.UUID
	IsPersisted() bool
	Payload() P
}

// Store persists one entity type.
type Store[T any, P any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, payload P) (*T, error)
	Update(ctx context.Context, id uuid.UUID, payload P) (*T, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ErrNotPersisted is returned when deleting a record that was never saved.
var ErrNotPersisted = errors.New("record has not been saved")

// ListState is the load state of a Collection.
type ListState struct {
	Loading bool
	Loaded  bool
	Err     error
}

// Collection is the in-memory list of one entity type. The server is its
// only source of truth: entries change only to records the server returned,
// either from a write or from Refresh. It is safe for concurrent use; the
// last write to complete wins.
type Collection[T Entity[P], P any] struct {
	name  string
	store Store[T, P]
	log   *zap.Logger

	mu    sync.Mutex
	items []T
	state ListState
}

// NewCollection creates an empty collection backed by store. name is used in logs.
func NewCollection[T Entity[P], P any](name string, store Store[T, P], log *zap.Logger) *Collection[T, P] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Collection[T, P]{name: name, store: store, log: log}
}

// Items returns a copy of the list.
func (c *Collection[T, P]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.items...)
}

// State returns the load state.
func (c *Collection[T, P]) State() ListState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Find returns the record with id.
func (c *Collection[T, P]) Find(id uuid.UUID) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range c.items {
		if item.RecordID() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Refresh replaces the list with the server's. On failure the previous list
// is kept and the error recorded in State.
func (c *Collection[T, P]) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.state.Loading = true
	c.mu.Unlock()

	items, err := c.store.List(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Loading = false
	if err != nil {
		c.state.Err = err
		c.log.Error("list_refresh_failed", zap.String("entity", c.name), zap.Error(err))
		return err
	}
	c.items = append([]T(nil), items...)
	c.state.Err = nil
	c.state.Loaded = true
	return nil
}

// Save writes record: a persisted record is updated and replaced by id, a
// new one is created and appended. The server's copy is returned. On
// failure the list is untouched.
func (c *Collection[T, P]) Save(ctx context.Context, record T) (T, error) {
	var (
		saved *T
		err   error
	)
	if record.IsPersisted() {
		saved, err = c.store.Update(ctx, record.RecordID(), record.Payload())
	} else {
		saved, err = c.store.Create(ctx, record.Payload())
	}
	if err == nil && saved == nil {
		err = fmt.Errorf("server returned no %s", c.name)
	}
	if err != nil {
		c.log.Error("save_failed",
			zap.String("entity", c.name),
			zap.String("id", record.RecordID().String()),
			zap.Error(err),
		)
		var zero T
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if record.IsPersisted() {
		c.replaceLocked(*saved)
	} else {
		c.items = append(c.items, *saved)
	}
	return *saved, nil
}

// replaceLocked swaps in saved for the entry with its id, appending it if
// the list does not have it yet.
func (c *Collection[T, P]) replaceLocked(saved T) {
	for i, item := range c.items {
		if item.RecordID() == saved.RecordID() {
			c.items[i] = saved
			return
		}
	}
	c.items = append(c.items, saved)
}

// Delete deletes the record with id once confirm returns true, then removes
// exactly that id from the list. It reports whether the record was deleted;
// a declined confirmation is not an error.
func (c *Collection[T, P]) Delete(ctx context.Context, id uuid.UUID, confirm func() bool) (bool, error) {
	if id == uuid.Nil {
		return false, ErrNotPersisted
	}
	if confirm != nil && !confirm() {
		return false, nil
	}
	if err := c.store.Delete(ctx, id); err != nil {
		c.log.Error("delete_failed",
			zap.String("entity", c.name),
			zap.String("id", id.String()),
			zap.Error(err),
		)
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.items[:0:0]
	for _, item := range c.items {
		if item.RecordID() != id {
			kept = append(kept, item)
		}
	}
	c.items = kept
	return true, nil
}
