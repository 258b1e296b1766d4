package store

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

// Cached keeps recently read and written records in memory in front of
// another store.
type Cached struct {
	ResultStore
	cache *lru.Cache[string, *Record]
}

// NewCached wraps next with an LRU cache of the given size.
func NewCached(next ResultStore, size int) (*Cached, error) {
	cache, err := lru.New[string, *Record](size)
	if err != nil {
		return nil, errors.Wrap(err, "create record cache")
	}
	return &Cached{ResultStore: next, cache: cache}, nil
}

func (c *Cached) Save(ctx context.Context, r *Record) error {
	if err := c.ResultStore.Save(ctx, r); err != nil {
		return err
	}
	c.cache.Add(r.ID, r.clone())
	return nil
}

func (c *Cached) Get(ctx context.Context, id string) (*Record, error) {
	if r, ok := c.cache.Get(id); ok {
		return r.clone(), nil
	}
	r, err := c.ResultStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Add(id, r.clone())
	return r, nil
}

// Len reports the number of cached records.
func (c *Cached) Len() int { return c.cache.Len() }
