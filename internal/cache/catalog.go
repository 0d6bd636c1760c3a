package cache

import (
	"context"
	"time"

	"carteira/internal/core"
	"carteira/internal/store"
)

// Catalog caches category reads of an underlying store.CategoryCatalog.
// Any write through Catalog purges the cached lists.
type Catalog struct {
	store.CategoryCatalog
	lists *LRUCache[[]core.Category]
	byID  *LRUCache[core.Category]
}

func NewCatalog(next store.CategoryCatalog, size int, ttl time.Duration) *Catalog {
	return &Catalog{
		CategoryCatalog: next,
		lists:           NewLRUCache[[]core.Category](size, ttl),
		byID:            NewLRUCache[core.Category](size, ttl),
	}
}

// Caches returns the underlying caches so a Manager can clean them.
func (c *Catalog) Caches() []Cleaner {
	return []Cleaner{c.lists, c.byID}
}

func (c *Catalog) ListCategories(ctx context.Context, q store.CategoryQuery) ([]core.Category, error) {
	key := q.UserID + "|" + string(q.Type)
	if cats, ok := c.lists.Get(key); ok {
		return append([]core.Category(nil), cats...), nil
	}
	cats, err := c.CategoryCatalog.ListCategories(ctx, q)
	if err != nil {
		return nil, err
	}
	c.lists.Set(key, append([]core.Category(nil), cats...))
	return cats, nil
}

func (c *Catalog) GetCategory(ctx context.Context, id string) (core.Category, error) {
	if cat, ok := c.byID.Get(id); ok {
		return cat, nil
	}
	cat, err := c.CategoryCatalog.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, err
	}
	c.byID.Set(id, cat)
	return cat, nil
}

func (c *Catalog) CreateCategory(ctx context.Context, cat core.Category) (core.Category, error) {
	created, err := c.CategoryCatalog.CreateCategory(ctx, cat)
	if err == nil {
		c.lists.Purge()
	}
	return created, err
}

func (c *Catalog) UpdateCategory(ctx context.Context, userID, id string, patch core.CategoryPatch) (core.Category, error) {
	updated, err := c.CategoryCatalog.UpdateCategory(ctx, userID, id, patch)
	if err == nil {
		c.lists.Purge()
		c.byID.Delete(id)
	}
	return updated, err
}

func (c *Catalog) DeleteCategory(ctx context.Context, userID, id string) error {
	err := c.CategoryCatalog.DeleteCategory(ctx, userID, id)
	if err == nil {
		c.lists.Purge()
		c.byID.Delete(id)
	}
	return err
}
