package links

import (
	"context"
	"time"

	"payhook/internal/platform/models"

	"github.com/patrickmn/go-cache"
)

type Finder interface {
	FindActiveByHash(ctx context.Context, hash string) (*models.WebhookLink, error)
	IsActive(ctx context.Context, id int64) (bool, error)
}

// CachedFinder is a read-through cache of active links keyed by hash. Misses
// are not cached so a freshly created link is visible immediately. A hit
// re-reads the link's active flag, so deactivation and deletion take effect
// on the next request. Counters on cached copies go stale; they are only ever
// written through the store.
type CachedFinder struct {
	next  Finder
	cache *cache.Cache
}

func NewCachedFinder(next Finder, ttl time.Duration) *CachedFinder {
	return &CachedFinder{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (f *CachedFinder) FindActiveByHash(ctx context.Context, hash string) (*models.WebhookLink, error) {
	if !IsValidHash(hash) {
		return nil, nil
	}

	if item, found := f.cache.Get(hash); found {
		if link, ok := item.(*models.WebhookLink); ok {
			active, err := f.next.IsActive(ctx, link.ID)
			if err != nil {
				return nil, err
			}
			if !active {
				f.cache.Delete(hash)
				return nil, nil
			}
			c := *link
			return &c, nil
		}
	}

	link, err := f.next.FindActiveByHash(ctx, hash)
	if err != nil || link == nil {
		return link, err
	}

	c := *link
	f.cache.Set(hash, &c, cache.DefaultExpiration)
	return link, nil
}

func (f *CachedFinder) Invalidate(hash string) {
	f.cache.Delete(hash)
}

func (f *CachedFinder) Len() int {
	return f.cache.ItemCount()
}
