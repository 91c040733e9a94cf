package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"daily-trivia-service/internal/domain"
	"daily-trivia-service/internal/infra/memory"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	itemsKey     = "catalog:v1:items"
	directoryKey = "catalog:v1:directory"
)

// CatalogRepository caches the catalog snapshot in Redis and falls back
// to a loader on cache miss, so every process instance serves the same
// item set without hitting the backing store on each request.
type CatalogRepository struct {
	client *redis.Client
	loader memory.CatalogLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewCatalogRepository(client *redis.Client, loader memory.CatalogLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CatalogRepository) GetCatalog(ctx context.Context) (domain.Catalog, error) {
	if catalog, ok, err := r.fromCache(ctx); err == nil && ok {
		return catalog, nil
	}

	result, err, _ := r.sf.Do("catalog", func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if catalog, ok, err := r.fromCache(ctx); err == nil && ok {
			return catalog, nil
		}

		catalog, err := r.loader.LoadCatalog(ctx)
		if err != nil {
			return domain.Catalog{}, err
		}

		itemsData, err := json.Marshal(catalog.Items)
		if err != nil {
			return domain.Catalog{}, fmt.Errorf("encode catalog items: %w", err)
		}
		directoryData, err := json.Marshal(catalog.Directory)
		if err != nil {
			return domain.Catalog{}, fmt.Errorf("encode catalog directory: %w", err)
		}

		ttl := r.ttlWithJitter()
		pipe := r.client.Pipeline()
		pipe.Set(ctx, itemsKey, itemsData, 0)
		pipe.Set(ctx, directoryKey, directoryData, 0)
		if ttl > 0 {
			pipe.Expire(ctx, itemsKey, ttl)
			pipe.Expire(ctx, directoryKey, ttl)
		}
		// Best effort: a failed cache fill still serves the loaded catalog.
		_, _ = pipe.Exec(ctx)

		return catalog, nil
	})
	if err != nil {
		return domain.Catalog{}, err
	}
	return result.(domain.Catalog), nil
}

func (r *CatalogRepository) fromCache(ctx context.Context) (domain.Catalog, bool, error) {
	itemsRaw, err := r.client.Get(ctx, itemsKey).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Catalog{}, false, nil
	}
	if err != nil {
		return domain.Catalog{}, false, err
	}
	directoryRaw, err := r.client.Get(ctx, directoryKey).Result()
	if err != nil {
		return domain.Catalog{}, false, err
	}

	var items []domain.ContentItem
	if err := json.Unmarshal([]byte(itemsRaw), &items); err != nil {
		return domain.Catalog{}, false, err
	}
	var directory []domain.CategoryEntry
	if err := json.Unmarshal([]byte(directoryRaw), &directory); err != nil {
		return domain.Catalog{}, false, err
	}
	return domain.NewCatalog(items, directory), true, nil
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
