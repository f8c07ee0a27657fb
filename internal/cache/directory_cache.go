package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmiseikis/site-api/internal/models"
	"github.com/jmiseikis/site-api/pkg/logger"
	"github.com/jmiseikis/site-api/pkg/metrics"
	"github.com/jmiseikis/site-api/pkg/retry"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// RowFetcher loads the raw rows of a published sheet
type RowFetcher interface {
	FetchRows(ctx context.Context, sheetID string) ([][]string, error)
}

const (
	eventsKey        = "directory:events"
	fundsKey         = "directory:vcs"
	cacheCheckPeriod = time.Minute
	defaultTTL       = 10 * time.Minute
)

// DirectoryCache keeps parsed directory sheets in memory. Entries are fetched
// lazily on a miss; when a refresh fails the last good copy is served.
type DirectoryCache struct {
	cache         *gocache.Cache
	fetcher       RowFetcher
	eventsSheetID string
	fundsSheetID  string
	ttl           time.Duration
	retryPolicy   retry.Policy
	group         singleflight.Group

	mu    sync.RWMutex
	stale map[string]interface{}
	ready bool
}

// NewDirectoryCache creates a directory cache
func NewDirectoryCache(fetcher RowFetcher, eventsSheetID, fundsSheetID string, ttlSeconds int) *DirectoryCache {
	ttl := time.Duration(ttlSeconds) * time.Second
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &DirectoryCache{
		cache:         gocache.New(ttl, cacheCheckPeriod),
		fetcher:       fetcher,
		eventsSheetID: eventsSheetID,
		fundsSheetID:  fundsSheetID,
		ttl:           ttl,
		retryPolicy:   retry.SheetsPolicy(),
		stale:         make(map[string]interface{}),
	}
}

// Events returns the tech events directory
func (dc *DirectoryCache) Events(ctx context.Context) ([]models.TechEvent, error) {
	return load(ctx, dc, eventsKey, dc.eventsSheetID, models.ParseTechEvents)
}

// Funds returns the venture fund directory
func (dc *DirectoryCache) Funds(ctx context.Context) ([]models.VentureFund, error) {
	return load(ctx, dc, fundsKey, dc.fundsSheetID, models.ParseVentureFunds)
}

// IsReady reports whether at least one directory has been fetched successfully
func (dc *DirectoryCache) IsReady() bool {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	return dc.ready
}

// Invalidate drops fresh entries so the next read refetches. Stale copies are kept.
func (dc *DirectoryCache) Invalidate() {
	dc.cache.Flush()
	metrics.CacheSize.WithLabelValues("directory").Set(0)
	logger.Info("Directory cache invalidated")
}

// Warm fetches both directories once. Failures are logged, not returned.
func (dc *DirectoryCache) Warm(ctx context.Context) {
	if _, err := dc.Events(ctx); err != nil {
		logger.Warn("Failed to warm events directory", zap.Error(err))
	}
	if _, err := dc.Funds(ctx); err != nil {
		logger.Warn("Failed to warm venture fund directory", zap.Error(err))
	}
}

func load[T any](ctx context.Context, dc *DirectoryCache, key, sheetID string, parse func([][]string) []T) ([]T, error) {
	if data, found := dc.cache.Get(key); found {
		if items, ok := data.([]T); ok {
			metrics.CacheHits.WithLabelValues(key).Inc()
			return items, nil
		}
		dc.cache.Delete(key)
	}
	metrics.CacheMisses.WithLabelValues(key).Inc()

	result, err, _ := dc.group.Do(key, func() (interface{}, error) {
		rows, err := retry.Do(ctx, dc.retryPolicy, "fetch_"+key, func(ctx context.Context) ([][]string, error) {
			return dc.fetcher.FetchRows(ctx, sheetID)
		})
		if err != nil {
			return nil, err
		}

		items := parse(rows)
		dc.cache.Set(key, items, dc.ttl)

		dc.mu.Lock()
		dc.stale[key] = items
		dc.ready = true
		dc.mu.Unlock()

		metrics.CacheSize.WithLabelValues("directory").Set(float64(dc.cache.ItemCount()))
		logger.Info("Directory refreshed", zap.String("directory", key), zap.Int("count", len(items)))
		return items, nil
	})
	if err == nil {
		items, ok := result.([]T)
		if !ok {
			return nil, fmt.Errorf("invalid cache data for %s", key)
		}
		return items, nil
	}

	dc.mu.RLock()
	previous, found := dc.stale[key]
	dc.mu.RUnlock()
	if found {
		if items, ok := previous.([]T); ok {
			logger.Warn("Serving stale directory after refresh failure",
				zap.String("directory", key), zap.Error(err))
			return items, nil
		}
	}

	logger.Error("Failed to load directory", zap.String("directory", key), zap.Error(err))
	return nil, err
}
