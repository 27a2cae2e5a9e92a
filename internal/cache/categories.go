package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/JonMunkholm/catalogconsole/internal/core"
	"github.com/JonMunkholm/catalogconsole/internal/logging"
)

// CategoriesKey is the store key holding the JSON category list.
const CategoriesKey = "catalogconsole:categories"

var lookups = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "category_cache_lookups_total",
		Help: "Category cache lookups by result (hit, miss, error)",
	},
	[]string{"result"},
)

// Catalog wraps a DataAccess and serves ListCategories from a Store. Other
// calls pass through. A failing store is logged and bypassed.
type Catalog struct {
	core.DataAccess
	store Store
	ttl   time.Duration
}

var _ core.DataAccess = (*Catalog)(nil)

// NewCatalog caches next's categories in store for ttl.
func NewCatalog(next core.DataAccess, store Store, ttl time.Duration) *Catalog {
	return &Catalog{DataAccess: next, store: store, ttl: ttl}
}

// ListCategories returns the cached list or fetches and caches it. Failed
// fetches are not cached.
func (c *Catalog) ListCategories(ctx context.Context) ([]core.Category, error) {
	logger := logging.WithFields(ctx, "cache_key", CategoriesKey)

	data, ok, err := c.store.Get(ctx, CategoriesKey)
	switch {
	case err != nil:
		lookups.WithLabelValues("error").Inc()
		logger.Warn("category cache read failed", "error", err)
	case ok:
		var cats []core.Category
		if err := json.Unmarshal(data, &cats); err == nil {
			lookups.WithLabelValues("hit").Inc()
			return cats, nil
		}
		logger.Warn("category cache entry unreadable, refetching")
		_ = c.store.Delete(ctx, CategoriesKey)
	default:
		lookups.WithLabelValues("miss").Inc()
	}

	cats, err := c.DataAccess.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(cats); err == nil {
		if err := c.store.Set(ctx, CategoriesKey, data, c.ttl); err != nil {
			logger.Warn("category cache write failed", "error", err)
		}
	}
	return cats, nil
}

// Invalidate drops the cached list.
func (c *Catalog) Invalidate(ctx context.Context) error {
	return c.store.Delete(ctx, CategoriesKey)
}
