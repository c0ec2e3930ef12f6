package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"backoffice/internal/core/id"
	"backoffice/internal/domain/opname"
	"backoffice/pkg/logger"
)

const productKeyPrefix = "backoffice:product:"

// ProductIDKey is the cache key of a product looked up by id.
func ProductIDKey(productID id.ID) string {
	return productKeyPrefix + "id:" + productID.String()
}

// ProductSKUKey is the cache key of a product looked up by SKU.
func ProductSKUKey(sku string) string {
	return productKeyPrefix + "sku:" + strings.ToUpper(strings.TrimSpace(sku))
}

// ProductCache is a read-through opname.ProductCatalog. Only hits are cached;
// cache failures degrade to the underlying catalog.
//
// A product deleted after being cached can still be resolved until its entry
// expires or is invalidated. Inventory reads recheck the deletion mark, so such
// a product is never counted or adjusted.
type ProductCache struct {
	next  opname.ProductCatalog
	store Store
	ttl   time.Duration
}

var _ opname.ProductCatalog = (*ProductCache)(nil)

// NewProductCache wraps next.
func NewProductCache(next opname.ProductCatalog, store Store, ttl time.Duration) *ProductCache {
	return &ProductCache{next: next, store: store, ttl: ttl}
}

// GetProduct implements opname.ProductCatalog.
func (c *ProductCache) GetProduct(ctx context.Context, productID id.ID) (*opname.Product, error) {
	return c.lookup(ctx, ProductIDKey(productID), func() (*opname.Product, error) {
		return c.next.GetProduct(ctx, productID)
	})
}

// GetProductBySKU implements opname.ProductCatalog.
func (c *ProductCache) GetProductBySKU(ctx context.Context, sku string) (*opname.Product, error) {
	return c.lookup(ctx, ProductSKUKey(sku), func() (*opname.Product, error) {
		return c.next.GetProductBySKU(ctx, sku)
	})
}

// Invalidate drops both keys of a product.
func (c *ProductCache) Invalidate(ctx context.Context, productID id.ID, sku string) error {
	return c.store.Del(ctx, ProductIDKey(productID), ProductSKUKey(sku))
}

func (c *ProductCache) lookup(ctx context.Context, key string, load func() (*opname.Product, error)) (*opname.Product, error) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		logger.Warn(ctx, "product cache get failed", "key", key, "error", err)
	}
	if ok {
		var p opname.Product
		if err := json.Unmarshal(raw, &p); err == nil {
			return &p, nil
		}
		logger.Warn(ctx, "product cache entry corrupt", "key", key)
	}

	p, err := load()
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return p, nil
	}
	// Cache under both keys so an id lookup warms SKU lookups and vice versa.
	for _, k := range []string{ProductIDKey(p.ID), ProductSKUKey(p.SKU)} {
		if err := c.store.Set(ctx, k, payload, c.ttl); err != nil {
			logger.Warn(ctx, "product cache set failed", "key", k, "error", err)
			break
		}
	}
	return p, nil
}
