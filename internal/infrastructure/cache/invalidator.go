package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"backoffice/internal/core/id"
	"backoffice/pkg/logger"
)

// ProductChangedChannel is raised by the cat_products trigger on update and delete.
const ProductChangedChannel = "product_changed"

// productChange is the NOTIFY payload: the row's id and its previous SKU.
type productChange struct {
	ID  id.ID  `json:"id"`
	SKU string `json:"sku"`
}

// Invalidator evicts cached products when the catalog changes, using
// PostgreSQL LISTEN/NOTIFY instead of waiting for TTL expiry.
type Invalidator struct {
	pool  *pgxpool.Pool
	cache *ProductCache

	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

// NewInvalidator creates an invalidator for cache.
func NewInvalidator(pool *pgxpool.Pool, cache *ProductCache) *Invalidator {
	return &Invalidator{pool: pool, cache: cache}
}

// Start begins listening in the background.
func (v *Invalidator) Start(ctx context.Context) {
	v.lifecycleMu.Lock()
	defer v.lifecycleMu.Unlock()
	if v.started {
		return
	}
	v.ctx, v.cancel = context.WithCancel(ctx)
	v.started = true

	v.wg.Add(1)
	go v.listenLoop()
	logger.Info(v.ctx, "product cache invalidator started")
}

// Stop ends listening and waits for the loop to exit.
func (v *Invalidator) Stop() {
	v.lifecycleMu.Lock()
	if !v.started {
		v.lifecycleMu.Unlock()
		return
	}
	cancel := v.cancel
	v.started = false
	v.lifecycleMu.Unlock()

	cancel()
	v.wg.Wait()
	logger.Info(context.Background(), "product cache invalidator stopped")
}

func (v *Invalidator) listenLoop() {
	defer v.wg.Done()

	for v.ctx.Err() == nil {
		conn, err := v.pool.Acquire(v.ctx)
		if err != nil {
			if v.ctx.Err() == nil {
				logger.Error(v.ctx, "failed to acquire connection for LISTEN", "error", err)
				v.sleep(time.Second)
			}
			continue
		}

		if _, err := conn.Exec(v.ctx, "LISTEN "+ProductChangedChannel); err != nil {
			logger.Error(v.ctx, "failed to LISTEN", "channel", ProductChangedChannel, "error", err)
			conn.Release()
			v.sleep(time.Second)
			continue
		}

		v.waitForNotifications(conn)
		conn.Release()
	}
}

func (v *Invalidator) waitForNotifications(conn *pgxpool.Conn) {
	for {
		n, err := conn.Conn().WaitForNotification(v.ctx)
		if err != nil {
			if v.ctx.Err() == nil {
				logger.Warn(v.ctx, "LISTEN connection lost", "error", err)
			}
			return
		}
		v.handle(v.ctx, n.Payload)
	}
}

func (v *Invalidator) handle(ctx context.Context, payload string) {
	var change productChange
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		logger.Warn(ctx, "bad product_changed payload", "payload", payload, "error", err)
		return
	}
	if err := v.cache.Invalidate(ctx, change.ID, change.SKU); err != nil {
		logger.Warn(ctx, "product cache invalidation failed", "product_id", change.ID, "error", err)
		return
	}
	logger.Debug(ctx, "product cache invalidated", "product_id", change.ID, "sku", change.SKU)
}

func (v *Invalidator) sleep(d time.Duration) {
	select {
	case <-v.ctx.Done():
	case <-time.After(d):
	}
}
