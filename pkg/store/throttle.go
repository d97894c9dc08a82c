package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/marmos91/dittogrid/internal/ratelimiter"
)

// Throttle wraps db so that every backing-store round trip first waits on
// limiter. A nil or unlimited limiter returns db unchanged.
//
// Cursor iteration is not throttled: the round trip is charged to Find.
func Throttle(db Database, limiter *ratelimiter.RateLimiter) Database {
	if limiter == nil || limiter.Unlimited() {
		return db
	}
	return &throttledDatabase{inner: db, limiter: limiter}
}

type throttledDatabase struct {
	inner   Database
	limiter *ratelimiter.RateLimiter
}

func (d *throttledDatabase) Collection(name string) Collection {
	return &throttledCollection{inner: d.inner.Collection(name), limiter: d.limiter}
}

func (d *throttledDatabase) RunCommand(ctx context.Context, cmd bson.D) (bson.M, error) {
	if err := wait(ctx, d.limiter); err != nil {
		return nil, err
	}
	return d.inner.RunCommand(ctx, cmd)
}

func (d *throttledDatabase) Close(ctx context.Context) error {
	return d.inner.Close(ctx)
}

type throttledCollection struct {
	inner   Collection
	limiter *ratelimiter.RateLimiter
}

func (c *throttledCollection) Name() string { return c.inner.Name() }

func (c *throttledCollection) Find(ctx context.Context, filter bson.M) (Cursor, error) {
	if err := wait(ctx, c.limiter); err != nil {
		return nil, err
	}
	return c.inner.Find(ctx, filter)
}

func (c *throttledCollection) CreateIndex(ctx context.Context, index Index) error {
	if err := wait(ctx, c.limiter); err != nil {
		return err
	}
	return c.inner.CreateIndex(ctx, index)
}

func (c *throttledCollection) Remove(ctx context.Context, filter bson.M) error {
	if err := wait(ctx, c.limiter); err != nil {
		return err
	}
	return c.inner.Remove(ctx, filter)
}

func (c *throttledCollection) Save(ctx context.Context, doc any) error {
	if err := wait(ctx, c.limiter); err != nil {
		return err
	}
	return c.inner.Save(ctx, doc)
}

func wait(ctx context.Context, limiter *ratelimiter.RateLimiter) error {
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}
