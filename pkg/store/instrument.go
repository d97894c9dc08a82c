package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// Metrics observes backing-store round trips.
//
// This interface is optional: Instrument with a nil Metrics returns the
// database unchanged.
type Metrics interface {
	// RecordOperation records one completed call.
	//
	// Parameters:
	//   - collection: Collection name, or "" for database commands
	//   - operation: "find", "create_index", "remove", "save" or "command"
	//   - duration: Time taken by the adapter
	//   - err: Error returned by the adapter, nil on success
	RecordOperation(collection, operation string, duration time.Duration, err error)
}

// Instrument wraps db so that every call is reported to m.
func Instrument(db Database, m Metrics) Database {
	if m == nil {
		return db
	}
	return &instrumentedDatabase{inner: db, metrics: m}
}

type instrumentedDatabase struct {
	inner   Database
	metrics Metrics
}

func (d *instrumentedDatabase) Collection(name string) Collection {
	return &instrumentedCollection{inner: d.inner.Collection(name), metrics: d.metrics}
}

func (d *instrumentedDatabase) RunCommand(ctx context.Context, cmd bson.D) (bson.M, error) {
	start := time.Now()
	result, err := d.inner.RunCommand(ctx, cmd)
	d.metrics.RecordOperation("", "command", time.Since(start), err)
	return result, err
}

func (d *instrumentedDatabase) Close(ctx context.Context) error {
	return d.inner.Close(ctx)
}

type instrumentedCollection struct {
	inner   Collection
	metrics Metrics
}

func (c *instrumentedCollection) Name() string { return c.inner.Name() }

func (c *instrumentedCollection) Find(ctx context.Context, filter bson.M) (Cursor, error) {
	start := time.Now()
	cur, err := c.inner.Find(ctx, filter)
	c.metrics.RecordOperation(c.inner.Name(), "find", time.Since(start), err)
	return cur, err
}

func (c *instrumentedCollection) CreateIndex(ctx context.Context, index Index) error {
	start := time.Now()
	err := c.inner.CreateIndex(ctx, index)
	c.metrics.RecordOperation(c.inner.Name(), "create_index", time.Since(start), err)
	return err
}

func (c *instrumentedCollection) Remove(ctx context.Context, filter bson.M) error {
	start := time.Now()
	err := c.inner.Remove(ctx, filter)
	c.metrics.RecordOperation(c.inner.Name(), "remove", time.Since(start), err)
	return err
}

func (c *instrumentedCollection) Save(ctx context.Context, doc any) error {
	start := time.Now()
	err := c.inner.Save(ctx, doc)
	c.metrics.RecordOperation(c.inner.Name(), "save", time.Since(start), err)
	return err
}
