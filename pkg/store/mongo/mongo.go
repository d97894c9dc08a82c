// Package mongo adapts a MongoDB deployment to store.Database.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/marmos91/dittogrid/internal/logger"
	"github.com/marmos91/dittogrid/pkg/store"
)

// codeCommandNotFound is returned by servers that dropped filemd5.
const codeCommandNotFound = 59

// Config contains configuration for connecting to MongoDB.
type Config struct {
	// URI is the connection string, e.g. "mongodb://localhost:27017"
	URI string `mapstructure:"uri"`

	// Database is the database holding the GridFS collections
	Database string `mapstructure:"database"`

	// ConnectTimeout bounds the initial connection and ping (default: 10s)
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// Database implements store.Database on a *mongo.Database.
//
// Queries, indexes and upserts map one-to-one onto driver calls. filemd5 is
// sent to the server; servers that no longer implement it get the hash
// computed client-side from the chunks collection.
//
// Thread Safety:
// The driver's client, database and collection handles are safe for
// concurrent use, and so is this adapter.
type Database struct {
	db *mongo.Database

	// client is non-nil when the adapter owns the connection
	client *mongo.Client
}

var _ store.Database = (*Database)(nil)

// New connects to MongoDB and verifies the connection with a ping.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - cfg: Connection settings
//
// Returns:
//   - *Database: Connected adapter (Close disconnects the client)
//   - error: Returns error if the connection or ping fails
func New(ctx context.Context, cfg Config) (*Database, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo: uri is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("mongo: database is required")
	}

	timeout := cfg.ConnectTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	logger.Info("mongo: connected, database=%s", cfg.Database)

	return &Database{db: client.Database(cfg.Database), client: client}, nil
}

// Wrap adapts an existing database handle. Close does not disconnect the
// underlying client.
func Wrap(db *mongo.Database) *Database {
	return &Database{db: db}
}

// Collection returns the named collection.
func (d *Database) Collection(name string) store.Collection {
	return &collection{coll: d.db.Collection(name)}
}

// RunCommand sends cmd to the server.
func (d *Database) RunCommand(ctx context.Context, cmd bson.D) (bson.M, error) {
	name, err := store.CommandName(cmd)
	if err != nil {
		return nil, err
	}

	var result bson.M
	err = d.db.RunCommand(ctx, cmd).Decode(&result)
	if err == nil {
		return result, nil
	}

	var cmdErr mongo.CommandError
	if name == store.CommandFileMD5 && errors.As(err, &cmdErr) && cmdErr.HasErrorCode(codeCommandNotFound) {
		logger.Debug("mongo: server lacks filemd5, hashing chunks client-side")
		return store.ExecuteCommand(ctx, d, cmd)
	}
	return nil, fmt.Errorf("mongo: %s: %w", name, err)
}

// Close disconnects the client if this adapter created it.
func (d *Database) Close(ctx context.Context) error {
	if d.client == nil {
		return nil
	}
	return d.client.Disconnect(ctx)
}

// Drop removes the whole database. Used by tests and the CLI.
func (d *Database) Drop(ctx context.Context) error {
	return d.db.Drop(ctx)
}

type collection struct {
	coll *mongo.Collection
}

func (c *collection) Name() string { return c.coll.Name() }

// Find returns the driver cursor directly; *mongo.Cursor already satisfies
// store.Cursor.
func (c *collection) Find(ctx context.Context, filter bson.M) (store.Cursor, error) {
	if filter == nil {
		filter = bson.M{}
	}
	cur, err := c.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", c.coll.Name(), err)
	}
	return cur, nil
}

func (c *collection) CreateIndex(ctx context.Context, index store.Index) error {
	_, err := c.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    index.Keys,
		Options: options.Index().SetUnique(index.Unique),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("create index on %s: %w: %w", c.coll.Name(), store.ErrDuplicateKey, err)
		}
		return fmt.Errorf("create index on %s: %w", c.coll.Name(), err)
	}
	return nil
}

func (c *collection) Remove(ctx context.Context, filter bson.M) error {
	if filter == nil {
		filter = bson.M{}
	}
	if _, err := c.coll.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("remove from %s: %w", c.coll.Name(), err)
	}
	return nil
}

// Save upserts by _id with ReplaceOne.
func (c *collection) Save(ctx context.Context, doc any) error {
	raw, err := store.MarshalDocument(doc)
	if err != nil {
		return fmt.Errorf("save into %s: %w", c.coll.Name(), err)
	}
	id, err := raw.LookupErr("_id")
	if err != nil {
		return fmt.Errorf("save into %s: %w", c.coll.Name(), store.ErrMissingID)
	}

	_, err = c.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: id}}, raw, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("save into %s: %w: %w", c.coll.Name(), store.ErrDuplicateKey, err)
		}
		return fmt.Errorf("save into %s: %w", c.coll.Name(), err)
	}
	return nil
}
