package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/marmos91/dittogrid/pkg/store"
	storetesting "github.com/marmos91/dittogrid/pkg/store/testing"
)

func newTestDatabase(t *testing.T, config Config) *Database {
	t.Helper()
	if !config.InMemory && config.Path == "" {
		config.Path = t.TempDir()
	}
	config.BlockCacheSizeMB = 8
	config.IndexCacheSizeMB = 8

	db, err := New(context.Background(), config)
	require.NoError(t, err)
	return db
}

func TestBadgerDatabase(t *testing.T) {
	suite := &storetesting.StoreTestSuite{
		NewStore: func() store.Database {
			return newTestDatabase(t, Config{InMemory: true})
		},
	}
	suite.Run(t)
}

func TestBadgerDatabase_OnDisk(t *testing.T) {
	suite := &storetesting.StoreTestSuite{
		NewStore: func() store.Database {
			return newTestDatabase(t, Config{})
		},
	}
	suite.Run(t)
}

func TestReopen_KeepsDocumentsAndIndexes(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	file := primitive.NewObjectID()
	chunkIndex := store.Index{
		Keys:   bson.D{{Key: "files_id", Value: 1}, {Key: "n", Value: 1}},
		Unique: true,
	}

	db := newTestDatabase(t, Config{Path: dir})
	chunks := db.Collection("fs.chunks")
	require.NoError(t, chunks.CreateIndex(ctx, chunkIndex))
	require.NoError(t, chunks.Save(ctx, bson.M{"_id": "c0", "files_id": file, "n": int32(0)}))
	require.NoError(t, chunks.Save(ctx, bson.M{"_id": "c1", "files_id": file, "n": int32(1)}))
	require.NoError(t, db.Close(ctx))

	db = newTestDatabase(t, Config{Path: dir})
	defer func() { _ = db.Close(ctx) }()
	chunks = db.Collection("fs.chunks")

	// The unique index survives the restart.
	err := chunks.Save(ctx, bson.M{"_id": "dup", "files_id": file, "n": int32(1)})
	assert.ErrorIs(t, err, store.ErrDuplicateKey)

	// New documents sort after the old ones.
	require.NoError(t, chunks.Save(ctx, bson.M{"_id": "c2", "files_id": file, "n": int32(2)}))

	cur, err := chunks.Find(ctx, bson.M{"files_id": file})
	require.NoError(t, err)
	defer func() { _ = cur.Close(ctx) }()

	var got []string
	for cur.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		require.NoError(t, cur.Decode(&doc))
		got = append(got, doc.ID)
	}
	require.NoError(t, cur.Err())
	assert.Equal(t, []string{"c0", "c1", "c2"}, got)
}

func TestCreateIndex_BackfillConflict(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t, Config{InMemory: true})
	defer func() { _ = db.Close(ctx) }()

	coll := db.Collection("fs.chunks")
	file := primitive.NewObjectID()
	require.NoError(t, coll.Save(ctx, bson.M{"_id": "a", "files_id": file, "n": int32(0)}))
	require.NoError(t, coll.Save(ctx, bson.M{"_id": "b", "files_id": file, "n": int32(0)}))

	err := coll.CreateIndex(ctx, store.Index{
		Keys:   bson.D{{Key: "files_id", Value: 1}, {Key: "n", Value: 1}},
		Unique: true,
	})
	assert.ErrorIs(t, err, store.ErrDuplicateKey)

	// The failed index was not declared, so the duplicate is still accepted.
	require.NoError(t, coll.Save(ctx, bson.M{"_id": "c", "files_id": file, "n": int32(0)}))
}

func TestCollectionName_Invalid(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t, Config{InMemory: true})
	defer func() { _ = db.Close(ctx) }()

	err := db.Collection("bad:name").Save(ctx, bson.M{"_id": 1})
	assert.Error(t, err)
}

func TestClosed(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t, Config{InMemory: true})
	coll := db.Collection("fs.files")
	require.NoError(t, db.Close(ctx))

	_, err := coll.Find(ctx, nil)
	assert.ErrorIs(t, err, store.ErrClosed)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "d:fs.chunks:000000000000002a", string(keyDocument("fs.chunks", formatSeq(42))))
	assert.Equal(t, "x:fs.chunks:files_id_1_n_1:o1/", string(keyIndexEntry("fs.chunks", "files_id_1_n_1", "o1/")))
	assert.NoError(t, validCollectionName("fs.files"))
	assert.Error(t, validCollectionName(""))
}
