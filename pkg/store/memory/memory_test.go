package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/marmos91/dittogrid/pkg/store"
	storetesting "github.com/marmos91/dittogrid/pkg/store/testing"
)

func TestMemoryDatabase(t *testing.T) {
	suite := &storetesting.StoreTestSuite{
		NewStore: func() store.Database {
			db, err := New(context.Background())
			require.NoError(t, err)
			return db
		},
	}
	suite.Run(t)
}

func TestNew_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClose_RejectsLaterCalls(t *testing.T) {
	ctx := context.Background()
	db, err := New(ctx)
	require.NoError(t, err)

	coll := db.Collection("fs.files")
	require.NoError(t, coll.Save(ctx, bson.M{"_id": "a"}))
	require.NoError(t, db.Close(ctx))

	_, err = coll.Find(ctx, nil)
	assert.ErrorIs(t, err, store.ErrClosed)
	assert.ErrorIs(t, coll.Save(ctx, bson.M{"_id": "b"}), store.ErrClosed)

	_, err = db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}})
	assert.ErrorIs(t, err, store.ErrClosed)
}

func TestRunCommand_Unsupported(t *testing.T) {
	ctx := context.Background()
	db, err := New(ctx)
	require.NoError(t, err)

	_, err = db.RunCommand(ctx, bson.D{{Key: "dropDatabase", Value: 1}})
	assert.ErrorIs(t, err, store.ErrUnsupportedCommand)

	res, err := db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res["ok"])
}

func TestFind_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	db, err := New(ctx)
	require.NoError(t, err)

	coll := db.Collection("fs.chunks")
	require.NoError(t, coll.Save(ctx, bson.M{"_id": "c", "data": []byte("abc")}))

	cur, err := coll.Find(ctx, nil)
	require.NoError(t, err)
	require.True(t, cur.Next(ctx))

	raw := cur.(*store.SliceCursor).Current()
	for i := range raw {
		raw[i] = 0
	}

	var doc struct {
		Data []byte `bson:"data"`
	}
	cur2, err := coll.Find(ctx, nil)
	require.NoError(t, err)
	require.True(t, cur2.Next(ctx))
	require.NoError(t, cur2.Decode(&doc))
	assert.Equal(t, []byte("abc"), doc.Data)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	db, err := New(ctx)
	require.NoError(t, err)

	coll := db.Collection("fs.files")
	require.NoError(t, coll.Save(ctx, bson.M{"_id": "a"}))
	require.NoError(t, coll.Save(ctx, bson.M{"_id": "b"}))
	require.NoError(t, coll.Remove(ctx, bson.M{"_id": "a"}))

	stats := db.Stats()
	assert.Equal(t, 1, stats["fs.files"].Documents)
	assert.Positive(t, stats["fs.files"].Bytes)
}
