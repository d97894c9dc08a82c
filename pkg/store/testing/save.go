package testing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/marmos91/dittogrid/pkg/store"
)

// RunSaveTests executes all Save tests.
func (suite *StoreTestSuite) RunSaveTests(t *testing.T) {
	t.Run("Save_Insert", suite.testSaveInsert)
	t.Run("Save_ReplaceKeepsPosition", suite.testSaveReplace)
	t.Run("Save_Struct", suite.testSaveStruct)
	t.Run("Save_BinaryData", suite.testSaveBinary)
	t.Run("Save_MissingID", suite.testSaveMissingID)
}

func (suite *StoreTestSuite) testSaveInsert(t *testing.T) {
	db := suite.newStore(t)
	coll := db.Collection("insert.files")

	mustSave(t, coll, bson.M{"_id": "a", "filename": "hello.txt", "length": int64(5)})

	docs := findAll(t, coll, bson.M{"_id": "a"})
	require.Len(t, docs, 1)
	assert.Equal(t, "hello.txt", docs[0]["filename"])
	assert.Equal(t, int64(5), docs[0]["length"])
}

func (suite *StoreTestSuite) testSaveReplace(t *testing.T) {
	db := suite.newStore(t)
	coll := db.Collection("replace.files")

	mustSave(t, coll,
		bson.M{"_id": "a", "v": "old"},
		bson.M{"_id": "b", "v": "b"},
		bson.M{"_id": "c", "v": "c"},
	)
	mustSave(t, coll, bson.M{"_id": "a", "v": "new", "extra": true})

	docs := findAll(t, coll, nil)
	require.Equal(t, []any{"a", "b", "c"}, ids(docs))
	assert.Equal(t, "new", docs[0]["v"])
	assert.Equal(t, true, docs[0]["extra"])
}

type testRecord struct {
	ID       primitive.ObjectID `bson:"_id"`
	Filename string             `bson:"filename"`
	Size     int64              `bson:"size"`
}

func (suite *StoreTestSuite) testSaveStruct(t *testing.T) {
	db := suite.newStore(t)
	coll := db.Collection("struct.files")

	rec := testRecord{ID: primitive.NewObjectID(), Filename: "s.bin", Size: 42}
	mustSave(t, coll, rec)

	cur, err := coll.Find(testContext(), bson.M{"filename": "s.bin"})
	require.NoError(t, err)
	defer func() { _ = cur.Close(testContext()) }()

	require.True(t, cur.Next(testContext()))
	var got testRecord
	require.NoError(t, cur.Decode(&got))
	assert.Equal(t, rec, got)
	assert.False(t, cur.Next(testContext()))
	assert.NoError(t, cur.Err())
}

func (suite *StoreTestSuite) testSaveBinary(t *testing.T) {
	db := suite.newStore(t)
	coll := db.Collection("bin.chunks")

	payload := []byte{0x00, 0xff, 0x10, 0x00, 0x7f}
	mustSave(t, coll, bson.M{"_id": "c", "data": payload})

	cur, err := coll.Find(testContext(), bson.M{"_id": "c"})
	require.NoError(t, err)
	defer func() { _ = cur.Close(testContext()) }()

	require.True(t, cur.Next(testContext()))
	var got struct {
		Data []byte `bson:"data"`
	}
	require.NoError(t, cur.Decode(&got))
	assert.Equal(t, payload, got.Data)
}

func (suite *StoreTestSuite) testSaveMissingID(t *testing.T) {
	db := suite.newStore(t)
	coll := db.Collection("noid.files")

	err := coll.Save(testContext(), bson.M{"filename": "orphan"})
	assert.ErrorIs(t, err, store.ErrMissingID)
}
