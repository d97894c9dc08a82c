package testing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/marmos91/dittogrid/pkg/store"
)

// RunIndexTests executes all CreateIndex tests.
func (suite *StoreTestSuite) RunIndexTests(t *testing.T) {
	t.Run("CreateIndex_Idempotent", suite.testCreateIndexIdempotent)
	t.Run("CreateIndex_UniqueRejectsDuplicate", suite.testUniqueRejectsDuplicate)
	t.Run("CreateIndex_UniqueAllowsReplace", suite.testUniqueAllowsReplace)
	t.Run("CreateIndex_LookupByLeadingField", suite.testLookupByLeadingField)
}

// chunkIndex is the compound index GridFS declares on <root>.chunks.
func chunkIndex() store.Index {
	return store.Index{
		Keys:   bson.D{{Key: "files_id", Value: 1}, {Key: "n", Value: 1}},
		Unique: true,
	}
}

func (suite *StoreTestSuite) testCreateIndexIdempotent(t *testing.T) {
	db := suite.newStore(t)
	coll := db.Collection("idx.chunks")

	require.NoError(t, coll.CreateIndex(testContext(), chunkIndex()))
	require.NoError(t, coll.CreateIndex(testContext(), chunkIndex()))

	file := primitive.NewObjectID()
	mustSave(t, coll, bson.M{"_id": "c0", "files_id": file, "n": int32(0)})
	assert.Len(t, findAll(t, coll, bson.M{"files_id": file}), 1)
}

func (suite *StoreTestSuite) testUniqueRejectsDuplicate(t *testing.T) {
	db := suite.newStore(t)
	coll := db.Collection("dup.chunks")
	require.NoError(t, coll.CreateIndex(testContext(), chunkIndex()))

	file := primitive.NewObjectID()
	mustSave(t, coll, bson.M{"_id": "first", "files_id": file, "n": int32(0)})

	err := coll.Save(testContext(), bson.M{"_id": "second", "files_id": file, "n": int32(0)})
	assert.ErrorIs(t, err, store.ErrDuplicateKey)

	docs := findAll(t, coll, bson.M{"files_id": file})
	assert.Equal(t, []any{"first"}, ids(docs))
}

func (suite *StoreTestSuite) testUniqueAllowsReplace(t *testing.T) {
	db := suite.newStore(t)
	coll := db.Collection("rep.chunks")
	require.NoError(t, coll.CreateIndex(testContext(), chunkIndex()))

	file := primitive.NewObjectID()
	mustSave(t, coll, bson.M{"_id": "c", "files_id": file, "n": int32(0), "data": []byte("a")})
	mustSave(t, coll, bson.M{"_id": "c", "files_id": file, "n": int32(0), "data": []byte("b")})

	docs := findAll(t, coll, bson.M{"files_id": file, "n": int32(0)})
	require.Len(t, docs, 1)
	bin, ok := docs[0]["data"].(primitive.Binary)
	require.True(t, ok, "data decoded as %T", docs[0]["data"])
	assert.Equal(t, []byte("b"), bin.Data)
}

func (suite *StoreTestSuite) testLookupByLeadingField(t *testing.T) {
	db := suite.newStore(t)
	coll := db.Collection("lead.chunks")
	require.NoError(t, coll.CreateIndex(testContext(), chunkIndex()))

	file := primitive.NewObjectID()
	other := primitive.NewObjectID()
	for n := int32(0); n < 4; n++ {
		mustSave(t, coll, bson.M{"_id": primitive.NewObjectID(), "files_id": file, "n": n})
	}
	mustSave(t, coll, bson.M{"_id": primitive.NewObjectID(), "files_id": other, "n": int32(0)})

	assert.Len(t, findAll(t, coll, bson.M{"files_id": file}), 4)

	docs := findAll(t, coll, bson.M{"files_id": file, "n": int64(2)})
	require.Len(t, docs, 1)
	assert.EqualValues(t, 2, docs[0]["n"])

	assert.Empty(t, findAll(t, coll, bson.M{"files_id": file, "n": int32(9)}))
}
