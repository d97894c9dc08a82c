package testing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RunRemoveTests executes all Remove tests.
func (suite *StoreTestSuite) RunRemoveTests(t *testing.T) {
	t.Run("Remove_MatchingOnly", suite.testRemoveMatchingOnly)
	t.Run("Remove_NothingMatches", suite.testRemoveNothing)
	t.Run("Remove_AllChunksOfFile", suite.testRemoveChunksOfFile)
	t.Run("Remove_ThenSaveAgain", suite.testRemoveThenSave)
}

func (suite *StoreTestSuite) testRemoveMatchingOnly(t *testing.T) {
	db := suite.newStore(t)
	coll := db.Collection("rm.files")

	mustSave(t, coll,
		bson.M{"_id": "a", "filename": "x"},
		bson.M{"_id": "b", "filename": "y"},
		bson.M{"_id": "c", "filename": "x"},
	)

	assert.NoError(t, coll.Remove(testContext(), bson.M{"filename": "x"}))
	assert.Equal(t, []any{"b"}, ids(findAll(t, coll, nil)))
}

func (suite *StoreTestSuite) testRemoveNothing(t *testing.T) {
	db := suite.newStore(t)
	coll := db.Collection("rm0.files")

	assert.NoError(t, coll.Remove(testContext(), bson.M{"filename": "ghost"}))

	mustSave(t, coll, bson.M{"_id": "a", "filename": "x"})
	assert.NoError(t, coll.Remove(testContext(), bson.M{"filename": "ghost"}))
	assert.Len(t, findAll(t, coll, nil), 1)
}

func (suite *StoreTestSuite) testRemoveChunksOfFile(t *testing.T) {
	db := suite.newStore(t)
	coll := db.Collection("rmc.chunks")
	assert.NoError(t, coll.CreateIndex(testContext(), chunkIndex()))

	keep := primitive.NewObjectID()
	drop := primitive.NewObjectID()
	for n := int32(0); n < 3; n++ {
		mustSave(t, coll,
			bson.M{"_id": primitive.NewObjectID(), "files_id": drop, "n": n},
			bson.M{"_id": primitive.NewObjectID(), "files_id": keep, "n": n},
		)
	}

	assert.NoError(t, coll.Remove(testContext(), bson.M{"files_id": drop}))
	assert.Empty(t, findAll(t, coll, bson.M{"files_id": drop}))
	assert.Len(t, findAll(t, coll, bson.M{"files_id": keep}), 3)
}

func (suite *StoreTestSuite) testRemoveThenSave(t *testing.T) {
	db := suite.newStore(t)
	coll := db.Collection("rms.files")

	mustSave(t, coll, bson.M{"_id": "a", "v": 1})
	assert.NoError(t, coll.Remove(testContext(), bson.M{"_id": "a"}))
	mustSave(t, coll, bson.M{"_id": "a", "v": 2})

	docs := findAll(t, coll, nil)
	if assert.Len(t, docs, 1) {
		assert.EqualValues(t, 2, docs[0]["v"])
	}
}
