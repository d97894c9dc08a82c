package testing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RunFindTests executes all Find tests.
func (suite *StoreTestSuite) RunFindTests(t *testing.T) {
	t.Run("Find_EmptyCollection", suite.testFindEmptyCollection)
	t.Run("Find_EmptyFilterMatchesAll", suite.testFindEmptyFilter)
	t.Run("Find_EqualityFilter", suite.testFindEquality)
	t.Run("Find_MultipleFields", suite.testFindMultipleFields)
	t.Run("Find_NumbersAcrossTypes", suite.testFindNumbersAcrossTypes)
	t.Run("Find_NilMatchesMissing", suite.testFindNilMatchesMissing)
	t.Run("Find_ObjectID", suite.testFindObjectID)
	t.Run("Find_CollectionsAreIsolated", suite.testFindCollectionsIsolated)
}

func (suite *StoreTestSuite) testFindEmptyCollection(t *testing.T) {
	db := suite.newStore(t)

	docs := findAll(t, db.Collection("empty.files"), bson.M{"filename": "nope"})
	assert.Empty(t, docs)
}

func (suite *StoreTestSuite) testFindEmptyFilter(t *testing.T) {
	db := suite.newStore(t)
	coll := db.Collection("all.files")

	mustSave(t, coll,
		bson.M{"_id": "a", "v": 1},
		bson.M{"_id": "b", "v": 2},
		bson.M{"_id": "c", "v": 3},
	)

	assert.Equal(t, []any{"a", "b", "c"}, ids(findAll(t, coll, nil)))
	assert.Equal(t, []any{"a", "b", "c"}, ids(findAll(t, coll, bson.M{})))
}

func (suite *StoreTestSuite) testFindEquality(t *testing.T) {
	db := suite.newStore(t)
	coll := db.Collection("eq.files")

	mustSave(t, coll,
		bson.M{"_id": "a", "filename": "one.txt"},
		bson.M{"_id": "b", "filename": "two.txt"},
		bson.M{"_id": "c", "filename": "one.txt"},
	)

	docs := findAll(t, coll, bson.M{"filename": "one.txt"})
	assert.Equal(t, []any{"a", "c"}, ids(docs))

	assert.Empty(t, findAll(t, coll, bson.M{"filename": "three.txt"}))
}

func (suite *StoreTestSuite) testFindMultipleFields(t *testing.T) {
	db := suite.newStore(t)
	coll := db.Collection("multi.chunks")

	fileA := primitive.NewObjectID()
	fileB := primitive.NewObjectID()
	mustSave(t, coll,
		bson.M{"_id": "a0", "files_id": fileA, "n": int32(0)},
		bson.M{"_id": "a1", "files_id": fileA, "n": int32(1)},
		bson.M{"_id": "b0", "files_id": fileB, "n": int32(0)},
	)

	docs := findAll(t, coll, bson.M{"files_id": fileA, "n": int32(1)})
	assert.Equal(t, []any{"a1"}, ids(docs))

	docs = findAll(t, coll, bson.M{"files_id": fileB, "n": int32(1)})
	assert.Empty(t, docs)
}

func (suite *StoreTestSuite) testFindNumbersAcrossTypes(t *testing.T) {
	db := suite.newStore(t)
	coll := db.Collection("num.chunks")

	mustSave(t, coll, bson.M{"_id": "x", "n": int32(3)})

	for _, want := range []any{int32(3), int64(3), 3.0, 3} {
		docs := findAll(t, coll, bson.M{"n": want})
		require.Len(t, docs, 1, "filter value %T", want)
	}

	assert.Empty(t, findAll(t, coll, bson.M{"n": 3.5}))
}

func (suite *StoreTestSuite) testFindNilMatchesMissing(t *testing.T) {
	db := suite.newStore(t)
	coll := db.Collection("nil.files")

	mustSave(t, coll,
		bson.M{"_id": "with", "uploadDate": primitive.NewDateTimeFromTime(testTime)},
		bson.M{"_id": "without"},
		bson.M{"_id": "null", "uploadDate": nil},
	)

	docs := findAll(t, coll, bson.M{"uploadDate": nil})
	assert.ElementsMatch(t, []any{"without", "null"}, ids(docs))
}

func (suite *StoreTestSuite) testFindObjectID(t *testing.T) {
	db := suite.newStore(t)
	coll := db.Collection("oid.files")

	id := primitive.NewObjectID()
	mustSave(t, coll,
		bson.M{"_id": id, "filename": "a"},
		bson.M{"_id": primitive.NewObjectID(), "filename": "b"},
	)

	docs := findAll(t, coll, bson.M{"_id": id})
	require.Len(t, docs, 1)
	assert.Equal(t, "a", docs[0]["filename"])
}

func (suite *StoreTestSuite) testFindCollectionsIsolated(t *testing.T) {
	db := suite.newStore(t)

	mustSave(t, db.Collection("fs.files"), bson.M{"_id": "f"})
	mustSave(t, db.Collection("photos.files"), bson.M{"_id": "p"})

	assert.Equal(t, []any{"f"}, ids(findAll(t, db.Collection("fs.files"), nil)))
	assert.Equal(t, []any{"p"}, ids(findAll(t, db.Collection("photos.files"), nil)))
	assert.Equal(t, "fs.files", db.Collection("fs.files").Name())
}
