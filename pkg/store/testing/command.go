package testing

import (
	"crypto/md5"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RunCommandTests executes all RunCommand tests.
func (suite *StoreTestSuite) RunCommandTests(t *testing.T) {
	t.Run("FileMD5_OrdersChunks", suite.testFileMD5OrdersChunks)
	t.Run("FileMD5_NoChunks", suite.testFileMD5NoChunks)
	t.Run("FileMD5_CustomRoot", suite.testFileMD5CustomRoot)
}

func (suite *StoreTestSuite) testFileMD5OrdersChunks(t *testing.T) {
	db := suite.newStore(t)
	chunks := db.Collection("fs.chunks")

	file := primitive.NewObjectID()
	// Saved out of order on purpose; the hash must follow n.
	mustSave(t, chunks,
		bson.M{"_id": primitive.NewObjectID(), "files_id": file, "n": int32(1), "data": []byte("world")},
		bson.M{"_id": primitive.NewObjectID(), "files_id": file, "n": int32(0), "data": []byte("hello ")},
		bson.M{"_id": primitive.NewObjectID(), "files_id": primitive.NewObjectID(), "n": int32(0), "data": []byte("noise")},
	)

	res, err := db.RunCommand(testContext(), bson.D{{Key: "filemd5", Value: file}, {Key: "root", Value: "fs"}})
	require.NoError(t, err)

	sum := md5.Sum([]byte("hello world"))
	assert.Equal(t, hex.EncodeToString(sum[:]), res["md5"])
	assert.EqualValues(t, 2, res["numChunks"])
}

func (suite *StoreTestSuite) testFileMD5NoChunks(t *testing.T) {
	db := suite.newStore(t)

	res, err := db.RunCommand(testContext(), bson.D{{Key: "filemd5", Value: primitive.NewObjectID()}, {Key: "root", Value: "fs"}})
	require.NoError(t, err)

	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", res["md5"])
	assert.EqualValues(t, 0, res["numChunks"])
}

func (suite *StoreTestSuite) testFileMD5CustomRoot(t *testing.T) {
	db := suite.newStore(t)

	file := primitive.NewObjectID()
	mustSave(t, db.Collection("photos.chunks"),
		bson.M{"_id": primitive.NewObjectID(), "files_id": file, "n": int32(0), "data": []byte("abc")},
	)

	res, err := db.RunCommand(testContext(), bson.D{{Key: "filemd5", Value: file}, {Key: "root", Value: "photos"}})
	require.NoError(t, err)

	sum := md5.Sum([]byte("abc"))
	assert.Equal(t, hex.EncodeToString(sum[:]), res["md5"])
}
