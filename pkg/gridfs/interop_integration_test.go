//go:build integration
// +build integration

package gridfs_test

import (
	"bytes"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	drivergridfs "go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/marmos91/dittogrid/pkg/gridfs"
	storemongo "github.com/marmos91/dittogrid/pkg/store/mongo"
)

// interopDatabase connects to DITTOGRID_TEST_MONGO_URI and returns a fresh
// database that is dropped when the test ends.
//
// Run with: go test -tags=integration ./pkg/gridfs/...
func interopDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("DITTOGRID_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("DITTOGRID_TEST_MONGO_URI not set")
	}

	ctx := testContext()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)

	db := client.Database(fmt.Sprintf("dittogrid_interop_%d", time.Now().UnixNano()))
	t.Cleanup(func() {
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}

// Files written through GridStore must be readable by the driver's own
// GridFS implementation.
func TestInterop_DriverReadsGridStoreFiles(t *testing.T) {
	db := interopDatabase(t)
	bucket := gridfs.NewBucket(storemongo.Wrap(db), gridfs.BucketOptions{ChunkSize: 1000})

	data := patterned(4321)
	record := writeFile(t, bucket, "ours.bin", data, nil)
	assert.Equal(t, md5Hex(data), record.MD5, "server-side filemd5")

	driverBucket, err := drivergridfs.NewBucket(db)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = driverBucket.DownloadToStreamByName("ours.bin", &buf)
	require.NoError(t, err)
	assert.Equal(t, data, buf.Bytes())
}

// Files uploaded by the driver must be readable, seekable and appendable
// through GridStore.
func TestInterop_GridStoreReadsDriverFiles(t *testing.T) {
	db := interopDatabase(t)
	ctx := testContext()

	driverBucket, err := drivergridfs.NewBucket(db, options.GridFSBucket().SetChunkSizeBytes(512))
	require.NoError(t, err)

	data := patterned(3000)
	_, err = driverBucket.UploadFromStream("theirs.bin", bytes.NewReader(data),
		options.GridFSUpload().SetMetadata(bson.D{{Key: "origin", Value: "driver"}}))
	require.NoError(t, err)

	bucket := gridfs.NewBucket(storemongo.Wrap(db), gridfs.BucketOptions{})

	record, err := bucket.Stat(ctx, "theirs.bin")
	require.NoError(t, err)
	assert.Equal(t, int32(512), record.ChunkSize)
	assert.Equal(t, int64(3000), record.Length)
	assert.Equal(t, bson.D{{Key: "origin", Value: "driver"}}, record.Metadata)

	got, err := bucket.ReadFile(ctx, "theirs.bin", 100, 1000)
	require.NoError(t, err)
	assert.Equal(t, data[1000:1100], got)

	tail := []byte("appended")
	_, err = bucket.Append(ctx, "theirs.bin", bytes.NewReader(tail), nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = driverBucket.DownloadToStreamByName("theirs.bin", &buf)
	require.NoError(t, err)
	assert.Equal(t, append(data, tail...), buf.Bytes())
}
