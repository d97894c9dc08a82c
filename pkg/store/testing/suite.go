package testing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/marmos91/dittogrid/pkg/store"
)

// StoreTestSuite is a test suite for store.Database implementations.
// It tests the interface contract the GridFS layer relies on, not
// implementation details, making it reusable across adapters (memory,
// badger, s3, mongo).
//
// Usage:
//
//	func TestMyDatabase(t *testing.T) {
//	    suite := &storetesting.StoreTestSuite{
//	        NewStore: func() store.Database {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore is a factory function that creates a fresh, empty Database
	// for each test. This ensures test isolation.
	NewStore func() store.Database
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("FindOperations", suite.RunFindTests)
	t.Run("SaveOperations", suite.RunSaveTests)
	t.Run("RemoveOperations", suite.RunRemoveTests)
	t.Run("IndexOperations", suite.RunIndexTests)
	t.Run("Commands", suite.RunCommandTests)
}

// testTime is a fixed timestamp for documents that need one.
var testTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// newStore creates a database and closes it when the test ends.
func (suite *StoreTestSuite) newStore(t *testing.T) store.Database {
	t.Helper()
	db := suite.NewStore()
	require.NotNil(t, db)
	t.Cleanup(func() { _ = db.Close(context.Background()) })
	return db
}

// testContext returns a standard test context.
func testContext() context.Context {
	return context.Background()
}

// mustSave saves every document or fails the test.
func mustSave(t *testing.T, coll store.Collection, docs ...any) {
	t.Helper()
	for _, doc := range docs {
		require.NoError(t, coll.Save(testContext(), doc))
	}
}

// findAll runs Find and decodes every result into bson.M.
func findAll(t *testing.T, coll store.Collection, filter bson.M) []bson.M {
	t.Helper()
	cur, err := coll.Find(testContext(), filter)
	require.NoError(t, err)
	defer func() { _ = cur.Close(testContext()) }()

	var out []bson.M
	for cur.Next(testContext()) {
		var doc bson.M
		require.NoError(t, cur.Decode(&doc))
		out = append(out, doc)
	}
	require.NoError(t, cur.Err())
	return out
}

// ids extracts the _id of every document, in order.
func ids(docs []bson.M) []any {
	out := make([]any, len(docs))
	for i, doc := range docs {
		out[i] = doc["_id"]
	}
	return out
}
