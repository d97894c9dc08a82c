package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func mustRaw(t *testing.T, doc any) bson.Raw {
	t.Helper()
	raw, err := MarshalDocument(doc)
	require.NoError(t, err)
	return raw
}

func TestMatch(t *testing.T) {
	oid := primitive.NewObjectID()
	doc := mustRaw(t, bson.M{
		"_id":      oid,
		"filename": "a.txt",
		"n":        int32(7),
		"length":   int64(1024),
		"ratio":    0.5,
		"empty":    nil,
	})

	tests := []struct {
		name   string
		filter bson.M
		want   bool
	}{
		{"nil filter", nil, true},
		{"empty filter", bson.M{}, true},
		{"string equal", bson.M{"filename": "a.txt"}, true},
		{"string differs", bson.M{"filename": "b.txt"}, false},
		{"object id", bson.M{"_id": oid}, true},
		{"other object id", bson.M{"_id": primitive.NewObjectID()}, false},
		{"int32 vs int64", bson.M{"n": int64(7)}, true},
		{"int32 vs double", bson.M{"n": 7.0}, true},
		{"int64 vs int", bson.M{"length": 1024}, true},
		{"double", bson.M{"ratio": 0.5}, true},
		{"double vs int", bson.M{"ratio": 0}, false},
		{"nil matches missing", bson.M{"uploadDate": nil}, true},
		{"nil matches null", bson.M{"empty": nil}, true},
		{"nil does not match present", bson.M{"filename": nil}, false},
		{"value does not match missing", bson.M{"uploadDate": "x"}, false},
		{"all fields", bson.M{"filename": "a.txt", "n": 7}, true},
		{"one field wrong", bson.M{"filename": "a.txt", "n": 8}, false},
		{"type mismatch", bson.M{"filename": 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Match(doc, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeKeyValue(t *testing.T) {
	enc := func(v any) string {
		rv, err := RawValueOf(v)
		require.NoError(t, err)
		return EncodeKeyValue(rv)
	}

	t.Run("numbers normalize", func(t *testing.T) {
		assert.Equal(t, enc(int32(5)), enc(int64(5)))
		assert.Equal(t, enc(int32(5)), enc(5.0))
		assert.NotEqual(t, enc(5.0), enc(5.5))
	})

	t.Run("integers preserve order", func(t *testing.T) {
		values := []int64{-300, -1, 0, 1, 2, 255, 256, 1 << 40}
		for i := 1; i < len(values); i++ {
			assert.Less(t, enc(values[i-1]), enc(values[i]))
		}
	})

	t.Run("tokens are separator free", func(t *testing.T) {
		for _, v := range []any{"a/b:c", primitive.NewObjectID(), true, 1.25, int32(-4)} {
			token := enc(v)
			assert.False(t, strings.ContainsAny(token, "/:"), "token %q", token)
		}
	})

	t.Run("strings and ids differ", func(t *testing.T) {
		oid := primitive.NewObjectID()
		assert.NotEqual(t, enc(oid.Hex()), enc(oid))
		assert.Equal(t, "o"+oid.Hex(), enc(oid))
	})
}

func TestIndexAndFilterKeys(t *testing.T) {
	idx := Index{Keys: bson.D{{Key: "files_id", Value: 1}, {Key: "n", Value: 1}}, Unique: true}
	assert.Equal(t, "files_id_1_n_1", idx.Name())
	assert.Equal(t, []string{"files_id", "n"}, idx.Fields())

	file := primitive.NewObjectID()
	doc := mustRaw(t, bson.M{"_id": "x", "files_id": file, "n": int32(3)})
	docKey := IndexKey(idx, doc)

	full, complete, ok, err := FilterKey(idx, bson.M{"files_id": file, "n": int64(3)})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, complete)
	assert.Equal(t, docKey, full)

	prefix, complete, ok, err := FilterKey(idx, bson.M{"files_id": file})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, complete)
	assert.True(t, strings.HasPrefix(docKey, prefix))

	_, _, ok, err = FilterKey(idx, bson.M{"n": 3})
	require.NoError(t, err)
	assert.False(t, ok, "filter without the leading field cannot use the index")
}

func TestBestIndex(t *testing.T) {
	filesIdx := Index{Keys: bson.D{{Key: "filename", Value: 1}}}
	chunkIdx := Index{Keys: bson.D{{Key: "files_id", Value: 1}, {Key: "n", Value: 1}}, Unique: true}

	_, _, _, found, err := BestIndex([]Index{filesIdx, chunkIdx}, bson.M{"filename": "a"})
	require.NoError(t, err)
	assert.False(t, found, "non-unique indexes are never used for lookups")

	idx, _, complete, found, err := BestIndex([]Index{filesIdx, chunkIdx}, bson.M{"files_id": "f", "n": 0})
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, complete)
	assert.Equal(t, "files_id_1_n_1", idx.Name())
}

func TestIDKey(t *testing.T) {
	_, err := IDKey(mustRaw(t, bson.M{"filename": "x"}))
	assert.ErrorIs(t, err, ErrMissingID)

	key, err := IDKey(mustRaw(t, bson.M{"_id": int32(9)}))
	require.NoError(t, err)
	other, err := IDKey(mustRaw(t, bson.M{"_id": int64(9)}))
	require.NoError(t, err)
	assert.Equal(t, key, other)
}
