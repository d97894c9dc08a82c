package badger

import (
	"fmt"
	"strings"
)

// Database Key Namespace Design
// ==============================
//
// BadgerDB is a key-value store, so documents, their _id lookup table and
// their unique-index entries live under prefixed keys. Every key starts with
// a one-letter namespace followed by the collection name:
//
// Data Type        Prefix   Key Format                          Value
// ==========================================================================
// Document         "d:"     d:<coll>:<seq>                      BSON document
// _id lookup       "i:"     i:<coll>:<idtoken>                  <seq>
// Unique index     "x:"     x:<coll>:<index>:<indextoken>       <seq>
// Index metadata   "m:"     m:<coll>:<index>                    BSON Index
//
// <seq> is a 16 digit hex sequence number drawn from a badger.Sequence, so a
// prefix scan over "d:<coll>:" yields documents in insertion order. Tokens
// come from store.EncodeKeyValue and store.IndexKey and contain only hex
// digits, single letters and "/", never ":".
//
// Example for one GridFS chunk:
//
//	d:fs.chunks:000000000000002a        -> {_id, files_id, n, data}
//	i:fs.chunks:o65f1c0...              -> 000000000000002a
//	x:fs.chunks:files_id_1_n_1:o65f1c0.../i8000000000000003/ -> 000000000000002a
//	m:fs.chunks:files_id_1_n_1          -> {keys: {files_id: 1, n: 1}, unique: true}

const (
	prefixDocument = "d:"
	prefixID       = "i:"
	prefixIndex    = "x:"
	prefixMeta     = "m:"

	// sequenceKey holds the document sequence lease.
	sequenceKey = "seq:documents"

	// sequenceBandwidth is how many sequence numbers are leased at a time.
	sequenceBandwidth = 1000
)

func formatSeq(seq uint64) string {
	return fmt.Sprintf("%016x", seq)
}

func keyDocumentPrefix(coll string) []byte {
	return []byte(prefixDocument + coll + ":")
}

func keyDocument(coll, seq string) []byte {
	return []byte(prefixDocument + coll + ":" + seq)
}

func keyID(coll, idToken string) []byte {
	return []byte(prefixID + coll + ":" + idToken)
}

func keyIndexEntry(coll, index, token string) []byte {
	return []byte(prefixIndex + coll + ":" + index + ":" + token)
}

func keyMetaPrefix(coll string) []byte {
	return []byte(prefixMeta + coll + ":")
}

func keyMeta(coll, index string) []byte {
	return []byte(prefixMeta + coll + ":" + index)
}

// validCollectionName rejects names that would break prefix scans.
func validCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("badger: empty collection name")
	}
	if strings.Contains(name, ":") {
		return fmt.Errorf("badger: collection name %q must not contain ':'", name)
	}
	return nil
}
