package gridfs

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FileRecord is the document describing one stored file in <root>.files.
//
// Metadata and Aliases are opaque: whatever the writer stored comes back
// through the BSON decoder (documents decode as bson.D, arrays as bson.A).
type FileRecord struct {
	ID          primitive.ObjectID `bson:"_id"`
	Filename    string             `bson:"filename"`
	ContentType string             `bson:"contentType"`
	Length      int64              `bson:"length"`
	ChunkSize   int32              `bson:"chunkSize"`
	UploadDate  *time.Time         `bson:"uploadDate,omitempty"`
	Aliases     any                `bson:"aliases,omitempty"`
	Metadata    any                `bson:"metadata,omitempty"`
	MD5         string             `bson:"md5,omitempty"`
}

// NumChunks returns how many chunks the record's length spans.
func (r *FileRecord) NumChunks() int64 {
	if r.Length == 0 || r.ChunkSize <= 0 {
		return 0
	}
	return (r.Length + int64(r.ChunkSize) - 1) / int64(r.ChunkSize)
}

// filesCollection and chunksCollection name the two collections under root.
func filesCollection(root string) string  { return root + ".files" }
func chunksCollection(root string) string { return root + ".chunks" }
