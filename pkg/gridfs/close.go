package gridfs

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/marmos91/dittogrid/internal/logger"
	"github.com/marmos91/dittogrid/pkg/store"
)

// Close finalizes a write handle: the last chunk is persisted, the checksum
// is computed by the backing store and the file record is saved.
//
// Close on a read handle returns ErrNotWritable and leaves it open. After a
// successful Close every stream operation returns ErrNotOpen.
//
// Steps:
//  1. Persist the current chunk if it holds unsaved bytes
//  2. Set length to the logical end of the data
//  3. Keep the uploadDate of an existing record or stamp a new one
//  4. Run filemd5 over the chunks and save the record over the previous one
//
// A failure in steps 1 or 4 leaves the handle open and the stored record as
// it was.
func (gs *GridStore) Close(ctx context.Context) (err error) {
	defer gs.observe("close", time.Now(), &err)

	if err := gs.checkWritable(); err != nil {
		return err
	}

	// Step 1: last chunk
	if err := gs.flush(ctx); err != nil {
		return err
	}

	// Step 2: length
	record := gs.record
	record.Length = gs.extent

	// Step 3: upload date
	if record.UploadDate == nil {
		now := time.Now().UTC().Truncate(time.Millisecond)
		record.UploadDate = &now
	}

	// Step 4: checksum and record
	sum, err := fileMD5(ctx, gs.db, gs.root, record.ID)
	if err != nil {
		return err
	}
	record.MD5 = sum

	if err := gs.files().Save(ctx, record); err != nil {
		return storeError("save file", err)
	}

	gs.record = record
	gs.state = stateClosed
	logger.Debug("gridfs: closed %q (id=%s, length=%d, md5=%s)",
		gs.filename, gs.record.ID.Hex(), gs.record.Length, gs.record.MD5)
	return nil
}

// fileMD5 asks the backing store for the checksum of the file's chunks.
func fileMD5(ctx context.Context, db store.Database, root string, id primitive.ObjectID) (string, error) {
	result, err := db.RunCommand(ctx, bson.D{
		{Key: store.CommandFileMD5, Value: id},
		{Key: "root", Value: root},
	})
	if err != nil {
		return "", storeError("filemd5", err)
	}

	sum, ok := result["md5"].(string)
	if !ok {
		return "", storeError("filemd5", fmt.Errorf("unexpected result %v", result))
	}
	return sum, nil
}
