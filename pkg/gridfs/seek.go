package gridfs

import (
	"context"
	"time"
)

// Seek moves the position to offset relative to whence and returns the new
// position.
//
// whence is SeekSet, SeekCur or SeekEnd. The target must lie in
// [0, Length()]; in write modes the end is the furthest byte written so
// far. When the target falls in another chunk, write modes persist the
// current chunk first if it holds unsaved bytes.
func (gs *GridStore) Seek(ctx context.Context, offset int64, whence int) (pos int64, err error) {
	defer gs.observe("seek", time.Now(), &err)

	if err := gs.checkOpen(); err != nil {
		return gs.position, err
	}

	var target int64
	switch whence {
	case SeekSet:
		target = offset
	case SeekCur:
		target = gs.position + offset
	case SeekEnd:
		target = gs.extent + offset
	default:
		return gs.position, ErrInvalidWhence
	}
	if target < 0 || target > gs.extent {
		return gs.position, ErrInvalidOffset
	}

	if err := gs.moveTo(ctx, target); err != nil {
		return gs.position, err
	}
	return gs.position, nil
}

// Rewind returns to the start of the file.
//
// In write modes the stored chunks are deleted and writing restarts from
// an empty file.
func (gs *GridStore) Rewind(ctx context.Context) (err error) {
	defer gs.observe("rewind", time.Now(), &err)

	if err := gs.checkOpen(); err != nil {
		return err
	}

	if gs.mode == ModeRead {
		return gs.moveTo(ctx, 0)
	}

	if err := gs.deleteChunks(ctx); err != nil {
		return err
	}
	gs.position = 0
	gs.extent = 0
	gs.maxOrdinal = -1
	gs.chunk = newChunk(gs.record.ID, 0)
	return nil
}

// moveTo positions the stream at target, switching chunks as needed.
func (gs *GridStore) moveTo(ctx context.Context, target int64) error {
	cs := int64(gs.record.ChunkSize)
	ordinal := target / cs

	if ordinal != gs.chunk.n && gs.mode.Writable() {
		if err := gs.flush(ctx); err != nil {
			return err
		}
	}
	if err := gs.selectChunk(ctx, ordinal, int(target%cs)); err != nil {
		return err
	}
	gs.position = target
	return nil
}
