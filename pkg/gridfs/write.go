package gridfs

import (
	"context"
	"strings"
	"time"
)

// Write stores p at the current position, overwriting existing bytes and
// extending the file past its end.
//
// Data stays in memory until the current chunk fills up: when p crosses a
// chunk boundary the prefix completes the current chunk, which is persisted,
// and the rest continues in the next one. The final partial chunk is
// persisted by Close.
//
// Returns the number of bytes accepted. On a backing-store failure the bytes
// before the failing chunk remain accepted.
func (gs *GridStore) Write(ctx context.Context, p []byte) (n int, err error) {
	defer gs.observe("write", time.Now(), &err)

	if err := gs.checkWritable(); err != nil {
		return 0, err
	}

	cs := int(gs.record.ChunkSize)
	for len(p) > 0 {
		room := cs - gs.chunk.cursor
		if len(p) <= room {
			gs.chunk.write(p)
			gs.advance(len(p))
			n += len(p)
			break
		}

		// Fill the current chunk, persist it, continue in the next one
		gs.chunk.write(p[:room])
		gs.advance(room)
		n += room
		if err := gs.flush(ctx); err != nil {
			return n, err
		}
		if err := gs.selectChunk(ctx, gs.chunk.n+1, 0); err != nil {
			return n, err
		}
		p = p[room:]
	}

	gs.metrics.RecordBytesWritten(n)
	return n, nil
}

// WriteAndClose writes p and closes the handle.
func (gs *GridStore) WriteAndClose(ctx context.Context, p []byte) (int, error) {
	n, err := gs.Write(ctx, p)
	if err != nil {
		return n, err
	}
	return n, gs.Close(ctx)
}

// Puts writes line, adding a trailing newline when it has none.
func (gs *GridStore) Puts(ctx context.Context, line string) error {
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	_, err := gs.Write(ctx, []byte(line))
	return err
}

func (gs *GridStore) advance(n int) {
	gs.position += int64(n)
	if gs.position > gs.extent {
		gs.extent = gs.position
	}
}
