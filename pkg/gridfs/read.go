package gridfs

import (
	"context"
	"strings"
	"time"
)

// Read returns up to n bytes from the current position.
//
// A negative n reads to the end of the file. Requests are clamped to the
// bytes remaining; at end of file Read returns nil and no error. The stream
// moves across chunk boundaries, loading each chunk as it is reached.
//
// Errors:
//   - ErrMissingChunk: the record's length needs a chunk that is not stored
//   - ErrBackingStore: wrapping the adapter's error
func (gs *GridStore) Read(ctx context.Context, n int) (data []byte, err error) {
	defer gs.observe("read", time.Now(), &err)

	if err := gs.checkReadable(); err != nil {
		return nil, err
	}

	remaining := gs.extent - gs.position
	if remaining <= 0 {
		return nil, nil
	}
	want := remaining
	if n >= 0 && int64(n) < remaining {
		want = int64(n)
	}
	if want == 0 {
		return nil, nil
	}

	cs := int64(gs.record.ChunkSize)
	out := make([]byte, 0, want)
	for int64(len(out)) < want {
		if gs.chunk.remaining() == 0 {
			if err := gs.selectChunk(ctx, gs.position/cs, int(gs.position%cs)); err != nil {
				return nil, err
			}
			if gs.chunk.remaining() == 0 {
				return nil, ErrMissingChunk
			}
		}

		part := gs.chunk.read(int(want) - len(out))
		out = append(out, part...)
		gs.position += int64(len(part))
	}

	gs.metrics.RecordBytesRead(len(out))
	return out, nil
}

// ReadAll reads from the current position to the end of the file.
func (gs *GridStore) ReadAll(ctx context.Context) ([]byte, error) {
	return gs.Read(ctx, -1)
}

// Getc reads a single byte. ok is false at end of file.
func (gs *GridStore) Getc(ctx context.Context) (b byte, ok bool, err error) {
	data, err := gs.Read(ctx, 1)
	if err != nil || len(data) == 0 {
		return 0, false, err
	}
	return data[0], true, nil
}

// Readlines reads the rest of the file and splits it after every separator.
//
// Every line keeps its separator except a trailing fragment, which is
// returned as-is. A file ending in a separator yields no empty last line.
// An empty sep means "\n".
func (gs *GridStore) Readlines(ctx context.Context, sep string) ([]string, error) {
	data, err := gs.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	return splitLines(string(data), sep), nil
}

func splitLines(s, sep string) []string {
	if sep == "" {
		sep = "\n"
	}
	lines := strings.Split(s, sep)
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i := range lines {
		lines[i] += sep
	}
	return lines
}
