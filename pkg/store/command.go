package store

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
)

// ============================================================================
// Administrative Commands
// ============================================================================

const (
	// CommandFileMD5 computes the MD5 of a stored file from its chunks.
	CommandFileMD5 = "filemd5"

	// CommandPing checks the adapter is reachable.
	CommandPing = "ping"

	// DefaultCommandRoot is used when a filemd5 command carries no root.
	DefaultCommandRoot = "fs"
)

// CommandName returns the name of cmd (the key of its first element).
func CommandName(cmd bson.D) (string, error) {
	if len(cmd) == 0 {
		return "", fmt.Errorf("%w: empty command document", ErrInvalidCommand)
	}
	return cmd[0].Key, nil
}

// ExecuteCommand runs cmd against db using only the Collection interface.
// Embedded adapters delegate RunCommand here.
func ExecuteCommand(ctx context.Context, db Database, cmd bson.D) (bson.M, error) {
	name, err := CommandName(cmd)
	if err != nil {
		return nil, err
	}

	switch name {
	case CommandPing:
		return bson.M{"ok": 1}, nil

	case CommandFileMD5:
		root := DefaultCommandRoot
		for _, e := range cmd[1:] {
			if e.Key != "root" {
				continue
			}
			s, ok := e.Value.(string)
			if !ok || s == "" {
				return nil, fmt.Errorf("%w: filemd5 root must be a non-empty string", ErrInvalidCommand)
			}
			root = s
		}
		return FileMD5(ctx, db, root, cmd[0].Value)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCommand, name)
	}
}

type md5Chunk struct {
	N    int64  `bson:"n"`
	Data []byte `bson:"data"`
}

// FileMD5 hashes every chunk of fileID under root, ordered by n.
//
// Returns:
//   - bson.M{"md5": <lowercase hex>, "numChunks": <int32>}
//
// A file without chunks hashes to the MD5 of the empty string.
func FileMD5(ctx context.Context, db Database, root string, fileID any) (bson.M, error) {
	cur, err := db.Collection(root+".chunks").Find(ctx, bson.M{"files_id": fileID})
	if err != nil {
		return nil, fmt.Errorf("filemd5: find chunks: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	var chunks []md5Chunk
	for cur.Next(ctx) {
		var c md5Chunk
		if err := cur.Decode(&c); err != nil {
			return nil, fmt.Errorf("filemd5: decode chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("filemd5: iterate chunks: %w", err)
	}

	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].N < chunks[j].N })

	h := md5.New()
	for _, c := range chunks {
		h.Write(c.Data)
	}

	return bson.M{
		"md5":       hex.EncodeToString(h.Sum(nil)),
		"numChunks": int32(len(chunks)),
	}, nil
}
