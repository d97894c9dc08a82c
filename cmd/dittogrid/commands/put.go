package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittogrid/pkg/gridfs"
)

var putCmd = &cobra.Command{
	Use:   "put <file> [name]",
	Short: "Store a local file under a name",
	Long: `Store a local file, replacing any stored file with the same name.

The name defaults to the base name of <file>. Use "-" as <file> to read
stdin; a name is then required.

Examples:
  dittogrid put ./photo.jpg --content-type image/jpeg
  pg_dump mydb | dittogrid put - backups/mydb.sql --chunk-size 1048576`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCopyIn(cmd, args, false)
	},
}

var appendCmd = &cobra.Command{
	Use:   "append <file> <name>",
	Short: "Append a local file to a stored file",
	Long: `Append the content of a local file (or stdin with "-") to a stored
file, creating it when it does not exist yet.

Content type and chunk size only apply when the file is created.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCopyIn(cmd, args, true)
	},
}

func runCopyIn(cmd *cobra.Command, args []string, appendMode bool) error {
	src := args[0]
	name := ""
	if len(args) > 1 {
		name = args[1]
	}
	if name == "" {
		if src == "-" {
			return fmt.Errorf("a name is required when reading stdin")
		}
		name = filepath.Base(src)
	}

	contentType, _ := cmd.Flags().GetString("content-type")
	chunkSize, _ := cmd.Flags().GetInt("chunk-size")
	opts := &gridfs.OpenOptions{ContentType: contentType, ChunkSize: chunkSize}

	r, closeInput, err := openInput(cmd, src)
	if err != nil {
		return err
	}
	defer closeInput()

	bucket, closeBucket, err := openBucket(cmd)
	if err != nil {
		return err
	}
	defer closeBucket()

	var record *gridfs.FileRecord
	if appendMode {
		record, err = bucket.Append(cmd.Context(), name, r, opts)
	} else {
		record, err = bucket.Put(cmd.Context(), name, r, opts)
	}
	if err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d bytes in %d chunks, md5 %s\n",
		record.Filename, record.Length, record.NumChunks(), record.MD5)
	return nil
}

// openInput opens src for reading; "-" is the command's stdin.
func openInput(cmd *cobra.Command, src string) (io.Reader, func(), error) {
	if src == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(src)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func init() {
	for _, c := range []*cobra.Command{putCmd, appendCmd} {
		c.Flags().String("content-type", "", "content type of a new file (default from gridfs.content_type)")
		c.Flags().Int("chunk-size", 0, "chunk size in bytes of a new file (default from gridfs.chunk_size)")
		rootCmd.AddCommand(c)
	}
}
