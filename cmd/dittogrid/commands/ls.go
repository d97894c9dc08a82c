package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/dittogrid/pkg/gridfs"
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored file names",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bucket, closeBucket, err := openBucket(cmd)
		if err != nil {
			return err
		}
		defer closeBucket()

		names, err := bucket.ListAll(cmd.Context())
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

// statView is the printable form of a file record.
type statView struct {
	ID          string   `yaml:"id"`
	Filename    string   `yaml:"filename"`
	ContentType string   `yaml:"content_type"`
	Length      int64    `yaml:"length"`
	ChunkSize   int32    `yaml:"chunk_size"`
	Chunks      int64    `yaml:"chunks"`
	UploadDate  string   `yaml:"upload_date,omitempty"`
	MD5         string   `yaml:"md5,omitempty"`
	Aliases     []string `yaml:"aliases,omitempty"`
	Metadata    string   `yaml:"metadata,omitempty"`
}

func newStatView(r *gridfs.FileRecord) statView {
	v := statView{
		ID:          r.ID.Hex(),
		Filename:    r.Filename,
		ContentType: r.ContentType,
		Length:      r.Length,
		ChunkSize:   r.ChunkSize,
		Chunks:      r.NumChunks(),
		MD5:         r.MD5,
	}
	if r.UploadDate != nil {
		v.UploadDate = r.UploadDate.Format(time.RFC3339Nano)
	}
	if aliases, ok := r.Aliases.(bson.A); ok {
		for _, a := range aliases {
			v.Aliases = append(v.Aliases, fmt.Sprint(a))
		}
	} else if r.Aliases != nil {
		v.Aliases = []string{fmt.Sprint(r.Aliases)}
	}
	if r.Metadata != nil {
		if doc, err := bson.MarshalExtJSON(r.Metadata, false, false); err == nil {
			v.Metadata = string(doc)
		} else {
			v.Metadata = fmt.Sprint(r.Metadata)
		}
	}
	return v
}

var statCmd = &cobra.Command{
	Use:   "stat <name>",
	Short: "Show the record of a stored file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bucket, closeBucket, err := openBucket(cmd)
		if err != nil {
			return err
		}
		defer closeBucket()

		record, err := bucket.Stat(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(newStatView(record)); err != nil {
			return err
		}
		return enc.Close()
	},
}

var existsCmd = &cobra.Command{
	Use:   "exists <name>",
	Short: "Report whether a file is stored",
	Long: `Print "true" or "false". With --quiet nothing is printed and the exit
status tells instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		quiet, _ := cmd.Flags().GetBool("quiet")

		bucket, closeBucket, err := openBucket(cmd)
		if err != nil {
			return err
		}
		defer closeBucket()

		ok, err := bucket.Exists(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if quiet {
			if !ok {
				return ErrSilent
			}
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), ok)
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <name>...",
	Short: "Remove stored files",
	Long:  `Remove each named file with all of its chunks. Missing names are ignored.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bucket, closeBucket, err := openBucket(cmd)
		if err != nil {
			return err
		}
		defer closeBucket()

		return bucket.Unlink(cmd.Context(), args...)
	},
}

func init() {
	existsCmd.Flags().BoolP("quiet", "q", false, "report through the exit status only")

	rootCmd.AddCommand(lsCmd, statCmd, existsCmd, rmCmd)
}
