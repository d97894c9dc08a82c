package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <name> [file]",
	Short: "Copy a stored file to a local file or stdout",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		bucket, closeBucket, err := openBucket(cmd)
		if err != nil {
			return err
		}
		defer closeBucket()

		var w io.Writer = cmd.OutOrStdout()
		if len(args) > 1 && args[1] != "-" {
			f, err := os.Create(args[1])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			w = f
		}

		if _, err := bucket.Get(cmd.Context(), name, w); err != nil {
			return fmt.Errorf("get %s: %w", name, err)
		}
		return nil
	},
}

var catCmd = &cobra.Command{
	Use:   "cat <name>",
	Short: "Print a byte range of a stored file",
	Long: `Print --length bytes of a stored file starting at --offset.
A negative length prints to the end. A missing file prints nothing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		offset, _ := cmd.Flags().GetInt64("offset")
		length, _ := cmd.Flags().GetInt("length")

		bucket, closeBucket, err := openBucket(cmd)
		if err != nil {
			return err
		}
		defer closeBucket()

		data, err := bucket.ReadFile(cmd.Context(), args[0], length, offset)
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var linesCmd = &cobra.Command{
	Use:   "lines <name>",
	Short: "Print a stored file line by line",
	Long: `Split a stored file after each --separator and print the pieces
numbered, one per line, without the separator.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sep, _ := cmd.Flags().GetString("separator")

		bucket, closeBucket, err := openBucket(cmd)
		if err != nil {
			return err
		}
		defer closeBucket()

		lines, err := bucket.ReadLines(cmd.Context(), args[0], sep)
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		for i, line := range lines {
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", i+1, strings.TrimSuffix(line, sep))
		}
		return nil
	},
}

func init() {
	catCmd.Flags().Int64("offset", 0, "byte offset to start from")
	catCmd.Flags().Int("length", -1, "number of bytes to print (negative = to the end)")
	linesCmd.Flags().String("separator", "\n", "line separator")

	rootCmd.AddCommand(getCmd, catCmd, linesCmd)
}
