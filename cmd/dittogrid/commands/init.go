package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittogrid/pkg/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a commented configuration file with every default filled in.

Without --path the file goes to the default location, which is also where
the other commands look for it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		path, _ := cmd.Flags().GetString("path")

		if path == "" {
			written, err := config.InitConfig(force)
			if err != nil {
				return err
			}
			path = written
		} else if err := config.InitConfigToPath(path, force); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().Bool("force", false, "overwrite an existing file")
	initCmd.Flags().String("path", "", "write to this path instead of the default location")
	rootCmd.AddCommand(initCmd)
}
