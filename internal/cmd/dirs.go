package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/quartzlabs/shellbox/internal/config"
)

var dirsCmd = &cobra.Command{
	Use:   "dirs",
	Short: "Print directories used by shellbox",
	Long: `Print the directories where shellbox stores its configuration and data
files. This includes the global configuration directory and the per-project
data directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configOnly, _ := cmd.Flags().GetBool("config")
		dataOnly, _ := cmd.Flags().GetBool("data")

		if configOnly && dataOnly {
			return fmt.Errorf("cannot specify both --config and --data flags")
		}

		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		cfg, err := config.Load(cwd, false)
		if err != nil {
			return err
		}

		configDir := filepath.Dir(config.GlobalConfig())
		dataDir := cfg.DataDir()

		if configOnly {
			fmt.Println(configDir)
			return nil
		}
		if dataOnly {
			fmt.Println(dataDir)
			return nil
		}

		fmt.Printf("Config directory: %s\n", configDir)
		fmt.Printf("Data directory:   %s\n", dataDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dirsCmd)
	dirsCmd.Flags().Bool("config", false, "Print only the config directory")
	dirsCmd.Flags().Bool("data", false, "Print only the data directory")
}
