package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quartzlabs/shellbox/internal/config"
	"github.com/quartzlabs/shellbox/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "shellbox",
	Short: "Safe shell execution for autonomous agents",
	Long: `Shellbox lets an autonomous agent issue shell commands on a host machine
safely, coordinating foreground and background execution behind a layered
security and approval gate.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringP("cwd", "c", "", "Working directory for command execution")
}

// loadConfig resolves the working directory and loads configuration, setting
// up logging as a side effect.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	debug, _ := cmd.Flags().GetBool("debug")
	cwd, _ := cmd.Flags().GetString("cwd")
	if cwd == "" {
		var err error
		cwd, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("could not determine working directory: %w", err)
		}
	}
	cfg, err := config.Load(cwd, debug)
	if err != nil {
		return nil, err
	}
	log.Setup(cfg.DataDir(), cfg.Options.Debug)
	return cfg, nil
}
