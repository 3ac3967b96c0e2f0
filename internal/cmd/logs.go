package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/nxadm/tail"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the shellbox log file",
	Long:  `Print the rotated log file, optionally following new entries as they arrive.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		follow, _ := cmd.Flags().GetBool("follow")

		logFile := filepath.Join(cfg.DataDir(), "logs", "shellbox.log")
		t, err := tail.TailFile(logFile, tail.Config{
			Follow: follow,
			ReOpen: follow,
		})
		if err != nil {
			return fmt.Errorf("could not tail log file %s: %w", logFile, err)
		}
		for line := range t.Lines {
			if line.Err != nil {
				return line.Err
			}
			fmt.Println(line.Text)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().BoolP("follow", "f", false, "Follow the log output")
}
