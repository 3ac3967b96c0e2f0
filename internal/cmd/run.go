package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/quartzlabs/shellbox/internal/agent"
	"github.com/quartzlabs/shellbox/internal/agent/tools"
	"github.com/quartzlabs/shellbox/internal/config"
	"github.com/quartzlabs/shellbox/internal/permission"
	"github.com/quartzlabs/shellbox/internal/task"
)

var runCmd = &cobra.Command{
	Use:   "run <command>",
	Short: "Run a shell command through the security and approval gate",
	Example: `
# Run a command in the foreground
shellbox run "go test ./..."

# Run a long-lived command in the background and wait for it
shellbox run --background --wait "sleep 5 && echo done"

# Auto-approve everything except always-interactive commands
shellbox run --yolo "make build"
  `,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if yolo, _ := cmd.Flags().GetBool("yolo"); yolo {
			cfg.ApprovalMode = config.ApprovalYOLO
			cfg.Permissions.SkipRequests = true
		}

		session := agent.NewSession(cfg, permission.WithDecisionFunc(promptApproval))
		defer session.Close()

		background, _ := cmd.Flags().GetBool("background")
		wait, _ := cmd.Flags().GetBool("wait")
		timeout, _ := cmd.Flags().GetInt("timeout")
		verbose, _ := cmd.Flags().GetBool("verbose")

		input, err := json.Marshal(tools.BashParams{
			Command:         args[0],
			Timeout:         timeout,
			RunInBackground: background,
		})
		if err != nil {
			return err
		}

		resp, err := session.RunTool(cmd.Context(), tools.BashToolName, string(input))
		if err != nil {
			return err
		}
		fmt.Println(resp.Content)

		var meta tools.BashResponseMetadata
		if resp.Metadata != "" {
			_ = json.Unmarshal([]byte(resp.Metadata), &meta)
		}
		if verbose && meta.Diagnostics != "" {
			fmt.Fprintln(os.Stderr, "\n"+meta.Diagnostics)
		}

		if meta.TaskID != "" && wait {
			return waitForTask(session, meta.TaskID)
		}
		if resp.IsError {
			return fmt.Errorf("command failed")
		}
		return nil
	},
}

// waitForTask polls the background task until it reaches a terminal state,
// then prints its accumulated output.
func waitForTask(session *agent.Session, taskID string) error {
	for {
		snap, ok := session.Tasks.Get(taskID)
		if !ok {
			return fmt.Errorf("task %s disappeared", taskID)
		}
		if snap.Status.Terminal() {
			fmt.Println(snap.Output)
			if snap.Status != task.StatusCompleted {
				return fmt.Errorf("task %s finished with status %s", taskID, snap.Status)
			}
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
}

// promptApproval asks the user on the terminal.
func promptApproval(req permission.PermissionRequest) permission.Decision {
	fmt.Fprintf(os.Stderr, "%s wants to %s: %s\nAllow? [y/N] ", req.ToolName, req.Action, req.Description)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return permission.Decision{DenyReason: "could not read approval"}
	}
	if s := strings.ToLower(strings.TrimSpace(answer)); s == "y" || s == "yes" {
		return permission.Decision{Approved: true}
	}
	return permission.Decision{DenyReason: "denied by user"}
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolP("background", "b", false, "Run the command as a background task")
	runCmd.Flags().Bool("wait", false, "Wait for a background task to finish before exiting")
	runCmd.Flags().Int("timeout", 0, "Timeout in milliseconds")
	runCmd.Flags().BoolP("verbose", "v", false, "Print the diagnostic block to stderr")
	runCmd.Flags().Bool("yolo", false, "Skip approval prompts for everything but always-interactive commands")
}
