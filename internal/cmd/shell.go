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
	"github.com/quartzlabs/shellbox/internal/permission"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive session with background task management",
	Long: `Start an interactive session. Each line is run through the security and
approval gate; commands that keep producing output are moved to the background
automatically and tracked as tasks.

Session commands:
  :tasks        list background tasks
  :output <id>  show a task's accumulated output
  :kill <id>    terminate a running task
  :quit         end the session`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		session := agent.NewSession(cfg, permission.WithDecisionFunc(promptApproval))
		defer session.Close()

		// Long-running foreground commands get offered a background move;
		// accept every offer so the prompt stays responsive.
		go func() {
			for ev := range session.Controller.SubscribeOffers(cmd.Context()) {
				if taskID, ok := session.Controller.Accept(ev.Payload.ID); ok {
					fmt.Fprintf(os.Stderr, "\nmoved to background as task %s\n", taskID)
				}
			}
		}()

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("shellbox> ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			switch {
			case line == "":
			case line == ":quit" || line == ":exit":
				return nil
			case line == ":tasks":
				listTasks(session)
			case strings.HasPrefix(line, ":output "):
				runSessionTool(session, cmd, tools.TaskOutputToolName, taskInput(line))
			case strings.HasPrefix(line, ":kill "):
				runSessionTool(session, cmd, tools.TaskKillToolName, taskInput(line))
			default:
				input, err := json.Marshal(tools.BashParams{Command: line})
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					continue
				}
				runSessionTool(session, cmd, tools.BashToolName, string(input))
			}
		}
	},
}

func taskInput(line string) string {
	_, id, _ := strings.Cut(line, " ")
	input, _ := json.Marshal(tools.TaskOutputParams{TaskID: strings.TrimSpace(id)})
	return string(input)
}

func listTasks(session *agent.Session) {
	snaps := session.Tasks.List()
	if len(snaps) == 0 {
		fmt.Println("no background tasks")
		return
	}
	for _, snap := range snaps {
		fmt.Printf("%s  %-9s  %s  %s\n", snap.ID, snap.Status, snap.CreatedAt.Format(time.TimeOnly), snap.Command)
	}
}

func runSessionTool(session *agent.Session, cmd *cobra.Command, name, input string) {
	resp, err := session.RunTool(cmd.Context(), name, input)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	if resp.IsError {
		fmt.Fprintln(os.Stderr, resp.Content)
		return
	}
	fmt.Println(resp.Content)
}

func init() {
	rootCmd.AddCommand(shellCmd)
}
