package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quartzlabs/shellbox/internal/config"
	"github.com/quartzlabs/shellbox/internal/permission"
	"github.com/quartzlabs/shellbox/internal/shell"
	"github.com/quartzlabs/shellbox/internal/task"
)

const BashToolName = "bash"

type BashParams struct {
	Command         string `json:"command"`
	Timeout         int    `json:"timeout"`
	RunInBackground bool   `json:"run_in_background"`
	Description     string `json:"description"`
}

type BashPermissionsParams struct {
	Command string `json:"command"`
	Timeout int    `json:"timeout"`
}

type BashResponseMetadata struct {
	StartTime      int64  `json:"start_time"`
	EndTime        int64  `json:"end_time"`
	Diagnostics    string `json:"diagnostics,omitempty"`
	TaskID         string `json:"task_id,omitempty"`
	InitialOutput  string `json:"initial_output,omitempty"`
	ExitCode       int    `json:"exit_code"`
	Cancelled      bool   `json:"cancelled,omitempty"`
	BackgroundPIDs []int  `json:"background_pids,omitempty"`
}

type bashTool struct {
	permissions permission.Service
	runner      *shell.Runner
	controller  *task.Controller
	workingDir  string
}

const bashDescription = `Executes a shell command on the host machine.

WHEN TO USE THIS TOOL:
- Run builds, tests, linters, and other project tooling
- Inspect the repository or system state with read-only commands
- Start long-running processes in the background with run_in_background

HOW TO USE:
- Provide the command to execute; an optional timeout in milliseconds caps
  how long it may run
- Set run_in_background for servers, watchers, and anything long-lived; the
  response then carries a task id for the task_output and task_kill tools
- Provide a short description of what the command does

LIMITATIONS:
- Command substitution with $(...) or backticks is rejected
- Dangerous and network-fetching commands require explicit user approval
- Output is truncated beyond the configured limit

TIPS:
- Commands that produce output for a while may be offered to continue in the
  background; accepting moves them to the task registry without losing output`

// NewBashTool creates the shell-execution tool and registers its risk
// predicate with the approval gate.
func NewBashTool(permissions permission.Service, workingDir string, controller *task.Controller) BaseTool {
	t := &bashTool{
		permissions: permissions,
		runner:      shell.NewRunner(),
		controller:  controller,
		workingDir:  workingDir,
	}
	permissions.RegisterRiskFunc(BashToolName, func(req permission.CreatePermissionRequest) bool {
		params, ok := req.Params.(BashPermissionsParams)
		if !ok {
			return true
		}
		risk := shell.Classify(params.Command)
		if risk.IsHighRisk || risk.IsBanned {
			return true
		}
		return !shell.IsSafeReadOnly(params.Command)
	})
	return t
}

func (b *bashTool) Name() string {
	return BashToolName
}

func (b *bashTool) Info() ToolInfo {
	return ToolInfo{
		Name:        BashToolName,
		Description: bashDescription,
		Parameters: map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "The command to execute",
			},
			"timeout": map[string]any{
				"type":        "number",
				"description": "Optional timeout in milliseconds",
			},
			"run_in_background": map[string]any{
				"type":        "boolean",
				"description": "Run the command as a background task and return its task id",
			},
			"description": map[string]any{
				"type":        "string",
				"description": "A short, one-line description of what the command does",
			},
		},
		Required: []string{"command"},
	}
}

func (b *bashTool) Run(ctx context.Context, call ToolCall) (ToolResponse, error) {
	var params BashParams
	if err := json.Unmarshal([]byte(call.Input), &params); err != nil {
		return NewTextErrorResponse(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}

	// Mandatory gate, before approval and before any process spawns.
	if msg := shell.ValidateCommand(params.Command); msg != "" {
		return NewTextErrorResponse(msg), nil
	}

	risk := shell.Classify(params.Command)
	category := permission.CategoryExecute
	if shell.IsSafeReadOnly(params.Command) {
		category = permission.CategoryRead
	}
	if risk.IsHighRisk || risk.IsBanned {
		// Hard override: always-interactive, so no ambient mode or
		// allow-list ever bypasses the prompt.
		category = permission.CategoryInteractive
	}

	sessionID, callID := GetContextValues(ctx)
	decision := b.permissions.RequestDecision(permission.CreatePermissionRequest{
		SessionID:   sessionID,
		ToolCallID:  callID,
		ToolName:    BashToolName,
		Description: permissionDescription(params, risk),
		Action:      "execute",
		Category:    category,
		Path:        b.workingDir,
		Params: BashPermissionsParams{
			Command: params.Command,
			Timeout: params.Timeout,
		},
	})
	if !decision.Approved {
		reason := decision.DenyReason
		if reason == "" {
			reason = "permission denied"
		}
		return NewTextErrorResponse(fmt.Sprintf("Command %q was not approved: %s", params.Command, reason)), nil
	}
	if modified, ok := decision.ModifiedParams.(BashPermissionsParams); ok {
		params.Command = modified.Command
		params.Timeout = modified.Timeout
	}

	startTime := time.Now()
	exe, err := b.runner.Start(ctx, params.Command, b.workingDir, resolveTimeout(params.Timeout))
	if err != nil {
		return NewTextErrorResponse(fmt.Sprintf("Failed to start command: %v", err)), nil
	}

	outcome := b.controller.Supervise(ctx, exe, params.Command, params.RunInBackground)
	if outcome.Background() {
		content := fmt.Sprintf("Command is running in the background with task ID %s.\nUse the %s tool to read its output and %s to stop it.",
			outcome.TaskID, TaskOutputToolName, TaskKillToolName)
		return WithResponseMetadata(NewTextResponse(content), BashResponseMetadata{
			StartTime:     startTime.UnixMilli(),
			EndTime:       time.Now().UnixMilli(),
			TaskID:        outcome.TaskID,
			InitialOutput: outcome.InitialOutput,
		}), nil
	}

	res := outcome.Result
	limit := config.MaxOutputLength()
	metadata := BashResponseMetadata{
		StartTime:      startTime.UnixMilli(),
		EndTime:        time.Now().UnixMilli(),
		Diagnostics:    formatDiagnostics(params.Command, b.workingDir, res),
		ExitCode:       res.ExitCode,
		Cancelled:      res.Cancelled,
		BackgroundPIDs: res.BackgroundPIDs,
	}

	display := formatDisplay(res, limit)
	if res.Err != nil {
		return WithResponseMetadata(NewTextErrorResponse(display+"\n"+res.Err.Error()), metadata), nil
	}
	if res.ExitCode != 0 && !res.Cancelled && trimEmptyLines(res.Stdout) == "" && trimEmptyLines(res.Stderr) == "" {
		return WithResponseMetadata(NewTextErrorResponse(display), metadata), nil
	}
	return WithResponseMetadata(NewTextResponse(display), metadata), nil
}

func permissionDescription(params BashParams, risk shell.CommandRisk) string {
	if params.Description != "" {
		return params.Description
	}
	if risk.IsBanned {
		return fmt.Sprintf("Execute banned command %q", risk.RootCommand)
	}
	if risk.IsHighRisk {
		return fmt.Sprintf("Execute high-risk command %q", params.Command)
	}
	return fmt.Sprintf("Execute command %q", params.Command)
}
