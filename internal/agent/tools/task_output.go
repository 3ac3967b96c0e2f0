package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/quartzlabs/shellbox/internal/config"
	"github.com/quartzlabs/shellbox/internal/task"
)

const TaskOutputToolName = "task_output"

type TaskOutputParams struct {
	TaskID string `json:"task_id"`
}

type TaskOutputResponseMetadata struct {
	TaskID   string `json:"task_id"`
	Status   string `json:"status"`
	ExitCode *int   `json:"exit_code,omitempty"`
}

type taskOutputTool struct {
	manager *task.Manager
}

// NewTaskOutputTool creates the background-output query tool.
func NewTaskOutputTool(manager *task.Manager) BaseTool {
	return &taskOutputTool{manager: manager}
}

func (t *taskOutputTool) Name() string {
	return TaskOutputToolName
}

func (t *taskOutputTool) Info() ToolInfo {
	return ToolInfo{
		Name: TaskOutputToolName,
		Description: `Reads the accumulated output of a background task.

WHEN TO USE THIS TOOL:
- After starting a command with run_in_background, to check its progress
- To fetch the final output once a background task has finished

HOW TO USE:
- Provide the task id returned by the bash tool
- The response includes the command, status, pid, creation time, accumulated
  output, and the exit code once the task is terminal`,
		Parameters: map[string]any{
			"task_id": map[string]any{
				"type":        "string",
				"description": "The id of the background task to read",
			},
		},
		Required: []string{"task_id"},
	}
}

func (t *taskOutputTool) Run(ctx context.Context, call ToolCall) (ToolResponse, error) {
	var params TaskOutputParams
	if err := json.Unmarshal([]byte(call.Input), &params); err != nil {
		return NewTextErrorResponse(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if params.TaskID == "" {
		return NewTextErrorResponse("task_id parameter is required"), nil
	}

	snap, ok := t.manager.Get(params.TaskID)
	if !ok {
		return NewTextErrorResponse(fmt.Sprintf("No background task with ID %s", params.TaskID)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Task ID: %s\n", snap.ID)
	fmt.Fprintf(&b, "Command: %s\n", snap.Command)
	fmt.Fprintf(&b, "Status: %s\n", snap.Status)
	fmt.Fprintf(&b, "PID: %d\n", snap.PID)
	fmt.Fprintf(&b, "Created: %s\n", snap.CreatedAt.Format(time.RFC3339))
	if snap.ExitCode != nil {
		fmt.Fprintf(&b, "Exit Code: %d\n", *snap.ExitCode)
	}
	fmt.Fprintf(&b, "\nOutput:\n%s", truncateOutput(snap.Output, config.MaxOutputLength()))

	return WithResponseMetadata(NewTextResponse(b.String()), TaskOutputResponseMetadata{
		TaskID:   snap.ID,
		Status:   string(snap.Status),
		ExitCode: snap.ExitCode,
	}), nil
}
