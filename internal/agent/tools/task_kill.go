package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quartzlabs/shellbox/internal/task"
)

const TaskKillToolName = "task_kill"

type TaskKillParams struct {
	TaskID string `json:"task_id"`
}

type taskKillTool struct {
	manager *task.Manager
}

// NewTaskKillTool creates the background-task termination tool.
func NewTaskKillTool(manager *task.Manager) BaseTool {
	return &taskKillTool{manager: manager}
}

func (t *taskKillTool) Name() string {
	return TaskKillToolName
}

func (t *taskKillTool) Info() ToolInfo {
	return ToolInfo{
		Name: TaskKillToolName,
		Description: `Terminates a running background task by id.

The task's whole process group receives a terminate signal, escalating to a
forceful kill if it does not exit within the grace period. Fails if the task
is unknown or already finished.`,
		Parameters: map[string]any{
			"task_id": map[string]any{
				"type":        "string",
				"description": "The id of the background task to terminate",
			},
		},
		Required: []string{"task_id"},
	}
}

func (t *taskKillTool) Run(ctx context.Context, call ToolCall) (ToolResponse, error) {
	var params TaskKillParams
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
	if snap.Status.Terminal() {
		return NewTextErrorResponse(fmt.Sprintf("Task %s already finished with status %s", snap.ID, snap.Status)), nil
	}

	if !t.manager.Kill(params.TaskID) {
		return NewTextErrorResponse(fmt.Sprintf("Could not kill task %s; the process may have already exited", snap.ID)), nil
	}
	return NewTextResponse(fmt.Sprintf("Task %s killed.", snap.ID)), nil
}
