package agent

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/quartzlabs/shellbox/internal/agent/tools"
	"github.com/quartzlabs/shellbox/internal/config"
	"github.com/quartzlabs/shellbox/internal/permission"
	"github.com/quartzlabs/shellbox/internal/task"
)

// Session owns the shell-execution subsystem for one conversation: the
// approval gate, the background task registry, and the tool registry. All
// shared state is torn down with the session.
type Session struct {
	ID          string
	Config      *config.Config
	Permissions permission.Service
	Tasks       *task.Manager
	Controller  *task.Controller
	Tools       tools.Registry
}

// NewSession wires the collaborators together. The task registry is passed
// by reference to every tool; nothing here is a package-level singleton.
func NewSession(cfg *config.Config, permOpts ...permission.Option) *Session {
	s := &Session{
		ID:          uuid.New().String(),
		Config:      cfg,
		Permissions: permission.NewService(cfg, permOpts...),
		Tasks:       task.NewManager(),
	}
	s.Controller = task.NewController(s.Tasks)
	s.Tools = tools.NewRegistry(func() []tools.BaseTool {
		return []tools.BaseTool{
			tools.NewBashTool(s.Permissions, cfg.WorkingDir(), s.Controller),
			tools.NewTaskOutputTool(s.Tasks),
			tools.NewTaskKillTool(s.Tasks),
		}
	})
	return s
}

// RunTool executes a named tool with raw JSON input.
func (s *Session) RunTool(ctx context.Context, name, input string) (tools.ToolResponse, error) {
	tool, ok := s.Tools.GetTool(name)
	if !ok {
		return tools.ToolResponse{}, fmt.Errorf("unknown tool %q", name)
	}
	ctx = context.WithValue(ctx, tools.SessionIDContextKey, s.ID)
	ctx = context.WithValue(ctx, tools.MessageIDContextKey, uuid.New().String())
	return tool.Run(ctx, tools.ToolCall{
		ID:    uuid.New().String(),
		Name:  name,
		Input: input,
	})
}

// Close kills running background tasks and tears down the side-channels.
func (s *Session) Close() {
	s.Controller.Shutdown()
	s.Tasks.Shutdown()
}
