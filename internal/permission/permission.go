package permission

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quartzlabs/shellbox/internal/config"
	"github.com/quartzlabs/shellbox/internal/csync"
	"github.com/quartzlabs/shellbox/internal/pubsub"
)

// Category classifies what a tool action does to the host.
type Category int

const (
	// CategoryRead is read-only and never needs approval.
	CategoryRead Category = iota
	// CategoryWrite modifies files.
	CategoryWrite
	// CategoryExecute runs arbitrary commands.
	CategoryExecute
	// CategoryInteractive always prompts, even in YOLO mode.
	CategoryInteractive
)

// CreatePermissionRequest is what a tool submits before acting.
type CreatePermissionRequest struct {
	SessionID   string   `json:"session_id"`
	ToolCallID  string   `json:"tool_call_id"`
	ToolName    string   `json:"tool_name"`
	Description string   `json:"description"`
	Action      string   `json:"action"`
	Category    Category `json:"category"`
	Path        string   `json:"path"`
	Params      any      `json:"params"`
}

// PermissionRequest is a pending request surfaced to the approval
// collaborator.
type PermissionRequest struct {
	ID          string   `json:"id"`
	SessionID   string   `json:"session_id"`
	ToolCallID  string   `json:"tool_call_id"`
	ToolName    string   `json:"tool_name"`
	Description string   `json:"description"`
	Action      string   `json:"action"`
	Category    Category `json:"category"`
	Path        string   `json:"path"`
	Params      any      `json:"params"`
}

// PermissionNotification reports how a request was resolved.
type PermissionNotification struct {
	ToolCallID string `json:"tool_call_id"`
	Granted    bool   `json:"granted"`
	Denied     bool   `json:"denied"`
}

// Decision is the outcome of one approval cascade run. It is produced per
// request and not persisted.
type Decision struct {
	Approved       bool
	DenyReason     string
	ModifiedParams any
}

// RiskFunc is a tool-specific predicate reporting whether the request needs
// explicit approval. Returning false approves the request outright.
type RiskFunc func(CreatePermissionRequest) bool

// DecisionFunc is an external callback consulted when no earlier cascade
// step resolves the request.
type DecisionFunc func(PermissionRequest) Decision

// Service is the approval gate in front of every tool execution.
type Service interface {
	pubsub.Suscriber[PermissionRequest]
	SubscribeNotifications(ctx context.Context) <-chan pubsub.Event[PermissionNotification]
	Request(opts CreatePermissionRequest) bool
	RequestDecision(opts CreatePermissionRequest) Decision
	Grant(permission PermissionRequest)
	GrantPersistent(permission PermissionRequest)
	Deny(permission PermissionRequest)
	AutoApproveSession(sessionID string)
	RegisterRiskFunc(toolName string, fn RiskFunc)
	SkipRequests() bool
	SetSkipRequests(skip bool)
}

type permissionService struct {
	*pubsub.Broker[PermissionRequest]
	notificationBroker *pubsub.Broker[PermissionNotification]

	cfg          *config.Config
	skip         bool
	decisionFn   DecisionFunc
	riskFuncs    *csync.Map[string, RiskFunc]
	pending      *csync.Map[string, chan Decision]
	autoApproved *csync.Map[string, struct{}]

	mu                 sync.RWMutex
	sessionPermissions []PermissionRequest
}

// Option configures the service.
type Option func(*permissionService)

// WithDecisionFunc installs the external approval callback.
func WithDecisionFunc(fn DecisionFunc) Option {
	return func(s *permissionService) {
		s.decisionFn = fn
	}
}

// NewService creates the approval gate for one session.
func NewService(cfg *config.Config, opts ...Option) Service {
	s := &permissionService{
		Broker:             pubsub.NewBroker[PermissionRequest](),
		notificationBroker: pubsub.NewBroker[PermissionNotification](),
		cfg:                cfg,
		skip:               cfg.Permissions.SkipRequests,
		riskFuncs:          csync.NewMap[string, RiskFunc](),
		pending:            csync.NewMap[string, chan Decision](),
		autoApproved:       csync.NewMap[string, struct{}](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *permissionService) SubscribeNotifications(ctx context.Context) <-chan pubsub.Event[PermissionNotification] {
	return s.notificationBroker.Subscribe(ctx)
}

func (s *permissionService) Request(opts CreatePermissionRequest) bool {
	return s.RequestDecision(opts).Approved
}

// RequestDecision runs the ordered, short-circuiting approval cascade.
func (s *permissionService) RequestDecision(opts CreatePermissionRequest) Decision {
	// 1. Ambient unrestricted mode, unless always-interactive.
	if s.SkipRequests() && opts.Category != CategoryInteractive {
		return Decision{Approved: true}
	}

	// 2. Read-only actions never prompt.
	if opts.Category == CategoryRead {
		return Decision{Approved: true}
	}

	// 3. Tool-specific predicate. The predicate itself carries any hard
	// overrides, so a "needs approval" answer here cannot be bypassed by
	// the earlier steps.
	if fn, ok := s.riskFuncs.Get(opts.ToolName); ok && !fn(opts) {
		return Decision{Approved: true}
	}

	// 4. Auto-approve-edits mode covers write actions.
	if s.cfg.ApprovalMode == config.ApprovalAcceptEdits && opts.Category == CategoryWrite {
		return Decision{Approved: true}
	}

	// 5. Session allow-list.
	if s.allowListed(opts) {
		return Decision{Approved: true}
	}

	// 6. External verdict.
	return s.externalDecision(opts)
}

func (s *permissionService) allowListed(opts CreatePermissionRequest) bool {
	if _, ok := s.autoApproved.Get(opts.SessionID); ok {
		return true
	}
	if slices.Contains(s.cfg.Permissions.AllowedTools, opts.ToolName) ||
		slices.Contains(s.cfg.Permissions.AllowedTools, opts.ToolName+":"+opts.Action) {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.sessionPermissions {
		if p.ToolName == opts.ToolName && p.Action == opts.Action &&
			p.SessionID == opts.SessionID && p.Path == opts.Path {
			return true
		}
	}
	return false
}

func (s *permissionService) externalDecision(opts CreatePermissionRequest) Decision {
	request := PermissionRequest{
		ID:          uuid.New().String(),
		SessionID:   opts.SessionID,
		ToolCallID:  opts.ToolCallID,
		ToolName:    opts.ToolName,
		Description: opts.Description,
		Action:      opts.Action,
		Category:    opts.Category,
		Path:        opts.Path,
		Params:      opts.Params,
	}

	if s.decisionFn != nil {
		decision := s.decisionFn(request)
		s.notify(request.ToolCallID, decision.Approved)
		return decision
	}

	if s.Broker.GetSubscriberCount() == 0 {
		slog.Warn("permission request with no approver", "tool", opts.ToolName, "action", opts.Action)
		return Decision{DenyReason: "no approver available"}
	}

	respCh := make(chan Decision, 1)
	s.pending.Set(request.ID, respCh)
	defer s.pending.Del(request.ID)

	s.Publish(pubsub.CreatedEvent, request)

	// The approver can unsubscribe while we wait; without this check the
	// request would block forever with nobody left to resolve it.
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case decision := <-respCh:
			s.notify(request.ToolCallID, decision.Approved)
			return decision
		case <-ticker.C:
			if s.Broker.GetSubscriberCount() == 0 {
				// A verdict delivered just before the unsubscribe still
				// counts.
				select {
				case decision := <-respCh:
					s.notify(request.ToolCallID, decision.Approved)
					return decision
				default:
				}
				slog.Warn("approver went away while request was pending", "tool", opts.ToolName, "action", opts.Action)
				decision := Decision{DenyReason: "no approver available"}
				s.notify(request.ToolCallID, decision.Approved)
				return decision
			}
		}
	}
}

func (s *permissionService) notify(toolCallID string, granted bool) {
	s.notificationBroker.Publish(pubsub.CreatedEvent, PermissionNotification{
		ToolCallID: toolCallID,
		Granted:    granted,
		Denied:     !granted,
	})
}

func (s *permissionService) Grant(permission PermissionRequest) {
	if ch, ok := s.pending.Take(permission.ID); ok {
		ch <- Decision{Approved: true}
	}
}

func (s *permissionService) GrantPersistent(permission PermissionRequest) {
	s.mu.Lock()
	s.sessionPermissions = append(s.sessionPermissions, permission)
	s.mu.Unlock()
	if ch, ok := s.pending.Take(permission.ID); ok {
		ch <- Decision{Approved: true}
	}
}

func (s *permissionService) Deny(permission PermissionRequest) {
	if ch, ok := s.pending.Take(permission.ID); ok {
		ch <- Decision{DenyReason: "denied by user"}
	}
}

func (s *permissionService) AutoApproveSession(sessionID string) {
	s.autoApproved.Set(sessionID, struct{}{})
}

func (s *permissionService) RegisterRiskFunc(toolName string, fn RiskFunc) {
	s.riskFuncs.Set(toolName, fn)
}

func (s *permissionService) SkipRequests() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.skip
}

func (s *permissionService) SetSkipRequests(skip bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skip = skip
}
