package task

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quartzlabs/shellbox/internal/csync"
	"github.com/quartzlabs/shellbox/internal/pubsub"
)

// Status is the lifecycle state of a background task. Transitions are
// monotonic: running is the only non-terminal state, and the first
// transition into a terminal state wins.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusKilled    Status = "killed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s != StatusRunning
}

// Task is a point-in-time snapshot of a background task.
type Task struct {
	ID        string
	Command   string
	PID       int
	PGID      int // 0 when the process group is unknown
	CreatedAt time.Time
	Status    Status
	ExitCode  *int
	Output    string
}

type record struct {
	id        string
	command   string
	pid       int
	pgid      int
	createdAt time.Time

	mu       sync.Mutex
	status   Status
	exitCode *int
	output   strings.Builder
}

func (r *record) snapshot() Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Task{
		ID:        r.id,
		Command:   r.command,
		PID:       r.pid,
		PGID:      r.pgid,
		CreatedAt: r.createdAt,
		Status:    r.status,
		ExitCode:  r.exitCode,
		Output:    r.output.String(),
	}
}

// ErrNoPID is returned when a task is created without a primary process id.
var ErrNoPID = errors.New("task requires a primary process id")

// Manager is the registry of background tasks owned by a session. It is the
// only long-lived shared mutable state in the subsystem; mutations are keyed
// per task id.
type Manager struct {
	*pubsub.Broker[Task]
	tasks *csync.Map[string, *record]
}

// NewManager creates an empty task registry.
func NewManager() *Manager {
	return &Manager{
		Broker: pubsub.NewBroker[Task](),
		tasks:  csync.NewMap[string, *record](),
	}
}

// Create registers a new running task and returns its id.
func (m *Manager) Create(command string, pid, pgid int) (string, error) {
	if pid == 0 {
		return "", ErrNoPID
	}
	rec := &record{
		id:        uuid.New().String(),
		command:   command,
		pid:       pid,
		pgid:      pgid,
		createdAt: time.Now(),
		status:    StatusRunning,
	}
	m.tasks.Set(rec.id, rec)
	m.Publish(pubsub.CreatedEvent, rec.snapshot())
	return rec.id, nil
}

// AppendOutput appends a chunk to the task's output buffer. It is a no-op
// for unknown tasks and for tasks already in a terminal state.
func (m *Manager) AppendOutput(id, chunk string) {
	rec, ok := m.tasks.Get(id)
	if !ok {
		return
	}
	rec.mu.Lock()
	if rec.status.Terminal() {
		rec.mu.Unlock()
		return
	}
	rec.output.WriteString(chunk)
	rec.mu.Unlock()
}

// UpdateStatus moves the task into a terminal state. Only the first terminal
// transition takes effect; later calls are ignored. Returns whether the
// transition was applied.
func (m *Manager) UpdateStatus(id string, status Status, exitCode *int) bool {
	rec, ok := m.tasks.Get(id)
	if !ok {
		return false
	}
	rec.mu.Lock()
	if rec.status.Terminal() || !status.Terminal() {
		rec.mu.Unlock()
		return false
	}
	rec.status = status
	rec.exitCode = exitCode
	rec.mu.Unlock()
	m.Publish(pubsub.UpdatedEvent, rec.snapshot())
	return true
}

// Get returns a snapshot of the task, if it exists. Terminal tasks remain
// queryable; the registry never garbage-collects.
func (m *Manager) Get(id string) (Task, bool) {
	rec, ok := m.tasks.Get(id)
	if !ok {
		return Task{}, false
	}
	return rec.snapshot(), true
}

// List returns snapshots of all tasks, newest first.
func (m *Manager) List() []Task {
	out := make([]Task, 0, m.tasks.Len())
	for rec := range m.tasks.Seq() {
		out = append(out, rec.snapshot())
	}
	slices.SortFunc(out, func(a, b Task) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

// Kill terminates a running task's process group, escalating to a forceful
// kill after a grace period. Returns false for unknown tasks, tasks already
// in a terminal state, and processes that are already gone.
func (m *Manager) Kill(id string) bool {
	rec, ok := m.tasks.Get(id)
	if !ok {
		return false
	}
	rec.mu.Lock()
	if rec.status.Terminal() {
		rec.mu.Unlock()
		return false
	}
	pid, pgid := rec.pid, rec.pgid
	rec.mu.Unlock()

	if err := terminate(pid, pgid); err != nil {
		// Expected race: the process exited between check and kill.
		return false
	}
	waitThenForceKill(pid, pgid)
	m.UpdateStatus(id, StatusKilled, nil)
	return true
}

// Shutdown kills every running task. Called when the owning session is torn
// down.
func (m *Manager) Shutdown() {
	for id, rec := range m.tasks.Seq2() {
		rec.mu.Lock()
		running := !rec.status.Terminal()
		rec.mu.Unlock()
		if running {
			m.Kill(id)
		}
	}
	m.Broker.Shutdown()
}
