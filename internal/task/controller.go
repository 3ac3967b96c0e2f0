package task

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quartzlabs/shellbox/internal/csync"
	"github.com/quartzlabs/shellbox/internal/pubsub"
	"github.com/quartzlabs/shellbox/internal/shell"
)

const (
	defaultPollInterval = time.Second
	defaultPromptAfter  = 10 * time.Second
)

// TransitionOffer is the outbound prompt asking whether a long-running
// foreground command should move to the background. Matched to its answer by
// correlation id.
type TransitionOffer struct {
	ID      string
	Command string
	Output  string // foreground output buffered so far
}

// TransitionNotice reports how an offer was resolved. Accepted is false when
// the command completed naturally before the offer was answered.
type TransitionNotice struct {
	ID       string
	TaskID   string
	Accepted bool
}

// Outcome is the result of supervising one command: either a completed
// foreground result, or the id of the background task it became.
type Outcome struct {
	Result        *shell.Result
	TaskID        string
	InitialOutput string
}

// Background reports whether the command moved to background execution.
func (o Outcome) Background() bool {
	return o.TaskID != ""
}

// Controller decides, per command, whether a running execution should move
// to the background, racing a fixed-interval poll against the command's own
// completion.
type Controller struct {
	manager *Manager
	offers  *pubsub.Broker[TransitionOffer]
	notices *pubsub.Broker[TransitionNotice]
	pending *csync.Map[string, func() (string, string)]

	// Overridable in tests.
	PollInterval time.Duration
	PromptAfter  time.Duration
}

// NewController creates a controller registering tasks with the given
// manager.
func NewController(manager *Manager) *Controller {
	return &Controller{
		manager:      manager,
		offers:       pubsub.NewBroker[TransitionOffer](),
		notices:      pubsub.NewBroker[TransitionNotice](),
		pending:      csync.NewMap[string, func() (string, string)](),
		PollInterval: defaultPollInterval,
		PromptAfter:  defaultPromptAfter,
	}
}

// SubscribeOffers returns the prompt side-channel. Offers are only emitted
// while someone is subscribed.
func (c *Controller) SubscribeOffers(ctx context.Context) <-chan pubsub.Event[TransitionOffer] {
	return c.offers.Subscribe(ctx)
}

// SubscribeNotices returns resolution notifications for offers.
func (c *Controller) SubscribeNotices(ctx context.Context) <-chan pubsub.Event[TransitionNotice] {
	return c.notices.Subscribe(ctx)
}

// Accept resolves a pending offer by registering the background task.
// Returns the new task id, or false when the offer is unknown or the
// command already completed.
func (c *Controller) Accept(correlationID string) (string, bool) {
	register, ok := c.pending.Take(correlationID)
	if !ok {
		return "", false
	}
	taskID, _ := register()
	c.notices.Publish(pubsub.UpdatedEvent, TransitionNotice{ID: correlationID, TaskID: taskID, Accepted: true})
	return taskID, true
}

// Shutdown tears down the side-channel brokers.
func (c *Controller) Shutdown() {
	c.offers.Shutdown()
	c.notices.Shutdown()
}

// router directs output chunks to exactly one destination: the foreground
// buffer before a transition, the background task after. The switch is a
// single check per event under the lock, so no chunk lands in both.
type router struct {
	mu      sync.Mutex
	manager *Manager
	taskID  string
	fg      strings.Builder
}

func (r *router) write(chunk string) {
	r.mu.Lock()
	id := r.taskID
	if id == "" {
		r.fg.WriteString(chunk)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	r.manager.AppendOutput(id, chunk)
}

func (r *router) buffered() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fg.String()
}

// transition registers the background task, seeds it with the buffered
// foreground output, and flips routing. Safe to call at most once.
func (r *router) transition(command string, pid, pgid int) (string, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	buffered := r.fg.String()
	taskID, err := r.manager.Create(command, pid, pgid)
	if err != nil {
		return "", "", err
	}
	if buffered != "" {
		r.manager.AppendOutput(taskID, buffered)
	}
	r.taskID = taskID
	return taskID, buffered, nil
}

// Supervise drives one execution to its outcome. With the explicit
// background flag the task registers immediately; otherwise a poll ticker
// races completion, offering a background move once output has started and
// the command has run long enough.
func (c *Controller) Supervise(ctx context.Context, exe *shell.Execution, command string, background bool) Outcome {
	rt := &router{manager: c.manager}

	if background {
		taskID, initial, err := rt.transition(command, exe.PID, exe.PGID)
		if err != nil {
			// No usable pid; fall through to a plain foreground run.
			slog.Warn("background registration failed", "command", command, "error", err)
		} else {
			go c.pump(exe, rt)
			go c.watch(exe, taskID)
			return Outcome{TaskID: taskID, InitialOutput: initial}
		}
	}

	confirmed := make(chan string, 1)
	pumped := make(chan struct{})
	go func() {
		c.pump(exe, rt)
		close(pumped)
	}()

	ticker := time.NewTicker(c.PollInterval)
	defer ticker.Stop()
	started := time.Now()
	ctxDone := ctx.Done()

	var offerID string
	for {
		select {
		case <-ctxDone:
			exe.Cancel()
			ctxDone = nil

		case <-exe.Done():
			<-pumped
			if offerID != "" {
				if _, ok := c.pending.Take(offerID); ok {
					// Losing side: discard the pending move and tell the
					// prompter the transition was declined.
					c.notices.Publish(pubsub.UpdatedEvent, TransitionNotice{ID: offerID, Accepted: false})
				} else if taskID := <-confirmed; taskID != "" {
					// An accept beat the completion to the pending entry;
					// the transition wins the race.
					go c.watch(exe, taskID)
					return Outcome{TaskID: taskID, InitialOutput: rt.buffered()}
				}
			}
			return Outcome{Result: exe.Wait()}

		case taskID := <-confirmed:
			if taskID == "" {
				continue
			}
			go c.watch(exe, taskID)
			return Outcome{TaskID: taskID, InitialOutput: rt.buffered()}

		case <-ticker.C:
			if offerID != "" || rt.buffered() == "" {
				continue
			}
			if time.Since(started) < c.PromptAfter {
				continue
			}
			if c.offers.GetSubscriberCount() == 0 {
				continue
			}
			offerID = uuid.New().String()
			pid, pgid := exe.PID, exe.PGID
			c.pending.Set(offerID, func() (string, string) {
				taskID, initial, err := rt.transition(command, pid, pgid)
				if err != nil {
					taskID = ""
				}
				confirmed <- taskID
				return taskID, initial
			})
			c.offers.Publish(pubsub.CreatedEvent, TransitionOffer{
				ID:      offerID,
				Command: command,
				Output:  rt.buffered(),
			})
		}
	}
}

// pump forwards execution output through the router until the stream closes.
func (c *Controller) pump(exe *shell.Execution, rt *router) {
	for ev := range exe.Events {
		rt.write(ev.Chunk)
	}
}

// watch records the final status of a backgrounded execution.
func (c *Controller) watch(exe *shell.Execution, taskID string) {
	res := exe.Wait()
	switch {
	case res.Cancelled:
		c.manager.UpdateStatus(taskID, StatusKilled, nil)
	case res.ExitCode == 0 && res.Err == nil:
		code := 0
		c.manager.UpdateStatus(taskID, StatusCompleted, &code)
	default:
		code := res.ExitCode
		c.manager.UpdateStatus(taskID, StatusFailed, &code)
	}
}
