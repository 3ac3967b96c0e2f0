package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	StreamStdout = "stdout"
	StreamStderr = "stderr"
)

// OutputEvent is one chunk of process output, delivered in arrival order.
type OutputEvent struct {
	Stream string
	Chunk  string
}

// Result is the completion record of a command execution.
type Result struct {
	Stdout         string
	Stderr         string
	ExitCode       int
	Signal         string
	Cancelled      bool
	PID            int
	PGID           int
	BackgroundPIDs []int
	Err            error
}

// Execution is a command in flight. Events is closed once the process has
// completed and all buffered output has been delivered.
type Execution struct {
	PID    int
	PGID   int
	Events <-chan OutputEvent

	done   chan struct{}
	result *Result
	cancel context.CancelFunc
}

// Wait blocks until the command completes and returns its result.
func (e *Execution) Wait() *Result {
	<-e.done
	return e.result
}

// Done returns a channel closed when the command has completed.
func (e *Execution) Done() <-chan struct{} {
	return e.done
}

// Cancel terminates the command. Output buffered so far is still returned.
func (e *Execution) Cancel() {
	e.cancel()
}

// Runner spawns wrapped commands. The wrapping strategy is chosen once at
// construction from the detected shell.
type Runner struct {
	wrapper wrapper
	env     []string
}

// NewRunner creates a runner using the ambient shell and environment.
func NewRunner() *Runner {
	return &Runner{
		wrapper: detectWrapper(),
		env:     os.Environ(),
	}
}

// Flavor returns the wrapping strategy in use.
func (r *Runner) Flavor() Flavor {
	return r.wrapper.flavor
}

// Run executes the command to completion, forwarding output chunks to
// onOutput as they arrive. A nil onOutput discards the stream.
func (r *Runner) Run(ctx context.Context, command, cwd string, timeout time.Duration, onOutput func(OutputEvent)) (*Result, error) {
	exe, err := r.Start(ctx, command, cwd, timeout)
	if err != nil {
		return nil, err
	}
	for ev := range exe.Events {
		if onOutput != nil {
			onOutput(ev)
		}
	}
	return exe.Wait(), nil
}

// Start spawns the wrapped command and returns immediately with the live
// execution handle. A zero timeout means no timeout.
func (r *Runner) Start(ctx context.Context, command, cwd string, timeout time.Duration) (*Execution, error) {
	if r.wrapper.flavor == FlavorPortable {
		return r.startPortable(ctx, command, cwd, timeout)
	}

	pidFile := pidFilePath()
	wrapped := r.wrapper.Wrap(command, pidFile)

	cctx, cancel := context.WithCancel(ctx)
	var timer *time.Timer
	if timeout > 0 {
		timer = time.AfterFunc(timeout, cancel)
	}

	cmd := exec.Command(r.wrapper.shellPath, "-c", wrapped)
	cmd.Dir = cwd
	cmd.Env = r.env
	setProcGroup(cmd)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		cancel()
		os.Remove(pidFile)
		return nil, fmt.Errorf("could not start command: %w", err)
	}

	pid := cmd.Process.Pid
	events := make(chan OutputEvent, 64)
	exe := &Execution{
		PID:    pid,
		PGID:   pid, // new process group, leader is the shell
		Events: events,
		done:   make(chan struct{}),
		cancel: cancel,
	}

	var stdout, stderr strings.Builder
	var wg sync.WaitGroup
	wg.Add(2)
	go pumpStream(&wg, stdoutPipe, StreamStdout, &stdout, events)
	go pumpStream(&wg, stderrPipe, StreamStderr, &stderr, events)

	// Reap the whole group on cancellation so descendants don't survive.
	var cancelled atomic.Bool
	reaped := make(chan struct{})
	go func() {
		select {
		case <-cctx.Done():
			cancelled.Store(true)
			killProcessGroup(pid)
		case <-reaped:
		}
	}()

	go func() {
		defer os.Remove(pidFile) // unconditional, every exit path
		wg.Wait()
		waitErr := cmd.Wait()
		close(reaped)
		if timer != nil {
			timer.Stop()
		}
		close(events)

		res := &Result{
			Stdout:    stdout.String(),
			Stderr:    stderr.String(),
			PID:       pid,
			PGID:      exe.PGID,
			Cancelled: cancelled.Load(),
		}
		res.ExitCode, res.Signal = exitStatus(cmd, waitErr)
		var exitErr *exec.ExitError
		if waitErr != nil && !errors.As(waitErr, &exitErr) {
			res.Err = errors.New(r.wrapper.Unwrap(waitErr.Error(), command, pidFile))
		}
		res.BackgroundPIDs = readPIDFile(pidFile, pid)

		slog.Info("command finished",
			"command", command,
			"exit_code", res.ExitCode,
			"signal", res.Signal,
			"cancelled", res.Cancelled,
			"background_pids", len(res.BackgroundPIDs),
		)

		exe.result = res
		cancel()
		close(exe.done)
	}()

	return exe, nil
}

func pumpStream(wg *sync.WaitGroup, pipe io.Reader, stream string, buf *strings.Builder, events chan<- OutputEvent) {
	defer wg.Done()
	reader := bufio.NewReader(pipe)
	chunk := make([]byte, 4096)
	for {
		n, err := reader.Read(chunk)
		if n > 0 {
			s := string(chunk[:n])
			buf.WriteString(s)
			events <- OutputEvent{Stream: stream, Chunk: s}
		}
		if err != nil {
			return
		}
	}
}

// exitStatus extracts the exit code and, when the process died from a
// signal, the signal name.
func exitStatus(cmd *exec.Cmd, waitErr error) (int, string) {
	if waitErr == nil {
		return 0, ""
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		if sig, ok := waitSignal(exitErr); ok {
			return exitErr.ExitCode(), sig
		}
		return exitErr.ExitCode(), ""
	}
	return 1, ""
}

// readPIDFile parses the process-group enumeration handshake file, excluding
// the main PID. Returns nil when the file is missing or empty.
func readPIDFile(path string, mainPID int) []int {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var pids []int
	for line := range strings.Lines(string(data)) {
		pid, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || pid == mainPID {
			continue
		}
		pids = append(pids, pid)
	}
	return pids
}
