package shell

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// startPortable runs the command through the embedded POSIX interpreter.
// Used where no host shell with process groups is available; there is no
// wrapper handshake and no dedicated shell process, so PID, PGID, and
// background PIDs all stay zero. Executions without a pid cannot be
// registered as background tasks, which keeps kill signals away from the
// interpreter's host process.
func (r *Runner) startPortable(ctx context.Context, command, cwd string, timeout time.Duration) (*Execution, error) {
	var cctx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		cctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		cctx, cancel = context.WithCancel(ctx)
	}

	events := make(chan OutputEvent, 64)
	exe := &Execution{
		Events: events,
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		var stdout, stderr strings.Builder
		var mu sync.Mutex
		var cancelled atomic.Bool

		sh := NewShell(Options{WorkingDir: cwd, Env: r.env})
		out := &eventWriter{stream: StreamStdout, buf: &stdout, mu: &mu, events: events}
		errw := &eventWriter{stream: StreamStderr, buf: &stderr, mu: &mu, events: events}
		err := sh.ExecStreams(cctx, command, out, errw)
		if IsInterrupt(err) {
			cancelled.Store(true)
		}
		close(events)

		res := &Result{
			Stdout:    stdout.String(),
			Stderr:    stderr.String(),
			ExitCode:  ExitCode(err),
			Cancelled: cancelled.Load(),
		}
		slog.Info("portable command finished", "command", command, "exit_code", res.ExitCode, "cancelled", res.Cancelled)
		exe.result = res
		cancel()
		close(exe.done)
	}()

	return exe, nil
}

type eventWriter struct {
	stream string
	buf    *strings.Builder
	mu     *sync.Mutex
	events chan<- OutputEvent
}

func (w *eventWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	w.buf.Write(p)
	w.mu.Unlock()
	w.events <- OutputEvent{Stream: w.stream, Chunk: string(p)}
	return len(p), nil
}
