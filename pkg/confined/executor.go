package confined

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/strand-cli/strand/pkg/dispatch"
)

// Common error values for the confined executor
var (
	// ErrNoAction indicates Run or RunAsync was called without an action.
	// This is a precondition violation, not a retryable condition.
	ErrNoAction = errors.New("confined: no action supplied")

	// ErrActionPanic marks a failure recovered from a panicking action. The
	// loop drain still ran to completion before the failure surfaced.
	ErrActionPanic = errors.New("confined: action panicked")
)

// Action is the unit of work executed on a dedicated worker thread. The
// Thread handle gives it access to the worker's lazily created dispatch
// loop. A returned error is propagated to the caller after the loop has been
// shut down and drained.
type Action func(t *Thread) error

// HomeLoop is the contract to a long-lived event loop owned by the embedding
// application and bound to one fixed thread (a UI thread, typically).
// Actions use it to marshal callbacks onto the home thread and wait for
// their completion.
//
// Invoke fails with dispatch.ErrLoopShutdown when the home loop is being
// torn down while the call is pending. That is the expected — and only —
// failure path during normal process termination; call sites must catch and
// log it rather than let it escape as a fault.
//
// *dispatch.Loop satisfies this interface; the executor itself never calls
// it.
type HomeLoop interface {
	Invoke(fn func()) error
}

var _ HomeLoop = (*dispatch.Loop)(nil)

// Handle represents the eventual completion of a confined invocation started
// with RunAsync. It completes exactly once, after the worker's loop has been
// drained and the worker thread has exited.
type Handle struct {
	thread *Thread
	done   chan struct{}
	err    error
}

// Done returns a channel that is closed when the invocation has completed.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the invocation's failure, or nil. It is only meaningful after
// Done is closed; before completion it always returns nil.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until the invocation completes or ctx is cancelled. Note that
// cancelling ctx abandons the wait only; the confined work itself is not
// cancellable.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Thread returns the worker handle for diagnostics.
func (h *Handle) Thread() *Thread {
	return h.thread
}

// Run executes action on a freshly created worker thread and blocks until
// the thread has fully exited. If the action created a thread-affine
// dispatch loop, the loop is shut down at idle priority and pumped to
// termination before the thread exits — on every completion path. Only after
// that does the action's error (or recovered panic) surface here.
//
// Each invocation gets its own thread; threads are never pooled or reused,
// because a dispatch loop binds permanently to the thread that pumps it.
func Run(action Action) error {
	return RunAsync(action).Wait(context.Background())
}

// RunAsync is the non-blocking form of Run: it starts the worker thread and
// returns immediately with a handle for the eventual completion. The
// underlying work cannot be cancelled through the handle.
func RunAsync(action Action) *Handle {
	h := &Handle{done: make(chan struct{})}
	if action == nil {
		h.err = ErrNoAction
		close(h.done)
		return h
	}

	t := newThread()
	h.thread = t

	go func() {
		// A dispatch loop binds to the OS thread that pumps it, so the
		// worker owns its thread for the whole invocation.
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		t.alive.Store(true)
		register(t)
		slog.Debug("confined worker started", "worker", t.name)

		err := runAction(action, t)

		unregister(t)
		t.alive.Store(false)
		slog.Debug("confined worker exiting",
			"worker", t.name,
			"loop_created", t.LoopCreated(),
			"error", err)

		h.err = err
		close(h.done)
	}()

	return h
}

// runAction invokes the action and then unconditionally drains the thread's
// loop. The deferred drain runs after panic recovery, so the shutdown-and-
// drain sequence is never skipped, whichever way the action exits.
func runAction(action Action, t *Thread) (err error) {
	defer t.drain()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrActionPanic, r)
		}
	}()

	return action(t)
}
