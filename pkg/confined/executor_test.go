package confined

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/strand-cli/strand/internal/util"
	"github.com/strand-cli/strand/pkg/dispatch"
)

func TestRun_NilAction(t *testing.T) {
	if err := Run(nil); !errors.Is(err, ErrNoAction) {
		t.Errorf("Run(nil) = %v, want ErrNoAction", err)
	}

	h := RunAsync(nil)
	select {
	case <-h.Done():
	default:
		t.Fatal("RunAsync(nil) handle should complete immediately")
	}
	if err := h.Err(); !errors.Is(err, ErrNoAction) {
		t.Errorf("RunAsync(nil).Err() = %v, want ErrNoAction", err)
	}
}

// TestRun_NoLoopIsNoOp covers the no-op-safe property: an action that never
// creates a loop still completes and joins normally.
func TestRun_NoLoopIsNoOp(t *testing.T) {
	var thread *Thread
	var ran bool

	err := Run(func(tr *Thread) error {
		thread = tr
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !ran {
		t.Error("action did not run")
	}
	if thread.LoopCreated() {
		t.Error("no loop should have been created")
	}
	if thread.Alive() {
		t.Error("worker thread should have exited before Run returned")
	}
}

// TestRun_NoLeak covers the no-leak invariant: a loop created by the action
// is terminated by the time Run returns, even with work still queued on it.
func TestRun_NoLeak(t *testing.T) {
	var loop *dispatch.Loop
	var thread *Thread
	var drained bool

	err := Run(func(tr *Thread) error {
		thread = tr
		loop = tr.Loop()
		// Work queued but never pumped by the action itself; the executor's
		// drain must run it
		loop.Post(dispatch.PriorityNormal, func() { drained = true })
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if loop.State() != dispatch.StateTerminated {
		t.Errorf("loop state = %v, want terminated", loop.State())
	}
	select {
	case <-loop.Terminated():
	default:
		t.Error("loop terminated channel should be closed")
	}
	if !drained {
		t.Error("queued work should have been pumped before the loop shut down")
	}
	if thread.Alive() {
		t.Error("worker thread should have exited")
	}
}

// TestRun_FailureDeferred covers the failure-deferred property: the
// shutdown-and-drain sequence is observed to run before the action's error
// reaches the caller.
func TestRun_FailureDeferred(t *testing.T) {
	marker := errors.New("marked failure")
	var cleanupRan atomic.Bool

	err := Run(func(tr *Thread) error {
		loop := tr.Loop()
		// Idle priority: only the drain pass can execute this
		loop.Post(dispatch.PriorityIdle, func() { cleanupRan.Store(true) })
		return fmt.Errorf("action failed: %w", marker)
	})

	if !errors.Is(err, marker) {
		t.Fatalf("Run = %v, want wrapped marker", err)
	}
	if !cleanupRan.Load() {
		t.Error("cleanup must complete before the failure surfaces to the caller")
	}
}

// TestRun_PanicStillDrains: a panicking action propagates as ErrActionPanic
// and the drain sequence is never skipped.
func TestRun_PanicStillDrains(t *testing.T) {
	var cleanupRan atomic.Bool
	var loop *dispatch.Loop

	err := Run(func(tr *Thread) error {
		loop = tr.Loop()
		loop.Post(dispatch.PriorityIdle, func() { cleanupRan.Store(true) })
		panic("action exploded")
	})

	if !errors.Is(err, ErrActionPanic) {
		t.Fatalf("Run = %v, want ErrActionPanic", err)
	}
	if !cleanupRan.Load() {
		t.Error("drain did not run after panic")
	}
	if loop.State() != dispatch.StateTerminated {
		t.Errorf("loop state = %v, want terminated", loop.State())
	}
}

// TestRun_JoinBeforeReturn: Run must never return while its worker thread is
// still alive, across repeated invocations.
func TestRun_JoinBeforeReturn(t *testing.T) {
	for i := 0; i < 100; i++ {
		var thread *Thread
		err := Run(func(tr *Thread) error {
			thread = tr
			if !tr.Alive() {
				return errors.New("worker should report alive while running")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
		if thread.Alive() {
			t.Fatalf("iteration %d: worker still alive after Run returned", i)
		}
	}
}

// TestRunAsync_Decoupling: RunAsync must return before the work completes,
// and the handle must complete only after it.
func TestRunAsync_Decoupling(t *testing.T) {
	const nap = 100 * time.Millisecond

	start := time.Now()
	h := RunAsync(func(tr *Thread) error {
		time.Sleep(nap)
		return nil
	})
	if returned := time.Since(start); returned >= nap {
		t.Errorf("RunAsync blocked for %v, want well under %v", returned, nap)
	}

	select {
	case <-h.Done():
		t.Fatal("handle completed before the action's sleep elapsed")
	default:
	}
	if err := h.Err(); err != nil {
		t.Errorf("Err before completion = %v, want nil", err)
	}

	if err := h.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < nap {
		t.Errorf("handle completed after %v, want at least %v", elapsed, nap)
	}
}

func TestHandle_WaitContext(t *testing.T) {
	release := make(chan struct{})
	h := RunAsync(func(tr *Thread) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := h.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait with expired ctx = %v, want DeadlineExceeded", err)
	}

	close(release)
	if err := h.Wait(context.Background()); err != nil {
		t.Errorf("Wait after release = %v, want nil", err)
	}
}

// TestRun_AbandonedTimer is the concrete scenario: the action creates a
// loop, starts a long-running timer on it and returns without stopping it.
// Run must still return once the drain forcibly shuts the loop down.
func TestRun_AbandonedTimer(t *testing.T) {
	h := RunAsync(func(tr *Thread) error {
		loop := tr.Loop()
		if err := loop.After(time.Hour, func() {}); err != nil {
			return err
		}
		return nil
	})

	select {
	case <-h.Done():
		if err := h.Err(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run hung on an abandoned timer")
	}

	if h.Thread().Alive() {
		t.Error("worker thread should have exited")
	}
}

func TestWorkerName(t *testing.T) {
	creator := util.GoroutineID()
	wantSuffix := fmt.Sprintf("(from goroutine %d)", creator)

	var name string
	err := Run(func(tr *Thread) error {
		name = tr.Name()
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if name == "" {
		t.Fatal("worker has no name")
	}
	if want := "strand-worker-"; len(name) < len(want) || name[:len(want)] != want {
		t.Errorf("name %q should start with %q", name, want)
	}
	if len(name) < len(wantSuffix) || name[len(name)-len(wantSuffix):] != wantSuffix {
		t.Errorf("name %q should end with %q", name, wantSuffix)
	}
}

func TestWorkers_Registry(t *testing.T) {
	entered := make(chan string)
	release := make(chan struct{})

	h := RunAsync(func(tr *Thread) error {
		entered <- tr.Name()
		<-release
		return nil
	})

	name := <-entered
	found := false
	for _, info := range Workers() {
		if info.Name == name {
			found = true
			if info.Started.IsZero() {
				t.Error("worker info has zero start time")
			}
		}
	}
	if !found {
		t.Errorf("live worker %q missing from registry snapshot", name)
	}

	close(release)
	if err := h.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	for _, info := range Workers() {
		if info.Name == name {
			t.Errorf("worker %q still registered after completion", name)
		}
	}
}

func TestThread_LoopSingleton(t *testing.T) {
	err := Run(func(tr *Thread) error {
		first := tr.Loop()
		second := tr.Loop()
		if first != second {
			return errors.New("Loop() must return the same loop on every call")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

// TestHomeLoopMarshaling exercises the HomeLoop contract end to end: a
// confined action marshals onto a running home loop, and a pending marshal
// during home-loop teardown fails with ErrLoopShutdown without escalating.
func TestHomeLoopMarshaling(t *testing.T) {
	var home HomeLoop = dispatch.New()
	homeLoop := home.(*dispatch.Loop)

	runDone := make(chan error, 1)
	go func() { runDone <- homeLoop.Run() }()

	var onHome bool
	err := Run(func(tr *Thread) error {
		return home.Invoke(func() { onHome = true })
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !onHome {
		t.Error("marshaled callback did not run on the home loop")
	}

	// Tear the home loop down, then verify a marshal from a confined worker
	// observes the expected cancellation instead of hanging or panicking
	homeLoop.RequestShutdown(dispatch.PriorityIdle)
	if err := <-runDone; err != nil {
		t.Fatalf("home Run: %v", err)
	}

	err = Run(func(tr *Thread) error {
		if ierr := home.Invoke(func() {}); !errors.Is(ierr, dispatch.ErrLoopShutdown) {
			return fmt.Errorf("Invoke during teardown = %v, want ErrLoopShutdown", ierr)
		}
		// Expected teardown outcome; swallow it the way call sites must
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
