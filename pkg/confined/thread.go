package confined

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/strand-cli/strand/internal/util"
	"github.com/strand-cli/strand/pkg/dispatch"
)

// workerSeq numbers worker threads for diagnostic names
var workerSeq atomic.Uint64

// Thread is the handle an action receives for the dedicated worker thread it
// runs on. It is the explicit capability for the thread's lazily created
// dispatch loop: the executor injects it so no ambient thread-local state is
// needed to find, or shut down, the loop.
//
// Loop must only be called from the action itself; the other methods are
// safe from any goroutine.
type Thread struct {
	name    string
	started time.Time
	alive   atomic.Bool
	loop    atomic.Pointer[dispatch.Loop]
}

// newThread builds the handle for one invocation. The name embeds the
// identity of the creating goroutine for post-mortem debugging of leaked or
// hung workers.
func newThread() *Thread {
	return &Thread{
		name:    fmt.Sprintf("strand-worker-%d (from goroutine %d)", workerSeq.Add(1), util.GoroutineID()),
		started: time.Now(),
	}
}

// Name returns the worker's diagnostic name, which includes the identity of
// the goroutine that created it.
func (t *Thread) Name() string {
	return t.name
}

// Alive reports whether the worker thread is still running. It is false
// before the worker starts and false again by the time Run returns or a
// handle completes.
func (t *Thread) Alive() bool {
	return t.alive.Load()
}

// Loop returns the thread-affine dispatch loop for this worker, creating it
// on first use. At most one loop ever exists per worker; repeated calls
// return the same loop. Must be called from the action, on the worker
// thread.
func (t *Thread) Loop() *dispatch.Loop {
	if l := t.loop.Load(); l != nil {
		return l
	}
	l := dispatch.New()
	t.loop.Store(l)
	return l
}

// LoopCreated reports whether the action caused a loop to be created.
func (t *Thread) LoopCreated() bool {
	return t.loop.Load() != nil
}

// drain shuts down and pumps the thread's loop, if one was created. It runs
// on the worker thread after the action has completed, on every exit path.
//
// The shutdown request is queued at idle priority so work the action already
// queued on the loop runs first. Run returns only once the loop has fully
// terminated; if the action already ran the loop to termination itself, both
// calls fail with ErrLoopTerminated and there is nothing left to do.
func (t *Thread) drain() {
	l := t.loop.Load()
	if l == nil {
		// No loop was ever created; nothing is bound to this thread
		return
	}
	_ = l.RequestShutdown(dispatch.PriorityIdle)
	_ = l.Run()
}
