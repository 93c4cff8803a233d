package dispatch

import (
	"container/heap"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/strand-cli/strand/internal/util"
)

// item is a single queued unit of work
type item struct {
	// fn is the callback to execute (nil for shutdown requests)
	fn func()

	// done is closed after fn has executed; set only for Invoke items
	done chan struct{}

	// shutdown marks this item as the loop's shutdown request
	shutdown bool
}

// timer is a callback scheduled for a point in time
type timer struct {
	when time.Time
	fn   func()
}

// timerHeap is a min-heap of timers ordered by fire time
type timerHeap []timer

func (h timerHeap) Len() int           { return len(h) }
func (h timerHeap) Less(i, j int) bool { return h[i].when.Before(h[j].when) }
func (h timerHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) {
	*h = append(*h, x.(timer))
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Loop is a priority-ordered event loop bound to the OS thread of the
// goroutine that runs it.
//
// All exported methods are safe for concurrent use. Queued callbacks execute
// sequentially on the loop thread; the loop itself never spawns goroutines.
type Loop struct {
	// mu protects the queues, timers and shutdownQueued flag
	mu sync.Mutex

	// queues holds pending work, indexed by Priority
	queues [numPriorities][]item

	// timers holds scheduled callbacks that have not come due
	timers timerHeap

	// wake nudges a sleeping Run iteration; capacity 1, sends never block
	wake chan struct{}

	// terminated is closed exactly once, when the loop shuts down
	terminated chan struct{}

	// state is the current State, accessed atomically
	state atomic.Int32

	// runGID is the goroutine id pumping the loop, 0 when not running.
	// Used to run Invoke callbacks inline instead of deadlocking.
	runGID atomic.Uint64

	// shutdownQueued dedupes shutdown requests
	shutdownQueued bool

	// logger for structured logging
	logger *slog.Logger
}

// New creates an unstarted loop. Work may be queued immediately; nothing
// executes until some goroutine calls Run.
func New() *Loop {
	return &Loop{
		wake:       make(chan struct{}, 1),
		terminated: make(chan struct{}),
		logger:     slog.Default(),
	}
}

// State returns the loop's current lifecycle state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Terminated returns a channel that is closed once the loop has shut down.
func (l *Loop) Terminated() <-chan struct{} {
	return l.terminated
}

// Post enqueues fn at the given priority. It returns ErrLoopTerminated if the
// loop has already shut down. Posting to a loop that is not yet running is
// allowed; the work executes once Run is called.
func (l *Loop) Post(pri Priority, fn func()) error {
	if fn == nil {
		return ErrNilFunc
	}
	if !pri.valid() {
		return ErrInvalidPriority
	}

	l.mu.Lock()
	if l.State() == StateTerminated {
		l.mu.Unlock()
		return ErrLoopTerminated
	}
	l.queues[pri] = append(l.queues[pri], item{fn: fn})
	l.mu.Unlock()

	l.wakeup()
	return nil
}

// After schedules fn to run on the loop thread once d has elapsed. Timers
// fire at PriorityNormal. A non-positive d posts immediately. Timers that
// have not come due are discarded when the loop terminates.
func (l *Loop) After(d time.Duration, fn func()) error {
	if fn == nil {
		return ErrNilFunc
	}
	if d <= 0 {
		return l.Post(PriorityNormal, fn)
	}

	l.mu.Lock()
	if l.State() == StateTerminated {
		l.mu.Unlock()
		return ErrLoopTerminated
	}
	heap.Push(&l.timers, timer{when: time.Now().Add(d), fn: fn})
	l.mu.Unlock()

	l.wakeup()
	return nil
}

// Invoke marshals fn onto the loop thread and blocks until it has executed.
// If called from the loop thread itself, fn runs inline.
//
// If the loop shuts down while the call is pending, or has already shut down,
// Invoke returns ErrLoopShutdown. Callers must treat that as the normal
// outcome of process teardown, not as a fault.
func (l *Loop) Invoke(fn func()) error {
	if fn == nil {
		return ErrNilFunc
	}

	if l.onLoopThread() {
		fn()
		return nil
	}

	l.mu.Lock()
	if l.State() == StateTerminated {
		l.mu.Unlock()
		return ErrLoopShutdown
	}
	done := make(chan struct{})
	l.queues[PriorityNormal] = append(l.queues[PriorityNormal], item{fn: fn, done: done})
	l.mu.Unlock()

	l.wakeup()

	select {
	case <-done:
		return nil
	case <-l.terminated:
		// The callback may have executed just before termination
		select {
		case <-done:
			return nil
		default:
		}
		return ErrLoopShutdown
	}
}

// RequestShutdown enqueues the loop's shutdown request at the given priority.
// Queuing at PriorityIdle lets all ready work at higher priorities run first.
// The request takes effect when Run reaches it; requesting shutdown on a loop
// that has not started yet makes the eventual Run call pump queued work and
// then return. Duplicate requests are ignored.
func (l *Loop) RequestShutdown(pri Priority) error {
	if !pri.valid() {
		return ErrInvalidPriority
	}

	l.mu.Lock()
	if l.State() == StateTerminated {
		l.mu.Unlock()
		return ErrLoopTerminated
	}
	if l.shutdownQueued {
		l.mu.Unlock()
		return nil
	}
	l.shutdownQueued = true
	l.queues[pri] = append(l.queues[pri], item{shutdown: true})
	l.mu.Unlock()

	l.wakeup()
	return nil
}

// Run binds the loop to the calling goroutine's OS thread and pumps queued
// work until the shutdown request is reached. It returns nil once the loop
// has fully terminated, ErrLoopRunning if another goroutine is already
// pumping it, or ErrLoopTerminated if it already shut down.
func (l *Loop) Run() error {
	if !l.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		if l.State() == StateTerminated {
			return ErrLoopTerminated
		}
		return ErrLoopRunning
	}

	// A loop is permanently bound to the thread that pumps it
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	l.runGID.Store(util.GoroutineID())
	defer l.runGID.Store(0)

	for {
		it, wait, ok := l.next()
		if ok {
			if it.shutdown {
				l.terminate()
				return nil
			}
			l.execute(it)
			continue
		}

		if wait < 0 {
			<-l.wake
			continue
		}
		t := time.NewTimer(wait)
		select {
		case <-l.wake:
			t.Stop()
		case <-t.C:
		}
	}
}

// next pops the highest-priority ready item. When nothing is ready it
// returns the wait until the next timer fires, or a negative wait if there
// are no timers.
func (l *Loop) next() (item, time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Promote due timers into the normal queue
	now := time.Now()
	for len(l.timers) > 0 && !l.timers[0].when.After(now) {
		t := heap.Pop(&l.timers).(timer)
		l.queues[PriorityNormal] = append(l.queues[PriorityNormal], item{fn: t.fn})
	}

	for pri := numPriorities - 1; pri >= 0; pri-- {
		q := l.queues[pri]
		if len(q) == 0 {
			continue
		}
		it := q[0]
		q[0] = item{}
		l.queues[pri] = q[1:]
		return it, 0, true
	}

	if len(l.timers) > 0 {
		return item{}, l.timers[0].when.Sub(now), false
	}
	return item{}, -1, false
}

// execute runs a single item with panic isolation. A panicking callback is
// logged and does not kill the loop; its Invoke waiter is still released.
func (l *Loop) execute(it item) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("dispatch: callback panicked", "panic", r)
		}
		if it.done != nil {
			close(it.done)
		}
	}()

	it.fn()
}

// terminate finalizes shutdown: pending work and timers are discarded and
// waiting Invoke callers are released with ErrLoopShutdown.
func (l *Loop) terminate() {
	l.mu.Lock()
	l.state.Store(int32(StateTerminated))
	dropped := 0
	for pri := range l.queues {
		dropped += len(l.queues[pri])
		l.queues[pri] = nil
	}
	pendingTimers := len(l.timers)
	l.timers = nil
	l.mu.Unlock()

	close(l.terminated)

	if dropped > 0 || pendingTimers > 0 {
		l.logger.Debug("dispatch: loop terminated with pending work discarded",
			"dropped_items", dropped,
			"pending_timers", pendingTimers)
	}
}

// wakeup nudges a sleeping Run iteration; it never blocks.
func (l *Loop) wakeup() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// onLoopThread reports whether the caller is the goroutine pumping this loop.
func (l *Loop) onLoopThread() bool {
	gid := l.runGID.Load()
	return gid != 0 && gid == util.GoroutineID()
}
