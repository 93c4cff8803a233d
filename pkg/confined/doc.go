// Package confined runs units of work on dedicated, freshly created OS
// threads that are allowed to host a thread-affine dispatch loop.
//
// The problem it solves is small but subtle: an action running on a worker
// thread may lazily create an event loop bound to that thread. If the worker
// exits without shutting that loop down and pumping it dry, the loop's
// resources leak for the life of the process. Run and RunAsync guarantee
// that any loop created by the action is asked to shut down (at idle
// priority, so queued work finishes first) and is pumped to termination
// before the worker thread exits — on every completion path, including
// failure and panic.
//
// # Basic Usage
//
//	err := confined.Run(func(t *confined.Thread) error {
//	    loop := t.Loop() // lazily creates this thread's loop
//	    loop.After(time.Second, func() {
//	        // runs on the worker thread while the executor drains the loop
//	    })
//	    return nil
//	}) // returns only after the loop is drained and the thread has exited
//
// Actions that never touch Thread.Loop pay nothing: the drain step is a
// no-op when no loop was created.
//
// # Failure Propagation
//
// An error returned by the action, or a panic raised inside it, is captured,
// the shutdown-and-drain sequence still runs to completion, and only then
// does the failure surface to the Run caller or the RunAsync handle.
package confined
