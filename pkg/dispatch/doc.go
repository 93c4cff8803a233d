// Package dispatch provides a priority-ordered event loop that binds to the
// OS thread of whichever goroutine runs it.
//
// A Loop created with New is inert: work can be queued with Post, After and
// Invoke, but nothing executes until some goroutine calls Run. Run pins itself
// to its OS thread and pumps the loop until a shutdown request (queued with
// RequestShutdown) is reached, at which point the loop terminates, pending
// Invoke callers are released with ErrLoopShutdown, and Run returns.
//
// # Basic Usage
//
//	loop := dispatch.New()
//
//	loop.Post(dispatch.PriorityNormal, func() {
//	    // runs on the loop thread
//	})
//	loop.RequestShutdown(dispatch.PriorityIdle)
//
//	loop.Run() // pumps queued work, then returns
//
// # Marshaling
//
// Invoke transfers a callback onto the loop thread and waits for it to
// complete. If the loop shuts down while the call is pending, Invoke fails
// with ErrLoopShutdown. During process teardown this is the expected outcome
// and callers should log it rather than treat it as a fault.
//
// # Shutdown Semantics
//
// A shutdown request is an ordinary queued work item: requesting shutdown at
// PriorityIdle lets all already-queued work at any higher priority run first.
// Timers that have not come due never delay a shutdown and are discarded when
// the loop terminates.
package dispatch
