// Package harness wires the confined executor to a home dispatch loop and
// runs configured demo jobs against it.
//
// The harness stands in for an application that owns a long-lived event loop
// on a fixed thread: it pumps a home loop on a dedicated goroutine, fans out
// one confined worker per job, and has each job marshal its progress updates
// back onto the home loop. A marshal that fails with dispatch.ErrLoopShutdown
// is logged and dropped — during teardown that is the expected outcome, not
// an error.
package harness
