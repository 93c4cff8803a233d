package dispatch

import "errors"

// Priority controls the order in which queued work is executed.
// Higher priorities always run before lower ones; within a priority,
// execution is FIFO.
type Priority int

const (
	// PriorityIdle runs only when no work at any other priority is ready.
	// Shutdown requests are typically queued here so in-flight work can
	// finish first.
	PriorityIdle Priority = iota

	// PriorityLow runs after normal work has drained.
	PriorityLow

	// PriorityNormal is the default for posted and marshaled work.
	PriorityNormal

	// PriorityHigh preempts all other queued work.
	PriorityHigh

	numPriorities = 4
)

// String returns a human-readable priority name.
func (p Priority) String() string {
	switch p {
	case PriorityIdle:
		return "idle"
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	default:
		return "invalid"
	}
}

// valid reports whether p is a defined priority level.
func (p Priority) valid() bool {
	return p >= PriorityIdle && p < numPriorities
}

// State describes the lifecycle of a Loop.
type State int32

const (
	// StateIdle means the loop has been created but Run has not been called.
	// Work may already be queued.
	StateIdle State = iota

	// StateRunning means a goroutine is pumping the loop.
	StateRunning

	// StateTerminated means the loop has processed its shutdown request and
	// will never execute work again.
	StateTerminated
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Common error values for the dispatch loop
var (
	// ErrLoopRunning indicates Run was called while the loop is already running
	ErrLoopRunning = errors.New("dispatch: loop is already running")

	// ErrLoopTerminated indicates an operation was attempted on a loop that
	// has already shut down
	ErrLoopTerminated = errors.New("dispatch: loop has terminated")

	// ErrLoopShutdown indicates a marshaled call was abandoned because the
	// loop is shutting down. During process teardown this is the expected
	// outcome and should be logged, not escalated.
	ErrLoopShutdown = errors.New("dispatch: loop is shutting down")

	// ErrNilFunc indicates a nil callback was supplied
	ErrNilFunc = errors.New("dispatch: nil function")

	// ErrInvalidPriority indicates an undefined priority level was supplied
	ErrInvalidPriority = errors.New("dispatch: invalid priority")
)
