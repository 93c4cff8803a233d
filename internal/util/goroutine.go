package util

import "runtime"

// GoroutineID returns the current goroutine's id by parsing the first line of
// its stack trace. Runtime internals are fair game here because the id is
// used only for diagnostics (worker thread names) and same-goroutine checks,
// never for correctness-critical identity.
func GoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// Stack trace starts with "goroutine NNN ["
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] < '0' || buf[i] > '9' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}
