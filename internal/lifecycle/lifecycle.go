package lifecycle

import "sync/atomic"

var (
	ready        atomic.Bool
	shuttingDown atomic.Bool
)

// Status values reported by the readiness probe.
const (
	StatusStarting     = "starting"
	StatusReady        = "ready"
	StatusShuttingDown = "shutting-down"
)

// SetReady marks startup (config, store, seed) as complete.
func SetReady(v bool) {
	ready.Store(v)
}

// SetShuttingDown sets the shutdown flag. Call when SIGTERM/SIGINT received.
// The readiness probe returns 503 with status shutting-down while true.
func SetShuttingDown(v bool) {
	shuttingDown.Store(v)
}

// IsShuttingDown returns true if the process is draining and should not receive new traffic.
func IsShuttingDown() bool {
	return shuttingDown.Load()
}

// Status returns the current lifecycle state. Shutting down wins over ready.
func Status() string {
	switch {
	case shuttingDown.Load():
		return StatusShuttingDown
	case ready.Load():
		return StatusReady
	default:
		return StatusStarting
	}
}

// Reset clears both flags. Tests only.
func Reset() {
	ready.Store(false)
	shuttingDown.Store(false)
}
