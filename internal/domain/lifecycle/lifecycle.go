// Package lifecycle holds shared shutdown constants for long-running components.
package lifecycle

import "time"

// DefaultTimeout bounds graceful shutdown of servers and background loops.
const DefaultTimeout = 10 * time.Second
