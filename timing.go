// FILE: lixenwraith/printercfg/timing.go
package printercfg

import "time"

// Timing defaults for file watching.
const (
	// DefaultDebounce coalesces the burst of events an editor or an atomic save produces
	DefaultDebounce = 500 * time.Millisecond
	// MinDebounce is the floor applied to configured debounce periods
	MinDebounce = 10 * time.Millisecond
)

const (
	// DefaultMaxWatchers caps concurrent subscriber channels
	DefaultMaxWatchers = 100
	// subscriberBuffer is the capacity of each subscriber channel
	subscriberBuffer = 16
)
