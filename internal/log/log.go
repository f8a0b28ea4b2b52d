// Package log wires the library's process-wide logger.
//
// Like flapc's VerboseMode-gated fmt.Fprintf calls, this library never
// logs to a hardcoded destination: callers that do not install a
// logger get a silent github.com/rs/zerolog.Nop() logger, and every
// degrade-quietly path in the parsers (spec error kinds 2-5) logs at
// Debug or Warn through it instead of propagating.
package log

import (
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = zerolog.Nop()
)

// SetLogger installs the logger used by every internal package. Safe
// to call concurrently with Logger, but not synchronized with
// in-flight parses that already captured a sub-logger.
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// Logger returns a component-scoped sub-logger of the installed
// logger.
func Logger(component string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger.With().Str("component", component).Logger()
}
