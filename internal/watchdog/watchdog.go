// Package watchdog provides the deferred-recover helper the decision
// loop defers in Run and in each tick, following cmd/trace-agent's
// `defer watchdog.LogOnPanic()` call in its Run loop: a panic there
// gets logged with a stack trace instead of crashing the whole agent
// silently. The teacher's own watchdog package (CPU/
// memory sampling, a dieFunc hook) isn't part of this retrieval pack,
// only its call sites are, so this is a minimal reimplementation of
// just the LogOnPanic half.
package watchdog

import (
	"runtime/debug"

	log "github.com/cihub/seelog"
)

// LogOnPanic should be deferred at the top of any goroutine the
// decision loop spawns. It recovers a panic, logs it with a stack
// trace, and lets the goroutine unwind normally afterward.
func LogOnPanic() {
	if r := recover(); r != nil {
		log.Errorf("recovered from panic: %v\n%s", r, debug.Stack())
	}
}
