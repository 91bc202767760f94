package safego

import (
	"log"
	"runtime/debug"
)

// Go runs fn on a new goroutine with a panic trap. The terminal dashboard
// owns stdout, so a bare panic would vanish with the screen; the trap writes
// the stack to the injected logger before re-panicking.
func Go(logger *log.Logger, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Printf("PANIC: %v\n%s", r, debug.Stack())
				panic(r)
			}
		}()
		fn()
	}()
}
