package paxbuilder

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

var interruptOnce sync.Once

// CleanupOnInterrupt installs a SIGINT/SIGTERM handler that runs every
// callback registered via RegisterAtExit — pending workspace removals,
// chiefly — before terminating the process with the conventional
// 128+signal exit status. The pipeline has no in-process cancellation
// once a shell phase starts, so an interrupt skips straight to cleanup.
// Installing the handler more than once is a no-op.
func CleanupOnInterrupt() {
	interruptOnce.Do(func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		go func() {
			sig := <-c
			// Subsequent signals result in immediate termination, which
			// is useful in case cleanup hangs.
			signal.Stop(c)
			if err := RunAtExit(); err != nil {
				fmt.Fprintf(os.Stderr, "cleanup after interrupt: %v\n", err)
			}
			if s, ok := sig.(syscall.Signal); ok {
				os.Exit(128 + int(s))
			}
			os.Exit(1)
		}()
	})
}
