package arena

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pagefault-systems/sixjit/internal/trap"
	"github.com/pagefault-systems/sixjit/internal/xlog"
)

var guardOnce sync.Once

// WatchGuardPages installs a best-effort SIGSEGV watcher: a computed jump
// that lands in one of the arena's guard pages raises SIGSEGV from inside
// translated code, which is not recoverable mid-instruction (the spec
// calls this fatal, "indicates emitter bug or corrupted guest state"), so
// the watcher's job is only to log a GuardPageFaultError with whatever
// context it has before the process exits, rather than leaving a bare
// kernel-printed segfault.
func WatchGuardPages(log *xlog.Logger) {
	guardOnce.Do(func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGSEGV)
		go func() {
			<-ch
			log.Errorf("%v", &trap.GuardPageFaultError{})
			os.Exit(2)
		}()
	})
}
