package log

import (
	"fmt"
	"os"
	"runtime/debug"
)

// PanicHandler must be deferred at the top of every goroutine. It logs the
// stack trace before letting the panic continue.
func PanicHandler() {
	r := recover()
	if r == nil {
		return
	}
	stack := debug.Stack()
	Errorf("PANIC: %v\n%s", r, stack)
	fmt.Fprintf(os.Stderr, "mailthread crashed: %v\n%s", r, stack)
	panic(r)
}
