package od

import (
	"fmt"
	"os"

	"github.com/coe-protocol/coe-go/pkg/log"
)

// Notifier receives access hooks from dictionary objects. A nil Notifier on
// an object disables all hooks.
//
// BeforeRead and BeforeWrite may veto the operation by returning a non-zero
// abort code; nothing has been committed at that point. A panic out of
// BeforeRead or BeforeWrite propagates to the caller unchanged. A panic out
// of AfterWrite terminates the process: native storage has already been
// committed and the notification state is desynchronized beyond recovery.
type Notifier interface {
	// BeforeRead is invoked before a value is streamed out. sizeOnly is true
	// when the object only queries the current content size.
	BeforeRead(e Entry, subindex uint8, completeAccess, sizeOnly bool) AbortCode

	// BeforeWrite is invoked with the fully decoded candidate value before it
	// is committed to native storage. si0 carries the subindex-0 count the
	// write would establish; preview is the candidate in native layout and
	// must not be retained after the call returns.
	BeforeWrite(e Entry, subindex uint8, completeAccess bool, si0 uint8, preview []byte) AbortCode

	// AfterWrite is invoked after the value has been committed.
	AfterWrite(e Entry, subindex uint8, completeAccess bool)
}

// exitFunc is stubbed by the fatal-path test.
var exitFunc = os.Exit

// fatalExitCode is the process exit status used when an AfterWrite hook
// panics after the commit.
const fatalExitCode = 70

// runAfterWrite invokes the AfterWrite hook and turns a panic into process
// termination. The write already happened; continuing would leave
// notification state silently desynchronized from storage state.
func runAfterWrite(n Notifier, logger log.Logger, e Entry, subindex uint8, completeAccess bool) {
	if n == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			msg := fmt.Sprintf("od: AfterWrite hook panicked after commit on %q subindex %d: %v",
				e.Name(), subindex, p)
			if logger != nil {
				logger.Log(log.Event{
					Op:       log.OpFatal,
					Object:   e.Name(),
					Index:    e.Index(),
					Subindex: subindex,
					Err:      msg,
				})
			}
			fmt.Fprintln(os.Stderr, msg)
			exitFunc(fatalExitCode)
		}
	}()
	n.AfterWrite(e, subindex, completeAccess)
}

// beforeRead invokes the BeforeRead hook, nil-safe.
func beforeRead(n Notifier, e Entry, subindex uint8, completeAccess, sizeOnly bool) AbortCode {
	if n == nil {
		return AbortNone
	}
	return n.BeforeRead(e, subindex, completeAccess, sizeOnly)
}

// beforeWrite invokes the BeforeWrite hook, nil-safe.
func beforeWrite(n Notifier, e Entry, subindex uint8, completeAccess bool, si0 uint8, preview []byte) AbortCode {
	if n == nil {
		return AbortNone
	}
	return n.BeforeWrite(e, subindex, completeAccess, si0, preview)
}
