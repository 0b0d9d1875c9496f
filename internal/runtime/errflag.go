package runtime

import "fmt"

// The runtime error flag is a process-global record that compiled code
// and the interpreter both signal failures through. Risky operations
// (division, unbound-name access, unboxing) raise it; try/catch regions
// check and clear it. Compilation and execution are single-threaded,
// so no locking is needed.

// ErrorKind classifies runtime failures.
type ErrorKind string

const (
	ErrDivisionByZero ErrorKind = "division by zero"
	ErrNegativeCount  ErrorKind = "negative loop count"
	ErrTypeMismatch   ErrorKind = "type mismatch"
	ErrUndefinedName  ErrorKind = "undefined variable"
	ErrBadArity       ErrorKind = "wrong number of arguments"
	ErrStorage        ErrorKind = "storage failure"
)

type errorFlag struct {
	active     bool
	kind       ErrorKind
	message    string
	line       int
	catchDepth int
}

var flag errorFlag

// RaiseError sets the flag. A flag already raised is kept: the first
// failure wins until something clears it.
func RaiseError(kind ErrorKind, line int, format string, args ...any) {
	if flag.active {
		return
	}
	flag.active = true
	flag.kind = kind
	flag.line = line
	flag.message = fmt.Sprintf(format, args...)
}

// ErrorActive reports whether an unhandled runtime error is pending.
func ErrorActive() bool {
	return flag.active
}

// ErrorMessage formats the pending error for a catch handler or the
// top-level reporter.
func ErrorMessage() string {
	if !flag.active {
		return ""
	}
	if flag.line > 0 {
		return fmt.Sprintf("%s: %s (line %d)", flag.kind, flag.message, flag.line)
	}
	return fmt.Sprintf("%s: %s", flag.kind, flag.message)
}

// ClearError resets the flag; called by catch handlers.
func ClearError() {
	flag = errorFlag{catchDepth: flag.catchDepth}
}

// EnterCatch and LeaveCatch bracket a try region.
func EnterCatch() { flag.catchDepth++ }
func LeaveCatch() {
	if flag.catchDepth > 0 {
		flag.catchDepth--
	}
}

// InCatch reports whether any catch region is active; without one a
// raised error is fatal to the whole program.
func InCatch() bool {
	return flag.catchDepth > 0
}
