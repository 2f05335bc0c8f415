// Package kernelfault implements the "abort the simulation with diagnostic"
// behavior spec.md §7 assigns to precondition violations. Disk I/O errors
// against the backing store do not go through it: Disk.ReadRequest and
// Disk.WriteRequest return them to their caller as ordinary errors. It is
// grounded on the teacher's
// utils/config.IniciarConfiguracion, which already logs via slog.Error and
// then panics on malformed input — generalized into a shared helper with a
// typed error so callers (tests, the Kernel) can recover() and assert on it.
package kernelfault

import (
	"fmt"
	"log/slog"
)

// Fault is the typed panic value raised by Assert. Component names the
// subsystem that detected the violation (e.g. "InterruptController",
// "Scheduler", "Disk").
type Fault struct {
	Component string
	Message   string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s", f.Component, f.Message)
}

// Assert panics with a *Fault, logging first, unless cond is true.
func Assert(log *slog.Logger, component string, cond bool, format string, args ...any) {
	if cond {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if log != nil {
		log.Error("precondition violation", slog.String("component", component), slog.String("message", msg))
	}
	panic(&Fault{Component: component, Message: msg})
}
