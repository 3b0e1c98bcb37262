// Package monitoring carries the process-wide diagnostic logger used
// by the scene graph core. Expected-absence conditions (missing nodes,
// unsolved variables) log through here; invariant violations panic
// instead of logging.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to
// log.Printf and may be swapped with SetLogger; tests typically mute
// it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op
// logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
