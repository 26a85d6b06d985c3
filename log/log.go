// Package log is a thin compatibility shim over github.com/luxfi/log, the
// way the teacher's log/compat.go re-exports luxlog.Logger/luxlog.Root. Every
// mempulse subsystem logs through this package rather than fmt.Println or
// the bare standard-library log, so log output stays structured and the
// level/handler configuration stays centralized.
package log

import (
	luxlog "github.com/luxfi/log"
)

// Logger re-exports the upstream logger interface so callers never import
// luxfi/log directly.
type Logger = luxlog.Logger

// Re-exported constructors.
var (
	New  = luxlog.New
	Root = luxlog.Root
)

// ForComponent returns a logger tagged with a component name, the pattern
// used at the top of every subsystem constructor (ingest engines, writer,
// broadcaster) to make interleaved goroutine output attributable.
func ForComponent(name string) Logger {
	return luxlog.Root().New("component", name)
}
