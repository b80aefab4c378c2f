// Package corelog provides the core's ambient structured logging, wrapping
// github.com/hashicorp/go-hclog the way the hashicorp-nomad example wraps it
// throughout its agent and client packages. Logging here is purely
// informational (GC-sweep summaries, index rebuild stats, HO-enumeration
// limit exhaustion); nothing in the core's correctness depends on it, and
// the default Logger is silent so tests never need to suppress output.
package corelog

import (
	"io"

	"github.com/hashicorp/go-hclog"
)

// Logger is the leveled logger interface the core depends on; it is the
// subset of hclog.Logger the core actually calls.
type Logger = hclog.Logger

// Discard is the default logger: it drops everything. Constructors across
// the core accept a Logger and default to this when none is supplied, so
// that logging is always opt-in.
var Discard Logger = hclog.NewNullLogger()

// New builds a named hclog logger writing to w at the given level, for
// embedding processes (cmd/saturd) that want visible output.
func New(name string, level hclog.Level, w io.Writer) Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   name,
		Level:  level,
		Output: w,
	})
}
