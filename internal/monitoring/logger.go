// Package monitoring provides the log streams and the message sink used by
// the fitting routines to report warnings and diagnostics.
package monitoring

import (
	"io"
	"log"
	"sync"
)

// Logf receives ops messages when no ops writer is configured. It defaults
// to log.Printf; SetLogger swaps it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces Logf. nil mutes it.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		f = func(string, ...interface{}) {}
	}
	Logf = f
}

// Stream names one of the three log streams.
type Stream int

const (
	// StreamOps carries fit failures and rejected configuration.
	StreamOps Stream = iota
	// StreamDiag carries one summary line per fit.
	StreamDiag
	// StreamTrace carries per-iteration adjustment telemetry.
	StreamTrace

	numStreams
)

// LogWriters holds the io.Writers for each logging stream. A nil writer
// disables its stream.
type LogWriters struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

const logPrefix = "[geofit] "

var (
	mu      sync.RWMutex
	streams [numStreams]*log.Logger
)

// SetLogWriters configures all three logging streams at once.
func SetLogWriters(w LogWriters) {
	var next [numStreams]*log.Logger
	for s, out := range [numStreams]io.Writer{w.Ops, w.Diag, w.Trace} {
		if out != nil {
			next[s] = log.New(out, logPrefix, log.LstdFlags|log.Lmicroseconds)
		}
	}
	mu.Lock()
	streams = next
	mu.Unlock()
}

// Enabled reports whether s has a writer. Callers use it to skip building
// expensive trace arguments.
func Enabled(s Stream) bool {
	if s < 0 || s >= numStreams {
		return false
	}
	mu.RLock()
	defer mu.RUnlock()
	return streams[s] != nil
}

func printf(s Stream, format string, args []interface{}) bool {
	mu.RLock()
	l := streams[s]
	mu.RUnlock()
	if l == nil {
		return false
	}
	l.Printf(format, args...)
	return true
}

// Opsf logs to the ops stream, falling back to Logf so warnings are not
// lost when no ops writer is set.
func Opsf(format string, args ...interface{}) {
	if !printf(StreamOps, format, args) {
		Logf(format, args...)
	}
}

// Diagf logs to the diag stream.
func Diagf(format string, args ...interface{}) { printf(StreamDiag, format, args) }

// Tracef logs to the trace stream.
func Tracef(format string, args ...interface{}) { printf(StreamTrace, format, args) }
