// Package log provides diagnostics for object-dictionary access.
//
// Dictionary objects emit one Event per protocol operation (read, write,
// complete access, management calls). Applications receive events through the
// Logger interface; implementations include NoopLogger (discard), SlogAdapter
// (console via log/slog), FileLogger (compact CBOR file), and MultiLogger
// (fan-out). Recorder wraps any Logger and stamps session identity and
// timestamps. Reader reads a CBOR event file back for offline analysis.
package log
