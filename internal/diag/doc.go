// Package diag defines the diagnostic model shared by the loaders and the
// correlation handlers.
//
// Diagnostics describe recoverable problems found in untrusted trace input:
// an end event that never met its begin, a begin left open when the stream
// stopped, a negative duration, a record that could not be decoded. None of
// them abort processing; they are collected in a Bag and rendered by the CLI.
//
// # Data model
//
//   - Severity – tri-level enum (Info, Warning, Error).
//   - Code – compact numeric identifier with a stable string form (PAIR1001).
//   - Message – short human oriented text.
//   - Ref – the offending event (arrival sequence, timestamp, name, key).
//   - Notes – optional extra context lines.
//
// Programmer errors (querying an unfinalized handler, feeding after finalize)
// are not diagnostics; they are returned as errors.
package diag
