// Package slogobs implements observability.Provider with log/slog.
//
// Spans, events and metric updates become debug records; log calls map to the
// matching slog level. Build one with [New] and tune it with [WithFormat],
// [WithLevel], [WithOutput] or [WithLogger].
package slogobs
