// Package sse writes Server-Sent Events to an HTTP response.
//
// A [Writer] sets the streaming headers in Start, then frames each payload
// as "id:", "event:" and one "data:" line per payload line. Error and done
// events use a fixed JSON shape so browser clients can tell a failed stream
// from a finished one.
package sse
