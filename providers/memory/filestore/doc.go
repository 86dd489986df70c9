// Package filestore implements [memory.Store] on top of a single JSON file.
// Writes go to a temporary file that is renamed over the target, so a reader
// never observes a partially written history.
package filestore
