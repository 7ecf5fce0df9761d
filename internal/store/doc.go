// Package store persists the device fleet as an ordered JSON collection.
//
// Records are kept as raw maps rather than structs so that fields written
// by other versions of the tool survive every merge-patch untouched. Every
// mutation rewrites the whole file through a temp-file rename, so a crash
// mid-write leaves the previous store intact. A file that fails to parse
// is quarantined under a timestamped name and the store restarts empty;
// that event is a warning, not an error.
package store
