// Package snapshot converts tasks to and from their wire records and stores
// full snapshots.
//
// The snapshot document is a JSON array of top-level records, each carrying
// its nested subtasks recursively. Conversion happens only at this boundary:
// [ToRecord] and [FromRecord] are pure, total, and recursive, and the
// dependency graph is rebuilt separately after a full tree is converted.
//
// [File] writes snapshots atomically (temp file plus rename) on any afero
// filesystem and can guard access with a flock(2) [FileLock] when running
// against the OS filesystem.
//
// Round trips are stable: encoding records decoded from an encoded snapshot
// yields the same bytes.
package snapshot
