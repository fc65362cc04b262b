// Package queue persists production tasks in SQLite.
//
// A task is one (job × target-language) pair. Unlike a single linear status,
// each task carries an ordered stage list with an independent status per
// stage; the scheduler in internal/pipeline owns all mutation.
package queue
