// Package scheduler runs the async packages of a page build.
//
// # How It Works
//
// Async package names are discovered while walking manifests. Each name is
// enqueued once per build; enqueueing the same name again is a no-op. Tasks
// queued before Start are held back, so the synchronous walk can finish (and
// fail) before any async work begins. Tasks may enqueue further names while
// they run.
//
// Wait returns once the queue is idle: every enqueued task has finished and
// none is outstanding. The first failing task cancels the context shared by
// the remaining tasks and its error is the one Wait reports.
//
// # Concurrency
//
// At most Workers tasks run at the same time, bounded by a weighted
// semaphore from golang.org/x/sync.
package scheduler
