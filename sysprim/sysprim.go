// Package sysprim is the core of the sysprim application, providing small
// POSIX primitives that work independently of each other and report what they
// do to an injected Journaler.
//
// # Command Execution
//
// Executor runs either a shell command line or an argv-style program and
// waits for it synchronously. A command is only considered successful if it
// exited normally with status 0; being killed by a signal counts as a
// failure. A child that cannot run its executable is reported as exiting with
// status 127, the same way a shell reports a command it cannot execute, so
// that callers only ever have to look at the exit status.
//
// The redirected variant gives the child a freshly truncated file as its
// standard output. The caller's own standard output is never touched.
//
// # Timed Mutex Tasks
//
// A MutexTask is scheduled onto its own goroutine. It waits, acquires a
// Locker, waits again while holding it, then releases it. The task records
// failure before doing any work, so a task that stops early for any reason is
// observably failed. The scheduler must Join the task before looking at its
// status.
//
// Locker is a lock whose operations can fail. SyncLocker adapts the sync
// package's locks, which never fail on Lock, and NewFileLocker provides a lock
// that is also exclusive across processes.
package sysprim
