// Package jobs turns a transcode request into a trackable, cancellable,
// concurrently observable unit of work.
//
// The package is built from three pieces:
//
//   - Registry: thread-safe storage for job records. It is the only place
//     that mutates job state, enforces the status state machine, and keeps
//     the "one active job per output path" invariant.
//   - Dispatcher: delivers progress events produced on the encoding
//     goroutine to at most one observer per job without ever blocking the
//     encoder, and guarantees that no event is delivered after a
//     subscription has been released.
//   - Controller: the public contract. It validates requests, drives the
//     codec engine asynchronously, and exposes polling, cancellation,
//     probing and thumbnail extraction to callers.
//
// Callers may observe a job either by polling the controller or by
// subscribing a progress callback at submission; both are views of the
// same registry record.
package jobs
