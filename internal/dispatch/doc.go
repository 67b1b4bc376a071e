// Package dispatch runs the single background worker loop.
//
// The dispatcher removes jobs from the bounded queue and executes them by
// spawning one child process per job, waiting for it to exit before taking
// the next job. Dispatch is strictly serial: one job in flight at a time,
// in exact submission order.
//
// State machine:
//   - waiting_for_job → dispatching → waiting_for_child → waiting_for_job
//   - stopped, reached only when the queue reports no more work
//
// Error handling:
//   - Program not found → job recorded as failed, loop continues
//   - Spawn failure → job dropped and recorded as failed, loop continues
//   - Non-zero exit → completed (failed) job, not retried
//   - History write failure → logged and ignored
//
// There is no per-job timeout: a runaway child blocks the loop until it
// exits. Shutdown only prevents new dispatch cycles; it never kills a
// running child. Exit status is reported to the console and the history
// log only — nothing flows back to the submitter.
package dispatch
