// Package dispatcher is the process-wide trigger scheduler.
//
// # Overview
//
// A Dispatcher holds a small, fixed set of recurring triggers, each a unique
// id bound to one action. Cadences are cron expressions evaluated in a fixed
// IANA timezone so "07:00" means the same civil time regardless of where the
// process runs. Fired actions execute on a fixed-size worker pool, separate
// from any HTTP request path.
//
// # Registration
//
// Register is set-insertion keyed by id: registering a duplicate id is a
// silent no-op. This makes re-entrant startup code paths safe: the trigger
// set is established once at startup and never changes at runtime.
//
// # Failure containment
//
// Action errors and panics are captured per firing, logged, and recorded in a
// bounded history ring. They never reach the cron clock or the worker pool,
// so one bad send cannot prevent the next scheduled job from running.
//
// # Overlap
//
// A trigger is never fired concurrently with itself; an overdue firing is
// skipped while the previous one is still running. Different triggers are
// independent and may run concurrently.
package dispatcher
