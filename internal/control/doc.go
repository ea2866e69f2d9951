// Package control implements the pool circulation and heating logic.
//
// The package is organised as one explicit struct per concern: frost
// guard, solar circulation, PV surplus, heat control, time windows,
// maintenance overrides and fault detection. Every evaluator reads and
// writes typed points in the shared point store; none of them talk to
// hardware or MQTT directly. Arbitration over the shared pump is
// last-writer-wins with advisory ownership flags, and conflicting
// writes are expected to re-converge on the next evaluation cycle.
//
// All evaluation runs on a single goroutine inside Runner. Timers
// (afterruns, preruns, fault grace re-checks) are managed by Scheduler
// and dispatched back onto that same goroutine, so evaluator state
// needs no locking.
package control
