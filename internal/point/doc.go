// Package point is the shared control-point store for Pool Core.
//
// Every piece of state that crosses an evaluator boundary lives here as a
// typed point: the shared pump actuator, the heater, the operating mode,
// sensor readings, user settings and derived status outputs. Evaluators
// read points, decide, and write points; there is deliberately no lock
// spanning a read-decide-write sequence. Conflicting writes resolve
// last-writer-wins and self-correct within one polling interval of the
// losing evaluator.
//
// A small durable subset (mode, last commanded actuator values) is
// mirrored to SQLite and reloaded at startup. Everything else, including
// the "unknown" sentinel on never-written points, is process-local.
//
// The pump runtime log also lives here: pump on/off sessions recorded to
// SQLite, from which the daily circulation quota is computed.
package point
