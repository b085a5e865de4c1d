// Package logx configures workoutbot's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//
// Process logging is separate from the delivery log: what happened inside the
// daemon goes here, what happened to a delivery attempt goes to the durable
// delivery log that the weekly report and the /logs endpoint read.
package logx
