// Package memory persists transcripts between runs.
//
// Persistence model:
//   - Full transcript messages are stored, tool invocations and results included,
//     so a restored session replays exactly what the model saw.
//   - A missing session loads as an empty transcript, not an error.
package memory
