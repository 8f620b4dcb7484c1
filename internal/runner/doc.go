// Package runner drives one question through the completion endpoint and, at
// most once, through a tool.
//
// Invariant:
//   - the assistant invocation and its tool result are appended adjacently,
//     and the second completion is never issued before the result is stored.
//
// Flow:
//
//	system(replay) -> user(text) -> assistant(invocation) -> tool(result) -> assistant(text)
package runner
