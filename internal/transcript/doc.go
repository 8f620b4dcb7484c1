// Package transcript holds the ordered, role-tagged conversation history shared
// between the orchestration loop and the completion providers.
//
// Invariants:
//   - a non-empty transcript starts with the persona system message
//   - a tool message follows (not necessarily adjacently) an assistant message whose
//     invocation carries the same tool name
//
// Flow of one tool-augmented turn:
//
//	system(replay) -> user(text) -> assistant(invocation) -> tool(result) -> assistant(text)
package transcript
