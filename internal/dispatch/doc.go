// Package dispatch turns a model-issued tool invocation into a tool call.
//
// Dispatch runs in two phases so the caller can record the invocation in the
// transcript only once it is known to be valid:
//
//	Prepare: resolve name -> validate JSON against schema -> extract string args
//	Invoke:  run the tool -> text result
//
// Errors are never converted into tool results; they surface to the caller as
// tools.ErrUnknownTool, ErrInvalidToolArguments or ErrToolExecutionFailure.
package dispatch
