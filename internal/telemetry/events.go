package telemetry

import "context"

// Completion describes one call to the completion endpoint.
type Completion struct {
	Phase      string  `json:"phase"`
	Provider   string  `json:"provider"`
	Model      string  `json:"model"`
	Tools      bool    `json:"tools"`
	Messages   int     `json:"messages"`
	DurationMS int64   `json:"duration_ms"`
	Error      *string `json:"error"`
}

// ToolExec describes one tool dispatch. Arguments and output are recorded by
// size only.
type ToolExec struct {
	Tool       string  `json:"tool_name"`
	DurationMS int64   `json:"duration_ms"`
	InputSize  int     `json:"input_size"`
	OutputSize int     `json:"output_size"`
	Error      *string `json:"error"`
}

// EmitCompletion writes a "completion" event.
func EmitCompletion(ctx context.Context, c Completion) {
	Emit(ctx, "completion", c)
}

// EmitToolExec writes a "tool_exec" event.
func EmitToolExec(ctx context.Context, e ToolExec) {
	Emit(ctx, "tool_exec", e)
}

// ErrorClass returns nil for an empty class so successful events encode
// "error": null.
func ErrorClass(class string) *string {
	if class == "" {
		return nil
	}
	return &class
}
