package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/petasbytes/research-agent/internal/logging"
	"github.com/petasbytes/research-agent/internal/metrics"
	"github.com/petasbytes/research-agent/internal/telemetry"
	"github.com/petasbytes/research-agent/internal/transcript"
	"github.com/petasbytes/research-agent/tools"
)

const schemaBaseURL = "https://research-agent.local/tools/"

// Outcome labels beyond metrics.OutcomeOK / OutcomeError.
const (
	outcomeUnknownTool = "unknown_tool"
	outcomeInvalidArgs = "invalid_arguments"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger; defaults to a no-op logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithRecorder sets the Prometheus recorder; nil disables metrics.
func WithRecorder(r *metrics.Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// Dispatcher validates and executes tool invocations against a registry.
type Dispatcher struct {
	registry *tools.Registry
	schemas  map[tools.Name]*jsonschema.Schema
	logger   *slog.Logger
	recorder *metrics.Recorder
}

// New compiles every registered tool schema up front so malformed schemas fail
// at startup instead of mid-conversation.
func New(registry *tools.Registry, opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		registry: registry,
		schemas:  make(map[tools.Name]*jsonschema.Schema),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}

	c := jsonschema.NewCompiler()
	for _, def := range registry.Definitions() {
		raw, err := def.SchemaJSON()
		if err != nil {
			return nil, fmt.Errorf("encode schema for %s: %w", def.Name, err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("decode schema for %s: %w", def.Name, err)
		}
		// The declared schema stays strict for the model; extra keys in its
		// arguments are ignored here, only required fields are checked.
		if m, ok := doc.(map[string]any); ok {
			delete(m, "additionalProperties")
		}
		url := schemaBaseURL + string(def.Name) + ".json"
		if err := c.AddResource(url, doc); err != nil {
			return nil, fmt.Errorf("add schema for %s: %w", def.Name, err)
		}
		compiled, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile schema for %s: %w", def.Name, err)
		}
		d.schemas[def.Name] = compiled
	}
	return d, nil
}

// Call is a validated invocation ready to run.
type Call struct {
	Definition tools.ToolDefinition
	Invocation transcript.ToolInvocation
	// Args holds the required fields in schema order.
	Args []string

	d *Dispatcher
}

// Prepare resolves inv and extracts its arguments without running the tool.
func (d *Dispatcher) Prepare(ctx context.Context, inv transcript.ToolInvocation) (*Call, error) {
	start := time.Now()

	def, err := d.registry.Resolve(inv.Name)
	if err != nil {
		d.observe(ctx, inv, start, 0, outcomeUnknownTool)
		return nil, err
	}

	args, err := d.extract(def, inv.Arguments)
	if err != nil {
		d.observe(ctx, inv, start, 0, outcomeInvalidArgs)
		return nil, invalidArguments(inv.Name, err)
	}

	return &Call{Definition: def, Invocation: inv, Args: args, d: d}, nil
}

// Invoke runs the tool synchronously. Tool errors are wrapped in
// *ToolExecutionError; panics are not recovered.
func (c *Call) Invoke(ctx context.Context) (string, error) {
	start := time.Now()
	out, err := c.Definition.Function(ctx, c.Args...)
	if err != nil {
		c.d.observe(ctx, c.Invocation, start, 0, metrics.OutcomeError)
		return "", &ToolExecutionError{Tool: c.Invocation.Name, Err: err}
	}
	c.d.observe(ctx, c.Invocation, start, len(out), metrics.OutcomeOK)
	return out, nil
}

// Dispatch is Prepare followed by Invoke.
func (d *Dispatcher) Dispatch(ctx context.Context, inv transcript.ToolInvocation) (string, error) {
	call, err := d.Prepare(ctx, inv)
	if err != nil {
		return "", err
	}
	return call.Invoke(ctx)
}

func (d *Dispatcher) extract(def tools.ToolDefinition, raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}

	if schema, ok := d.schemas[def.Name]; ok {
		inst, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("decode arguments: %w", err)
		}
		if err := schema.Validate(inst); err != nil {
			return nil, err
		}
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("decode arguments: %w", err)
	}

	required := def.RequiredFields()
	args := make([]string, 0, len(required))
	for _, name := range required {
		v, ok := fields[name]
		if !ok {
			return nil, fmt.Errorf("missing required field %q", name)
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("field %q must be a string, got %T", name, v)
		}
		args = append(args, s)
	}
	return args, nil
}

// observe emits the tool_exec event and metrics. Sizes only; raw payloads
// never reach telemetry.
func (d *Dispatcher) observe(ctx context.Context, inv transcript.ToolInvocation, start time.Time, outSize int, outcome string) {
	elapsed := time.Since(start)
	turnID, _ := telemetry.TurnIDFromContext(ctx)

	ev := telemetry.ToolExec{
		Tool:       inv.Name,
		DurationMS: elapsed.Milliseconds(),
		InputSize:  len(inv.Arguments),
		OutputSize: outSize,
	}
	if outcome != metrics.OutcomeOK {
		ev.Error = telemetry.ErrorClass(strings.ReplaceAll(outcome, "_", " "))
	}
	telemetry.EmitToolExec(ctx, ev)

	label := inv.Name
	if outcome == outcomeUnknownTool {
		// Model-supplied names would otherwise grow label cardinality unbounded.
		label = "unknown"
	}
	d.recorder.ObserveTool(label, outcome, elapsed)

	level := slog.LevelDebug
	if outcome != metrics.OutcomeOK {
		level = slog.LevelWarn
	}
	d.logger.Log(ctx, level, "tool dispatch",
		"tool", inv.Name, "outcome", outcome, "duration", elapsed, "turn_id", turnID)
}

// IsDispatchError reports whether err came from tool resolution, argument
// validation or tool execution.
func IsDispatchError(err error) bool {
	return errors.Is(err, tools.ErrUnknownTool) ||
		errors.Is(err, ErrInvalidToolArguments) ||
		errors.Is(err, ErrToolExecutionFailure)
}
