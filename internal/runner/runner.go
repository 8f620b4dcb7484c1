package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/petasbytes/research-agent/internal/dispatch"
	"github.com/petasbytes/research-agent/internal/logging"
	"github.com/petasbytes/research-agent/internal/metrics"
	"github.com/petasbytes/research-agent/internal/provider"
	"github.com/petasbytes/research-agent/internal/telemetry"
	"github.com/petasbytes/research-agent/internal/transcript"
	"github.com/petasbytes/research-agent/tools"
)

// SummarizePrompt is the system message of the ad-hoc summarize exchange.
const SummarizePrompt = "You are a helpful assistant. Summarize the following text."

// Completion phases, used as the "phase" metric label and telemetry field.
const (
	PhaseFirst     = "first"
	PhaseSecond    = "second"
	PhaseSummarize = "summarize"
)

// State is a step of the orchestration loop.
type State string

const (
	StateAwaitingFirstCompletion  State = "awaiting_first_completion"
	StateToolRequested            State = "tool_requested"
	StateAwaitingSecondCompletion State = "awaiting_second_completion"
	StateFinalAnswer              State = "final_answer"
)

// Result describes a completed Ask.
type Result struct {
	TurnID string
	States []State
	// Invocation is the dispatched tool call, nil on the direct path.
	Invocation *transcript.ToolInvocation
	// Answer is nil when the model produced no text.
	Answer *string
}

// AnswerString returns the answer, or "" when there is none.
func (r *Result) AnswerString() string {
	if r == nil || r.Answer == nil {
		return ""
	}
	return *r.Answer
}

func (r *Result) enter(s State) {
	r.States = append(r.States, s)
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger for the runner and its dispatcher.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithRecorder sets the Prometheus recorder for completions and tools.
func WithRecorder(rec *metrics.Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithReplaySystemPrompt controls whether Ask re-appends the system message
// before every user query. Enabled by default.
func WithReplaySystemPrompt(on bool) Option {
	return func(r *Runner) { r.replay = on }
}

// Runner owns the completion client and tool dispatcher. It holds no
// conversation state; every call operates on the store it is given.
type Runner struct {
	completer  provider.Completer
	dispatcher *dispatch.Dispatcher
	decls      []tools.Declaration
	logger     *slog.Logger
	recorder   *metrics.Recorder
	replay     bool
}

// New builds a Runner over registry. It fails if a tool schema does not compile.
func New(completer provider.Completer, registry *tools.Registry, opts ...Option) (*Runner, error) {
	r := &Runner{
		completer: completer,
		decls:     registry.Declarations(),
		logger:    logging.NewNop(),
		replay:    true,
	}
	for _, opt := range opts {
		opt(r)
	}

	d, err := dispatch.New(registry, dispatch.WithLogger(r.logger), dispatch.WithRecorder(r.recorder))
	if err != nil {
		return nil, fmt.Errorf("runner: %w", err)
	}
	r.dispatcher = d
	return r, nil
}

// WithCompleter returns a copy of r that talks to c. The dispatcher is shared.
func (r *Runner) WithCompleter(c provider.Completer) *Runner {
	cp := *r
	cp.completer = c
	return &cp
}

// Completer returns the current completion client.
func (r *Runner) Completer() provider.Completer {
	return r.completer
}

// Ask appends query to store and drives it to a final answer. Failures abort
// the call and leave store as far as it got.
//
// Ask does not serialize callers; concurrent Asks on one store interleave.
func (r *Runner) Ask(ctx context.Context, store *transcript.Store, query string) (*Result, error) {
	ctx, turnID := telemetry.EnsureTurnID(ctx)
	telemetry.EmitLocalFeatures(ctx, telemetry.InputQuery, query)
	res := &Result{TurnID: turnID}

	store.EnsureSeeded()
	if r.replay {
		store.Append(store.SystemMessage())
	}
	store.Append(transcript.NewMessage(transcript.RoleUser, query))

	res.enter(StateAwaitingFirstCompletion)
	first, err := r.complete(ctx, PhaseFirst, store.Snapshot(), r.decls)
	if err != nil {
		return nil, err
	}
	if !first.HasInvocation() {
		store.Append(first)
		res.enter(StateFinalAnswer)
		res.Answer = first.Content
		return res, nil
	}

	res.enter(StateToolRequested)
	inv := *first.ToolInvocation
	res.Invocation = &inv

	call, err := r.dispatcher.Prepare(ctx, inv)
	if err != nil {
		return nil, err
	}
	store.Append(first)

	out, err := r.invoke(ctx, call)
	if err != nil {
		return nil, err
	}
	store.Append(transcript.NewToolResult(inv, out))

	res.enter(StateAwaitingSecondCompletion)
	second, err := r.complete(ctx, PhaseSecond, store.Snapshot(), nil)
	if err != nil {
		return nil, err
	}
	if second.HasInvocation() {
		// Tools were not offered; an invocation here has no result to pair with.
		r.logger.Warn("dropping tool invocation from second completion", "tool", second.ToolInvocation.Name, "turn_id", turnID)
		second.ToolInvocation = nil
	}
	store.Append(second)
	res.enter(StateFinalAnswer)
	res.Answer = second.Content
	return res, nil
}

// Summarize runs a single completion over a fixed summarize exchange, then
// appends that exchange and the reply to store. A reply without text yields "".
func (r *Runner) Summarize(ctx context.Context, store *transcript.Store, text string) (string, error) {
	ctx, _ = telemetry.EnsureTurnID(ctx)
	telemetry.EmitLocalFeatures(ctx, telemetry.InputSummarize, text)

	exchange := []transcript.Message{
		transcript.NewMessage(transcript.RoleSystem, SummarizePrompt),
		transcript.NewMessage(transcript.RoleUser, text),
	}
	reply, err := r.complete(ctx, PhaseSummarize, exchange, nil)
	if err != nil {
		return "", err
	}
	reply.ToolInvocation = nil
	store.Append(exchange[0], exchange[1], reply)
	return reply.ContentString(), nil
}

// invoke runs call on its own goroutine. On cancellation it returns without
// waiting; the tool sees the same ctx and is expected to stop.
func (r *Runner) invoke(ctx context.Context, call *dispatch.Call) (string, error) {
	type outcome struct {
		out string
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		out, err := call.Invoke(ctx)
		done <- outcome{out: out, err: err}
	}()

	select {
	case o := <-done:
		return o.out, o.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (r *Runner) complete(ctx context.Context, phase string, msgs []transcript.Message, decls []tools.Declaration) (transcript.Message, error) {
	start := time.Now()
	msg, err := r.completer.Complete(ctx, msgs, decls)
	elapsed := time.Since(start)

	r.recorder.ObserveCompletion(r.completer.Name(), phase, elapsed, err)

	ev := telemetry.Completion{
		Phase:      phase,
		Provider:   r.completer.Name(),
		Model:      r.completer.Model(),
		Tools:      len(decls) > 0,
		Messages:   len(msgs),
		DurationMS: elapsed.Milliseconds(),
	}
	if err != nil {
		ev.Error = telemetry.ErrorClass("completion failed")
	}
	telemetry.EmitCompletion(ctx, ev)

	turnID, _ := telemetry.TurnIDFromContext(ctx)
	if err != nil {
		r.logger.Error("completion failed", "phase", phase, "turn_id", turnID, "error", err)
		return transcript.Message{}, err
	}
	r.logger.Debug("completion", "phase", phase, "turn_id", turnID,
		"tool_requested", msg.HasInvocation(), "duration", elapsed)
	return msg, nil
}
