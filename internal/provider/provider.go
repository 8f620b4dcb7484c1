// Package provider adapts remote completion endpoints to the transcript model.
//
// A Completer receives the full transcript in order plus optional tool
// declarations and returns exactly one candidate message. Passing no
// declarations disables tool calling for that request. Failures are returned
// as *CompletionError and never retried here.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/petasbytes/research-agent/internal/transcript"
	"github.com/petasbytes/research-agent/tools"
)

// Supported provider names.
const (
	OpenAI    = "openai"
	Anthropic = "anthropic"
)

// DefaultTimeout is generous because tool-augmented responses can be slow.
const DefaultTimeout = 300 * time.Second

const defaultMaxTokens = 1024

// Completer issues one completion request.
type Completer interface {
	Complete(ctx context.Context, msgs []transcript.Message, decls []tools.Declaration) (transcript.Message, error)
	// Name returns the provider name, used in errors and metrics.
	Name() string
	Model() string
}

// Options configures a Completer.
type Options struct {
	Provider string
	// BaseURL overrides the SDK default endpoint when non-empty.
	BaseURL   string
	APIKey    string
	Model     string
	Timeout   time.Duration
	MaxTokens int64
	// HTTPClient replaces the SDK transport; used by tests.
	HTTPClient *http.Client
}

// New builds the Completer named by o.Provider.
func New(o Options) (Completer, error) {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = defaultMaxTokens
	}
	switch o.Provider {
	case OpenAI, "":
		return NewOpenAI(o), nil
	case Anthropic:
		return NewAnthropic(o), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", o.Provider)
	}
}

// ErrCompletionFailure matches every error returned by a Completer.
var ErrCompletionFailure = errors.New("completion failed")

// CompletionError carries the provider and, when known, the HTTP status.
type CompletionError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *CompletionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s completion failed (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s completion failed: %v", e.Provider, e.Err)
}

func (e *CompletionError) Unwrap() []error {
	return []error{ErrCompletionFailure, e.Err}
}

var errNoChoices = errors.New("response contained no candidate message")
