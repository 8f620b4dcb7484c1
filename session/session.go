// Package session owns one conversation: its configuration, transcript and
// completion client. It is the entry point callers use to ask questions.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/petasbytes/research-agent/internal/config"
	"github.com/petasbytes/research-agent/internal/logging"
	"github.com/petasbytes/research-agent/internal/metrics"
	"github.com/petasbytes/research-agent/internal/provider"
	"github.com/petasbytes/research-agent/internal/runner"
	"github.com/petasbytes/research-agent/internal/transcript"
	"github.com/petasbytes/research-agent/internal/websearch"
	"github.com/petasbytes/research-agent/memory"
	"github.com/petasbytes/research-agent/tools"
)

// CompleterFactory builds a completion client from options.
type CompleterFactory func(provider.Options) (provider.Completer, error)

// Option configures a Session.
type Option func(*Session)

// WithID sets the session id; defaults to a fresh UUIDv7.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithRecorder sets the Prometheus recorder.
func WithRecorder(r *metrics.Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithRegistry replaces the default search/scrape tools.
func WithRegistry(r *tools.Registry) Option {
	return func(s *Session) { s.registry = r }
}

// WithMemory persists the transcript after every call.
func WithMemory(m memory.Store) Option {
	return func(s *Session) { s.memory = m }
}

// WithCompleterFactory replaces provider.New.
func WithCompleterFactory(f CompleterFactory) Option {
	return func(s *Session) { s.factory = f }
}

// Session is safe for concurrent use. Ask, Summarize and ResetConversation
// run one at a time; setters take effect on the next call.
type Session struct {
	id       string
	logger   *slog.Logger
	recorder *metrics.Recorder
	registry *tools.Registry
	memory   memory.Store
	factory  CompleterFactory
	store    *transcript.Store

	// turnMu serializes whole orchestrations.
	turnMu sync.Mutex

	cfgMu  sync.RWMutex
	cfg    config.Config
	runner *runner.Runner
}

// New builds a session from cfg. The transcript starts seeded with the system
// message.
func New(cfg config.Config, opts ...Option) (*Session, error) {
	s := &Session{
		logger:  logging.NewNop(),
		factory: provider.New,
		cfg:     cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = uuid.Must(uuid.NewV7()).String()
	}
	if s.registry == nil {
		s.registry = DefaultRegistry(cfg.Tools)
	}

	completer, err := s.factory(cfg.ProviderOptions())
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	r, err := runner.New(completer, s.registry,
		runner.WithLogger(s.logger),
		runner.WithRecorder(s.recorder),
		runner.WithReplaySystemPrompt(cfg.Replay()),
	)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	s.runner = r

	s.store = transcript.NewStore(cfg.SystemPrompt)
	s.store.Reset()
	return s, nil
}

// DefaultRegistry wires the DuckDuckGo searcher and HTTP scraper.
func DefaultRegistry(tc config.ToolsConfig) *tools.Registry {
	return tools.Default(
		websearch.NewDuckDuckGo(websearch.WithEndpoint(tc.SearchEndpoint)),
		websearch.NewHTTPScraper(websearch.WithMaxRunes(tc.ScrapeLimit)),
	)
}

// ID returns the session id, also used as the persistence key.
func (s *Session) ID() string { return s.id }

// Config returns a copy of the current configuration.
func (s *Session) Config() config.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

func (s *Session) currentRunner() *runner.Runner {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.runner
}

// Ask answers query, consulting a tool at most once. The answer is nil when
// the model produced no text.
func (s *Session) Ask(ctx context.Context, query string) (*string, error) {
	res, err := s.AskResult(ctx, query)
	if err != nil {
		return nil, err
	}
	return res.Answer, nil
}

// AskResult is Ask with the full orchestration record.
func (s *Session) AskResult(ctx context.Context, query string) (*runner.Result, error) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	res, err := s.currentRunner().Ask(ctx, s.store, query)
	// Save what the turn reached even if its context was cancelled.
	s.persist(context.WithoutCancel(ctx))
	return res, err
}

// Summarize summarizes text in a one-off exchange that is still recorded in
// the transcript.
func (s *Session) Summarize(ctx context.Context, text string) (string, error) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	out, err := s.currentRunner().Summarize(ctx, s.store, text)
	s.persist(context.WithoutCancel(ctx))
	return out, err
}

// ResetConversation clears the transcript back to the system message. ctx
// bounds the write to memory; the in-process reset always happens.
func (s *Session) ResetConversation(ctx context.Context) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	s.store.Reset()
	s.persist(ctx)
}

// Snapshot returns a copy of the transcript.
func (s *Session) Snapshot() []transcript.Message {
	return s.store.Snapshot()
}

// SetEndpoint points the completion client at url. The transcript is untouched.
func (s *Session) SetEndpoint(url string) error {
	return s.reconfigure(func(c *config.Config) { c.BaseURL = url })
}

// SetAPIKey replaces the API key.
func (s *Session) SetAPIKey(key string) error {
	return s.reconfigure(func(c *config.Config) { c.APIKey = key })
}

// SetModel selects the model.
func (s *Session) SetModel(id string) error {
	return s.reconfigure(func(c *config.Config) { c.Model = id })
}

// reconfigure rebuilds the completion client; on failure the old one stays.
func (s *Session) reconfigure(apply func(*config.Config)) error {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	next := s.cfg
	apply(&next)
	completer, err := s.factory(next.ProviderOptions())
	if err != nil {
		return fmt.Errorf("session: rebuild client: %w", err)
	}
	s.cfg = next
	s.runner = s.runner.WithCompleter(completer)
	s.logger.Info("completion client rebuilt", "session", s.id, "provider", completer.Name(), "model", completer.Model())
	return nil
}

// Load restores the transcript from memory. A missing or empty saved
// session leaves the current transcript in place.
func (s *Session) Load(ctx context.Context) error {
	if s.memory == nil {
		return nil
	}
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	msgs, err := s.memory.Load(ctx, s.id)
	if err != nil {
		return fmt.Errorf("session: load %s: %w", s.id, err)
	}
	if len(msgs) > 0 {
		s.store.Restore(msgs)
	}
	return nil
}

// persist saves the transcript under ctx. Failures are logged, not returned.
func (s *Session) persist(ctx context.Context) {
	if s.memory == nil {
		return
	}
	if err := s.memory.Save(ctx, s.id, s.store.Snapshot()); err != nil {
		s.logger.Warn("failed to persist transcript", "session", s.id, "error", err)
	}
}
