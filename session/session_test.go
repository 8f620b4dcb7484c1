package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/research-agent/internal/config"
	"github.com/petasbytes/research-agent/internal/provider"
	"github.com/petasbytes/research-agent/internal/transcript"
	"github.com/petasbytes/research-agent/memory"
	"github.com/petasbytes/research-agent/session"
	"github.com/petasbytes/research-agent/tools"
)

// echoCompleter answers every request with a fixed reply and records the
// options it was built from.
type echoCompleter struct {
	opts    provider.Options
	reply   string
	delay   time.Duration
	active  *int32
	maxSeen *int32
}

func (e *echoCompleter) Complete(ctx context.Context, msgs []transcript.Message, decls []tools.Declaration) (transcript.Message, error) {
	if e.active != nil {
		n := atomic.AddInt32(e.active, 1)
		defer atomic.AddInt32(e.active, -1)
		for {
			m := atomic.LoadInt32(e.maxSeen)
			if n <= m || atomic.CompareAndSwapInt32(e.maxSeen, m, n) {
				break
			}
		}
	}
	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return transcript.Message{}, ctx.Err()
		}
	}
	return transcript.NewMessage(transcript.RoleAssistant, e.reply), nil
}

func (e *echoCompleter) Name() string  { return "fake" }
func (e *echoCompleter) Model() string { return e.opts.Model }

type factory struct {
	mu      sync.Mutex
	built   []provider.Options
	reply   string
	fail    bool
	delay   time.Duration
	active  int32
	maxSeen int32
}

func (f *factory) build(o provider.Options) (provider.Completer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("cannot build")
	}
	f.built = append(f.built, o)
	return &echoCompleter{opts: o, reply: f.reply, delay: f.delay, active: &f.active, maxSeen: &f.maxSeen}, nil
}

func (f *factory) last() provider.Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.built[len(f.built)-1]
}

func stubRegistry() *tools.Registry {
	return tools.Default(
		tools.SearcherFunc(func(context.Context, string) (string, error) { return "results", nil }),
		tools.ScraperFunc(func(context.Context, string) (string, error) { return "page", nil }),
	)
}

func newSession(t *testing.T, f *factory, opts ...session.Option) *session.Session {
	t.Helper()
	opts = append([]session.Option{
		session.WithCompleterFactory(f.build),
		session.WithRegistry(stubRegistry()),
	}, opts...)
	s, err := session.New(config.DefaultConfig(), opts...)
	require.NoError(t, err)
	return s
}

func TestNew_SeedsSystemMessage(t *testing.T) {
	s := newSession(t, &factory{reply: "x"})

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, transcript.RoleSystem, snap[0].Role)
	assert.Equal(t, transcript.DefaultPersona, snap[0].ContentString())
	assert.NotEmpty(t, s.ID())
}

func TestNew_CustomSystemPrompt(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SystemPrompt = "be terse"
	s, err := session.New(cfg, session.WithCompleterFactory((&factory{}).build), session.WithRegistry(stubRegistry()))
	require.NoError(t, err)
	assert.Equal(t, "be terse", s.Snapshot()[0].ContentString())
}

func TestNew_FactoryError(t *testing.T) {
	_, err := session.New(config.DefaultConfig(), session.WithCompleterFactory((&factory{fail: true}).build))
	assert.Error(t, err)
}

func TestSessions_HaveDistinctIDs(t *testing.T) {
	f := &factory{}
	assert.NotEqual(t, newSession(t, f).ID(), newSession(t, f).ID())
}

func TestAsk_Paris(t *testing.T) {
	s := newSession(t, &factory{reply: "Paris"})

	ans, err := s.Ask(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	require.NotNil(t, ans)
	assert.Equal(t, "Paris", *ans)
	assert.Len(t, s.Snapshot(), 4)
}

func TestResetConversation(t *testing.T) {
	s := newSession(t, &factory{reply: "a"})
	_, err := s.Ask(context.Background(), "q1")
	require.NoError(t, err)
	_, err = s.Ask(context.Background(), "q2")
	require.NoError(t, err)

	s.ResetConversation(context.Background())
	snap := s.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, transcript.RoleSystem, snap[0].Role)
}

func TestSummarize(t *testing.T) {
	s := newSession(t, &factory{reply: "short"})
	before := len(s.Snapshot())

	out, err := s.Summarize(context.Background(), "long text")
	require.NoError(t, err)
	assert.Equal(t, "short", out)
	assert.Len(t, s.Snapshot(), before+3)
}

func TestSetters_RebuildClientKeepTranscript(t *testing.T) {
	f := &factory{reply: "a"}
	s := newSession(t, f)
	_, err := s.Ask(context.Background(), "q")
	require.NoError(t, err)
	n := len(s.Snapshot())

	require.NoError(t, s.SetEndpoint("http://localhost:9999/v1/"))
	require.NoError(t, s.SetAPIKey("new-key"))
	require.NoError(t, s.SetModel("gpt-4o-mini"))

	o := f.last()
	assert.Equal(t, "http://localhost:9999/v1/", o.BaseURL)
	assert.Equal(t, "new-key", o.APIKey)
	assert.Equal(t, "gpt-4o-mini", o.Model)
	assert.Len(t, f.built, 4, "initial build plus one per setter")
	assert.Equal(t, "gpt-4o-mini", s.Config().Model)
	assert.Len(t, s.Snapshot(), n, "transcript untouched")
}

func TestSetter_FailureKeepsOldClient(t *testing.T) {
	f := &factory{reply: "a"}
	s := newSession(t, f)

	f.mu.Lock()
	f.fail = true
	f.mu.Unlock()

	require.Error(t, s.SetModel("broken"))
	assert.Empty(t, s.Config().Model)

	f.mu.Lock()
	f.fail = false
	f.mu.Unlock()

	ans, err := s.Ask(context.Background(), "still works?")
	require.NoError(t, err)
	assert.Equal(t, "a", *ans)
}

func TestAsk_SerializedWithinSession(t *testing.T) {
	f := &factory{reply: "a", delay: 10 * time.Millisecond}
	s := newSession(t, f)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Ask(context.Background(), "q")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&f.maxSeen), "at most one orchestration in flight")
	assert.Len(t, s.Snapshot(), 1+5*3)
}

func TestAsk_IndependentSessionsRunConcurrently(t *testing.T) {
	f := &factory{reply: "a", delay: 50 * time.Millisecond}
	a := newSession(t, f)
	b := newSession(t, f)

	var wg sync.WaitGroup
	for _, s := range []*session.Session{a, b} {
		wg.Add(1)
		go func(s *session.Session) {
			defer wg.Done()
			_, err := s.Ask(context.Background(), "q")
			assert.NoError(t, err)
		}(s)
	}
	wg.Wait()
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.maxSeen))
}

func TestMemory_PersistsAndLoads(t *testing.T) {
	ctx := context.Background()
	store := memory.NewFileStore(t.TempDir())
	f := &factory{reply: "Paris"}

	s := newSession(t, f, session.WithID("abc"), session.WithMemory(store))
	_, err := s.Ask(ctx, "capital of France?")
	require.NoError(t, err)

	saved, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	require.Len(t, saved, 4)

	restored := newSession(t, f, session.WithID("abc"), session.WithMemory(store))
	require.NoError(t, restored.Load(ctx))
	assert.Len(t, restored.Snapshot(), 4)
	assert.Equal(t, "Paris", restored.Snapshot()[3].ContentString())
}

func TestMemory_LoadMissingKeepsSeed(t *testing.T) {
	s := newSession(t, &factory{}, session.WithID("fresh"), session.WithMemory(memory.NewFileStore(t.TempDir())))
	require.NoError(t, s.Load(context.Background()))
	assert.Len(t, s.Snapshot(), 1)
}

// ctxMemory records the context error seen by each Save and honours it.
type ctxMemory struct {
	mu    sync.Mutex
	saved map[string][]transcript.Message
	errs  []error
}

func (m *ctxMemory) Load(ctx context.Context, id string) ([]transcript.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved[id], nil
}

func (m *ctxMemory) Save(ctx context.Context, id string, msgs []transcript.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, ctx.Err())
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.saved == nil {
		m.saved = make(map[string][]transcript.Message)
	}
	m.saved[id] = msgs
	return nil
}

func (m *ctxMemory) Delete(ctx context.Context, id string) error { return nil }

func TestResetConversation_HonoursContextForPersistence(t *testing.T) {
	mem := &ctxMemory{}
	s := newSession(t, &factory{reply: "Paris"}, session.WithID("r"), session.WithMemory(mem))

	_, err := s.Ask(context.Background(), "capital of France?")
	require.NoError(t, err)
	require.Len(t, mem.saved["r"], 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.ResetConversation(ctx)

	assert.Len(t, s.Snapshot(), 1, "in-process reset happens regardless of ctx")
	require.Len(t, mem.errs, 2)
	assert.ErrorIs(t, mem.errs[1], context.Canceled)
	assert.Len(t, mem.saved["r"], 4, "cancelled ctx skips the write")

	s.ResetConversation(context.Background())
	assert.Len(t, mem.saved["r"], 1)
}

func TestAsk_PersistsDespiteCancelledContext(t *testing.T) {
	mem := &ctxMemory{}
	s := newSession(t, &factory{reply: "Paris"}, session.WithID("c"), session.WithMemory(mem))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _ = s.Ask(ctx, "capital of France?")

	require.Len(t, mem.errs, 1)
	assert.NoError(t, mem.errs[0])
	assert.NotEmpty(t, mem.saved["c"])
}
