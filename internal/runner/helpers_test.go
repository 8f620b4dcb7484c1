package runner_test

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petasbytes/research-agent/internal/runner"
	"github.com/petasbytes/research-agent/internal/transcript"
	"github.com/petasbytes/research-agent/tools"
)

type request struct {
	msgs  []transcript.Message
	decls []tools.Declaration
}

type reply struct {
	msg transcript.Message
	err error
}

// scriptedCompleter returns queued replies in order and records every request.
type scriptedCompleter struct {
	mu       sync.Mutex
	replies  []reply
	requests []request
}

func (s *scriptedCompleter) Complete(ctx context.Context, msgs []transcript.Message, decls []tools.Declaration) (transcript.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, request{msgs: msgs, decls: decls})
	if err := ctx.Err(); err != nil {
		return transcript.Message{}, err
	}
	if len(s.replies) == 0 {
		return transcript.Message{}, errors.New("script exhausted")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r.msg, r.err
}

func (s *scriptedCompleter) Name() string  { return "fake" }
func (s *scriptedCompleter) Model() string { return "fake-model" }

func (s *scriptedCompleter) calls() []request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]request(nil), s.requests...)
}

func text(s string) reply {
	return reply{msg: transcript.NewMessage(transcript.RoleAssistant, s)}
}

func invoke(id, name, args string) reply {
	return reply{msg: transcript.Message{
		Role:           transcript.RoleAssistant,
		ToolInvocation: &transcript.ToolInvocation{ID: id, Name: name, Arguments: args},
	}}
}

// fakeTools records tool arguments and returns canned output.
type fakeTools struct {
	mu        sync.Mutex
	queries   []string
	urls      []string
	searchOut string
	searchErr error
	block     bool
}

func (f *fakeTools) registry() *tools.Registry {
	return tools.Default(
		tools.SearcherFunc(func(ctx context.Context, q string) (string, error) {
			f.mu.Lock()
			f.queries = append(f.queries, q)
			block := f.block
			f.mu.Unlock()
			if block {
				<-ctx.Done()
				return "", ctx.Err()
			}
			return f.searchOut, f.searchErr
		}),
		tools.ScraperFunc(func(ctx context.Context, url string) (string, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.urls = append(f.urls, url)
			return "page body", nil
		}),
	)
}

func (f *fakeTools) searched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func newRunner(t *testing.T, c *scriptedCompleter, ft *fakeTools, opts ...runner.Option) *runner.Runner {
	t.Helper()
	r, err := runner.New(c, ft.registry(), opts...)
	require.NoError(t, err)
	return r
}

func roles(msgs []transcript.Message) []transcript.Role {
	out := make([]transcript.Role, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Role)
	}
	return out
}

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func readEventLines(t *testing.T) []string {
	t.Helper()
	f, err := os.Open(filepath.Join(".agent", "events.jsonl"))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}
