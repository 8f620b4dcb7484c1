package dispatch_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/research-agent/internal/dispatch"
	"github.com/petasbytes/research-agent/internal/metrics"
	"github.com/petasbytes/research-agent/internal/telemetry"
	"github.com/petasbytes/research-agent/internal/transcript"
	"github.com/petasbytes/research-agent/tools"
)

type recordingTools struct {
	searches []string
	scrapes  []string
	err      error
}

func (r *recordingTools) registry() *tools.Registry {
	return tools.Default(
		tools.SearcherFunc(func(ctx context.Context, q string) (string, error) {
			r.searches = append(r.searches, q)
			if r.err != nil {
				return "", r.err
			}
			return "25C sunny", nil
		}),
		tools.ScraperFunc(func(ctx context.Context, u string) (string, error) {
			r.scrapes = append(r.scrapes, u)
			return "# Example Domain", nil
		}),
	)
}

func newDispatcher(t *testing.T, rt *recordingTools, opts ...dispatch.Option) *dispatch.Dispatcher {
	t.Helper()
	d, err := dispatch.New(rt.registry(), opts...)
	require.NoError(t, err)
	return d
}

func TestDispatch_SearchPassesExactQuery(t *testing.T) {
	rt := &recordingTools{}
	d := newDispatcher(t, rt)

	out, err := d.Dispatch(context.Background(), transcript.ToolInvocation{
		ID: "c1", Name: "search", Arguments: `{"query": "X"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "25C sunny", out)
	assert.Equal(t, []string{"X"}, rt.searches)
	assert.Empty(t, rt.scrapes)
}

func TestDispatch_ScrapeWebsite(t *testing.T) {
	rt := &recordingTools{}
	d := newDispatcher(t, rt)

	out, err := d.Dispatch(context.Background(), transcript.ToolInvocation{
		Name: "scrapeWebsite", Arguments: `{"url":"https://example.com"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "# Example Domain", out)
	assert.Equal(t, []string{"https://example.com"}, rt.scrapes)
}

func TestDispatch_UnknownTool(t *testing.T) {
	rt := &recordingTools{}
	d := newDispatcher(t, rt)

	_, err := d.Dispatch(context.Background(), transcript.ToolInvocation{Name: "browse", Arguments: `{}`})
	require.Error(t, err)
	assert.ErrorIs(t, err, tools.ErrUnknownTool)
	assert.True(t, dispatch.IsDispatchError(err))
	assert.Empty(t, rt.searches)
}

func TestDispatch_InvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		args string
	}{
		{name: "missing field", args: `{}`},
		{name: "empty arguments", args: ``},
		{name: "wrong field", args: `{"q":"X"}`},
		{name: "not a string", args: `{"query": 42}`},
		{name: "not json", args: `query=X`},
		{name: "not an object", args: `["X"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := &recordingTools{}
			d := newDispatcher(t, rt)

			_, err := d.Dispatch(context.Background(), transcript.ToolInvocation{Name: "search", Arguments: tt.args})
			require.Error(t, err)
			assert.ErrorIs(t, err, dispatch.ErrInvalidToolArguments)
			assert.Empty(t, rt.searches, "tool must not run on invalid arguments")
		})
	}
}

func TestDispatch_ExtraFieldsIgnored(t *testing.T) {
	rt := &recordingTools{}
	d := newDispatcher(t, rt)

	out, err := d.Dispatch(context.Background(), transcript.ToolInvocation{
		Name: "search", Arguments: `{"query":"X","num_results":"5","safe":true}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "25C sunny", out)
	assert.Equal(t, []string{"X"}, rt.searches)
}

func TestDispatch_ToolExecutionFailure(t *testing.T) {
	boom := errors.New("rate limited")
	rt := &recordingTools{err: boom}
	d := newDispatcher(t, rt)

	_, err := d.Dispatch(context.Background(), transcript.ToolInvocation{Name: "search", Arguments: `{"query":"X"}`})
	require.Error(t, err)
	assert.ErrorIs(t, err, dispatch.ErrToolExecutionFailure)
	assert.ErrorIs(t, err, boom)

	var te *dispatch.ToolExecutionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "search", te.Tool)
}

func TestPrepare_DoesNotInvoke(t *testing.T) {
	rt := &recordingTools{}
	d := newDispatcher(t, rt)

	call, err := d.Prepare(context.Background(), transcript.ToolInvocation{Name: "search", Arguments: `{"query":"golang"}`})
	require.NoError(t, err)
	assert.Equal(t, []string{"golang"}, call.Args)
	assert.Equal(t, tools.Search, call.Definition.Name)
	assert.Empty(t, rt.searches)

	_, err = call.Invoke(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"golang"}, rt.searches)
}

func TestDispatch_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	rt := &recordingTools{}
	d := newDispatcher(t, rt, dispatch.WithRecorder(metrics.NewRecorder(reg)))

	_, _ = d.Dispatch(context.Background(), transcript.ToolInvocation{Name: "search", Arguments: `{"query":"X"}`})
	_, _ = d.Dispatch(context.Background(), transcript.ToolInvocation{Name: "nope", Arguments: `{}`})

	n, err := testutil.GatherAndCount(reg, "agent_tool_dispatch_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDispatch_ToolExecEvent_NoRawPayload(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AGT_ARTIFACTS_DIR", dir)
	t.Setenv("AGT_OBSERVE_JSON", "1")

	secret := "__SECRET_NEVER_APPEAR__"
	rt := &recordingTools{}
	d := newDispatcher(t, rt)

	ctx := telemetry.WithTurnID(context.Background(), "turn-xyz")
	_, err := d.Dispatch(ctx, transcript.ToolInvocation{Name: "search", Arguments: `{"query":"` + secret + `"}`})
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(dir, "events.jsonl"))
	require.NoError(t, err)
	assert.NotContains(t, string(b), secret)

	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	var exec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &exec))
	assert.Equal(t, "tool_exec", exec["event"])
	assert.Equal(t, "search", exec["tool_name"])
	assert.Equal(t, "turn-xyz", exec["turn_id"])
	assert.Nil(t, exec["error"])
	assert.Equal(t, float64(len("25C sunny")), exec["output_size"])
}
