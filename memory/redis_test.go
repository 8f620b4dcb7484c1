package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/research-agent/memory"
)

func newRedisStore(t *testing.T, opts ...memory.RedisOption) (*memory.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	s := memory.NewRedisStoreFromClient(client, opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, memory.WithPrefix("test:"))

	require.NoError(t, s.Save(ctx, "abc", sampleTranscript()))
	assert.True(t, mr.Exists("test:abc"))

	out, err := s.Load(ctx, "abc")
	require.NoError(t, err)
	require.Len(t, out, 5)
	assert.True(t, out[2].HasInvocation())
}

func TestRedisStore_LoadMissing(t *testing.T) {
	s, _ := newRedisStore(t)

	out, err := s.Load(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestRedisStore_TTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, memory.WithTTL(time.Minute))

	require.NoError(t, s.Save(ctx, "abc", sampleTranscript()))
	assert.Equal(t, time.Minute, mr.TTL(memory.DefaultRedisPrefix+"abc"))

	mr.FastForward(2 * time.Minute)
	out, err := s.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, out, "expired sessions load as empty")
}

func TestRedisStore_Delete(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	require.NoError(t, s.Save(ctx, "abc", sampleTranscript()))
	require.NoError(t, s.Delete(ctx, "abc"))
	assert.False(t, mr.Exists(memory.DefaultRedisPrefix+"abc"))
}

func TestRedisStore_CorruptValue(t *testing.T) {
	s, mr := newRedisStore(t)
	require.NoError(t, mr.Set(memory.DefaultRedisPrefix+"abc", "{not json"))

	_, err := s.Load(context.Background(), "abc")
	assert.Error(t, err)
}

func TestRedisStore_ServerDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	s := memory.NewRedisStore(mr.Addr())
	defer s.Close()
	mr.Close()

	err = s.Save(context.Background(), "abc", sampleTranscript())
	assert.Error(t, err)
}
