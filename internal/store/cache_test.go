package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgallion1/acadwrite/internal/rag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(":memory:", time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCache_PutGet(t *testing.T) {
	c := openCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, "k", []byte("v1")))
	require.NoError(t, c.Put(ctx, "k", []byte("v2")))

	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", string(v))
}

func TestCache_Expiry(t *testing.T) {
	c := openCache(t)
	ctx := context.Background()
	clock := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	require.NoError(t, c.Put(ctx, "k", []byte("v")))
	clock = clock.Add(2 * time.Hour)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := c.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

type countingRAG struct {
	calls int
	err   error
}

func (r *countingRAG) Query(_ context.Context, req rag.QueryRequest) (*rag.QueryResponse, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &rag.QueryResponse{Answer: "answer to " + req.Question}, nil
}

func TestCachedRAG_ServesRepeatsFromCache(t *testing.T) {
	next := &countingRAG{}
	cached := NewCachedRAG(next, openCache(t), nil)
	ctx := context.Background()
	req := rag.QueryRequest{Collection: "c", Question: "q"}

	first, err := cached.Query(ctx, req)
	require.NoError(t, err)
	second, err := cached.Query(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.Answer, second.Answer)
	assert.Equal(t, 1, next.calls)

	_, err = cached.Query(ctx, rag.QueryRequest{Collection: "other", Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCachedRAG_DoesNotCacheErrors(t *testing.T) {
	next := &countingRAG{err: errors.New("down")}
	cached := NewCachedRAG(next, openCache(t), nil)
	req := rag.QueryRequest{Collection: "c", Question: "q"}

	_, err := cached.Query(context.Background(), req)
	require.Error(t, err)
	_, err = cached.Query(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestRequestKey(t *testing.T) {
	a := rag.QueryRequest{Collection: "c", Question: "q", MaxSources: 3}
	b := a
	b.Timeout = time.Minute
	assert.Equal(t, RequestKey(a), RequestKey(b), "timeout does not affect the answer")

	b.MaxSources = 5
	assert.NotEqual(t, RequestKey(a), RequestKey(b))
	assert.Len(t, RequestKey(a), 64)
}
