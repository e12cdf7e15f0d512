// internal/store/memory_test.go
package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDoc struct {
	Key    string `json:"key"`
	Count  int64  `json:"count"`
	Status string `json:"status"`
}

func seedDocs(t *testing.T, m *Memory) {
	t.Helper()
	ctx := context.Background()
	docs := []testDoc{
		{Key: "a", Count: 5, Status: "open"},
		{Key: "b", Count: 10, Status: "open"},
		{Key: "c", Count: 20, Status: "closed"},
	}
	for _, d := range docs {
		require.NoError(t, m.Insert(ctx, "docs", d))
	}
}

func TestMemoryFindOne(t *testing.T) {
	m := NewMemory()
	seedDocs(t, m)
	ctx := context.Background()

	var got testDoc
	require.NoError(t, m.FindOne(ctx, "docs", Filter{Eq("key", "b")}, &got))
	assert.Equal(t, int64(10), got.Count)

	err := m.FindOne(ctx, "docs", Filter{Eq("key", "zzz")}, &got)
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestMemoryRangeAndMembershipFilters(t *testing.T) {
	m := NewMemory()
	seedDocs(t, m)
	ctx := context.Background()

	var got []testDoc
	require.NoError(t, m.Find(ctx, "docs", Filter{Gte("count", 10)}, &got))
	assert.Len(t, got, 2)

	got = nil
	require.NoError(t, m.Find(ctx, "docs", Filter{Lt("count", 10)}, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Key)

	got = nil
	require.NoError(t, m.Find(ctx, "docs", Filter{In("status", []string{"closed", "archived"})}, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].Key)
}

func TestMemoryConditionalUpdate(t *testing.T) {
	m := NewMemory()
	seedDocs(t, m)
	ctx := context.Background()

	// Matching condition replaces the document and reports a hit.
	matched, err := m.Update(ctx, "docs", Filter{Eq("key", "a"), Eq("count", 5)},
		testDoc{Key: "a", Count: 4, Status: "open"})
	require.NoError(t, err)
	assert.True(t, matched)

	// Stale condition misses: the document no longer has count=5.
	matched, err = m.Update(ctx, "docs", Filter{Eq("key", "a"), Eq("count", 5)},
		testDoc{Key: "a", Count: 3, Status: "open"})
	require.NoError(t, err)
	assert.False(t, matched)

	var got testDoc
	require.NoError(t, m.FindOne(ctx, "docs", Filter{Eq("key", "a")}, &got))
	assert.Equal(t, int64(4), got.Count)
}

func TestMemoryUpsert(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Upsert(ctx, "docs", Filter{Eq("key", "x")}, testDoc{Key: "x", Count: 1}))
	require.NoError(t, m.Upsert(ctx, "docs", Filter{Eq("key", "x")}, testDoc{Key: "x", Count: 2}))

	var got []testDoc
	require.NoError(t, m.Find(ctx, "docs", Filter{Eq("key", "x")}, &got))
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].Count)
}

func TestMemoryDelete(t *testing.T) {
	m := NewMemory()
	seedDocs(t, m)
	ctx := context.Background()

	deleted, err := m.Delete(ctx, "docs", Filter{Eq("status", "open")})
	require.NoError(t, err)
	assert.True(t, deleted)

	var got []testDoc
	require.NoError(t, m.Find(ctx, "docs", Filter{}, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].Key)

	deleted, err = m.Delete(ctx, "docs", Filter{Eq("status", "open")})
	require.NoError(t, err)
	assert.False(t, deleted)
}
