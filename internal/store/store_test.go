package store

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := Open(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type payload struct {
	Mitigated float64 `json:"mitigated"`
}

func TestSaveAndGet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	r, err := NewRecord("alice", KindAnalysis, "abc123", "qasm", payload{Mitigated: 0.5})
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, r))

	got, err := s.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.Owner, got.Owner)
	assert.Equal(t, KindAnalysis, got.Kind)
	assert.Equal(t, "abc123", got.CircuitID)

	var p payload
	require.NoError(t, got.Decode(&p))
	assert.Equal(t, 0.5, p.Mitigated)

	_, err = s.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListByOwnerNewestFirst(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []string
	for i := range 3 {
		r, err := NewRecord("bob", KindOptimization, "c", "qiskit", payload{})
		require.NoError(t, err)
		r.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.Save(ctx, r))
		ids = append(ids, r.ID)
	}
	other, err := NewRecord("carol", KindAnalysis, "c", "cirq", payload{})
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, other))

	records, err := s.ListByOwner(ctx, "bob", 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{records[0].ID, records[1].ID, records[2].ID})

	limited, err := s.ListByOwner(ctx, "bob", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSaveRequiresID(t *testing.T) {
	s := openStore(t)
	assert.Error(t, s.Save(context.Background(), &Record{Owner: "x"}))
}

type countingStore struct {
	ResultStore
	gets int
}

func (c *countingStore) Get(ctx context.Context, id string) (*Record, error) {
	c.gets++
	return c.ResultStore.Get(ctx, id)
}

func TestCachedServesRepeatReads(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{ResultStore: openStore(t)}
	cached, err := NewCached(inner, 2)
	require.NoError(t, err)

	r, err := NewRecord("dave", KindAnalysis, "c", "qasm", payload{})
	require.NoError(t, err)
	require.NoError(t, inner.Save(ctx, r))

	for range 3 {
		got, err := cached.Get(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, r.ID, got.ID)
	}
	assert.Equal(t, 1, inner.gets)
	assert.Equal(t, 1, cached.Len())

	_, err = NewCached(inner, 0)
	assert.Error(t, err)
}

func TestCachedReturnsCopies(t *testing.T) {
	ctx := context.Background()
	cached, err := NewCached(openStore(t), 2)
	require.NoError(t, err)

	r, err := NewRecord("erin", KindAnalysis, "c", "qasm", payload{Mitigated: 1})
	require.NoError(t, err)
	require.NoError(t, cached.Save(ctx, r))
	want := string(r.Payload)
	r.Owner = "mallory"

	got, err := cached.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "erin", got.Owner)
	got.Owner = "mallory"
	got.Payload[0] = 'X'

	again, err := cached.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "erin", again.Owner)
	assert.Equal(t, want, string(again.Payload))
}
