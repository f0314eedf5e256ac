package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/agenthands/ctreview/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the behaviour every ResultStore must share.
func runStoreContract(t *testing.T, open func(t *testing.T) ResultStore) {
	ctx := context.Background()
	rec := func(task model.Task, reviewer, caseID, value, comment string) model.ResultRecord {
		return model.ResultRecord{
			Task: task, ReviewerID: reviewer, CaseID: caseID,
			Value: value, Comment: comment, ImageRef: caseID + ".png",
			UpdatedAt: time.UnixMilli(1700000000000).UTC(),
		}
	}

	t.Run("upsert replaces", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Upsert(ctx, rec(model.RealisticAppearance, "r1", "A", "Overall realistic", "first")))
		require.NoError(t, s.Upsert(ctx, rec(model.RealisticAppearance, "r1", "A", "Overall realistic", "second")))

		got, err := s.FetchAll(ctx, model.RealisticAppearance, "r1")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "second", got["A"].Comment)
		assert.Equal(t, "A.png", got["A"].ImageRef)
		assert.Equal(t, model.RealisticAppearance, got["A"].Task)
		assert.True(t, got["A"].UpdatedAt.Equal(time.UnixMilli(1700000000000)))
	})

	t.Run("fetch is scoped by task and reviewer", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Upsert(ctx, rec(model.Classification, "r1", "A", "Real", "")))
		require.NoError(t, s.Upsert(ctx, rec(model.Classification, "r2", "A", "Synthetic", "")))
		require.NoError(t, s.Upsert(ctx, rec(model.AnatomicCorrectness, "r1", "A", "Anatomic features are correct", "")))

		got, err := s.FetchAll(ctx, model.Classification, "r1")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Real", got["A"].Value)

		none, err := s.FetchAll(ctx, model.RealisticAppearance, "r1")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("delete all is scoped and idempotent", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Upsert(ctx, rec(model.Classification, "r1", "A", "Real", "")))
		require.NoError(t, s.Upsert(ctx, rec(model.Classification, "r1", "B", "Real", "")))
		require.NoError(t, s.Upsert(ctx, rec(model.Classification, "r2", "A", "Real", "")))

		require.NoError(t, s.DeleteAll(ctx, model.Classification, "r1"))
		require.NoError(t, s.DeleteAll(ctx, model.Classification, "r1"))

		got, err := s.FetchAll(ctx, model.Classification, "r1")
		require.NoError(t, err)
		assert.Empty(t, got)

		other, err := s.FetchAll(ctx, model.Classification, "r2")
		require.NoError(t, err)
		assert.Len(t, other, 1)
	})

	t.Run("list and purge task", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Upsert(ctx, rec(model.Classification, "r2", "B", "Real", "")))
		require.NoError(t, s.Upsert(ctx, rec(model.Classification, "r1", "B", "Real", "")))
		require.NoError(t, s.Upsert(ctx, rec(model.Classification, "r1", "A", "Synthetic", "")))
		require.NoError(t, s.Upsert(ctx, rec(model.RealisticAppearance, "r1", "A", "Overall realistic", "")))

		list, err := s.ListTask(ctx, model.Classification)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{"r1/A", "r1/B", "r2/B"}, keys(list))

		require.NoError(t, s.PurgeTask(ctx, model.Classification))
		list, err = s.ListTask(ctx, model.Classification)
		require.NoError(t, err)
		assert.Empty(t, list)

		kept, err := s.FetchAll(ctx, model.RealisticAppearance, "r1")
		require.NoError(t, err)
		assert.Len(t, kept, 1)
	})
}

func keys(recs []model.ResultRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ReviewerID + "/" + r.CaseID
	}
	return out
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) ResultStore { return NewMemory() })
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewMemory().Upsert(ctx, model.ResultRecord{CaseID: "A"})
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
}

func TestSQLiteStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) ResultStore {
		s, err := OpenSQLite(SQLiteConfig{Path: filepath.Join(t.TempDir(), "results.db"), PoolSize: 2})
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	ctx := context.Background()

	s, err := OpenSQLite(SQLiteConfig{Path: path})
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, model.ResultRecord{
		Task: model.Classification, ReviewerID: "r1", CaseID: "A", Value: "Real",
	}))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(SQLiteConfig{Path: path})
	require.NoError(t, err)
	defer s.Close()

	got, err := s.FetchAll(ctx, model.Classification, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Real", got["A"].Value)
	assert.False(t, got["A"].UpdatedAt.IsZero(), "zero timestamps are stamped on write")
}

func TestOpenSQLite_RequiresPath(t *testing.T) {
	_, err := OpenSQLite(SQLiteConfig{})
	assert.Error(t, err)
}

func TestWithTimeout_DeadlineIsStoreUnavailable(t *testing.T) {
	inner := &blockingStore{}
	s := WithTimeout(inner, 10*time.Millisecond)

	err := s.Upsert(context.Background(), model.ResultRecord{CaseID: "A"})
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = s.FetchAll(context.Background(), model.Classification, "r1")
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)

	assert.ErrorIs(t, s.DeleteAll(context.Background(), model.Classification, "r1"), model.ErrStoreUnavailable)

	_, err = s.ListTask(context.Background(), model.Classification)
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)

	assert.ErrorIs(t, s.PurgeTask(context.Background(), model.Classification), model.ErrStoreUnavailable)

	require.NoError(t, s.Close())
	assert.True(t, inner.closed)
}

func TestWithTimeout_ZeroReturnsInner(t *testing.T) {
	inner := NewMemory()
	assert.Same(t, inner, WithTimeout(inner, 0))
}

func TestWithTimeout_PassesThrough(t *testing.T) {
	runStoreContract(t, func(t *testing.T) ResultStore { return WithTimeout(NewMemory(), time.Second) })
}
