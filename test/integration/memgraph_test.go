//go:build integration

package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/ctreview/internal/catalog"
	"github.com/agenthands/ctreview/internal/core"
	"github.com/agenthands/ctreview/internal/core/model"
	"github.com/agenthands/ctreview/internal/store"
)

func openMemgraph(t *testing.T) *store.Memgraph {
	t.Helper()
	_ = godotenv.Load("../../.env")

	uri := os.Getenv("MEMGRAPH_URI")
	if uri == "" {
		t.Skip("Skipping integration test: MEMGRAPH_URI not set")
	}
	ctx := context.Background()
	d, err := store.NewMemgraphDriver(ctx, uri, os.Getenv("MEMGRAPH_USER"), os.Getenv("MEMGRAPH_PASSWORD"))
	require.NoError(t, err)

	m := store.NewMemgraph(d, nil)
	require.NoError(t, m.BuildIndices(ctx))
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestMemgraph_ReviewFlow(t *testing.T) {
	ctx := context.Background()
	m := openMemgraph(t)

	// A fresh reviewer per run keeps reruns independent.
	reviewer := "it-" + uuid.NewString()
	defer func() { _ = m.DeleteAll(ctx, model.Classification, reviewer) }()

	specs := model.DefaultSpecs()
	a := core.NewAnnotator(store.WithTimeout(m, 5*time.Second), map[model.Task]core.TaskSource{
		model.Classification: {
			Spec: specs[model.Classification],
			Catalog: catalog.Static{
				{CaseID: "A", ImageRef: "a.png"},
				{CaseID: "B", ImageRef: "b.png"},
			},
		},
	}, nil)

	s, err := a.Open(ctx, model.Classification, reviewer)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Cursor.Position)

	s, err = a.Save(ctx, s, "Real", "first pass")
	require.NoError(t, err)
	s, err = a.Save(ctx, s, "Synthetic", "")
	require.NoError(t, err)
	assert.True(t, s.Complete)

	// Overwrite rather than duplicate.
	s, err = s.Jump("A").Resolve()
	require.NoError(t, err)
	_, err = a.SaveCase(ctx, s, "A", "Synthetic", "second look")
	require.NoError(t, err)

	got, err := m.FetchAll(ctx, model.Classification, reviewer)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Synthetic", got["A"].Value)
	assert.Equal(t, "second look", got["A"].Comment)
	assert.Equal(t, "a.png", got["A"].ImageRef)

	reopened, err := a.Open(ctx, model.Classification, reviewer)
	require.NoError(t, err)
	assert.Equal(t, 2, reopened.Stats().Completed)

	reset, err := a.Reset(ctx, reopened)
	require.NoError(t, err)
	assert.Equal(t, 0, reset.Stats().Completed)
}
