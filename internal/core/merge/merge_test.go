package merge

import (
	"fmt"
	"testing"

	"github.com/agenthands/ctreview/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalog(ids ...string) []model.Case {
	cases := make([]model.Case, len(ids))
	for i, id := range ids {
		cases[i] = model.Case{CaseID: id, ImageRef: id + ".png"}
	}
	return cases
}

func answered(ids ...string) map[string]model.ResultRecord {
	recs := make(map[string]model.ResultRecord, len(ids))
	for _, id := range ids {
		recs[id] = model.ResultRecord{Task: model.Classification, ReviewerID: "r1", CaseID: id, Value: "Real"}
	}
	return recs
}

func TestMerge(t *testing.T) {
	view := Merge(catalog("A", "B", "C"), answered("B", "Z"))

	require.Len(t, view, 3)
	assert.False(t, view[0].Answered())
	assert.True(t, view[1].Answered())
	assert.Equal(t, "Real", view[1].Result.Value)
	assert.False(t, view[2].Answered())
	assert.Equal(t, "C.png", view[2].ImageRef)
}

func TestMerge_RecordsAreIndependentCopies(t *testing.T) {
	recs := answered("A", "B")
	view := Merge(catalog("A", "B"), recs)

	view[0].Result.Value = "Synthetic"
	assert.Equal(t, "Real", view[1].Result.Value)
	assert.Equal(t, "Real", recs["A"].Value)
}

func TestFirstUnanswered(t *testing.T) {
	ids := []string{"A", "B", "C", "D"}
	for prefix := 0; prefix < len(ids); prefix++ {
		t.Run(fmt.Sprintf("prefix-%d", prefix), func(t *testing.T) {
			view := Merge(catalog(ids...), answered(ids[:prefix]...))
			idx, ok := FirstUnanswered(view)
			assert.True(t, ok)
			assert.Equal(t, prefix, idx)
		})
	}

	view := Merge(catalog(ids...), answered(ids...))
	_, ok := FirstUnanswered(view)
	assert.False(t, ok, "fully answered catalog has no unanswered case")

	_, ok = FirstUnanswered(nil)
	assert.False(t, ok)
}

func TestFirstUnanswered_Gap(t *testing.T) {
	view := Merge(catalog("A", "B", "C"), answered("A", "C"))
	idx, ok := FirstUnanswered(view)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestIndexOfCase(t *testing.T) {
	view := Merge(catalog("A", "B", "C"), nil)
	for want, id := range []string{"A", "B", "C"} {
		got, err := IndexOfCase(view, id)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := IndexOfCase(view, "Q")
	assert.ErrorIs(t, err, model.ErrCaseNotFound)

	_, err = IndexOfCase(nil, "A")
	assert.ErrorIs(t, err, model.ErrCaseNotFound)
}

func TestComputeStats(t *testing.T) {
	s := ComputeStats(Merge(catalog("A", "B", "C"), answered("A")))
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Completed)
	assert.Equal(t, 2, s.Remaining)
	assert.InDelta(t, 0.333, s.CompletionRatio, 0.001)

	empty := ComputeStats(nil)
	assert.Equal(t, model.Stats{}, empty)
}

func TestReplace(t *testing.T) {
	view := Merge(catalog("A", "B"), nil)
	rec := model.ResultRecord{CaseID: "B", Value: "Synthetic"}

	next, err := Replace(view, rec)
	require.NoError(t, err)
	assert.True(t, next[1].Answered())
	assert.False(t, view[1].Answered(), "input view must not change")

	_, err = Replace(view, model.ResultRecord{CaseID: "X"})
	assert.ErrorIs(t, err, model.ErrCaseNotFound)
}
