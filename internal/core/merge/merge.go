package merge

import (
	"fmt"

	"github.com/agenthands/ctreview/internal/core/model"
)

// Merge decorates each catalog case with the reviewer's record for that
// case, if any. Records for case IDs absent from the catalog are ignored.
func Merge(cases []model.Case, records map[string]model.ResultRecord) []model.AnnotatedCase {
	view := make([]model.AnnotatedCase, len(cases))
	for i, c := range cases {
		view[i] = model.AnnotatedCase{Case: c}
		if rec, ok := records[c.CaseID]; ok {
			rec := rec
			view[i].Result = &rec
		}
	}
	return view
}

// FirstUnanswered returns the index of the first case without a result in
// catalog order. ok is false when every case has a result.
func FirstUnanswered(view []model.AnnotatedCase) (index int, ok bool) {
	for i, ac := range view {
		if !ac.Answered() {
			return i, true
		}
	}
	return 0, false
}

func IndexOfCase(view []model.AnnotatedCase, caseID string) (int, error) {
	for i, ac := range view {
		if ac.CaseID == caseID {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", model.ErrCaseNotFound, caseID)
}

func ComputeStats(view []model.AnnotatedCase) model.Stats {
	s := model.Stats{Total: len(view)}
	for _, ac := range view {
		if ac.Answered() {
			s.Completed++
		}
	}
	s.Remaining = s.Total - s.Completed
	if s.Total > 0 {
		s.CompletionRatio = float64(s.Completed) / float64(s.Total)
	}
	return s
}

// Replace returns a copy of view with the entry for rec.CaseID pointing at
// rec. The input slice is left untouched.
func Replace(view []model.AnnotatedCase, rec model.ResultRecord) ([]model.AnnotatedCase, error) {
	idx, err := IndexOfCase(view, rec.CaseID)
	if err != nil {
		return nil, err
	}
	next := make([]model.AnnotatedCase, len(view))
	copy(next, view)
	next[idx].Result = &rec
	return next, nil
}
