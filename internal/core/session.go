package core

import (
	"github.com/agenthands/ctreview/internal/core/cursor"
	"github.com/agenthands/ctreview/internal/core/merge"
	"github.com/agenthands/ctreview/internal/core/model"
)

// Session is one reviewer's pass over one task. It is a value: every
// action returns a new Session and leaves the receiver untouched, so a
// failed action can simply keep the old one.
type Session struct {
	Spec   model.TaskSpec
	Cursor cursor.Cursor
	View   []model.AnnotatedCase
	// Complete is set by a save on the last case and cleared by the next
	// navigation or save elsewhere.
	Complete bool
}

func (s Session) Task() model.Task { return s.Cursor.Task }

func (s Session) Reviewer() string { return s.Cursor.Reviewer }

func (s Session) Len() int { return len(s.View) }

// Current returns the case at the cursor. ok is false for an empty catalog.
func (s Session) Current() (model.AnnotatedCase, bool) {
	if len(s.View) == 0 {
		return model.AnnotatedCase{}, false
	}
	return s.View[s.Cursor.Clamp(len(s.View)).Position], true
}

func (s Session) Stats() model.Stats {
	return merge.ComputeStats(s.View)
}

// DefaultIndex is the option to preselect for the current case.
func (s Session) DefaultIndex() int {
	cur, ok := s.Current()
	if !ok || cur.Result == nil {
		return 0
	}
	return s.Spec.DefaultIndex(cur.Result.Value)
}

// cleared is s with every result dropped and the cursor back at 0.
func (s Session) cleared() Session {
	cases := make([]model.Case, len(s.View))
	for i, ac := range s.View {
		cases[i] = ac.Case
	}
	s.View = merge.Merge(cases, nil)
	s.Cursor = cursor.New(s.Task(), s.Reviewer())
	s.Complete = false
	return s
}

func (s Session) Back() Session {
	s.Cursor = s.Cursor.Back()
	s.Complete = false
	return s
}

func (s Session) Skip() Session {
	s.Cursor = s.Cursor.Skip(len(s.View))
	s.Complete = false
	return s
}

// Jump queues a jump; Annotator.Resolve applies it.
func (s Session) Jump(caseID string) Session {
	s.Cursor = s.Cursor.Jump(caseID)
	return s
}

func (s Session) FirstUnanswered() Session {
	s.Cursor = s.Cursor.GotoFirstUnanswered(s.View)
	s.Complete = false
	return s
}

// Resolve applies a pending jump. On an unknown case the jump is dropped,
// the position is kept and ErrCaseNotFound is returned with the session.
func (s Session) Resolve() (Session, error) {
	if s.Cursor.PendingJump == "" {
		return s, nil
	}
	c, err := s.Cursor.Resolve(s.View)
	s.Cursor = c
	if err != nil {
		return s, err
	}
	s.Complete = false
	return s, nil
}
