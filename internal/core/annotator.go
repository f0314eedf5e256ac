package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/agenthands/ctreview/internal/catalog"
	"github.com/agenthands/ctreview/internal/core/cursor"
	"github.com/agenthands/ctreview/internal/core/merge"
	"github.com/agenthands/ctreview/internal/core/model"
	"github.com/agenthands/ctreview/internal/store"
)

// ErrStaleCase is returned when a save names a case other than the one
// under the cursor.
var ErrStaleCase = errors.New("case is not the current case")

// TaskSource binds a task spec to the catalog it reads.
type TaskSource struct {
	Spec    model.TaskSpec
	Catalog catalog.Source
}

// Annotator opens review sessions and applies save and reset actions
// against the result store.
type Annotator struct {
	Store  store.ResultStore
	Tasks  map[model.Task]TaskSource
	Logger *slog.Logger
	Now    func() time.Time
}

func NewAnnotator(s store.ResultStore, tasks map[model.Task]TaskSource, logger *slog.Logger) *Annotator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Annotator{
		Store:  s,
		Tasks:  tasks,
		Logger: logger,
		Now:    time.Now,
	}
}

// Specs returns the configured task specs in dashboard order.
func (a *Annotator) Specs() []model.TaskSpec {
	var out []model.TaskSpec
	for _, t := range model.Tasks {
		if ts, ok := a.Tasks[t]; ok {
			out = append(out, ts.Spec)
		}
	}
	return out
}

func (a *Annotator) source(task model.Task) (TaskSource, error) {
	ts, ok := a.Tasks[task]
	if !ok {
		return TaskSource{}, fmt.Errorf("%w: %q", model.ErrUnknownTask, task)
	}
	return ts, nil
}

// Open starts a session: it loads the catalog, merges the reviewer's
// stored results and places the cursor on the first unanswered case.
// A store failure is returned rather than shown as "nothing done yet".
func (a *Annotator) Open(ctx context.Context, task model.Task, reviewerID string) (Session, error) {
	ts, err := a.source(task)
	if err != nil {
		return Session{}, err
	}

	cases, err := ts.Catalog.Load(ctx)
	if err != nil {
		if !errors.Is(err, model.ErrCatalogUnavailable) {
			err = fmt.Errorf("%w: %v", model.ErrCatalogUnavailable, err)
		}
		return Session{}, err
	}

	records, err := a.Store.FetchAll(ctx, task, reviewerID)
	if err != nil {
		return Session{}, fmt.Errorf("failed to load results: %w", err)
	}

	view := merge.Merge(cases, records)
	s := Session{
		Spec:   ts.Spec,
		Cursor: cursor.New(task, reviewerID).GotoFirstUnanswered(view),
		View:   view,
	}

	a.Logger.Info("session opened",
		"task", task,
		"reviewer", reviewerID,
		"cases", len(view),
		"position", s.Cursor.Position,
	)
	return s, nil
}

// Save records value and comment for the case under the cursor and
// advances. The input session is returned unchanged with the error when
// validation or the store write fails.
func (a *Annotator) Save(ctx context.Context, s Session, value, comment string) (Session, error) {
	cur, ok := s.Current()
	if !ok {
		return s, fmt.Errorf("%w: catalog is empty", model.ErrCaseNotFound)
	}

	v, err := s.Spec.Normalize(value)
	if err != nil {
		return s, err
	}

	rec := model.ResultRecord{
		Task:       s.Task(),
		ReviewerID: s.Reviewer(),
		CaseID:     strings.TrimSpace(cur.CaseID),
		Value:      v,
		Comment:    strings.TrimSpace(comment),
		ImageRef:   strings.TrimSpace(cur.ImageRef),
		UpdatedAt:  a.Now().UTC(),
	}
	if err := a.Store.Upsert(ctx, rec); err != nil {
		a.Logger.Warn("save failed",
			"task", rec.Task,
			"reviewer", rec.ReviewerID,
			"case_id", rec.CaseID,
			"error", err,
		)
		return s, fmt.Errorf("failed to save %s: %w", rec.CaseID, err)
	}

	view, err := merge.Replace(s.View, rec)
	if err != nil {
		return s, err
	}

	next := s
	next.View = view
	next.Cursor = s.Cursor.Clamp(len(view))
	if next.Cursor.IsLast(len(view)) {
		next.Complete = true
	} else {
		next.Cursor.Position++
		next.Complete = false
	}

	a.Logger.Info("result saved",
		"task", rec.Task,
		"reviewer", rec.ReviewerID,
		"case_id", rec.CaseID,
		"value", rec.Value,
		"complete", next.Complete,
	)
	return next, nil
}

// SaveCase is Save guarded against a stale client: caseID, when set, must
// name the case under the cursor.
func (a *Annotator) SaveCase(ctx context.Context, s Session, caseID, value, comment string) (Session, error) {
	if caseID = strings.TrimSpace(caseID); caseID != "" {
		cur, ok := s.Current()
		if !ok || cur.CaseID != caseID {
			return s, fmt.Errorf("%w: %q", ErrStaleCase, caseID)
		}
	}
	return a.Save(ctx, s, value, comment)
}

// Refresh re-reads the reviewer's results and re-merges them onto the
// session's catalog, keeping the cursor.
func (a *Annotator) Refresh(ctx context.Context, s Session) (Session, error) {
	records, err := a.Store.FetchAll(ctx, s.Task(), s.Reviewer())
	if err != nil {
		return s, fmt.Errorf("failed to load results: %w", err)
	}
	cases := make([]model.Case, len(s.View))
	for i, ac := range s.View {
		cases[i] = ac.Case
	}
	next := s
	next.View = merge.Merge(cases, records)
	return next, nil
}

// Reset deletes all of the reviewer's results for the session's task and
// starts over at the first case.
func (a *Annotator) Reset(ctx context.Context, s Session) (Session, error) {
	if err := a.Store.DeleteAll(ctx, s.Task(), s.Reviewer()); err != nil {
		return s, fmt.Errorf("failed to reset results: %w", err)
	}
	a.Logger.Info("results reset", "task", s.Task(), "reviewer", s.Reviewer())

	next, err := a.Open(ctx, s.Task(), s.Reviewer())
	if err != nil {
		// The delete went through, so the old view is stale. Fall back to
		// the session's own catalog with nothing answered.
		return s.cleared(), err
	}
	next.Cursor.Position = 0
	return next, nil
}

// Records returns every reviewer's results for task.
func (a *Annotator) Records(ctx context.Context, task model.Task) ([]model.ResultRecord, error) {
	if _, err := a.source(task); err != nil {
		return nil, err
	}
	return a.Store.ListTask(ctx, task)
}

// Purge removes every reviewer's results for task.
func (a *Annotator) Purge(ctx context.Context, task model.Task) error {
	if _, err := a.source(task); err != nil {
		return err
	}
	if err := a.Store.PurgeTask(ctx, task); err != nil {
		return err
	}
	a.Logger.Warn("task results purged", "task", task)
	return nil
}
