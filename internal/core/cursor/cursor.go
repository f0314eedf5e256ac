// Package cursor tracks which case is current within one reviewer's pass
// over a task catalog. Every operation returns a new Cursor; nothing is
// mutated in place.
package cursor

import (
	"github.com/agenthands/ctreview/internal/core/merge"
	"github.com/agenthands/ctreview/internal/core/model"
)

type Cursor struct {
	Task        model.Task `json:"task"`
	Reviewer    string     `json:"reviewer_id"`
	Position    int        `json:"position"`
	PendingJump string     `json:"pending_jump,omitempty"`
}

func New(task model.Task, reviewer string) Cursor {
	return Cursor{Task: task, Reviewer: reviewer}
}

// Clamp forces Position into [0, n). An empty catalog pins it to 0.
func (c Cursor) Clamp(n int) Cursor {
	switch {
	case n <= 0 || c.Position < 0:
		c.Position = 0
	case c.Position >= n:
		c.Position = n - 1
	}
	return c
}

func (c Cursor) Back() Cursor {
	if c.Position > 0 {
		c.Position--
	}
	return c
}

// Skip moves forward one case unless Position is already the last of n.
func (c Cursor) Skip(n int) Cursor {
	if c.Position < n-1 {
		c.Position++
	}
	return c
}

// Jump records a jump request. It takes effect on the next Resolve.
func (c Cursor) Jump(caseID string) Cursor {
	c.PendingJump = caseID
	return c
}

// Resolve consumes a pending jump. When the target is not in the view the
// request is dropped, Position is kept, and ErrCaseNotFound is returned
// alongside the cleared cursor.
func (c Cursor) Resolve(view []model.AnnotatedCase) (Cursor, error) {
	if c.PendingJump == "" {
		return c, nil
	}
	target := c.PendingJump
	c.PendingJump = ""
	idx, err := merge.IndexOfCase(view, target)
	if err != nil {
		return c, err
	}
	c.Position = idx
	return c, nil
}

func (c Cursor) GotoFirstUnanswered(view []model.AnnotatedCase) Cursor {
	idx, ok := merge.FirstUnanswered(view)
	if !ok {
		idx = 0
	}
	c.Position = idx
	return c
}

func (c Cursor) IsLast(n int) bool {
	return n > 0 && c.Position == n-1
}
