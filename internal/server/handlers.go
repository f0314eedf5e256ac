package server

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/ctreview/internal/auth"
	"github.com/agenthands/ctreview/internal/core"
	"github.com/agenthands/ctreview/internal/core/model"
)

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type JumpRequest struct {
	CaseID string `json:"case_id" binding:"required"`
}

type SaveRequest struct {
	CaseID  string `json:"case_id"`
	Value   string `json:"value"`
	Comment string `json:"comment"`
}

type CaseState struct {
	model.AnnotatedCase
	Answered bool `json:"answered"`
}

type StateResponse struct {
	Task         model.Task  `json:"task"`
	Title        string      `json:"title"`
	Options      []string    `json:"options"`
	Position     int         `json:"position"`
	Total        int         `json:"total"`
	Current      *CaseState  `json:"current"`
	DefaultIndex int         `json:"default_index"`
	Stats        model.Stats `json:"stats"`
	Complete     bool        `json:"complete"`
	PendingJump  string      `json:"pending_jump,omitempty"`
}

func newState(sess core.Session) StateResponse {
	resp := StateResponse{
		Task:         sess.Task(),
		Title:        sess.Spec.Title,
		Options:      sess.Spec.Options,
		Position:     sess.Cursor.Clamp(sess.Len()).Position,
		Total:        sess.Len(),
		DefaultIndex: sess.DefaultIndex(),
		Stats:        sess.Stats(),
		Complete:     sess.Complete,
		PendingJump:  sess.Cursor.PendingJump,
	}
	if cur, ok := sess.Current(); ok {
		resp.Current = &CaseState{AnnotatedCase: cur, Answered: cur.Answered()}
	}
	return resp
}

func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	tok, r, err := s.Auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.Logger.Warn("login rejected", "username", req.Username)
		}
		s.fail(c, err)
		return
	}
	s.Logger.Info("reviewer logged in", "reviewer", r.ID)
	c.JSON(http.StatusOK, gin.H{"token": tok, "reviewer": r})
}

func (s *Server) Logout(c *gin.Context) {
	s.sessions.drop(token(c))
	s.Auth.Logout(token(c))
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (s *Server) Tasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": s.Annotator.Specs()})
}

// OpenSession enters a task. Any session the token already had is
// discarded, including when opening fails.
func (s *Server) OpenSession(c *gin.Context) {
	task, err := model.ParseTask(c.Param("task"))
	if err != nil {
		s.fail(c, err)
		return
	}
	sess, err := s.Annotator.Open(c.Request.Context(), task, reviewer(c).ID)
	if err != nil {
		s.sessions.drop(token(c))
		s.fail(c, err)
		return
	}
	s.sessions.put(token(c), sess)
	c.JSON(http.StatusOK, newState(sess))
}

// withSlot locks the token's session for the task named in the path.
func (s *Server) withSlot(c *gin.Context, fn func(sl *slot)) {
	task, err := model.ParseTask(c.Param("task"))
	if err != nil {
		s.fail(c, err)
		return
	}
	sl, ok := s.sessions.get(token(c))
	if !ok {
		s.fail(c, fmt.Errorf("%w: %s", errNoSession, task))
		return
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.session.Task() != task {
		s.fail(c, fmt.Errorf("%w: %s", errNoSession, task))
		return
	}
	fn(sl)
}

// act runs one session action, resolves any jump it left pending and
// stores the outcome. Actions return a usable session even on error, so
// the stored session is always the one the client should see next.
func (s *Server) act(c *gin.Context, fn func(ctx context.Context, sess core.Session) (core.Session, error)) {
	s.withSlot(c, func(sl *slot) {
		next, err := fn(c.Request.Context(), sl.session)
		if err == nil {
			next, err = next.Resolve()
		}
		sl.session = next
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, newState(next))
	})
}

func (s *Server) State(c *gin.Context) {
	s.act(c, func(_ context.Context, sess core.Session) (core.Session, error) {
		return sess, nil
	})
}

func (s *Server) Back(c *gin.Context) {
	s.act(c, func(_ context.Context, sess core.Session) (core.Session, error) {
		return sess.Back(), nil
	})
}

func (s *Server) Skip(c *gin.Context) {
	s.act(c, func(_ context.Context, sess core.Session) (core.Session, error) {
		return sess.Skip(), nil
	})
}

func (s *Server) FirstUnanswered(c *gin.Context) {
	s.act(c, func(_ context.Context, sess core.Session) (core.Session, error) {
		return sess.FirstUnanswered(), nil
	})
}

func (s *Server) Jump(c *gin.Context) {
	var req JumpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	s.act(c, func(_ context.Context, sess core.Session) (core.Session, error) {
		return sess.Jump(req.CaseID), nil
	})
}

func (s *Server) Save(c *gin.Context) {
	var req SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	s.act(c, func(ctx context.Context, sess core.Session) (core.Session, error) {
		return s.Annotator.SaveCase(ctx, sess, req.CaseID, req.Value, req.Comment)
	})
}

func (s *Server) Reset(c *gin.Context) {
	s.act(c, s.Annotator.Reset)
}

// Cases re-reads the store and lists every case with its result.
func (s *Server) Cases(c *gin.Context) {
	s.withSlot(c, func(sl *slot) {
		next, err := s.Annotator.Refresh(c.Request.Context(), sl.session)
		if err != nil {
			s.fail(c, err)
			return
		}
		sl.session = next
		c.JSON(http.StatusOK, gin.H{"cases": next.View, "stats": next.Stats()})
	})
}

func (s *Server) Image(c *gin.Context) {
	caseID := c.Param("case_id")
	var (
		ref       string
		subfolder string
		found     bool
	)
	s.withSlot(c, func(sl *slot) {
		for _, ac := range sl.session.View {
			if ac.CaseID == caseID {
				ref, subfolder, found = ac.ImageRef, sl.session.Spec.Subfolder, true
				break
			}
		}
		if !found {
			s.fail(c, fmt.Errorf("%w: %q", model.ErrCaseNotFound, caseID))
		}
	})
	if !found {
		return
	}

	data, err := s.Images.LoadPNG(ref, subfolder)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, "image/png", data)
}

var recordHeader = []string{"task", "reviewer_id", "case_id", "value", "comment", "image_ref", "updated_at"}

func (s *Server) ExportRecords(c *gin.Context) {
	task, err := model.ParseTask(c.Param("task"))
	if err != nil {
		s.fail(c, err)
		return
	}
	recs, err := s.Annotator.Records(c.Request.Context(), task)
	if err != nil {
		s.fail(c, err)
		return
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write(recordHeader)
	for _, r := range recs {
		w.Write([]string{
			string(r.Task),
			r.ReviewerID,
			r.CaseID,
			r.Value,
			r.Comment,
			r.ImageRef,
			r.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		s.fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s_results.csv", task))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (s *Server) PurgeRecords(c *gin.Context) {
	task, err := model.ParseTask(c.Param("task"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.Annotator.Purge(c.Request.Context(), task); err != nil {
		s.fail(c, err)
		return
	}
	s.Logger.Warn("task purged by admin", "task", task, "admin", reviewer(c).ID)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
