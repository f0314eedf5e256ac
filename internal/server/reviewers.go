package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/ctreview/internal/auth"
)

type ReviewerStats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
	LoggedIn int `json:"logged_in"`
}

func (s *Server) ListReviewers(c *gin.Context) {
	accts, err := s.Auth.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	stats := ReviewerStats{Total: len(accts)}
	for _, a := range accts {
		if a.Disabled {
			stats.Inactive++
		} else {
			stats.Active++
		}
		if a.LastLogin != nil {
			stats.LoggedIn++
		}
	}
	c.JSON(http.StatusOK, gin.H{"reviewers": accts, "stats": stats})
}

func (s *Server) CreateReviewer(c *gin.Context) {
	var req auth.NewAccount
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	acct, err := s.Auth.Create(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, acct)
}

func (s *Server) UpdateReviewer(c *gin.Context) {
	var req auth.AccountUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	id := c.Param("id")
	if id == reviewer(c).ID {
		if (req.Disabled != nil && *req.Disabled) || (req.Admin != nil && !*req.Admin) {
			s.fail(c, errSelfChange)
			return
		}
	}
	acct, err := s.Auth.Update(c.Request.Context(), id, req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, acct)
}

func (s *Server) DeleteReviewer(c *gin.Context) {
	id := c.Param("id")
	if id == reviewer(c).ID {
		s.fail(c, errSelfChange)
		return
	}
	if err := s.Auth.Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	s.Logger.Warn("reviewer deleted by admin", "reviewer", id, "admin", reviewer(c).ID)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
