package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/ctreview/internal/auth"
	"github.com/agenthands/ctreview/internal/core"
	"github.com/agenthands/ctreview/internal/core/model"
	"github.com/agenthands/ctreview/internal/imagestore"
)

const (
	ctxReviewer = "reviewer"
	ctxToken    = "token"
)

var (
	errNoSession  = errors.New("no open session for this task")
	errSelfChange = errors.New("admins cannot disable, demote or delete their own account")
)

type Server struct {
	Annotator *core.Annotator
	Auth      *auth.Directory
	Images    *imagestore.Loader
	Logger    *slog.Logger

	sessions *registry
}

func NewServer(a *core.Annotator, dir *auth.Directory, images *imagestore.Loader, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		Annotator: a,
		Auth:      dir,
		Images:    images,
		Logger:    logger,
		sessions:  newRegistry(),
	}
	dir.OnRevoke = s.sessions.drop
	return s
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.POST("/login", s.Login)

	authed := api.Group("", s.requireReviewer)
	authed.POST("/logout", s.Logout)
	authed.GET("/tasks", s.Tasks)

	sess := authed.Group("/tasks/:task")
	sess.POST("/session", s.OpenSession)
	sess.GET("/session", s.State)
	sess.POST("/session/back", s.Back)
	sess.POST("/session/skip", s.Skip)
	sess.POST("/session/first-unanswered", s.FirstUnanswered)
	sess.POST("/session/jump", s.Jump)
	sess.POST("/session/save", s.Save)
	sess.GET("/cases", s.Cases)
	sess.GET("/cases/:case_id/image", s.Image)
	sess.DELETE("/results", s.Reset)

	admin := authed.Group("/admin", s.requireAdmin)
	admin.GET("/tasks/:task/records", s.ExportRecords)
	admin.DELETE("/tasks/:task/records", s.PurgeRecords)
	admin.GET("/reviewers", s.ListReviewers)
	admin.POST("/reviewers", s.CreateReviewer)
	admin.PATCH("/reviewers/:id", s.UpdateReviewer)
	admin.DELETE("/reviewers/:id", s.DeleteReviewer)

	return r
}

func (s *Server) requireReviewer(c *gin.Context) {
	bearer, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	bearer = strings.TrimSpace(bearer)
	if !ok || bearer == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
		return
	}
	r, ok := s.Auth.Lookup(bearer)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}
	c.Set(ctxReviewer, r)
	c.Set(ctxToken, bearer)
	c.Next()
}

func (s *Server) requireAdmin(c *gin.Context) {
	if !reviewer(c).Admin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}
	c.Next()
}

func reviewer(c *gin.Context) auth.Reviewer {
	r, _ := c.MustGet(ctxReviewer).(auth.Reviewer)
	return r
}

func token(c *gin.Context) string {
	return c.GetString(ctxToken)
}

// statusFor maps a domain error to the HTTP status reported to the client.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidValue), errors.Is(err, auth.ErrInvalidAccount):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrCaseNotFound),
		errors.Is(err, model.ErrUnknownTask),
		errors.Is(err, model.ErrImageNotFound),
		errors.Is(err, model.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrStaleCase),
		errors.Is(err, errNoSession),
		errors.Is(err, model.ErrAccountExists),
		errors.Is(err, errSelfChange):
		return http.StatusConflict
	case errors.Is(err, imagestore.ErrImageTooLarge):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.Logger.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"error", err,
		)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
