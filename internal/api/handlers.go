package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/orchestrator"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/session"
)

// #region sessions

func (s *Server) createSession(c *gin.Context) {
	var req session.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	sess, err := s.svc.Create(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (s *Server) getSession(c *gin.Context) {
	sess, err := s.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *Server) processTurn(c *gin.Context) {
	var req turnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	out, err := s.svc.ProcessTurn(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newTurnResponse(out))
}

func (s *Server) detectStages(c *gin.Context) {
	report, err := s.svc.DetectStages(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stagesResponse{
		Report:     report,
		Missing:    report.Missing(),
		Incomplete: report.Incomplete(),
	})
}

func (s *Server) listVersions(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.badRequest(c, fmt.Errorf("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	versions, err := s.svc.Versions(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	resp := make([]versionResponse, 0, len(versions))
	for _, v := range versions {
		resp = append(resp, versionResponse{
			VersionID: v.VersionID,
			ParentID:  v.ParentID,
			TurnIndex: v.TurnIndex,
			State:     v.State,
			CreatedAt: v.CreatedAt.Format(time.RFC3339Nano),
		})
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) endSession(c *gin.Context) {
	sess, err := s.svc.End(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *Server) setDirective(c *gin.Context) {
	var req directiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	sess, err := s.svc.SetDirective(c.Request.Context(), c.Param("id"), req.Directive)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *Server) regenerate(c *gin.Context) {
	var req regenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	sess, err := s.svc.Regenerate(c.Request.Context(), c.Param("id"), req.Tier)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// #endregion sessions

// #region errors

// statusFor maps service sentinels onto HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrInvalidConfig), errors.Is(err, session.ErrEmptyUtterance):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, session.ErrEnded):
		return http.StatusConflict, "session_ended"
	case errors.Is(err, session.ErrAlreadyStarted):
		return http.StatusConflict, "already_started"
	case errors.Is(err, orchestrator.ErrTurnAbandoned):
		return http.StatusConflict, "turn_abandoned"
	}
	return http.StatusInternalServerError, "internal"
}

func (s *Server) fail(c *gin.Context, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "path", c.FullPath(), "session_id", c.Param("id"), "error", err)
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error(), Code: code})
}

func (s *Server) badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
		Error: fmt.Sprintf("invalid request: %v", err),
		Code:  "invalid_request",
	})
}

// #endregion errors
