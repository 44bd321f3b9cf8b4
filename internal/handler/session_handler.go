package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-proctor/internal/middleware"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/proctor"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
	"github.com/stemsi/exstem-proctor/internal/validator"
)

// SessionHandler exposes the running exam session of the calling device.
type SessionHandler struct {
	sessionService *service.ExamSessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.ExamSessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// Restore godoc
// GET /api/v1/session/restore
// Resumes the session persisted for the device after a reload and issues a
// fresh token.
func (h *SessionHandler) Restore(c *gin.Context) {
	ticket, err := h.sessionService.Resume(c.Request.Context(), middleware.GetDeviceID(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, ticket)
}

// GetState godoc
// GET /api/v1/session/state
func (h *SessionHandler) GetState(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": ctrl.View()})
}

// GetPaper godoc
// GET /api/v1/session/paper
// Returns the frozen question order without the answer key.
func (h *SessionHandler) GetPaper(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, gin.H{"questions": ctrl.Paper()})
}

// SelectAnswer godoc
// POST /api/v1/session/answer
func (h *SessionHandler) SelectAnswer(c *gin.Context) {
	var req model.AnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	h.act(c, func(ctx context.Context, ctrl *proctor.Controller) (gin.H, error) {
		return nil, ctrl.SelectAnswer(ctx, req.QuestionID, *req.Option)
	})
}

// ToggleFlag godoc
// POST /api/v1/session/flag
func (h *SessionHandler) ToggleFlag(c *gin.Context) {
	var req model.FlagRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	h.act(c, func(ctx context.Context, ctrl *proctor.Controller) (gin.H, error) {
		flagged, err := ctrl.ToggleFlag(ctx, req.QuestionID)
		return gin.H{"flagged": flagged}, err
	})
}

// Navigate godoc
// POST /api/v1/session/navigate
func (h *SessionHandler) Navigate(c *gin.Context) {
	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	h.act(c, func(ctx context.Context, ctrl *proctor.Controller) (gin.H, error) {
		return nil, ctrl.Navigate(ctx, *req.Index)
	})
}

// RequestFinish godoc
// POST /api/v1/session/finish
// Opens the confirmation prompt with the unanswered and flagged counts.
func (h *SessionHandler) RequestFinish(c *gin.Context) {
	h.act(c, func(ctx context.Context, ctrl *proctor.Controller) (gin.H, error) {
		summary, err := ctrl.RequestFinish(ctx)
		return gin.H{"finish": summary}, err
	})
}

// CancelFinish godoc
// POST /api/v1/session/finish/cancel
func (h *SessionHandler) CancelFinish(c *gin.Context) {
	h.act(c, func(ctx context.Context, ctrl *proctor.Controller) (gin.H, error) {
		return nil, ctrl.CancelFinish(ctx)
	})
}

// ConfirmFinish godoc
// POST /api/v1/session/finish/confirm
// Submits the session. Also retries a failed submission.
func (h *SessionHandler) ConfirmFinish(c *gin.Context) {
	h.act(c, func(ctx context.Context, ctrl *proctor.Controller) (gin.H, error) {
		res, err := ctrl.ConfirmFinish(ctx)
		return resultBody(res), err
	})
}

// AcknowledgeViolation godoc
// POST /api/v1/session/violations/ack
// Closes the violation prompt; at the threshold the session is submitted.
func (h *SessionHandler) AcknowledgeViolation(c *gin.Context) {
	h.act(c, func(ctx context.Context, ctrl *proctor.Controller) (gin.H, error) {
		res, err := ctrl.AcknowledgeViolation(ctx)
		return resultBody(res), err
	})
}

// Signal godoc
// POST /api/v1/session/signals
// Reports a browser integrity event (visibility, focus, key, touch,
// back-navigation).
func (h *SessionHandler) Signal(c *gin.Context) {
	var sig proctor.Signal
	if fields := validator.Bind(c, &sig); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	h.act(c, func(ctx context.Context, ctrl *proctor.Controller) (gin.H, error) {
		return gin.H{"reaction": ctrl.Signal(ctx, sig)}, nil
	})
}

// ─── Helpers ───────────────────────────────────────────────────────────

func (h *SessionHandler) controller(c *gin.Context) (*proctor.Controller, bool) {
	ctrl, err := h.sessionService.Controller(c.Request.Context(), middleware.GetDeviceID(c))
	if err != nil {
		fail(c, err)
		return nil, false
	}
	// The slot may hold a newer session than the token names.
	if claims := middleware.GetClaims(c); claims != nil && ctrl.ExamID().String() != claims.ExamID {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
		return nil, false
	}
	return ctrl, true
}

// act runs fn on the device's controller and answers with fn's payload plus
// the resulting view. A failed submission still carries the view so the
// page can render the retry prompt.
func (h *SessionHandler) act(c *gin.Context, fn func(context.Context, *proctor.Controller) (gin.H, error)) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	body, err := fn(c.Request.Context(), ctrl)
	if body == nil {
		body = gin.H{}
	}
	body["session"] = ctrl.View()

	if err != nil {
		status, code := mapError(err)
		if errors.Is(err, proctor.ErrNetwork) && ctrl.View().Prompt == proctor.PromptSubmitError {
			code = response.ErrSubmitFailed
		}
		logFailure(c, err, status)
		response.FailWithData(c, status, code, body)
		return
	}
	response.Success(c, http.StatusOK, body)
}

func resultBody(res *model.ExamResult) gin.H {
	if res == nil {
		return nil
	}
	return gin.H{"result": gin.H{
		"id":              res.ID,
		"score":           res.Score,
		"finish_reason":   res.FinishReason,
		"violation_count": res.ViolationCount,
		"submitted_at":    res.SubmittedAt,
	}}
}
