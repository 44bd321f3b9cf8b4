package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/middleware"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
	"github.com/stemsi/exstem-proctor/internal/validator"
)

// ExamHandler handles the lobby and the login flow that precedes a session.
type ExamHandler struct {
	examService    *service.ExamService
	sessionService *service.ExamSessionService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService, sessionService *service.ExamSessionService) *ExamHandler {
	return &ExamHandler{
		examService:    examService,
		sessionService: sessionService,
	}
}

// ListOpenExams godoc
// GET /api/v1/exams
// Lists exams whose deadline has not passed.
func (h *ExamHandler) ListOpenExams(c *gin.Context) {
	exams, err := h.examService.ListOpen(c.Request.Context())
	if err != nil {
		logFailure(c, err, http.StatusInternalServerError)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// Login godoc
// POST /api/v1/exams/:exam_id/login
// Runs the eligibility checks. On success the rules must be acknowledged
// before the session starts.
func (h *ExamHandler) Login(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ExamLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	summary, err := h.sessionService.Login(c.Request.Context(), middleware.GetDeviceID(c), examID, req.NIS, req.Semester)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"admission": summary})
}

// Acknowledge godoc
// POST /api/v1/exams/:exam_id/acknowledge
// Confirms the rules and starts the session, or cancels the login.
func (h *ExamHandler) Acknowledge(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.AcknowledgeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ticket, err := h.sessionService.Acknowledge(c.Request.Context(), middleware.GetDeviceID(c), examID, *req.Confirmed)
	if err != nil {
		fail(c, err)
		return
	}
	if ticket == nil {
		response.Success(c, http.StatusOK, gin.H{"cancelled": true})
		return
	}

	response.Success(c, http.StatusCreated, ticket)
}
