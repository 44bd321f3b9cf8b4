package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/proctor"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
)

// errorMapping pairs a domain error with its HTTP status and code. Order
// matters: specific errors wrap the generic ones listed after them.
var errorMapping = []struct {
	err    error
	status int
	code   response.ErrCode
}{
	{proctor.ErrSemesterRequired, http.StatusBadRequest, response.ErrSemesterRequired},
	{proctor.ErrSemesterMismatch, http.StatusBadRequest, response.ErrSemesterMismatch},
	{proctor.ErrIdentifierRequired, http.StatusBadRequest, response.ErrIdentifierRequired},
	{proctor.ErrValidation, http.StatusBadRequest, response.ErrValidation},
	{proctor.ErrStudentNotFound, http.StatusNotFound, response.ErrStudentNotFound},
	{proctor.ErrNotFound, http.StatusNotFound, response.ErrNotFound},
	{proctor.ErrGradeMismatch, http.StatusForbidden, response.ErrGradeMismatch},
	{proctor.ErrAlreadyTaken, http.StatusConflict, response.ErrAlreadyTaken},
	{proctor.ErrNoQuestions, http.StatusUnprocessableEntity, response.ErrNoQuestions},
	{proctor.ErrExamClosed, http.StatusForbidden, response.ErrExamClosed},
	{service.ErrNoPendingLogin, http.StatusConflict, response.ErrLoginPending},
	{proctor.ErrSessionInProgress, http.StatusConflict, response.ErrSessionInProgress},
	{proctor.ErrSessionExpired, http.StatusGone, response.ErrSessionExpired},
	{proctor.ErrNoSession, http.StatusNotFound, response.ErrNoSession},
	{proctor.ErrNotActive, http.StatusConflict, response.ErrSessionNotActive},
	{proctor.ErrTimeUp, http.StatusConflict, response.ErrTimeUp},
	{proctor.ErrPromptPending, http.StatusConflict, response.ErrPromptPending},
	{proctor.ErrUnknownQuestion, http.StatusBadRequest, response.ErrUnknownQuestion},
	{proctor.ErrInvalidOption, http.StatusBadRequest, response.ErrInvalidOption},
	{proctor.ErrIndexOutOfRange, http.StatusBadRequest, response.ErrIndexOutOfRange},
	{proctor.ErrNoPendingViolation, http.StatusConflict, response.ErrNoViolation},
	{proctor.ErrFinishNotRequested, http.StatusConflict, response.ErrFinishNotReq},
	{proctor.ErrSubmitting, http.StatusConflict, response.ErrSubmitting},
	{proctor.ErrNetwork, http.StatusServiceUnavailable, response.ErrStoreUnavailable},
}

// mapError returns the status and code of err. Unknown errors are internal.
func mapError(err error) (int, response.ErrCode) {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, response.ErrInternal
}

// fail writes err through the response envelope and logs unexpected ones.
func fail(c *gin.Context, err error) {
	status, code := mapError(err)
	logFailure(c, err, status)
	response.Fail(c, status, code)
}

func logFailure(c *gin.Context, err error, status int) {
	if status < http.StatusInternalServerError {
		return
	}
	zerolog.Ctx(c.Request.Context()).Error().Err(err).
		Str("path", c.FullPath()).
		Int("status", status).
		Msg("Request failed")
}
