package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/exampapers/internal/app/models/dto"
	"github.com/yigit/exampapers/internal/pkg/apperrors"
	"github.com/yigit/exampapers/internal/pkg/logger"
)

// errorMapping ties a sentinel to the status and code it is reported with
type errorMapping struct {
	target error
	status int
	code   dto.ErrorCode
}

// Checked in order: the more specific sentinels come before the ones they wrap.
var errorMappings = []errorMapping{
	{apperrors.ErrHasDependentQuestions, http.StatusConflict, dto.ErrorCodeHasDependentQuestions},
	{apperrors.ErrAlreadyPublished, http.StatusConflict, dto.ErrorCodeAlreadyPublished},
	{apperrors.ErrResourceNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrInvalidFile, http.StatusBadRequest, dto.ErrorCodeInvalidFile},
	{apperrors.ErrEmptyQuestionSet, http.StatusBadRequest, dto.ErrorCodeEmptyQuestionSet},
	{apperrors.ErrInvalidScheduleFormat, http.StatusBadRequest, dto.ErrorCodeInvalidSchedule},
	{apperrors.ErrInvalidTimeFormat, http.StatusBadRequest, dto.ErrorCodeInvalidTime},
	{apperrors.ErrInvalidTimeRange, http.StatusBadRequest, dto.ErrorCodeInvalidTimeRange},
	{apperrors.ErrValidationFailed, http.StatusBadRequest, dto.ErrorCodeValidationFailed},
	{apperrors.ErrBadRequest, http.StatusBadRequest, dto.ErrorCodeValidationFailed},
	{apperrors.ErrConflict, http.StatusConflict, dto.ErrorCodeConflict},
	{apperrors.ErrPermissionDenied, http.StatusForbidden, dto.ErrorCodeForbidden},
	{apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken},
	{apperrors.ErrTokenInvalid, http.StatusUnauthorized, dto.ErrorCodeInvalidToken},
	{apperrors.ErrInvalidFormat, http.StatusUnauthorized, dto.ErrorCodeInvalidToken},
}

// HandleAPIError writes the error response for err. Unmapped errors are logged and
// reported as 500 without leaking their text.
func HandleAPIError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		detail := dto.NewErrorDetail(m.code, err.Error())

		var custom *apperrors.CustomError
		if errors.As(err, &custom) {
			if custom.Details != nil {
				detail.WithDetails(custom.Details)
				if field, ok := custom.Details["field"].(string); ok {
					detail.WithField(field)
				}
			} else if custom.Code != "" {
				detail.WithDetails(custom.Code)
			}
		}
		if m.status < http.StatusInternalServerError {
			detail.WithSeverity(dto.ErrorSeverityWarning)
		}

		c.AbortWithStatusJSON(m.status, dto.NewErrorResponse(detail))
		return
	}

	logger.Error().Err(err).
		Str("method", c.Request.Method).
		Str("path", c.FullPath()).
		Msg("Unhandled error")
	c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponse(
		dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error").
			WithSeverity(dto.ErrorSeverityCritical),
	))
}

// BadRequest rejects malformed path or body input before it reaches a service
func BadRequest(c *gin.Context, message string, details interface{}) {
	detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, message).WithSeverity(dto.ErrorSeverityWarning)
	if details != nil {
		detail.WithDetails(details)
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
}
