package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/circlehub/internal/app/models/dto"
	"github.com/yigit/circlehub/internal/pkg/apperrors"
	"github.com/yigit/circlehub/internal/pkg/auth"
	"github.com/yigit/circlehub/internal/pkg/logger"
)

type errorMapping struct {
	target  error
	status  int
	code    dto.ErrorCode
	message string
}

// first match wins; more specific sentinels go before the generic ones
var errorMappings = []errorMapping{
	{apperrors.ErrUserNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "User not found"},
	{apperrors.ErrResourceNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"},

	{apperrors.ErrEmailAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Email already exists"},
	{apperrors.ErrUsernameAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Username already exists"},
	{apperrors.ErrResourceAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Resource already exists"},
	{apperrors.ErrConflict, http.StatusConflict, dto.ErrorCodeConflict, "Conflict"},

	{apperrors.ErrCommunitySuspended, http.StatusForbidden, dto.ErrorCodeCommunitySuspended, "Community suspended"},
	{apperrors.ErrPermissionDenied, http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied"},

	{apperrors.ErrTrialIneligible, http.StatusBadRequest, dto.ErrorCodeTrialIneligible, "Not eligible for a free trial"},
	{apperrors.ErrInvalidUsername, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Invalid username"},
	{apperrors.ErrValidationFailed, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed"},
	{apperrors.ErrBadRequest, http.StatusBadRequest, dto.ErrorCodeBadRequest, "Bad request"},

	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "Invalid credentials"},
	{apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired"},
	{auth.ErrExpiredToken, http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired"},
	{apperrors.ErrTokenInvalid, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token"},
	{auth.ErrInvalidToken, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token"},
	{apperrors.ErrTokenNotFound, http.StatusUnauthorized, dto.ErrorCodeTokenNotFound, "Token not found"},

	{apperrors.ErrPaymentRequired, http.StatusPaymentRequired, dto.ErrorCodePaymentRequired, "Payment required"},
	{apperrors.ErrExternalService, http.StatusBadGateway, dto.ErrorCodeExternalServiceError, "Payment provider unavailable"},
}

// StatusFor returns the HTTP status HandleAPIError would write for err.
func StatusFor(err error) int {
	if m, ok := lookup(err); ok {
		return m.status
	}
	return http.StatusInternalServerError
}

func lookup(err error) (errorMapping, bool) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m, true
		}
	}
	return errorMapping{}, false
}

// HandleAPIError handles common API errors and returns appropriate responses.
// A CustomError message replaces the generic one and its details are copied
// both into error.details and onto the top level of the body.
func HandleAPIError(c *gin.Context, err error) {
	m, ok := lookup(err)
	if !ok {
		logger.FromContext(c.Request.Context()).Error().Err(err).
			Str("path", c.Request.URL.Path).
			Msg("Unhandled error")
		detail := dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error").
			WithSeverity(dto.ErrorSeverityCritical)
		c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponse(detail).Body())
		return
	}

	message := m.message
	if custom, found := apperrors.Message(err); found {
		message = custom
	}
	detail := dto.NewErrorDetail(m.code, message)

	resp := dto.NewErrorResponse(detail)
	if details := apperrors.Details(err); len(details) > 0 {
		detail.WithDetails(details)
		resp.Extra = details
	}
	if m.status == http.StatusBadGateway {
		detail.WithSeverity(dto.ErrorSeverityCritical)
	}

	c.AbortWithStatusJSON(m.status, resp.Body())
}

// Unauthorized writes a 401 with reason as the error detail.
func Unauthorized(c *gin.Context, code dto.ErrorCode, reason string) {
	detail := dto.NewErrorDetail(code, "Authentication required").WithDetails(reason)
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(detail).Body())
}
