package middleware

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/yigit/circlehub/internal/app/models/dto"
	"github.com/yigit/circlehub/internal/pkg/validation"
)

// HandleBindError writes a 400 for a failed ShouldBind call. Validator errors
// are reported per field; anything else (malformed JSON) as a single message.
func HandleBindError(c *gin.Context, err error) {
	fields := validation.FieldErrors(err)
	if len(fields) == 0 {
		detail := dto.NewErrorDetail(dto.ErrorCodeBadRequest, "Invalid request format").WithDetails(err.Error())
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(detail).Body())
		return
	}

	names := make([]string, 0, len(fields))
	for field := range fields {
		names = append(names, field)
	}
	sort.Strings(names)

	verrs := dto.NewValidationErrors()
	for _, field := range names {
		verrs.AddError(field, fields[field])
	}
	detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Validation failed").WithDetails(verrs.Errors)
	if len(verrs.Errors) == 1 {
		detail.WithField(verrs.Errors[0].Field)
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(detail).Body())
}
