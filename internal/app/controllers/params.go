package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yigit/circlehub/internal/app/models/dto"
	"github.com/yigit/circlehub/internal/middleware"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// currentUser returns the authenticated user id or writes a 401.
func currentUser(ctx *gin.Context) (primitive.ObjectID, bool) {
	id, ok := middleware.CurrentUserID(ctx)
	if !ok {
		middleware.Unauthorized(ctx, dto.ErrorCodeUnauthorized, "User information not found")
		return primitive.NilObjectID, false
	}
	return id, true
}

// objectIDParam parses a path parameter as an ObjectID or writes a 400.
func objectIDParam(ctx *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(ctx.Param(name))
	if err != nil {
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid "+name).
			WithField(name).
			WithDetails(name + " must be a 24 character hex id")
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(detail).Body())
		return primitive.NilObjectID, false
	}
	return id, true
}

// userAndID is the common prologue of handlers acting on /:name as the current user.
func userAndID(ctx *gin.Context, name string) (primitive.ObjectID, primitive.ObjectID, bool) {
	userID, ok := currentUser(ctx)
	if !ok {
		return userID, primitive.NilObjectID, false
	}
	id, ok := objectIDParam(ctx, name)
	return userID, id, ok
}

func intQuery(ctx *gin.Context, name string, def int) int {
	n, err := strconv.Atoi(ctx.Query(name))
	if err != nil {
		return def
	}
	return n
}

// bindJSON binds the body into req or writes a 400 with per-field messages.
func bindJSON(ctx *gin.Context, req interface{}) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		middleware.HandleBindError(ctx, err)
		return false
	}
	return true
}
