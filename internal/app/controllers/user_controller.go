package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/circlehub/internal/app/models/dto"
	"github.com/yigit/circlehub/internal/app/services"
	"github.com/yigit/circlehub/internal/middleware"
)

// UserController handles profile and follow operations
type UserController struct {
	userService services.UserService
	logger      zerolog.Logger
}

// NewUserController creates a new UserController
func NewUserController(userService services.UserService, logger zerolog.Logger) *UserController {
	return &UserController{userService: userService, logger: logger}
}

// GetProfile returns a user's public profile; private fields only for the owner
// @Summary Get user profile
// @Tags users
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} dto.APIResponse{data=dto.UserResponse}
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Router /users/{id} [get]
func (c *UserController) GetProfile(ctx *gin.Context) {
	viewerID, id, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	profile, err := c.userService.GetProfile(ctx.Request.Context(), id, viewerID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(profile))
}

// UpdateProfile changes name, bio and avatar of the current user
// @Summary Update profile
// @Tags users
// @Security BearerAuth
// @Param request body dto.UpdateProfileRequest true "Profile"
// @Success 200 {object} dto.APIResponse{data=dto.UserResponse}
// @Router /users/me [put]
func (c *UserController) UpdateProfile(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req dto.UpdateProfileRequest
	if !bindJSON(ctx, &req) {
		return
	}
	profile, err := c.userService.UpdateProfile(ctx.Request.Context(), userID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Profile updated", profile))
}

// UpdateUsername renames the current user
// @Summary Update username
// @Tags users
// @Security BearerAuth
// @Param request body dto.UpdateUsernameRequest true "Username"
// @Success 200 {object} dto.APIResponse{data=dto.UserResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid username"
// @Failure 409 {object} dto.ErrorResponse "Username taken"
// @Router /users/me/username [put]
func (c *UserController) UpdateUsername(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req dto.UpdateUsernameRequest
	if !bindJSON(ctx, &req) {
		return
	}
	profile, err := c.userService.UpdateUsername(ctx.Request.Context(), userID, req.Username)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Username updated", profile))
}

// ChangePassword verifies the current password and stores the new one
// @Summary Change password
// @Tags users
// @Security BearerAuth
// @Param request body dto.ChangePasswordRequest true "Passwords"
// @Success 200 {object} dto.APIResponse
// @Failure 401 {object} dto.ErrorResponse "Current password is wrong"
// @Router /users/me/password [put]
func (c *UserController) ChangePassword(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req dto.ChangePasswordRequest
	if !bindJSON(ctx, &req) {
		return
	}
	if err := c.userService.ChangePassword(ctx.Request.Context(), userID, &req); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Password changed", nil))
}

// Follow follows the user in the path
// @Router /users/{id}/follow [post]
func (c *UserController) Follow(ctx *gin.Context) {
	userID, targetID, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	if err := c.userService.Follow(ctx.Request.Context(), userID, targetID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Following", nil))
}

// Unfollow stops following the user in the path
// @Router /users/{id}/follow [delete]
func (c *UserController) Unfollow(ctx *gin.Context) {
	userID, targetID, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	if err := c.userService.Unfollow(ctx.Request.Context(), userID, targetID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Unfollowed", nil))
}

// @Router /users/{id}/followers [get]
func (c *UserController) ListFollowers(ctx *gin.Context) {
	id, ok := objectIDParam(ctx, "id")
	if !ok {
		return
	}
	users, err := c.userService.ListFollowers(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(users))
}

// @Router /users/{id}/following [get]
func (c *UserController) ListFollowing(ctx *gin.Context) {
	id, ok := objectIDParam(ctx, "id")
	if !ok {
		return
	}
	users, err := c.userService.ListFollowing(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(users))
}
