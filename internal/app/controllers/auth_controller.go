// Package controllers handles HTTP request handling
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/circlehub/internal/app/models/dto"
	"github.com/yigit/circlehub/internal/app/services"
	"github.com/yigit/circlehub/internal/middleware"
)

// SessionCookie describes the HttpOnly cookie that carries the session token
type SessionCookie struct {
	Name   string
	Domain string
	Secure bool
}

// AuthController handles authentication related operations
type AuthController struct {
	authService services.AuthService
	cookie      SessionCookie
	logger      zerolog.Logger
}

// NewAuthController creates a new AuthController
func NewAuthController(authService services.AuthService, cookie SessionCookie, logger zerolog.Logger) *AuthController {
	return &AuthController{
		authService: authService,
		cookie:      cookie,
		logger:      logger,
	}
}

func (c *AuthController) setSession(ctx *gin.Context, token string, maxAge int) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(c.cookie.Name, token, maxAge, "/", c.cookie.Domain, c.cookie.Secure, true)
}

// Register handles user registration
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "User registration information"
// @Success 201 {object} dto.APIResponse{data=dto.AuthResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid request format or username"
// @Failure 409 {object} dto.ErrorResponse "Email or username already exists"
// @Router /auth/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req dto.RegisterRequest
	if !bindJSON(ctx, &req) {
		c.logger.Warn().Msg("Invalid registration request payload")
		return
	}

	resp, err := c.authService.Register(ctx.Request.Context(), &req)
	if err != nil {
		c.logger.Warn().Err(err).Str("username", req.Username).Msg("Failed to register user")
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.setSession(ctx, resp.Token.AccessToken, int(resp.Token.ExpiresIn))
	ctx.JSON(http.StatusCreated, dto.NewMessageResponse("Registration successful", resp))
}

// Login handles user login
// @Summary User login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.APIResponse{data=dto.AuthResponse}
// @Failure 401 {object} dto.ErrorResponse "Invalid credentials"
// @Router /auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(ctx, &req) {
		return
	}

	resp, err := c.authService.Login(ctx.Request.Context(), &req)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Login failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Str("userID", resp.User.ID).Msg("User logged in successfully")
	c.setSession(ctx, resp.Token.AccessToken, int(resp.Token.ExpiresIn))
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// Logout clears the session cookie
// @Summary Logout
// @Tags auth
// @Success 200 {object} dto.APIResponse
// @Router /auth/logout [post]
func (c *AuthController) Logout(ctx *gin.Context) {
	c.setSession(ctx, "", -1)
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Logged out", nil))
}

// Me returns the current user
// @Summary Current user
// @Tags auth
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.UserResponse}
// @Router /auth/me [get]
func (c *AuthController) Me(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	user, err := c.authService.Me(ctx.Request.Context(), userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(user))
}
