package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/circlehub/internal/app/models/dto"
	"github.com/yigit/circlehub/internal/app/services"
	"github.com/yigit/circlehub/internal/middleware"
	"github.com/yigit/circlehub/internal/pkg/helpers"
)

// MessageController handles direct messages and notifications
type MessageController struct {
	messageService      services.MessageService
	notificationService services.NotificationService
	logger              zerolog.Logger
}

// NewMessageController creates a new MessageController
func NewMessageController(messageService services.MessageService, notificationService services.NotificationService, logger zerolog.Logger) *MessageController {
	return &MessageController{
		messageService:      messageService,
		notificationService: notificationService,
		logger:              logger,
	}
}

// SendMessage sends a direct message
// @Summary Send message
// @Tags messages
// @Security BearerAuth
// @Param request body dto.SendMessageRequest true "Message"
// @Success 201 {object} dto.APIResponse{data=models.Message}
// @Failure 404 {object} dto.ErrorResponse "Recipient not found"
// @Router /messages [post]
func (c *MessageController) SendMessage(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req dto.SendMessageRequest
	if !bindJSON(ctx, &req) {
		return
	}
	msg, err := c.messageService.Send(ctx.Request.Context(), userID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(msg))
}

// ListConversations returns one summary per partner, newest first
// @Router /messages/conversations [get]
func (c *MessageController) ListConversations(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	summaries, err := c.messageService.Conversations(ctx.Request.Context(), userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(summaries))
}

// @Router /messages/{userId} [get]
func (c *MessageController) GetConversation(ctx *gin.Context) {
	userID, partnerID, ok := userAndID(ctx, "userId")
	if !ok {
		return
	}
	page, err := c.messageService.Conversation(ctx.Request.Context(), userID, partnerID, helpers.ParsePaginationParams(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(page))
}

// @Router /messages/{userId}/read [put]
func (c *MessageController) MarkConversationRead(ctx *gin.Context) {
	userID, partnerID, ok := userAndID(ctx, "userId")
	if !ok {
		return
	}
	n, err := c.messageService.MarkRead(ctx.Request.Context(), userID, partnerID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"marked": n}))
}

// ListNotifications supports ?unread=true
// @Router /notifications [get]
func (c *MessageController) ListNotifications(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	unreadOnly := ctx.Query("unread") == "true"
	page, err := c.notificationService.List(ctx.Request.Context(), userID, helpers.ParsePaginationParams(ctx), unreadOnly)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(page))
}

// @Router /notifications/unread-count [get]
func (c *MessageController) UnreadCount(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	n, err := c.notificationService.UnreadCount(ctx.Request.Context(), userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"unreadCount": n}))
}

// @Router /notifications/{id}/read [put]
func (c *MessageController) MarkNotificationRead(ctx *gin.Context) {
	userID, id, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	if err := c.notificationService.MarkRead(ctx.Request.Context(), userID, id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Notification marked as read", nil))
}

// @Router /notifications/read-all [put]
func (c *MessageController) MarkAllNotificationsRead(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	n, err := c.notificationService.MarkAllRead(ctx.Request.Context(), userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"marked": n}))
}
