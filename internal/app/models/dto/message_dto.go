package dto

import "github.com/yigit/circlehub/internal/app/models"

// SendMessageRequest is a direct message
type SendMessageRequest struct {
	RecipientID string `json:"recipientId" binding:"required,len=24,hexadecimal"`
	Content     string `json:"content" binding:"required,max=5000"`
}

// MessageListResponse is a page of one conversation
type MessageListResponse struct {
	Messages []models.Message `json:"messages"`
	PaginationInfo
}

// NotificationListResponse is a page of notifications
type NotificationListResponse struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unreadCount"`
	PaginationInfo
}
