package services

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/app/models/dto"
	"github.com/yigit/circlehub/internal/app/repositories"
	"github.com/yigit/circlehub/internal/pkg/helpers"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notice is a notification about to be dispatched
type Notice struct {
	Recipient primitive.ObjectID
	Actor     *primitive.ObjectID
	Type      models.NotificationType
	Message   string
	Link      string
}

// NotificationService defines the interface for notification operations
type NotificationService interface {
	// Dispatch never fails the caller; errors are logged
	Dispatch(ctx context.Context, n Notice)
	List(ctx context.Context, userID primitive.ObjectID, page helpers.Page, unreadOnly bool) (*dto.NotificationListResponse, error)
	MarkRead(ctx context.Context, userID, id primitive.ObjectID) error
	MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error)
	UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

type notificationServiceImpl struct {
	notificationRepo repositories.NotificationRepository
	logger           zerolog.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(notificationRepo repositories.NotificationRepository, logger zerolog.Logger) NotificationService {
	return &notificationServiceImpl{
		notificationRepo: notificationRepo,
		logger:           logger,
	}
}

func (s *notificationServiceImpl) Dispatch(ctx context.Context, n Notice) {
	if n.Actor != nil && *n.Actor == n.Recipient {
		return
	}
	notification := &models.Notification{
		Recipient: n.Recipient,
		Actor:     n.Actor,
		Type:      n.Type,
		Message:   n.Message,
		Link:      n.Link,
	}
	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		s.logger.Warn().Err(err).
			Str("recipientID", n.Recipient.Hex()).
			Str("type", string(n.Type)).
			Msg("Failed to store notification")
	}
}

func (s *notificationServiceImpl) List(ctx context.Context, userID primitive.ObjectID, page helpers.Page, unreadOnly bool) (*dto.NotificationListResponse, error) {
	items, total, err := s.notificationRepo.List(ctx, userID, unreadOnly, page.Skip(), page.Limit())
	if err != nil {
		return nil, err
	}
	unread, err := s.notificationRepo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Notification{}
	}
	return &dto.NotificationListResponse{
		Notifications:  items,
		UnreadCount:    unread,
		PaginationInfo: helpers.NewPaginationInfo(total, page),
	}, nil
}

func (s *notificationServiceImpl) MarkRead(ctx context.Context, userID, id primitive.ObjectID) error {
	return s.notificationRepo.MarkRead(ctx, userID, id)
}

func (s *notificationServiceImpl) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.notificationRepo.MarkAllRead(ctx, userID)
}

func (s *notificationServiceImpl) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.notificationRepo.CountUnread(ctx, userID)
}

func actorRef(id primitive.ObjectID) *primitive.ObjectID {
	return &id
}
