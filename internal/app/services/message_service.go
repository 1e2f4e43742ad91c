package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/app/models/dto"
	"github.com/yigit/circlehub/internal/app/repositories"
	"github.com/yigit/circlehub/internal/pkg/apperrors"
	"github.com/yigit/circlehub/internal/pkg/helpers"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessageService defines the interface for direct messages
type MessageService interface {
	Send(ctx context.Context, senderID primitive.ObjectID, req *dto.SendMessageRequest) (*models.Message, error)
	Conversation(ctx context.Context, userID, partnerID primitive.ObjectID, page helpers.Page) (*dto.MessageListResponse, error)
	Conversations(ctx context.Context, userID primitive.ObjectID) ([]models.ConversationSummary, error)
	MarkRead(ctx context.Context, userID, partnerID primitive.ObjectID) (int64, error)
}

type messageServiceImpl struct {
	messageRepo repositories.MessageRepository
	userRepo    repositories.UserRepository
	logger      zerolog.Logger
}

// NewMessageService creates a new MessageService
func NewMessageService(messageRepo repositories.MessageRepository, userRepo repositories.UserRepository, logger zerolog.Logger) MessageService {
	return &messageServiceImpl{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		logger:      logger,
	}
}

func (s *messageServiceImpl) Send(ctx context.Context, senderID primitive.ObjectID, req *dto.SendMessageRequest) (*models.Message, error) {
	recipientID, err := primitive.ObjectIDFromHex(req.RecipientID)
	if err != nil {
		return nil, apperrors.NewBadRequestError("invalid recipientId")
	}
	if recipientID == senderID {
		return nil, apperrors.NewBadRequestError("you cannot message yourself")
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, apperrors.NewBadRequestError("message content cannot be empty")
	}
	if _, err := s.userRepo.GetByID(ctx, recipientID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		Sender:    senderID,
		Recipient: recipientID,
		Content:   req.Content,
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *messageServiceImpl) Conversation(ctx context.Context, userID, partnerID primitive.ObjectID, page helpers.Page) (*dto.MessageListResponse, error) {
	messages, total, err := s.messageRepo.ListConversation(ctx, userID, partnerID, page.Skip(), page.Limit())
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return &dto.MessageListResponse{
		Messages:       messages,
		PaginationInfo: helpers.NewPaginationInfo(total, page),
	}, nil
}

func (s *messageServiceImpl) Conversations(ctx context.Context, userID primitive.ObjectID) ([]models.ConversationSummary, error) {
	summaries, err := s.messageRepo.Conversations(ctx, userID)
	if err != nil {
		return nil, err
	}
	if summaries == nil {
		summaries = []models.ConversationSummary{}
	}
	return summaries, nil
}

// MarkRead marks every message partnerID sent to userID as read
func (s *messageServiceImpl) MarkRead(ctx context.Context, userID, partnerID primitive.ObjectID) (int64, error) {
	n, err := s.messageRepo.MarkRead(ctx, userID, partnerID, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	s.logger.Debug().Str("userID", userID.Hex()).Str("partnerID", partnerID.Hex()).Int64("marked", n).Msg("Messages marked read")
	return n, nil
}
