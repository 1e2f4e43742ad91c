package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/app/models/dto"
	"github.com/yigit/circlehub/internal/app/repositories"
	"github.com/yigit/circlehub/internal/pkg/apperrors"
	"github.com/yigit/circlehub/internal/pkg/auth"
	"github.com/yigit/circlehub/internal/pkg/validation"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserService defines the interface for profile and follow operations
type UserService interface {
	GetProfile(ctx context.Context, id, viewerID primitive.ObjectID) (*dto.UserResponse, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, req *dto.UpdateProfileRequest) (*dto.UserResponse, error)
	UpdateUsername(ctx context.Context, id primitive.ObjectID, username string) (*dto.UserResponse, error)
	ChangePassword(ctx context.Context, id primitive.ObjectID, req *dto.ChangePasswordRequest) error
	Follow(ctx context.Context, followerID, targetID primitive.ObjectID) error
	Unfollow(ctx context.Context, followerID, targetID primitive.ObjectID) error
	ListFollowers(ctx context.Context, id primitive.ObjectID) ([]*dto.UserResponse, error)
	ListFollowing(ctx context.Context, id primitive.ObjectID) ([]*dto.UserResponse, error)
}

type userServiceImpl struct {
	userRepo      repositories.UserRepository
	notifications NotificationService
	logger        zerolog.Logger
}

// NewUserService creates a new UserService
func NewUserService(userRepo repositories.UserRepository, notifications NotificationService, logger zerolog.Logger) UserService {
	return &userServiceImpl{
		userRepo:      userRepo,
		notifications: notifications,
		logger:        logger,
	}
}

func (s *userServiceImpl) GetProfile(ctx context.Context, id, viewerID primitive.ObjectID) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewUserResponse(user, id == viewerID), nil
}

func (s *userServiceImpl) UpdateProfile(ctx context.Context, id primitive.ObjectID, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	if err := s.userRepo.UpdateProfile(ctx, id, strings.TrimSpace(req.Name), req.Bio, req.AvatarURL); err != nil {
		return nil, err
	}
	return s.self(ctx, id)
}

func (s *userServiceImpl) UpdateUsername(ctx context.Context, id primitive.ObjectID, username string) (*dto.UserResponse, error) {
	// checked as sent; surrounding whitespace is invalid, not trimmed
	if len(username) < 3 || len(username) > 30 || !validation.IsValidUsername(username) {
		return nil, apperrors.NewCustomError(apperrors.ErrInvalidUsername,
			"username must be 3-30 characters of letters, numbers and underscores")
	}

	existing, err := s.userRepo.GetByUsername(ctx, username)
	switch {
	case err == nil && existing.ID != id:
		return nil, apperrors.NewCustomError(apperrors.ErrUsernameAlreadyExists, "username already taken")
	case err == nil:
		return dto.NewUserResponse(existing, true), nil
	case !errors.Is(err, apperrors.ErrResourceNotFound):
		return nil, err
	}

	if err := s.userRepo.UpdateUsername(ctx, id, username); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, apperrors.NewCustomError(apperrors.ErrUsernameAlreadyExists, "username already taken")
		}
		return nil, err
	}
	return s.self(ctx, id)
}

func (s *userServiceImpl) ChangePassword(ctx context.Context, id primitive.ObjectID, req *dto.ChangePasswordRequest) error {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(user.Password, req.CurrentPassword) {
		return apperrors.NewCustomError(apperrors.ErrInvalidCredentials, "current password is incorrect")
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(ctx, id, hash); err != nil {
		return err
	}
	s.logger.Info().Str("userID", id.Hex()).Msg("Password changed")
	return nil
}

func (s *userServiceImpl) Follow(ctx context.Context, followerID, targetID primitive.ObjectID) error {
	if followerID == targetID {
		return apperrors.NewBadRequestError("you cannot follow yourself")
	}
	follower, err := s.userRepo.GetByID(ctx, followerID)
	if err != nil {
		return err
	}
	already := models.ContainsID(follower.Following, targetID)
	if err := s.userRepo.Follow(ctx, followerID, targetID); err != nil {
		return err
	}
	if !already {
		s.notifications.Dispatch(ctx, Notice{
			Recipient: targetID,
			Actor:     actorRef(followerID),
			Type:      models.NotificationFollow,
			Message:   fmt.Sprintf("%s started following you", follower.Username),
			Link:      "/users/" + followerID.Hex(),
		})
	}
	return nil
}

func (s *userServiceImpl) Unfollow(ctx context.Context, followerID, targetID primitive.ObjectID) error {
	if followerID == targetID {
		return apperrors.NewBadRequestError("you cannot unfollow yourself")
	}
	return s.userRepo.Unfollow(ctx, followerID, targetID)
}

func (s *userServiceImpl) ListFollowers(ctx context.Context, id primitive.ObjectID) ([]*dto.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.lookup(ctx, user.Followers)
}

func (s *userServiceImpl) ListFollowing(ctx context.Context, id primitive.ObjectID) ([]*dto.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.lookup(ctx, user.Following)
}

func (s *userServiceImpl) lookup(ctx context.Context, ids []primitive.ObjectID) ([]*dto.UserResponse, error) {
	if len(ids) == 0 {
		return []*dto.UserResponse{}, nil
	}
	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return dto.NewUserResponses(users), nil
}

func (s *userServiceImpl) self(ctx context.Context, id primitive.ObjectID) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewUserResponse(user, true), nil
}
