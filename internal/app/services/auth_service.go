package services

import (
	"context"
	"errors"
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

// AuthService defines the interface for registration and login
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	Me(ctx context.Context, userID primitive.ObjectID) (*dto.UserResponse, error)
}

type authServiceImpl struct {
	userRepo   repositories.UserRepository
	jwtService *auth.JWTService
	logger     zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo repositories.UserRepository, jwtService *auth.JWTService, logger zerolog.Logger) AuthService {
	return &authServiceImpl{
		userRepo:   userRepo,
		jwtService: jwtService,
		logger:     logger,
	}
}

func (s *authServiceImpl) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)

	if !validation.IsValidUsername(username) {
		return nil, apperrors.NewCustomError(apperrors.ErrInvalidUsername, apperrors.ErrInvalidUsername.Error())
	}
	if len(req.Password) < 8 {
		return nil, apperrors.NewBadRequestError("password must be at least 8 characters long")
	}

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewCustomError(apperrors.ErrEmailAlreadyExists, "email already registered")
	} else if !errors.Is(err, apperrors.ErrResourceNotFound) {
		return nil, err
	}
	if _, err := s.userRepo.GetByUsername(ctx, username); err == nil {
		return nil, apperrors.NewCustomError(apperrors.ErrUsernameAlreadyExists, "username already taken")
	} else if !errors.Is(err, apperrors.ErrResourceNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		return nil, err
	}

	user := &models.User{
		Name:               strings.TrimSpace(req.Name),
		Email:              email,
		Username:           username,
		Password:           hash,
		Level:              1,
		SubscriptionStatus: models.SubscriptionNone,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// a concurrent registration can still hit the unique index
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, apperrors.NewCustomError(apperrors.ErrEmailAlreadyExists, "email or username already registered")
		}
		return nil, err
	}

	s.logger.Info().Str("userID", user.ID.Hex()).Str("username", user.Username).Msg("User registered")
	return s.authResponse(user)
}

func (s *authServiceImpl) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(user.Password, req.Password) {
		s.logger.Debug().Str("userID", user.ID.Hex()).Msg("Login failed: wrong password")
		return nil, apperrors.ErrInvalidCredentials
	}
	return s.authResponse(user)
}

func (s *authServiceImpl) Me(ctx context.Context, userID primitive.ObjectID) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.NewUserResponse(user, true), nil
}

func (s *authServiceImpl) authResponse(user *models.User) (*dto.AuthResponse, error) {
	token, expiresIn, err := s.jwtService.GenerateToken(user)
	if err != nil {
		s.logger.Error().Err(err).Str("userID", user.ID.Hex()).Msg("Failed to generate token")
		return nil, err
	}
	return &dto.AuthResponse{
		Token: dto.TokenResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresIn:   expiresIn,
		},
		User: dto.NewUserResponse(user, true),
	}, nil
}
