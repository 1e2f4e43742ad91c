package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/app/repositories"
	"github.com/yigit/circlehub/internal/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SuspensionService defines the interface for community billing state
type SuspensionService interface {
	EnsureActive(community *models.Community) error
	Suspend(ctx context.Context, communityID primitive.ObjectID, reason string) error
	Reactivate(ctx context.Context, communityID primitive.ObjectID, paidUntil time.Time) error
}

type suspensionServiceImpl struct {
	communityRepo repositories.CommunityRepository
	logger        zerolog.Logger
}

// NewSuspensionService creates a new SuspensionService
func NewSuspensionService(communityRepo repositories.CommunityRepository, logger zerolog.Logger) SuspensionService {
	return &suspensionServiceImpl{communityRepo: communityRepo, logger: logger}
}

// IsSuspended reports whether a community lost access because of billing.
// Communities that never entered billing stay active.
func IsSuspended(c *models.Community) bool {
	if c.PaymentStatus != models.PaymentStatusSuspended && c.PaymentStatus != models.PaymentStatusExpired {
		return false
	}
	return c.PaymentEnabled || c.HasUsedTrial
}

func (s *suspensionServiceImpl) EnsureActive(community *models.Community) error {
	if IsSuspended(community) {
		return apperrors.NewCustomError(apperrors.ErrCommunitySuspended, "community suspended").
			WithDetails(map[string]interface{}{"suspensionReason": community.SuspensionReason})
	}
	return nil
}

func (s *suspensionServiceImpl) Suspend(ctx context.Context, communityID primitive.ObjectID, reason string) error {
	if err := s.communityRepo.Suspend(ctx, communityID, reason, time.Now().UTC()); err != nil {
		return err
	}
	s.logger.Info().Str("communityID", communityID.Hex()).Str("reason", reason).Msg("Community suspended")
	return nil
}

// Reactivate marks the community paid until paidUntil and clears the suspension
func (s *suspensionServiceImpl) Reactivate(ctx context.Context, communityID primitive.ObjectID, paidUntil time.Time) error {
	if err := s.communityRepo.MarkPaid(ctx, communityID, paidUntil.UTC()); err != nil {
		return err
	}
	s.logger.Info().Str("communityID", communityID.Hex()).Time("paidUntil", paidUntil).Msg("Community reactivated")
	return nil
}
