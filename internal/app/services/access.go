package services

import (
	"context"

	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/app/repositories"
	"github.com/yigit/circlehub/internal/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// viewerOf is the minimal user the dto mappers need to compute per-viewer flags
func viewerOf(id primitive.ObjectID) *models.User {
	if id.IsZero() {
		return nil
	}
	return &models.User{ID: id}
}

// requireMember loads a community and fails with 403 unless userID is a member
func requireMember(ctx context.Context, repo repositories.CommunityRepository, communityID, userID primitive.ObjectID) (*models.Community, error) {
	community, err := repo.GetByID(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if !community.IsMember(userID) {
		return nil, apperrors.NewForbiddenError("you must be a member of this community")
	}
	return community, nil
}

// requireModerator loads a community and fails with 403 unless userID is admin or sub-admin
func requireModerator(ctx context.Context, repo repositories.CommunityRepository, communityID, userID primitive.ObjectID) (*models.Community, error) {
	community, err := repo.GetByID(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if !community.IsModerator(userID) {
		return nil, apperrors.NewForbiddenError("only community moderators can do this")
	}
	return community, nil
}

// canRead reports whether userID may see the content of community
func canRead(community *models.Community, userID primitive.ObjectID) bool {
	return !community.IsPrivate || community.IsMember(userID)
}
