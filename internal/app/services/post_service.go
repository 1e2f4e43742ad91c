package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/app/models/dto"
	"github.com/yigit/circlehub/internal/app/repositories"
	"github.com/yigit/circlehub/internal/pkg/apperrors"
	"github.com/yigit/circlehub/internal/pkg/helpers"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PostService defines the interface for community posts
type PostService interface {
	Create(ctx context.Context, communityID, authorID primitive.ObjectID, req *dto.CreatePostRequest) (*dto.PostResponse, error)
	ListByCommunity(ctx context.Context, communityID, viewerID primitive.ObjectID, page helpers.Page) (*dto.PostListResponse, error)
	Get(ctx context.Context, id, viewerID primitive.ObjectID) (*dto.PostResponse, error)
	Update(ctx context.Context, id, userID primitive.ObjectID, req *dto.UpdatePostRequest) (*dto.PostResponse, error)
	Delete(ctx context.Context, id, userID primitive.ObjectID) error
	ToggleLike(ctx context.Context, id, userID primitive.ObjectID) (*dto.LikeResponse, error)
	TogglePin(ctx context.Context, id, userID primitive.ObjectID) (*dto.PostResponse, error)
}

type postServiceImpl struct {
	postRepo      repositories.PostRepository
	commentRepo   repositories.CommentRepository
	communityRepo repositories.CommunityRepository
	suspension    SuspensionService
	gamification  GamificationService
	notifications NotificationService
	logger        zerolog.Logger
}

// NewPostService creates a new PostService
func NewPostService(
	postRepo repositories.PostRepository,
	commentRepo repositories.CommentRepository,
	communityRepo repositories.CommunityRepository,
	suspension SuspensionService,
	gamification GamificationService,
	notifications NotificationService,
	logger zerolog.Logger,
) PostService {
	return &postServiceImpl{
		postRepo:      postRepo,
		commentRepo:   commentRepo,
		communityRepo: communityRepo,
		suspension:    suspension,
		gamification:  gamification,
		notifications: notifications,
		logger:        logger,
	}
}

func (s *postServiceImpl) Create(ctx context.Context, communityID, authorID primitive.ObjectID, req *dto.CreatePostRequest) (*dto.PostResponse, error) {
	community, err := requireMember(ctx, s.communityRepo, communityID, authorID)
	if err != nil {
		return nil, err
	}
	if err := s.suspension.EnsureActive(community); err != nil {
		return nil, err
	}

	post := &models.Post{
		Community: communityID,
		Author:    authorID,
		Title:     strings.TrimSpace(req.Title),
		Content:   req.Content,
		Likes:     []primitive.ObjectID{},
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	s.gamification.Award(ctx, authorID, PointsPost, "post")

	s.logger.Debug().Str("postID", post.ID.Hex()).Str("communityID", communityID.Hex()).Msg("Post created")
	return dto.NewPostResponse(post, viewerOf(authorID)), nil
}

func (s *postServiceImpl) ListByCommunity(ctx context.Context, communityID, viewerID primitive.ObjectID, page helpers.Page) (*dto.PostListResponse, error) {
	community, err := s.communityRepo.GetByID(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if !canRead(community, viewerID) {
		return nil, apperrors.NewForbiddenError("posts of private communities are only visible to members")
	}

	posts, total, err := s.postRepo.ListByCommunity(ctx, communityID, page.Skip(), page.Limit())
	if err != nil {
		return nil, err
	}
	viewer := viewerOf(viewerID)
	out := make([]*dto.PostResponse, 0, len(posts))
	for i := range posts {
		out = append(out, dto.NewPostResponse(&posts[i], viewer))
	}
	return &dto.PostListResponse{
		Posts:          out,
		PaginationInfo: helpers.NewPaginationInfo(total, page),
	}, nil
}

func (s *postServiceImpl) Get(ctx context.Context, id, viewerID primitive.ObjectID) (*dto.PostResponse, error) {
	post, community, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canRead(community, viewerID) {
		return nil, apperrors.NewForbiddenError("posts of private communities are only visible to members")
	}
	return dto.NewPostResponse(post, viewerOf(viewerID)), nil
}

func (s *postServiceImpl) Update(ctx context.Context, id, userID primitive.ObjectID, req *dto.UpdatePostRequest) (*dto.PostResponse, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Author != userID {
		return nil, apperrors.NewForbiddenError("only the author can edit this post")
	}
	if err := s.postRepo.Update(ctx, id, strings.TrimSpace(req.Title), req.Content); err != nil {
		return nil, err
	}
	updated, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewPostResponse(updated, viewerOf(userID)), nil
}

func (s *postServiceImpl) Delete(ctx context.Context, id, userID primitive.ObjectID) error {
	post, community, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if post.Author != userID && !community.IsModerator(userID) {
		return apperrors.NewForbiddenError("only the author or a moderator can delete this post")
	}
	if err := s.postRepo.Delete(ctx, id); err != nil {
		return err
	}
	removed, err := s.commentRepo.DeleteByPost(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("postID", id.Hex()).Msg("Failed to delete post comments")
	}
	s.logger.Info().
		Str("postID", id.Hex()).
		Str("deletedBy", userID.Hex()).
		Int64("commentsDeleted", removed).
		Msg("Post deleted")
	return nil
}

func (s *postServiceImpl) ToggleLike(ctx context.Context, id, userID primitive.ObjectID) (*dto.LikeResponse, error) {
	post, community, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canRead(community, userID) {
		return nil, apperrors.NewForbiddenError("you must be a member of this community")
	}

	if models.ContainsID(post.Likes, userID) {
		updated, err := s.postRepo.RemoveLike(ctx, id, userID)
		if err != nil {
			return nil, err
		}
		return &dto.LikeResponse{Liked: false, LikeCount: len(updated.Likes)}, nil
	}

	updated, err := s.postRepo.AddLike(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if post.Author != userID {
		s.gamification.Award(ctx, post.Author, PointsLikeReceived, "post_like")
		s.notifications.Dispatch(ctx, Notice{
			Recipient: post.Author,
			Actor:     actorRef(userID),
			Type:      models.NotificationLike,
			Message:   fmt.Sprintf("Someone liked your post %q", post.Title),
			Link:      "/posts/" + post.ID.Hex(),
		})
	}
	return &dto.LikeResponse{Liked: true, LikeCount: len(updated.Likes)}, nil
}

func (s *postServiceImpl) TogglePin(ctx context.Context, id, userID primitive.ObjectID) (*dto.PostResponse, error) {
	post, community, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !community.IsModerator(userID) {
		return nil, apperrors.NewForbiddenError("only community moderators can pin posts")
	}
	if err := s.postRepo.SetPinned(ctx, id, !post.IsPinned); err != nil {
		return nil, err
	}
	post.IsPinned = !post.IsPinned
	return dto.NewPostResponse(post, viewerOf(userID)), nil
}

func (s *postServiceImpl) load(ctx context.Context, id primitive.ObjectID) (*models.Post, *models.Community, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	community, err := s.communityRepo.GetByID(ctx, post.Community)
	if err != nil {
		return nil, nil, err
	}
	return post, community, nil
}
