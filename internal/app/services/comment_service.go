package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/app/models/dto"
	"github.com/yigit/circlehub/internal/app/repositories"
	"github.com/yigit/circlehub/internal/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CommentService defines the interface for threaded comments
type CommentService interface {
	Create(ctx context.Context, postID, authorID primitive.ObjectID, req *dto.CreateCommentRequest) (*dto.CommentResponse, error)
	ListByPost(ctx context.Context, postID, viewerID primitive.ObjectID) (*dto.CommentListResponse, error)
	Delete(ctx context.Context, id, userID primitive.ObjectID) error
	ToggleLike(ctx context.Context, id, userID primitive.ObjectID) (*dto.LikeResponse, error)
}

type commentServiceImpl struct {
	commentRepo   repositories.CommentRepository
	postRepo      repositories.PostRepository
	communityRepo repositories.CommunityRepository
	suspension    SuspensionService
	gamification  GamificationService
	notifications NotificationService
	logger        zerolog.Logger
}

// NewCommentService creates a new CommentService
func NewCommentService(
	commentRepo repositories.CommentRepository,
	postRepo repositories.PostRepository,
	communityRepo repositories.CommunityRepository,
	suspension SuspensionService,
	gamification GamificationService,
	notifications NotificationService,
	logger zerolog.Logger,
) CommentService {
	return &commentServiceImpl{
		commentRepo:   commentRepo,
		postRepo:      postRepo,
		communityRepo: communityRepo,
		suspension:    suspension,
		gamification:  gamification,
		notifications: notifications,
		logger:        logger,
	}
}

func (s *commentServiceImpl) Create(ctx context.Context, postID, authorID primitive.ObjectID, req *dto.CreateCommentRequest) (*dto.CommentResponse, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	community, err := requireMember(ctx, s.communityRepo, post.Community, authorID)
	if err != nil {
		return nil, err
	}
	if err := s.suspension.EnsureActive(community); err != nil {
		return nil, err
	}

	var parent *models.Comment
	if req.ParentID != "" {
		parentID, err := primitive.ObjectIDFromHex(req.ParentID)
		if err != nil {
			return nil, apperrors.NewBadRequestError("invalid parentId")
		}
		parent, err = s.commentRepo.GetByID(ctx, parentID)
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, apperrors.NewBadRequestError("parent comment does not exist")
		}
		if err != nil {
			return nil, err
		}
		if parent.Post != postID {
			return nil, apperrors.NewBadRequestError("parent comment belongs to a different post")
		}
	}

	comment := &models.Comment{
		Post:      postID,
		Community: post.Community,
		Author:    authorID,
		Content:   req.Content,
		Likes:     []primitive.ObjectID{},
	}
	if parent != nil {
		comment.Parent = &parent.ID
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	if err := s.postRepo.IncrementCommentCount(ctx, postID, 1); err != nil {
		s.logger.Warn().Err(err).Str("postID", postID.Hex()).Msg("Failed to increment comment count")
	}
	s.gamification.Award(ctx, authorID, PointsComment, "comment")

	link := "/posts/" + postID.Hex()
	if parent != nil {
		s.notifications.Dispatch(ctx, Notice{
			Recipient: parent.Author,
			Actor:     actorRef(authorID),
			Type:      models.NotificationReply,
			Message:   "Someone replied to your comment",
			Link:      link,
		})
	} else {
		s.notifications.Dispatch(ctx, Notice{
			Recipient: post.Author,
			Actor:     actorRef(authorID),
			Type:      models.NotificationComment,
			Message:   fmt.Sprintf("New comment on %q", post.Title),
			Link:      link,
		})
	}

	return dto.NewCommentResponse(comment), nil
}

func (s *commentServiceImpl) ListByPost(ctx context.Context, postID, viewerID primitive.ObjectID) (*dto.CommentListResponse, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	community, err := s.communityRepo.GetByID(ctx, post.Community)
	if err != nil {
		return nil, err
	}
	if !canRead(community, viewerID) {
		return nil, apperrors.NewForbiddenError("comments of private communities are only visible to members")
	}

	comments, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	flat := make([]*dto.CommentResponse, 0, len(comments))
	for i := range comments {
		flat = append(flat, dto.NewCommentResponse(&comments[i]))
	}
	return &dto.CommentListResponse{Comments: flat, Tree: BuildCommentTree(comments)}, nil
}

// BuildCommentTree nests comments under their parents, keeping input order among siblings.
// A comment whose parent is missing from the list becomes a root.
func BuildCommentTree(comments []models.Comment) []*dto.CommentResponse {
	nodes := make(map[primitive.ObjectID]*dto.CommentResponse, len(comments))
	for i := range comments {
		nodes[comments[i].ID] = dto.NewCommentResponse(&comments[i])
	}

	roots := make([]*dto.CommentResponse, 0)
	for i := range comments {
		node := nodes[comments[i].ID]
		if p := comments[i].Parent; p != nil && *p != comments[i].ID {
			if parent, ok := nodes[*p]; ok {
				parent.Replies = append(parent.Replies, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}

// descendants returns root and every comment below it
func descendants(comments []models.Comment, root primitive.ObjectID) []primitive.ObjectID {
	children := make(map[primitive.ObjectID][]primitive.ObjectID)
	for _, c := range comments {
		if c.Parent != nil {
			children[*c.Parent] = append(children[*c.Parent], c.ID)
		}
	}
	out := []primitive.ObjectID{root}
	seen := map[primitive.ObjectID]bool{root: true}
	for i := 0; i < len(out); i++ {
		for _, child := range children[out[i]] {
			if !seen[child] {
				seen[child] = true
				out = append(out, child)
			}
		}
	}
	return out
}

func (s *commentServiceImpl) Delete(ctx context.Context, id, userID primitive.ObjectID) error {
	comment, err := s.commentRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if comment.Author != userID {
		community, err := s.communityRepo.GetByID(ctx, comment.Community)
		if err != nil {
			return err
		}
		if !community.IsModerator(userID) {
			return apperrors.NewForbiddenError("only the author or a moderator can delete this comment")
		}
	}

	thread, err := s.commentRepo.ListByPost(ctx, comment.Post)
	if err != nil {
		return err
	}
	ids := descendants(thread, id)
	removed, err := s.commentRepo.DeleteMany(ctx, ids)
	if err != nil {
		return err
	}
	if removed > 0 {
		if err := s.postRepo.IncrementCommentCount(ctx, comment.Post, -int(removed)); err != nil {
			s.logger.Warn().Err(err).Str("postID", comment.Post.Hex()).Msg("Failed to decrement comment count")
		}
	}
	s.logger.Debug().Str("commentID", id.Hex()).Int64("removed", removed).Msg("Comment thread deleted")
	return nil
}

func (s *commentServiceImpl) ToggleLike(ctx context.Context, id, userID primitive.ObjectID) (*dto.LikeResponse, error) {
	comment, err := s.commentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	community, err := s.communityRepo.GetByID(ctx, comment.Community)
	if err != nil {
		return nil, err
	}
	if !canRead(community, userID) {
		return nil, apperrors.NewForbiddenError("you must be a member of this community")
	}

	if models.ContainsID(comment.Likes, userID) {
		updated, err := s.commentRepo.RemoveLike(ctx, id, userID)
		if err != nil {
			return nil, err
		}
		return &dto.LikeResponse{Liked: false, LikeCount: len(updated.Likes)}, nil
	}
	updated, err := s.commentRepo.AddLike(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if comment.Author != userID {
		s.gamification.Award(ctx, comment.Author, PointsLikeReceived, "comment_like")
		s.notifications.Dispatch(ctx, Notice{
			Recipient: comment.Author,
			Actor:     actorRef(userID),
			Type:      models.NotificationLike,
			Message:   "Someone liked your comment",
			Link:      "/posts/" + comment.Post.Hex(),
		})
	}
	return &dto.LikeResponse{Liked: true, LikeCount: len(updated.Likes)}, nil
}
