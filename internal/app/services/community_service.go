package services

import (
	"context"
	"errors"
	"fmt"
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

// Join outcomes
const (
	JoinStatusJoined  = "joined"
	JoinStatusPending = "pending"
)

const (
	defaultCurrency = "usd"
	maxSlugAttempts = 100
)

// CommunityService defines the interface for community operations
type CommunityService interface {
	Create(ctx context.Context, adminID primitive.ObjectID, req *dto.CreateCommunityRequest) (*dto.CommunityResponse, error)
	Get(ctx context.Context, idOrSlug string, viewerID primitive.ObjectID) (*dto.CommunityResponse, error)
	List(ctx context.Context, search string, page helpers.Page, viewerID primitive.ObjectID) (*dto.CommunityListResponse, error)
	ListMine(ctx context.Context, userID primitive.ObjectID, page helpers.Page) (*dto.CommunityListResponse, error)
	Update(ctx context.Context, id, userID primitive.ObjectID, req *dto.UpdateCommunityRequest) (*dto.CommunityResponse, error)
	Delete(ctx context.Context, id, userID primitive.ObjectID) error
	Join(ctx context.Context, id, userID primitive.ObjectID, message string) (*dto.JoinCommunityResponse, error)
	Leave(ctx context.Context, id, userID primitive.ObjectID) error
	ListJoinRequests(ctx context.Context, id, moderatorID primitive.ObjectID) ([]models.JoinRequest, error)
	ApproveJoinRequest(ctx context.Context, id, moderatorID, userID primitive.ObjectID) error
	RejectJoinRequest(ctx context.Context, id, moderatorID, userID primitive.ObjectID) error
	AddSubAdmin(ctx context.Context, id, adminID, userID primitive.ObjectID) error
	RemoveSubAdmin(ctx context.Context, id, adminID, userID primitive.ObjectID) error
	RemoveMember(ctx context.Context, id, moderatorID, userID primitive.ObjectID) error
	ListMembers(ctx context.Context, id, viewerID primitive.ObjectID, page helpers.Page) (*dto.UserListResponse, error)
}

type communityServiceImpl struct {
	communityRepo    repositories.CommunityRepository
	userRepo         repositories.UserRepository
	postRepo         repositories.PostRepository
	courseRepo       repositories.CourseRepository
	subscriptionRepo repositories.SubscriptionRepository
	notifications    NotificationService
	logger           zerolog.Logger
}

// NewCommunityService creates a new CommunityService
func NewCommunityService(
	communityRepo repositories.CommunityRepository,
	userRepo repositories.UserRepository,
	postRepo repositories.PostRepository,
	courseRepo repositories.CourseRepository,
	subscriptionRepo repositories.SubscriptionRepository,
	notifications NotificationService,
	logger zerolog.Logger,
) CommunityService {
	return &communityServiceImpl{
		communityRepo:    communityRepo,
		userRepo:         userRepo,
		postRepo:         postRepo,
		courseRepo:       courseRepo,
		subscriptionRepo: subscriptionRepo,
		notifications:    notifications,
		logger:           logger,
	}
}

func (s *communityServiceImpl) Create(ctx context.Context, adminID primitive.ObjectID, req *dto.CreateCommunityRequest) (*dto.CommunityResponse, error) {
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	if req.PaymentEnabled && req.SubscriptionRequired && req.SubscriptionPrice <= 0 {
		return nil, apperrors.NewBadRequestError("subscriptionPrice must be positive when a subscription is required")
	}

	community := &models.Community{
		Name:                 strings.TrimSpace(req.Name),
		Description:          req.Description,
		Category:             req.Category,
		ImageURL:             req.ImageURL,
		IsPrivate:            req.IsPrivate,
		Admin:                adminID,
		SubAdmins:            []primitive.ObjectID{},
		Members:              []primitive.ObjectID{adminID},
		JoinRequests:         []models.JoinRequest{},
		PaymentEnabled:       req.PaymentEnabled,
		SubscriptionRequired: req.SubscriptionRequired,
		SubscriptionPrice:    req.SubscriptionPrice,
		Currency:             currency,
		PaymentStatus:        models.PaymentStatusUnpaid,
	}

	base := helpers.Slugify(community.Name)
	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		candidate := helpers.SlugCandidate(base, attempt)
		taken, err := s.communityRepo.SlugExists(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if taken {
			continue
		}
		community.Slug = candidate
		err = s.communityRepo.Create(ctx, community)
		if err == nil {
			s.logger.Info().
				Str("communityID", community.ID.Hex()).
				Str("slug", community.Slug).
				Str("adminID", adminID.Hex()).
				Msg("Community created")
			return dto.NewCommunityResponse(community, viewerOf(adminID)), nil
		}
		// lost a race on the unique slug index; try the next suffix
		if !errors.Is(err, apperrors.ErrConflict) {
			return nil, err
		}
	}
	return nil, apperrors.NewConflictError("could not allocate a unique slug for this name")
}

func (s *communityServiceImpl) Get(ctx context.Context, idOrSlug string, viewerID primitive.ObjectID) (*dto.CommunityResponse, error) {
	community, err := s.lookup(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	return dto.NewCommunityResponse(community, viewerOf(viewerID)), nil
}

func (s *communityServiceImpl) lookup(ctx context.Context, idOrSlug string) (*models.Community, error) {
	if id, err := primitive.ObjectIDFromHex(idOrSlug); err == nil {
		community, err := s.communityRepo.GetByID(ctx, id)
		if err == nil || !errors.Is(err, apperrors.ErrResourceNotFound) {
			return community, err
		}
	}
	return s.communityRepo.GetBySlug(ctx, strings.ToLower(idOrSlug))
}

func (s *communityServiceImpl) List(ctx context.Context, search string, page helpers.Page, viewerID primitive.ObjectID) (*dto.CommunityListResponse, error) {
	return s.list(ctx, repositories.CommunityFilter{Search: strings.TrimSpace(search)}, page, viewerID)
}

func (s *communityServiceImpl) ListMine(ctx context.Context, userID primitive.ObjectID, page helpers.Page) (*dto.CommunityListResponse, error) {
	return s.list(ctx, repositories.CommunityFilter{MemberID: &userID}, page, userID)
}

func (s *communityServiceImpl) list(ctx context.Context, filter repositories.CommunityFilter, page helpers.Page, viewerID primitive.ObjectID) (*dto.CommunityListResponse, error) {
	items, total, err := s.communityRepo.List(ctx, filter, page.Skip(), page.Limit())
	if err != nil {
		return nil, err
	}
	viewer := viewerOf(viewerID)
	out := make([]*dto.CommunityResponse, 0, len(items))
	for i := range items {
		out = append(out, dto.NewCommunityResponse(&items[i], viewer))
	}
	return &dto.CommunityListResponse{
		Communities:    out,
		PaginationInfo: helpers.NewPaginationInfo(total, page),
	}, nil
}

func (s *communityServiceImpl) Update(ctx context.Context, id, userID primitive.ObjectID, req *dto.UpdateCommunityRequest) (*dto.CommunityResponse, error) {
	community, err := requireModerator(ctx, s.communityRepo, id, userID)
	if err != nil {
		return nil, err
	}

	details := repositories.CommunityDetails{
		Name:                 community.Name,
		Description:          community.Description,
		Category:             community.Category,
		ImageURL:             community.ImageURL,
		IsPrivate:            community.IsPrivate,
		PaymentEnabled:       community.PaymentEnabled,
		SubscriptionRequired: community.SubscriptionRequired,
		SubscriptionPrice:    community.SubscriptionPrice,
	}
	if req.Name != nil {
		details.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		details.Description = *req.Description
	}
	if req.Category != nil {
		details.Category = *req.Category
	}
	if req.ImageURL != nil {
		details.ImageURL = *req.ImageURL
	}
	if req.IsPrivate != nil {
		details.IsPrivate = *req.IsPrivate
	}
	if req.PaymentEnabled != nil {
		details.PaymentEnabled = *req.PaymentEnabled
	}
	if req.SubscriptionRequired != nil {
		details.SubscriptionRequired = *req.SubscriptionRequired
	}
	if req.SubscriptionPrice != nil {
		details.SubscriptionPrice = *req.SubscriptionPrice
	}
	if details.PaymentEnabled && details.SubscriptionRequired && details.SubscriptionPrice <= 0 {
		return nil, apperrors.NewBadRequestError("subscriptionPrice must be positive when a subscription is required")
	}

	if err := s.communityRepo.UpdateDetails(ctx, id, details); err != nil {
		return nil, err
	}
	updated, err := s.communityRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewCommunityResponse(updated, viewerOf(userID)), nil
}

func (s *communityServiceImpl) Delete(ctx context.Context, id, userID primitive.ObjectID) error {
	community, err := s.communityRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !community.IsAdmin(userID) {
		return apperrors.NewForbiddenError("only the community admin can delete it")
	}
	if err := s.communityRepo.Delete(ctx, id); err != nil {
		return err
	}

	posts, err := s.postRepo.DeleteByCommunity(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("communityID", id.Hex()).Msg("Failed to delete community posts")
	}
	courses, err := s.courseRepo.ListByCommunity(ctx, id, false)
	if err != nil {
		s.logger.Error().Err(err).Str("communityID", id.Hex()).Msg("Failed to list community courses")
	}
	for _, course := range courses {
		if err := s.courseRepo.Delete(ctx, course.ID); err != nil {
			s.logger.Error().Err(err).Str("courseID", course.ID.Hex()).Msg("Failed to delete course")
		}
	}

	s.logger.Info().
		Str("communityID", id.Hex()).
		Int64("postsDeleted", posts).
		Int("coursesDeleted", len(courses)).
		Msg("Community deleted")
	return nil
}

func (s *communityServiceImpl) Join(ctx context.Context, id, userID primitive.ObjectID, message string) (*dto.JoinCommunityResponse, error) {
	community, err := s.communityRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if community.IsMember(userID) {
		return nil, apperrors.NewConflictError("you are already a member of this community")
	}

	if community.RequiresPaidMembership() {
		paid, err := s.hasMembershipAccess(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		if !paid {
			return nil, apperrors.NewPaymentRequiredError("this community requires a paid membership", map[string]interface{}{
				"requiresPayment": true,
				"price":           community.SubscriptionPrice,
				"currency":        community.Currency,
				"communityId":     community.ID.Hex(),
			})
		}
	}

	if community.IsPrivate {
		if community.HasPendingRequest(userID) {
			return nil, apperrors.NewConflictError("your join request is already pending")
		}
		req := models.JoinRequest{UserID: userID, Message: message, RequestedAt: time.Now().UTC()}
		if err := s.communityRepo.AddJoinRequest(ctx, id, req); err != nil {
			return nil, err
		}
		moderators := append([]primitive.ObjectID{community.Admin}, community.SubAdmins...)
		for _, moderatorID := range moderators {
			s.notifications.Dispatch(ctx, Notice{
				Recipient: moderatorID,
				Actor:     actorRef(userID),
				Type:      models.NotificationJoinRequest,
				Message:   fmt.Sprintf("New request to join %s", community.Name),
				Link:      "/communities/" + community.Slug + "/requests",
			})
		}
		community.JoinRequests = append(community.JoinRequests, req)
		return &dto.JoinCommunityResponse{
			Status:    JoinStatusPending,
			Community: dto.NewCommunityResponse(community, viewerOf(userID)),
		}, nil
	}

	if err := s.communityRepo.AddMember(ctx, id, userID); err != nil {
		return nil, err
	}
	updated, err := s.communityRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("communityID", id.Hex()).Str("userID", userID.Hex()).Msg("User joined community")
	return &dto.JoinCommunityResponse{
		Status:    JoinStatusJoined,
		Community: dto.NewCommunityResponse(updated, viewerOf(userID)),
	}, nil
}

func (s *communityServiceImpl) hasMembershipAccess(ctx context.Context, userID, communityID primitive.ObjectID) (bool, error) {
	sub, err := s.subscriptionRepo.FindLatest(ctx, userID, communityID, models.PurposeMembership)
	if errors.Is(err, apperrors.ErrResourceNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return sub.GrantsAccess(time.Now().UTC()), nil
}

func (s *communityServiceImpl) Leave(ctx context.Context, id, userID primitive.ObjectID) error {
	community, err := s.communityRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if community.IsAdmin(userID) {
		return apperrors.NewBadRequestError("the community admin cannot leave the community")
	}
	if !community.IsMember(userID) {
		return apperrors.NewBadRequestError("you are not a member of this community")
	}
	return s.communityRepo.RemoveMember(ctx, id, userID)
}

func (s *communityServiceImpl) ListJoinRequests(ctx context.Context, id, moderatorID primitive.ObjectID) ([]models.JoinRequest, error) {
	community, err := requireModerator(ctx, s.communityRepo, id, moderatorID)
	if err != nil {
		return nil, err
	}
	if community.JoinRequests == nil {
		return []models.JoinRequest{}, nil
	}
	return community.JoinRequests, nil
}

func (s *communityServiceImpl) ApproveJoinRequest(ctx context.Context, id, moderatorID, userID primitive.ObjectID) error {
	community, err := requireModerator(ctx, s.communityRepo, id, moderatorID)
	if err != nil {
		return err
	}
	if !community.HasPendingRequest(userID) {
		return apperrors.NewResourceNotFoundError("join request not found")
	}
	if err := s.communityRepo.AddMember(ctx, id, userID); err != nil {
		return err
	}
	if err := s.communityRepo.RemoveJoinRequest(ctx, id, userID); err != nil {
		return err
	}
	s.notifications.Dispatch(ctx, Notice{
		Recipient: userID,
		Actor:     actorRef(moderatorID),
		Type:      models.NotificationJoinApproved,
		Message:   fmt.Sprintf("Your request to join %s was approved", community.Name),
		Link:      "/communities/" + community.Slug,
	})
	return nil
}

func (s *communityServiceImpl) RejectJoinRequest(ctx context.Context, id, moderatorID, userID primitive.ObjectID) error {
	community, err := requireModerator(ctx, s.communityRepo, id, moderatorID)
	if err != nil {
		return err
	}
	if !community.HasPendingRequest(userID) {
		return apperrors.NewResourceNotFoundError("join request not found")
	}
	return s.communityRepo.RemoveJoinRequest(ctx, id, userID)
}

func (s *communityServiceImpl) AddSubAdmin(ctx context.Context, id, adminID, userID primitive.ObjectID) error {
	community, err := s.communityRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !community.IsAdmin(adminID) {
		return apperrors.NewForbiddenError("only the community admin can manage sub-admins")
	}
	if community.IsAdmin(userID) {
		return apperrors.NewBadRequestError("the admin cannot be a sub-admin")
	}
	if !community.IsMember(userID) {
		return apperrors.NewBadRequestError("sub-admins must be members of the community")
	}
	return s.communityRepo.AddSubAdmin(ctx, id, userID)
}

func (s *communityServiceImpl) RemoveSubAdmin(ctx context.Context, id, adminID, userID primitive.ObjectID) error {
	community, err := s.communityRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !community.IsAdmin(adminID) {
		return apperrors.NewForbiddenError("only the community admin can manage sub-admins")
	}
	if !community.IsSubAdmin(userID) {
		return apperrors.NewResourceNotFoundError("user is not a sub-admin")
	}
	return s.communityRepo.RemoveSubAdmin(ctx, id, userID)
}

func (s *communityServiceImpl) RemoveMember(ctx context.Context, id, moderatorID, userID primitive.ObjectID) error {
	community, err := requireModerator(ctx, s.communityRepo, id, moderatorID)
	if err != nil {
		return err
	}
	switch {
	case community.IsAdmin(userID):
		return apperrors.NewBadRequestError("the community admin cannot be removed")
	case moderatorID == userID:
		return apperrors.NewBadRequestError("use leave to remove yourself")
	case !community.IsAdmin(moderatorID) && community.IsSubAdmin(userID):
		return apperrors.NewForbiddenError("sub-admins cannot remove other sub-admins")
	case !community.IsMember(userID):
		return apperrors.NewResourceNotFoundError("user is not a member")
	}
	if err := s.communityRepo.RemoveMember(ctx, id, userID); err != nil {
		return err
	}
	s.logger.Info().
		Str("communityID", id.Hex()).
		Str("userID", userID.Hex()).
		Str("removedBy", moderatorID.Hex()).
		Msg("Member removed")
	return nil
}

func (s *communityServiceImpl) ListMembers(ctx context.Context, id, viewerID primitive.ObjectID, page helpers.Page) (*dto.UserListResponse, error) {
	community, err := s.communityRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canRead(community, viewerID) {
		return nil, apperrors.NewForbiddenError("members of private communities are only visible to members")
	}

	total := int64(len(community.Members))
	start := page.Skip()
	if start > total {
		start = total
	}
	end := start + page.Limit()
	if end > total {
		end = total
	}

	users := []models.User{}
	if ids := community.Members[start:end]; len(ids) > 0 {
		users, err = s.userRepo.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
	}
	return &dto.UserListResponse{
		Users:          dto.NewUserResponses(users),
		PaginationInfo: helpers.NewPaginationInfo(total, page),
	}, nil
}
