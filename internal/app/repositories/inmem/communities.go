package inmem

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/app/repositories"
	"github.com/yigit/circlehub/internal/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type communityRepository struct {
	db *DB
}

func NewCommunityRepository(db *DB) repositories.CommunityRepository {
	return &communityRepository{db: db}
}

func cloneCommunity(c *models.Community) *models.Community {
	out := *c
	out.SubAdmins = cloneIDs(c.SubAdmins)
	out.Members = cloneIDs(c.Members)
	out.JoinRequests = append([]models.JoinRequest{}, c.JoinRequests...)
	return &out
}

func (repo *communityRepository) Create(_ context.Context, c *models.Community) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.communities {
		if existing.Slug == c.Slug {
			return apperrors.NewConflictError("community slug already exists")
		}
	}
	now := repo.db.Now()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	c.CreatedAt, c.UpdatedAt = now, now
	if c.PaymentStatus == "" {
		c.PaymentStatus = models.PaymentStatusUnpaid
	}
	repo.db.communities[c.ID] = cloneCommunity(c)
	return nil
}

func (repo *communityRepository) GetByID(_ context.Context, id ID) (*models.Community, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if c, ok := repo.db.communities[id]; ok {
		return cloneCommunity(c), nil
	}
	return nil, notFound("GetCommunityByID")
}

func (repo *communityRepository) GetBySlug(_ context.Context, slug string) (*models.Community, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	for _, c := range repo.db.communities {
		if c.Slug == slug {
			return cloneCommunity(c), nil
		}
	}
	return nil, notFound("GetCommunityBySlug")
}

func (repo *communityRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	_, err := repo.GetBySlug(ctx, slug)
	if apperrors.Is(err, apperrors.ErrResourceNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (repo *communityRepository) List(_ context.Context, filter repositories.CommunityFilter, skip, limit int64) ([]models.Community, int64, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	search := strings.ToLower(filter.Search)
	items := make([]models.Community, 0)
	for _, c := range repo.db.communities {
		if search != "" && !strings.Contains(strings.ToLower(c.Name), search) &&
			!strings.Contains(strings.ToLower(c.Description), search) {
			continue
		}
		if filter.MemberID != nil && !c.IsMember(*filter.MemberID) {
			continue
		}
		items = append(items, *cloneCommunity(c))
	}
	newest(items, func(c models.Community) time.Time { return c.CreatedAt })
	return page(items, skip, limit), int64(len(items)), nil
}

func (repo *communityRepository) mutate(op string, id ID, fn func(*models.Community) error) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	c, ok := repo.db.communities[id]
	if !ok {
		return notFound(op)
	}
	if err := fn(c); err != nil {
		return err
	}
	c.UpdatedAt = repo.db.Now()
	return nil
}

func (repo *communityRepository) UpdateDetails(_ context.Context, id ID, d repositories.CommunityDetails) error {
	return repo.mutate("UpdateCommunity", id, func(c *models.Community) error {
		c.Name, c.Description, c.Category, c.ImageURL = d.Name, d.Description, d.Category, d.ImageURL
		c.IsPrivate = d.IsPrivate
		c.PaymentEnabled, c.SubscriptionRequired, c.SubscriptionPrice = d.PaymentEnabled, d.SubscriptionRequired, d.SubscriptionPrice
		return nil
	})
}

func (repo *communityRepository) Delete(_ context.Context, id ID) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if _, ok := repo.db.communities[id]; !ok {
		return apperrors.ErrResourceNotFound
	}
	delete(repo.db.communities, id)
	return nil
}

func dropRequest(reqs []models.JoinRequest, userID ID) []models.JoinRequest {
	out := make([]models.JoinRequest, 0, len(reqs))
	for _, r := range reqs {
		if r.UserID != userID {
			out = append(out, r)
		}
	}
	return out
}

func (repo *communityRepository) AddMember(_ context.Context, id, userID ID) error {
	return repo.mutate("AddMember", id, func(c *models.Community) error {
		c.Members, _ = models.AddID(c.Members, userID)
		c.JoinRequests = dropRequest(c.JoinRequests, userID)
		return nil
	})
}

func (repo *communityRepository) RemoveMember(_ context.Context, id, userID ID) error {
	return repo.mutate("RemoveMember", id, func(c *models.Community) error {
		c.Members, _ = models.RemoveID(c.Members, userID)
		c.SubAdmins, _ = models.RemoveID(c.SubAdmins, userID)
		c.JoinRequests = dropRequest(c.JoinRequests, userID)
		return nil
	})
}

func (repo *communityRepository) AddSubAdmin(_ context.Context, id, userID ID) error {
	return repo.mutate("AddSubAdmin", id, func(c *models.Community) error {
		c.SubAdmins, _ = models.AddID(c.SubAdmins, userID)
		return nil
	})
}

func (repo *communityRepository) RemoveSubAdmin(_ context.Context, id, userID ID) error {
	return repo.mutate("RemoveSubAdmin", id, func(c *models.Community) error {
		c.SubAdmins, _ = models.RemoveID(c.SubAdmins, userID)
		return nil
	})
}

func (repo *communityRepository) AddJoinRequest(_ context.Context, id ID, req models.JoinRequest) error {
	return repo.mutate("AddJoinRequest", id, func(c *models.Community) error {
		if c.HasPendingRequest(req.UserID) {
			return apperrors.NewConflictError("join request already pending")
		}
		c.JoinRequests = append(c.JoinRequests, req)
		return nil
	})
}

func (repo *communityRepository) RemoveJoinRequest(_ context.Context, id, userID ID) error {
	return repo.mutate("RemoveJoinRequest", id, func(c *models.Community) error {
		c.JoinRequests = dropRequest(c.JoinRequests, userID)
		return nil
	})
}

func (repo *communityRepository) StartTrial(_ context.Context, id ID, start, end time.Time) error {
	return repo.mutate("StartCommunityTrial", id, func(c *models.Community) error {
		if c.HasUsedTrial || c.PaymentStatus != models.PaymentStatusUnpaid {
			return fmt.Errorf("StartCommunityTrial: %w", apperrors.ErrConflict)
		}
		c.PaymentStatus = models.PaymentStatusTrial
		c.HasUsedTrial = true
		c.TrialStartDate, c.TrialEndDate, c.SubscriptionEndDate = timePtr(start), timePtr(end), timePtr(end)
		return nil
	})
}

func (repo *communityRepository) MarkPaid(_ context.Context, id ID, until time.Time) error {
	return repo.mutate("MarkCommunityPaid", id, func(c *models.Community) error {
		c.PaymentStatus = models.PaymentStatusPaid
		c.SubscriptionEndDate = timePtr(until)
		c.SuspendedAt, c.SuspensionReason = nil, ""
		return nil
	})
}

func (repo *communityRepository) Suspend(_ context.Context, id ID, reason string, at time.Time) error {
	return repo.mutate("SuspendCommunity", id, func(c *models.Community) error {
		c.PaymentStatus = models.PaymentStatusSuspended
		c.SuspendedAt, c.SuspensionReason = timePtr(at), reason
		return nil
	})
}

func (repo *communityRepository) SuspendLapsed(_ context.Context, now time.Time) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	var n int64
	for _, c := range repo.db.communities {
		if c.SubscriptionEndDate == nil || !c.SubscriptionEndDate.Before(now) {
			continue
		}
		var reason string
		switch c.PaymentStatus {
		case models.PaymentStatusTrial:
			reason = models.SuspensionTrialExpired
		case models.PaymentStatusPaid:
			reason = models.SuspensionSubscriptionExpired
		default:
			continue
		}
		c.PaymentStatus = models.PaymentStatusSuspended
		c.SuspendedAt, c.SuspensionReason, c.UpdatedAt = timePtr(now), reason, now
		n++
	}
	return n, nil
}

func (repo *communityRepository) ListTrialsEndingBetween(_ context.Context, from, to time.Time) ([]models.Community, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	out := make([]models.Community, 0)
	for _, c := range repo.db.communities {
		if c.PaymentStatus != models.PaymentStatusTrial || c.TrialEndDate == nil {
			continue
		}
		if !c.TrialEndDate.Before(from) && c.TrialEndDate.Before(to) {
			out = append(out, *cloneCommunity(c))
		}
	}
	return out, nil
}

func (repo *communityRepository) SetGatewayCustomerID(_ context.Context, id ID, customerID string) error {
	return repo.mutate("SetCommunityGatewayCustomerID", id, func(c *models.Community) error {
		c.GatewayCustomerID = customerID
		return nil
	})
}
