package inmem

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/app/repositories"
	"github.com/yigit/circlehub/internal/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type userRepository struct {
	db *DB
}

func NewUserRepository(db *DB) repositories.UserRepository {
	return &userRepository{db: db}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Followers = cloneIDs(u.Followers)
	c.Following = cloneIDs(u.Following)
	return &c
}

func (repo *userRepository) Create(_ context.Context, user *models.User) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, u := range repo.db.users {
		if u.Email == user.Email {
			return apperrors.NewConflictError("email or username already exists")
		}
		if u.Username == user.Username {
			return apperrors.NewConflictError("email or username already exists")
		}
	}
	now := repo.db.Now()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.CreatedAt, user.UpdatedAt = now, now
	if user.SubscriptionStatus == "" {
		user.SubscriptionStatus = models.SubscriptionNone
	}
	repo.db.users[user.ID] = cloneUser(user)
	return nil
}

func (repo *userRepository) find(match func(*models.User) bool) (*models.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	for _, u := range repo.db.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, notFound("GetUser")
}

func (repo *userRepository) GetByID(_ context.Context, id ID) (*models.User, error) {
	return repo.find(func(u *models.User) bool { return u.ID == id })
}

func (repo *userRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return repo.find(func(u *models.User) bool { return u.Email == email })
}

func (repo *userRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return repo.find(func(u *models.User) bool { return u.Username == username })
}

func (repo *userRepository) GetByIDs(_ context.Context, ids []ID) ([]models.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := repo.db.users[id]; ok {
			out = append(out, *cloneUser(u))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// mutate runs fn on the stored user under the write lock
func (repo *userRepository) mutate(op string, id ID, fn func(*models.User) error) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	u, ok := repo.db.users[id]
	if !ok {
		return notFound(op)
	}
	if err := fn(u); err != nil {
		return err
	}
	u.UpdatedAt = repo.db.Now()
	return nil
}

func (repo *userRepository) UpdateProfile(_ context.Context, id ID, name, bio, avatarURL string) error {
	return repo.mutate("UpdateProfile", id, func(u *models.User) error {
		u.Name, u.Bio, u.Avatar = name, bio, avatarURL
		return nil
	})
}

func (repo *userRepository) UpdateUsername(_ context.Context, id ID, username string) error {
	return repo.mutate("UpdateUsername", id, func(u *models.User) error {
		for _, other := range repo.db.users {
			if other.ID != id && other.Username == username {
				return apperrors.ErrUsernameAlreadyExists
			}
		}
		u.Username = username
		return nil
	})
}

func (repo *userRepository) UpdatePassword(_ context.Context, id ID, hash string) error {
	return repo.mutate("UpdatePassword", id, func(u *models.User) error {
		u.Password = hash
		return nil
	})
}

func (repo *userRepository) AddPoints(_ context.Context, id ID, delta int) (*models.User, error) {
	var out *models.User
	err := repo.mutate("AddPoints", id, func(u *models.User) error {
		u.Points += delta
		out = cloneUser(u)
		return nil
	})
	return out, err
}

func (repo *userRepository) SetLevel(_ context.Context, id ID, level int) error {
	return repo.mutate("SetLevel", id, func(u *models.User) error {
		u.Level = level
		return nil
	})
}

func (repo *userRepository) Follow(_ context.Context, followerID, targetID ID) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	target, ok := repo.db.users[targetID]
	follower, ok2 := repo.db.users[followerID]
	if !ok || !ok2 {
		return notFound("Follow")
	}
	target.Followers, _ = models.AddID(target.Followers, followerID)
	follower.Following, _ = models.AddID(follower.Following, targetID)
	return nil
}

func (repo *userRepository) Unfollow(_ context.Context, followerID, targetID ID) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	follower, ok := repo.db.users[followerID]
	if !ok {
		return notFound("Unfollow")
	}
	if target, ok := repo.db.users[targetID]; ok {
		target.Followers, _ = models.RemoveID(target.Followers, followerID)
	}
	follower.Following, _ = models.RemoveID(follower.Following, targetID)
	return nil
}

func (repo *userRepository) StartTrial(_ context.Context, id ID, start, end time.Time) error {
	return repo.mutate("StartUserTrial", id, func(u *models.User) error {
		if u.HasUsedTrial {
			return fmt.Errorf("StartUserTrial: %w", apperrors.ErrConflict)
		}
		u.SubscriptionStatus = models.SubscriptionTrial
		u.HasUsedTrial = true
		u.TrialStartDate, u.TrialEndDate = timePtr(start), timePtr(end)
		return nil
	})
}

func (repo *userRepository) SetTrialEndDate(_ context.Context, id ID, end time.Time) error {
	return repo.mutate("SetUserTrialEndDate", id, func(u *models.User) error {
		u.TrialEndDate = timePtr(end)
		return nil
	})
}

func (repo *userRepository) SetSubscription(_ context.Context, id ID, status models.SubscriptionStatus, end *time.Time) error {
	return repo.mutate("SetUserSubscription", id, func(u *models.User) error {
		u.SubscriptionStatus = status
		if end != nil {
			u.SubscriptionEndDate = timePtr(*end)
		}
		return nil
	})
}

func (repo *userRepository) SetGatewayCustomerID(_ context.Context, id ID, customerID string) error {
	return repo.mutate("SetUserGatewayCustomerID", id, func(u *models.User) error {
		u.GatewayCustomerID = customerID
		return nil
	})
}

func (repo *userRepository) ExpireTrials(_ context.Context, now time.Time) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	var n int64
	for _, u := range repo.db.users {
		if u.SubscriptionStatus == models.SubscriptionTrial && u.TrialEndDate != nil && u.TrialEndDate.Before(now) {
			u.SubscriptionStatus = models.SubscriptionExpired
			u.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (repo *userRepository) ExpireSubscriptions(_ context.Context, now time.Time) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	var n int64
	for _, u := range repo.db.users {
		lapsing := u.SubscriptionStatus == models.SubscriptionActive || u.SubscriptionStatus == models.SubscriptionCancelled
		if lapsing && u.SubscriptionEndDate != nil && u.SubscriptionEndDate.Before(now) {
			u.SubscriptionStatus = models.SubscriptionExpired
			u.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (repo *userRepository) ListTrialsEndingBetween(_ context.Context, from, to time.Time) ([]models.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	out := make([]models.User, 0)
	for _, u := range repo.db.users {
		if u.SubscriptionStatus != models.SubscriptionTrial || u.TrialEndDate == nil {
			continue
		}
		if !u.TrialEndDate.Before(from) && u.TrialEndDate.Before(to) {
			out = append(out, *cloneUser(u))
		}
	}
	return out, nil
}

func (repo *userRepository) TopByPoints(_ context.Context, ids []ID, limit int) ([]models.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := repo.db.users[id]; ok {
			out = append(out, *cloneUser(u))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
