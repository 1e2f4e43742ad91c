// Package inmem provides map-backed repositories for tests and local runs without Mongo or Postgres.
package inmem

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/app/repositories"
	"github.com/yigit/circlehub/internal/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ID = primitive.ObjectID

// DB is the shared in-memory store. One lock guards every table.
type DB struct {
	mutex sync.RWMutex

	users         map[ID]*models.User
	communities   map[ID]*models.Community
	posts         map[ID]*models.Post
	comments      map[ID]*models.Comment
	courses       map[ID]*models.Course
	progress      map[ID]*models.UserProgress
	messages      map[ID]*models.Message
	notifications map[ID]*models.Notification
	transactions  map[ID]*models.Transaction
	plans         map[string]*models.PaymentPlan
	subscriptions map[ID]*models.CommunitySubscription
	trialAudits   []models.TrialAudit
	webhookEvents map[string]models.WebhookEvent

	// Now is used for CreatedAt/UpdatedAt stamps
	Now func() time.Time
}

func NewDB() *DB {
	return &DB{
		users:         make(map[ID]*models.User),
		communities:   make(map[ID]*models.Community),
		posts:         make(map[ID]*models.Post),
		comments:      make(map[ID]*models.Comment),
		courses:       make(map[ID]*models.Course),
		progress:      make(map[ID]*models.UserProgress),
		messages:      make(map[ID]*models.Message),
		notifications: make(map[ID]*models.Notification),
		transactions:  make(map[ID]*models.Transaction),
		plans:         make(map[string]*models.PaymentPlan),
		subscriptions: make(map[ID]*models.CommunitySubscription),
		webhookEvents: make(map[string]models.WebhookEvent),
		Now:           func() time.Time { return time.Now().UTC() },
	}
}

// NewRepositories returns a container whose every repository shares db
func NewRepositories(db *DB) *repositories.Repositories {
	return &repositories.Repositories{
		Users:         NewUserRepository(db),
		Communities:   NewCommunityRepository(db),
		Posts:         NewPostRepository(db),
		Comments:      NewCommentRepository(db),
		Courses:       NewCourseRepository(db),
		Progress:      NewProgressRepository(db),
		Messages:      NewMessageRepository(db),
		Notifications: NewNotificationRepository(db),
		Transactions:  NewTransactionRepository(db),
		Plans:         NewPlanRepository(db),
		Subscriptions: NewSubscriptionRepository(db),
		TrialAudits:   NewTrialAuditRepository(db),
		WebhookEvents: NewWebhookEventRepository(db),
	}
}

func notFound(op string) error {
	return fmt.Errorf("%s: %w", op, apperrors.ErrResourceNotFound)
}

func cloneIDs(ids []ID) []ID {
	out := make([]ID, len(ids))
	copy(out, ids)
	return out
}

func timePtr(t time.Time) *time.Time {
	return &t
}

// page applies skip/limit to an already sorted slice
func page[T any](items []T, skip, limit int64) []T {
	n := int64(len(items))
	if skip >= n {
		return []T{}
	}
	end := n
	if limit > 0 && skip+limit < n {
		end = skip + limit
	}
	return items[skip:end]
}

func newest[T any](items []T, at func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool { return at(items[i]).After(at(items[j])) })
}
