package repositories

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
)

// Repositories holds all the repository instances
type Repositories struct {
	Users         UserRepository
	Communities   CommunityRepository
	Posts         PostRepository
	Comments      CommentRepository
	Courses       CourseRepository
	Progress      ProgressRepository
	Messages      MessageRepository
	Notifications NotificationRepository
	Transactions  TransactionRepository
	Plans         PlanRepository
	Subscriptions SubscriptionRepository
	TrialAudits   TrialAuditRepository
	WebhookEvents WebhookEventRepository
}

// NewRepositories wires the Mongo document stores and the Postgres audit ledger
func NewRepositories(db *mongo.Database, pg *pgxpool.Pool) *Repositories {
	return &Repositories{
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
		TrialAudits:   NewTrialAuditRepository(pg),
		WebhookEvents: NewWebhookEventRepository(pg),
	}
}
