package repositories

import (
	"context"
	"time"

	"github.com/yigit/circlehub/internal/app/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ID is the document identifier used across repositories
type ID = primitive.ObjectID

// CommunityFilter narrows community listings
type CommunityFilter struct {
	Search   string
	MemberID *ID
}

// CommunityDetails are the editable fields of a community
type CommunityDetails struct {
	Name                 string
	Description          string
	Category             string
	ImageURL             string
	IsPrivate            bool
	PaymentEnabled       bool
	SubscriptionRequired bool
	SubscriptionPrice    int64
}

// UserRepository stores users
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id ID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []ID) ([]models.User, error)
	UpdateProfile(ctx context.Context, id ID, name, bio, avatarURL string) error
	UpdateUsername(ctx context.Context, id ID, username string) error
	UpdatePassword(ctx context.Context, id ID, hash string) error
	// AddPoints increments points and returns the updated user
	AddPoints(ctx context.Context, id ID, delta int) (*models.User, error)
	SetLevel(ctx context.Context, id ID, level int) error
	Follow(ctx context.Context, followerID, targetID ID) error
	Unfollow(ctx context.Context, followerID, targetID ID) error
	// StartTrial fails with ErrConflict when the user already had a trial
	StartTrial(ctx context.Context, id ID, start, end time.Time) error
	SetTrialEndDate(ctx context.Context, id ID, end time.Time) error
	SetSubscription(ctx context.Context, id ID, status models.SubscriptionStatus, end *time.Time) error
	SetGatewayCustomerID(ctx context.Context, id ID, customerID string) error
	ExpireTrials(ctx context.Context, now time.Time) (int64, error)
	ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error)
	ListTrialsEndingBetween(ctx context.Context, from, to time.Time) ([]models.User, error)
	TopByPoints(ctx context.Context, ids []ID, limit int) ([]models.User, error)
}

// CommunityRepository stores communities
type CommunityRepository interface {
	Create(ctx context.Context, community *models.Community) error
	GetByID(ctx context.Context, id ID) (*models.Community, error)
	GetBySlug(ctx context.Context, slug string) (*models.Community, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context, filter CommunityFilter, skip, limit int64) ([]models.Community, int64, error)
	UpdateDetails(ctx context.Context, id ID, details CommunityDetails) error
	Delete(ctx context.Context, id ID) error
	AddMember(ctx context.Context, id, userID ID) error
	// RemoveMember also drops the user from sub-admins and pending requests
	RemoveMember(ctx context.Context, id, userID ID) error
	AddSubAdmin(ctx context.Context, id, userID ID) error
	RemoveSubAdmin(ctx context.Context, id, userID ID) error
	AddJoinRequest(ctx context.Context, id ID, req models.JoinRequest) error
	RemoveJoinRequest(ctx context.Context, id, userID ID) error
	// StartTrial fails with ErrConflict unless the community is unpaid and never had a trial
	StartTrial(ctx context.Context, id ID, start, end time.Time) error
	MarkPaid(ctx context.Context, id ID, until time.Time) error
	Suspend(ctx context.Context, id ID, reason string, at time.Time) error
	// SuspendLapsed suspends trial/paid communities whose end date is before now
	SuspendLapsed(ctx context.Context, now time.Time) (int64, error)
	ListTrialsEndingBetween(ctx context.Context, from, to time.Time) ([]models.Community, error)
	SetGatewayCustomerID(ctx context.Context, id ID, customerID string) error
}

// PostRepository stores posts
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id ID) (*models.Post, error)
	ListByCommunity(ctx context.Context, communityID ID, skip, limit int64) ([]models.Post, int64, error)
	Update(ctx context.Context, id ID, title, content string) error
	Delete(ctx context.Context, id ID) error
	DeleteByCommunity(ctx context.Context, communityID ID) (int64, error)
	AddLike(ctx context.Context, id, userID ID) (*models.Post, error)
	RemoveLike(ctx context.Context, id, userID ID) (*models.Post, error)
	SetPinned(ctx context.Context, id ID, pinned bool) error
	IncrementCommentCount(ctx context.Context, id ID, delta int) error
}

// CommentRepository stores comments
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id ID) (*models.Comment, error)
	ListByPost(ctx context.Context, postID ID) ([]models.Comment, error)
	DeleteMany(ctx context.Context, ids []ID) (int64, error)
	DeleteByPost(ctx context.Context, postID ID) (int64, error)
	AddLike(ctx context.Context, id, userID ID) (*models.Comment, error)
	RemoveLike(ctx context.Context, id, userID ID) (*models.Comment, error)
}

// CourseRepository stores courses with their embedded modules and lessons
type CourseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	GetByID(ctx context.Context, id ID) (*models.Course, error)
	ListByCommunity(ctx context.Context, communityID ID, publishedOnly bool) ([]models.Course, error)
	Update(ctx context.Context, id ID, title, description string) error
	SetPublished(ctx context.Context, id ID, published bool) error
	Delete(ctx context.Context, id ID) error
	AddModule(ctx context.Context, id ID, module models.Module) error
	AddLesson(ctx context.Context, id, moduleID ID, lesson models.Lesson) error
	RemoveLesson(ctx context.Context, id, lessonID ID) error
	Enroll(ctx context.Context, id, userID ID) error
	Unenroll(ctx context.Context, id, userID ID) error
}

// ProgressRepository stores one progress record per (user, course)
type ProgressRepository interface {
	Create(ctx context.Context, progress *models.UserProgress) error
	Get(ctx context.Context, userID, courseID ID) (*models.UserProgress, error)
	// AddCompletedLesson adds lessonID once; added is false when it was already present
	AddCompletedLesson(ctx context.Context, userID, courseID, lessonID ID, at time.Time) (*models.UserProgress, bool, error)
	ListByCourse(ctx context.Context, courseID ID) ([]models.UserProgress, error)
	// SetProgress stores progress and completedAt; a nil completedAt clears it
	SetProgress(ctx context.Context, id ID, progress float64, completedAt *time.Time) error
	Delete(ctx context.Context, userID, courseID ID) error
	DeleteByCourse(ctx context.Context, courseID ID) (int64, error)
}

// MessageRepository stores direct messages
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	ListConversation(ctx context.Context, userID, partnerID ID, skip, limit int64) ([]models.Message, int64, error)
	Conversations(ctx context.Context, userID ID) ([]models.ConversationSummary, error)
	MarkRead(ctx context.Context, recipientID, senderID ID, at time.Time) (int64, error)
}

// NotificationRepository stores notifications
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, recipientID ID, unreadOnly bool, skip, limit int64) ([]models.Notification, int64, error)
	MarkRead(ctx context.Context, recipientID, id ID) error
	MarkAllRead(ctx context.Context, recipientID ID) (int64, error)
	CountUnread(ctx context.Context, recipientID ID) (int64, error)
}

// TransactionUpdate are the optional fields written together with a status transition
type TransactionUpdate struct {
	GatewayPaymentID string
	FailureReason    string
}

// TransactionRepository stores payment transactions
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id ID) (*models.Transaction, error)
	GetBySessionID(ctx context.Context, sessionID string) (*models.Transaction, error)
	GetByPaymentID(ctx context.Context, paymentID string) (*models.Transaction, error)
	SetSessionID(ctx context.Context, id ID, sessionID string) error
	// Transition moves the transaction to status only from an allowed predecessor;
	// applied is false when the current status does not allow it
	Transition(ctx context.Context, id ID, status models.TransactionStatus, update TransactionUpdate) (bool, error)
	ListByUser(ctx context.Context, userID ID, skip, limit int64) ([]models.Transaction, int64, error)
}

// PlanRepository stores payment plans
type PlanRepository interface {
	Upsert(ctx context.Context, plan *models.PaymentPlan) error
	GetByCode(ctx context.Context, code string) (*models.PaymentPlan, error)
	ListActive(ctx context.Context) ([]models.PaymentPlan, error)
}

// SubscriptionRepository stores gateway subscriptions
type SubscriptionRepository interface {
	// Upsert inserts or updates by gateway subscription id
	Upsert(ctx context.Context, sub *models.CommunitySubscription) error
	GetByID(ctx context.Context, id ID) (*models.CommunitySubscription, error)
	GetByGatewayID(ctx context.Context, gatewayID string) (*models.CommunitySubscription, error)
	FindLatest(ctx context.Context, userID, communityID ID, purpose models.PaymentPurpose) (*models.CommunitySubscription, error)
	ListByUser(ctx context.Context, userID ID) ([]models.CommunitySubscription, error)
	SetStatus(ctx context.Context, id ID, status models.CommunitySubscriptionStatus, cancelledAt *time.Time) error
	ExtendPeriod(ctx context.Context, gatewayID string, periodEnd time.Time) error
	ExpireLapsed(ctx context.Context, now time.Time) (int64, error)
}

// TrialAuditRepository appends trial eligibility checks to the ledger
type TrialAuditRepository interface {
	Record(ctx context.Context, entry *models.TrialAudit) error
	CountByIP(ctx context.Context, ip string, since time.Time) (int64, error)
}

// WebhookEventRepository remembers processed gateway events
type WebhookEventRepository interface {
	// MarkProcessed returns false when the event id was already recorded
	MarkProcessed(ctx context.Context, eventID, eventType string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}
