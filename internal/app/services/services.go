// Package services holds the business rules. Every service takes repository
// interfaces so it runs the same against MongoDB and the in-memory store.
package services

import (
	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/yigit/circlehub/internal/app/repositories"
	"github.com/yigit/circlehub/internal/pkg/auth"
	"github.com/yigit/circlehub/internal/pkg/cache"
	"github.com/yigit/circlehub/internal/pkg/logger"
	"github.com/yigit/circlehub/internal/pkg/payments"
)

// Dependencies are the infrastructure clients shared by the services
type Dependencies struct {
	JWT      *auth.JWTService
	Cache    cache.Client
	Gateway  payments.Gateway
	Metrics  statsd.ClientInterface
	Trial    TrialConfig
	Checkout CheckoutURLs
}

// Services groups every service the handlers use
type Services struct {
	Auth          AuthService
	Users         UserService
	Communities   CommunityService
	Posts         PostService
	Comments      CommentService
	Courses       CourseService
	Messages      MessageService
	Notifications NotificationService
	Gamification  GamificationService
	Suspension    SuspensionService
	Trials        TrialService
	Payments      PaymentService
	Webhooks      WebhookService
}

// NewServices wires the services on top of repos
func NewServices(repos *repositories.Repositories, deps Dependencies) *Services {
	notifications := NewNotificationService(repos.Notifications, logger.Component("notifications"))
	gamification := NewGamificationService(repos.Users, repos.Communities, deps.Cache, logger.Component("gamification"))
	suspension := NewSuspensionService(repos.Communities, logger.Component("suspension"))

	return &Services{
		Auth:  NewAuthService(repos.Users, deps.JWT, logger.Component("auth")),
		Users: NewUserService(repos.Users, notifications, logger.Component("users")),
		Communities: NewCommunityService(repos.Communities, repos.Users, repos.Posts, repos.Courses,
			repos.Subscriptions, notifications, logger.Component("communities")),
		Posts: NewPostService(repos.Posts, repos.Comments, repos.Communities, suspension, gamification,
			notifications, logger.Component("posts")),
		Comments: NewCommentService(repos.Comments, repos.Posts, repos.Communities, suspension, gamification,
			notifications, logger.Component("comments")),
		Courses:       NewCourseService(repos.Courses, repos.Progress, repos.Communities, gamification, logger.Component("courses")),
		Messages:      NewMessageService(repos.Messages, repos.Users, logger.Component("messages")),
		Notifications: notifications,
		Gamification:  gamification,
		Suspension:    suspension,
		Trials: NewTrialService(repos.Users, repos.Communities, repos.Subscriptions, repos.TrialAudits,
			notifications, deps.Cache, deps.Metrics, deps.Trial, logger.Component("trials")),
		Payments: NewPaymentService(repos.Users, repos.Communities, repos.Transactions, repos.Plans,
			repos.Subscriptions, deps.Gateway, deps.Checkout, logger.Component("payments")),
		Webhooks: NewWebhookService(repos.Users, repos.Communities, repos.Transactions, repos.Plans,
			repos.Subscriptions, repos.WebhookEvents, suspension, notifications, deps.Gateway, deps.Metrics,
			logger.Component("webhooks")),
	}
}
