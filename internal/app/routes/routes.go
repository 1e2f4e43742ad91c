package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/circlehub/internal/app/controllers"
	"github.com/yigit/circlehub/internal/middleware"
)

// Controllers groups the handlers mounted by SetupRouter
type Controllers struct {
	Auth      *controllers.AuthController
	Users     *controllers.UserController
	Community *controllers.CommunityController
	Posts     *controllers.PostController
	Courses   *controllers.CourseController
	Messages  *controllers.MessageController
	Payments  *controllers.PaymentController
	System    *controllers.SystemController
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, ctl Controllers, authMiddleware *middleware.AuthMiddleware, cronSecret string) {
	router.GET("/health", ctl.System.Health)
	router.GET("/ping", ctl.System.Ping)

	// API version group
	v1 := router.Group("/api/v1")

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", ctl.Auth.Register)
		auth.POST("/login", ctl.Auth.Login)
		auth.POST("/logout", ctl.Auth.Logout)
	}

	// Gateway callbacks are authenticated by their signature
	v1.POST("/webhooks/stripe", ctl.Payments.StripeWebhook)

	cron := v1.Group("/cron")
	cron.Use(middleware.CronSecret(cronSecret))
	{
		cron.POST("/expire", ctl.System.ExpireLapsed)
		cron.POST("/trial-reminders", ctl.System.TrialReminders)
	}

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())

	authenticated.GET("/auth/me", ctl.Auth.Me)

	users := authenticated.Group("/users")
	{
		users.PUT("/me", ctl.Users.UpdateProfile)
		users.PUT("/me/username", ctl.Users.UpdateUsername)
		users.PUT("/me/password", ctl.Users.ChangePassword)
		users.GET("/:id", ctl.Users.GetProfile)
		users.POST("/:id/follow", ctl.Users.Follow)
		users.DELETE("/:id/follow", ctl.Users.Unfollow)
		users.GET("/:id/followers", ctl.Users.ListFollowers)
		users.GET("/:id/following", ctl.Users.ListFollowing)
	}

	communities := authenticated.Group("/communities")
	{
		communities.GET("", ctl.Community.ListCommunities)
		communities.POST("", ctl.Community.CreateCommunity)
		communities.GET("/mine", ctl.Community.ListMyCommunities)
		communities.GET("/:id", ctl.Community.GetCommunity)
		communities.PUT("/:id", ctl.Community.UpdateCommunity)
		communities.DELETE("/:id", ctl.Community.DeleteCommunity)

		communities.POST("/:id/join", ctl.Community.JoinCommunity)
		communities.POST("/:id/leave", ctl.Community.LeaveCommunity)
		communities.GET("/:id/join-requests", ctl.Community.ListJoinRequests)
		communities.POST("/:id/join-requests/:userId/approve", ctl.Community.ApproveJoinRequest)
		communities.POST("/:id/join-requests/:userId/reject", ctl.Community.RejectJoinRequest)

		communities.GET("/:id/members", ctl.Community.ListMembers)
		communities.DELETE("/:id/members/:userId", ctl.Community.RemoveMember)
		communities.POST("/:id/sub-admins", ctl.Community.AddSubAdmin)
		communities.DELETE("/:id/sub-admins/:userId", ctl.Community.RemoveSubAdmin)
		communities.GET("/:id/leaderboard", ctl.Community.Leaderboard)

		communities.GET("/:id/posts", ctl.Posts.ListPosts)
		communities.POST("/:id/posts", ctl.Posts.CreatePost)
		communities.GET("/:id/courses", ctl.Courses.ListCourses)
		communities.POST("/:id/courses", ctl.Courses.CreateCourse)
	}

	posts := authenticated.Group("/posts")
	{
		posts.GET("/:id", ctl.Posts.GetPost)
		posts.PUT("/:id", ctl.Posts.UpdatePost)
		posts.DELETE("/:id", ctl.Posts.DeletePost)
		posts.POST("/:id/like", ctl.Posts.ToggleLike)
		posts.POST("/:id/pin", ctl.Posts.TogglePin)
		posts.GET("/:id/comments", ctl.Posts.ListComments)
		posts.POST("/:id/comments", ctl.Posts.CreateComment)
	}

	comments := authenticated.Group("/comments")
	{
		comments.DELETE("/:id", ctl.Posts.DeleteComment)
		comments.POST("/:id/like", ctl.Posts.ToggleCommentLike)
	}

	courses := authenticated.Group("/courses")
	{
		courses.GET("/:id", ctl.Courses.GetCourse)
		courses.PUT("/:id", ctl.Courses.UpdateCourse)
		courses.DELETE("/:id", ctl.Courses.DeleteCourse)
		courses.PUT("/:id/publish", ctl.Courses.PublishCourse)
		courses.POST("/:id/modules", ctl.Courses.AddModule)
		courses.POST("/:id/modules/:moduleId/lessons", ctl.Courses.AddLesson)
		courses.DELETE("/:id/lessons/:lessonId", ctl.Courses.RemoveLesson)
		courses.POST("/:id/lessons/:lessonId/complete", ctl.Courses.CompleteLesson)
		courses.POST("/:id/enroll", ctl.Courses.Enroll)
		courses.DELETE("/:id/enroll", ctl.Courses.Unenroll)
		courses.GET("/:id/progress", ctl.Courses.GetProgress)
	}

	messages := authenticated.Group("/messages")
	{
		messages.POST("", ctl.Messages.SendMessage)
		messages.GET("/conversations", ctl.Messages.ListConversations)
		messages.GET("/:userId", ctl.Messages.GetConversation)
		messages.PUT("/:userId/read", ctl.Messages.MarkConversationRead)
	}

	notifications := authenticated.Group("/notifications")
	{
		notifications.GET("", ctl.Messages.ListNotifications)
		notifications.GET("/unread-count", ctl.Messages.UnreadCount)
		notifications.PUT("/read-all", ctl.Messages.MarkAllNotificationsRead)
		notifications.PUT("/:id/read", ctl.Messages.MarkNotificationRead)
	}

	payments := authenticated.Group("/payments")
	{
		payments.GET("/plans", ctl.Payments.ListPlans)
		payments.POST("/checkout", ctl.Payments.CreateCheckout)
		payments.GET("/transactions", ctl.Payments.ListTransactions)
		payments.GET("/subscriptions", ctl.Payments.ListSubscriptions)
		payments.POST("/subscriptions/:id/cancel", ctl.Payments.CancelSubscription)
	}

	trials := authenticated.Group("/trials")
	{
		trials.POST("/eligibility", ctl.Payments.CheckTrialEligibility)
		trials.POST("/activate", ctl.Payments.ActivateTrial)
	}
}
