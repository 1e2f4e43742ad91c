package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/app/repositories"
	"github.com/yigit/circlehub/internal/app/repositories/inmem"
	"github.com/yigit/circlehub/internal/pkg/auth"
	"github.com/yigit/circlehub/internal/pkg/cache"
	"github.com/yigit/circlehub/internal/pkg/metrics"
	"github.com/yigit/circlehub/internal/pkg/payments"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type testEnv struct {
	ctx      context.Context
	db       *inmem.DB
	repos    *repositories.Repositories
	cache    *cache.MockClient
	gateway  *payments.FakeGateway
	metrics  *metrics.Recorder
	services *Services
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := inmem.NewDB()
	env := &testEnv{
		ctx:     context.Background(),
		db:      db,
		repos:   inmem.NewRepositories(db),
		cache:   cache.NewMockClient(),
		gateway: payments.NewFakeGateway(),
		metrics: metrics.NewRecorder(),
	}
	env.services = NewServices(env.repos, Dependencies{
		JWT: auth.NewJWTService(auth.JWTConfig{
			SecretKey:      "test-secret",
			AccessTokenExp: time.Hour,
			TokenIssuer:    "circlehub.test",
		}),
		Cache:    env.cache,
		Gateway:  env.gateway,
		Metrics:  env.metrics,
		Trial:    TrialConfig{Days: 14, ReminderDays: 3},
		Checkout: CheckoutURLs{SuccessURL: "https://app.test/ok", CancelURL: "https://app.test/cancel"},
	})
	return env
}

func (e *testEnv) user(t *testing.T, username string) *models.User {
	t.Helper()
	u := &models.User{
		Name:               username,
		Email:              username + "@example.com",
		Username:           username,
		Level:              1,
		SubscriptionStatus: models.SubscriptionNone,
	}
	require.NoError(t, e.repos.Users.Create(e.ctx, u))
	return u
}

func (e *testEnv) community(t *testing.T, admin *models.User, mutate func(c *models.Community)) *models.Community {
	t.Helper()
	c := &models.Community{
		Name:          "Go Builders",
		Slug:          "go-builders-" + primitive.NewObjectID().Hex()[18:],
		Admin:         admin.ID,
		SubAdmins:     []primitive.ObjectID{},
		Members:       []primitive.ObjectID{admin.ID},
		Currency:      "usd",
		PaymentStatus: models.PaymentStatusUnpaid,
	}
	if mutate != nil {
		mutate(c)
	}
	require.NoError(t, e.repos.Communities.Create(e.ctx, c))
	return c
}

func (e *testEnv) addMember(t *testing.T, c *models.Community, u *models.User) {
	t.Helper()
	require.NoError(t, e.repos.Communities.AddMember(e.ctx, c.ID, u.ID))
}

func (e *testEnv) reloadUser(t *testing.T, id primitive.ObjectID) *models.User {
	t.Helper()
	u, err := e.repos.Users.GetByID(e.ctx, id)
	require.NoError(t, err)
	return u
}

func (e *testEnv) reloadCommunity(t *testing.T, id primitive.ObjectID) *models.Community {
	t.Helper()
	c, err := e.repos.Communities.GetByID(e.ctx, id)
	require.NoError(t, err)
	return c
}

func (e *testEnv) notificationsFor(t *testing.T, id primitive.ObjectID) []models.Notification {
	t.Helper()
	items, _, err := e.repos.Notifications.List(e.ctx, id, false, 0, 100)
	require.NoError(t, err)
	return items
}
