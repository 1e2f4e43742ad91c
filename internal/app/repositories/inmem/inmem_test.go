package inmem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/app/repositories"
	"github.com/yigit/circlehub/internal/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestTransactionTransitionGuards(t *testing.T) {
	ctx := context.Background()
	repo := NewTransactionRepository(NewDB())

	tx := &models.Transaction{User: primitive.NewObjectID(), Amount: 500, Currency: "usd"}
	require.NoError(t, repo.Create(ctx, tx))
	assert.Equal(t, models.TransactionCreated, tx.Status)

	applied, err := repo.Transition(ctx, tx.ID, models.TransactionRefunded, repositories.TransactionUpdate{})
	require.NoError(t, err)
	assert.False(t, applied)

	applied, err = repo.Transition(ctx, tx.ID, models.TransactionCaptured, repositories.TransactionUpdate{GatewayPaymentID: "pi_1"})
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = repo.Transition(ctx, tx.ID, models.TransactionFailed, repositories.TransactionUpdate{FailureReason: "late"})
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := repo.GetByPaymentID(ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionCaptured, got.Status)
	assert.Empty(t, got.FailureReason)
}

func TestConversationsGroupsByPartner(t *testing.T) {
	ctx := context.Background()
	db := NewDB()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	db.Now = func() time.Time { clock = clock.Add(time.Minute); return clock }
	repo := NewMessageRepository(db)

	me, alice, bob := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	send := func(from, to primitive.ObjectID, text string) {
		require.NoError(t, repo.Create(ctx, &models.Message{Sender: from, Recipient: to, Content: text}))
	}
	send(alice, me, "hi")
	send(me, alice, "hello")
	send(bob, me, "yo")
	send(bob, me, "there?")

	convs, err := repo.Conversations(ctx, me)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, bob, convs[0].Partner)
	assert.Equal(t, "there?", convs[0].LastMessage.Content)
	assert.Equal(t, 2, convs[0].UnreadCount)
	assert.Equal(t, alice, convs[1].Partner)
	assert.Equal(t, 1, convs[1].UnreadCount)

	n, err := repo.MarkRead(ctx, me, bob, clock)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestJoinRequestQueuedOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewCommunityRepository(NewDB())
	c := &models.Community{Name: "Go", Slug: "go", IsPrivate: true}
	require.NoError(t, repo.Create(ctx, c))

	user := primitive.NewObjectID()
	require.NoError(t, repo.AddJoinRequest(ctx, c.ID, models.JoinRequest{UserID: user}))
	err := repo.AddJoinRequest(ctx, c.ID, models.JoinRequest{UserID: user})
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))

	require.NoError(t, repo.AddMember(ctx, c.ID, user))
	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.IsMember(user))
	assert.False(t, got.HasPendingRequest(user))
}

func TestCompletedLessonAddedOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewProgressRepository(NewDB())
	user, course, lesson := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	require.NoError(t, repo.Create(ctx, &models.UserProgress{User: user, Course: course}))

	_, added, err := repo.AddCompletedLesson(ctx, user, course, lesson, time.Now())
	require.NoError(t, err)
	assert.True(t, added)

	p, added, err := repo.AddCompletedLesson(ctx, user, course, lesson, time.Now())
	require.NoError(t, err)
	assert.False(t, added)
	assert.Len(t, p.CompletedLessons, 1)
}
