package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/app/models/dto"
	"github.com/yigit/circlehub/internal/pkg/apperrors"
	"github.com/yigit/circlehub/internal/pkg/helpers"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSendMessage(t *testing.T) {
	env := newTestEnv(t)
	a, b := env.user(t, "alice"), env.user(t, "bob")
	svc := env.services.Messages

	_, err := svc.Send(env.ctx, a.ID, &dto.SendMessageRequest{RecipientID: a.ID.Hex(), Content: "me"})
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
	_, err = svc.Send(env.ctx, a.ID, &dto.SendMessageRequest{RecipientID: primitive.NewObjectID().Hex(), Content: "ghost"})
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
	_, err = svc.Send(env.ctx, a.ID, &dto.SendMessageRequest{RecipientID: b.ID.Hex(), Content: "   "})
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	for _, text := range []string{"hi", "are you there?"} {
		_, err := svc.Send(env.ctx, a.ID, &dto.SendMessageRequest{RecipientID: b.ID.Hex(), Content: text})
		require.NoError(t, err)
	}
	_, err = svc.Send(env.ctx, b.ID, &dto.SendMessageRequest{RecipientID: a.ID.Hex(), Content: "yes"})
	require.NoError(t, err)

	conv, err := svc.Conversation(env.ctx, b.ID, a.ID, helpers.NewPage(1, 10))
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 3)
	assert.Equal(t, int64(3), conv.TotalItems)

	summaries, err := svc.Conversations(env.ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, a.ID, summaries[0].Partner)
	assert.Equal(t, 2, summaries[0].UnreadCount)

	marked, err := svc.MarkRead(env.ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), marked)
	summaries, err = svc.Conversations(env.ctx, b.ID)
	require.NoError(t, err)
	assert.Zero(t, summaries[0].UnreadCount)
}

func TestNotifications(t *testing.T) {
	env := newTestEnv(t)
	a, b := env.user(t, "alice"), env.user(t, "bob")
	svc := env.services.Notifications

	svc.Dispatch(env.ctx, Notice{Recipient: a.ID, Actor: actorRef(a.ID), Type: models.NotificationLike, Message: "self"})
	for i := 0; i < 3; i++ {
		svc.Dispatch(env.ctx, Notice{Recipient: a.ID, Actor: actorRef(b.ID), Type: models.NotificationFollow, Message: "hello"})
	}

	count, err := svc.UnreadCount(env.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	page, err := svc.List(env.ctx, a.ID, helpers.NewPage(1, 2), false)
	require.NoError(t, err)
	assert.Len(t, page.Notifications, 2)
	assert.Equal(t, int64(3), page.UnreadCount)

	require.NoError(t, svc.MarkRead(env.ctx, a.ID, page.Notifications[0].ID))
	err = svc.MarkRead(env.ctx, b.ID, page.Notifications[1].ID)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)

	unread, err := svc.List(env.ctx, a.ID, helpers.NewPage(1, 10), true)
	require.NoError(t, err)
	assert.Len(t, unread.Notifications, 2)

	n, err := svc.MarkAllRead(env.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	count, err = svc.UnreadCount(env.ctx, a.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
